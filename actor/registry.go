package actor

import (
	"sync"
	"sync/atomic"

	"github.com/arbiter-run/arbiter/path"
)

// pathEntry is a Registry slot: either a live cell, or a tombstone
// blocking name reuse until the parent observes ChildTerminated (§3, §4.4).
type pathEntry struct {
	uid        uint64
	cell       *internalCell
	tombstoned bool
}

// Registry is the path tree / name-uniqueness / reference-resolution
// component (C4). It is reader-mostly: lookups (the hot path, once per
// Tell) take a read lock; registration and tombstone transitions
// (comparatively rare) take a write lock. §5 calls a single
// reader-mostly lock with optional sharding "acceptable"; arbiter keeps
// the single-lock form since registry mutation is not on arbiter's hot
// path (mailbox push/CAS is).
type Registry struct {
	mu      sync.RWMutex
	byPath  map[string]*pathEntry
	nextUID atomic.Uint64
	sys     SystemHandle
}

// NewRegistry constructs an empty Registry bound to sys for dead-letter
// forwarding.
func NewRegistry(sys SystemHandle) *Registry {
	return &Registry{byPath: make(map[string]*pathEntry), sys: sys}
}

func (r *Registry) allocateUID() uint64 { return r.nextUID.Add(1) }

// nameAvailable reports whether name is free for registration as a child
// of parent: neither a live cell nor a tombstone may already occupy it
// (§4.4, §8 invariant 7).
func (r *Registry) nameAvailable(childPath path.Path) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.byPath[childPath.String()]
	return !exists
}

func (r *Registry) register(p path.Path, uid uint64, c *internalCell) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPath[p.String()] = &pathEntry{uid: uid, cell: c}
}

// markTombstoned replaces a live entry with a tombstone once its cell
// terminates; the entry still blocks name reuse (§4.4).
func (r *Registry) markTombstoned(p path.Path, uid uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byPath[p.String()]; ok && e.uid == uid {
		e.tombstoned = true
		e.cell = nil
	}
}

// clearTombstone releases a tombstone once the parent has observed
// ChildTerminated, permitting the name to be reused (§4.4).
func (r *Registry) clearTombstone(p path.Path) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byPath, p.String())
}

// lookup resolves (path, uid) to a live cell. A mismatched uid (stale
// reference to a reused path) or a tombstoned/absent path both miss.
func (r *Registry) lookup(p path.Path, uid uint64) (*internalCell, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byPath[p.String()]
	if !ok || e.tombstoned || e.cell == nil || e.uid != uid {
		return nil, false
	}
	return e.cell, true
}

func (r *Registry) deadLetter(env Envelope, recipient path.Path) {
	if r.sys != nil {
		r.sys.DeadLetter(env, recipient)
	}
}

// Select resolves an absolute path to a Reference, falling back to a
// dead-letter-routing Reference (uid 0, never matched) when no live cell
// occupies it (§4.4). Wildcards are explicitly out of scope here (§4.4);
// a surrounding selection layer can build them on top of Select.
func (r *Registry) Select(p path.Path) Reference {
	r.mu.RLock()
	e, ok := r.byPath[p.String()]
	r.mu.RUnlock()
	if !ok || e.tombstoned || e.cell == nil {
		return Reference{p: p, uid: 0, rt: r}
	}
	return Reference{p: p, uid: e.uid, rt: r}
}
