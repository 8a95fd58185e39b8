package actor

import "sync/atomic"

// atomicFlags is a lock-free bitmask used for the mailbox's
// {scheduled, suspended, closed} word (§4.1).
type atomicFlags struct {
	v atomic.Uint32
}

func (f *atomicFlags) has(flag mbxFlag) bool {
	return f.v.Load()&uint32(flag) != 0
}

func (f *atomicFlags) set(flag mbxFlag) {
	for {
		old := f.v.Load()
		if old&uint32(flag) != 0 {
			return
		}
		if f.v.CompareAndSwap(old, old|uint32(flag)) {
			return
		}
	}
}

func (f *atomicFlags) clear(flag mbxFlag) {
	for {
		old := f.v.Load()
		if old&uint32(flag) == 0 {
			return
		}
		if f.v.CompareAndSwap(old, old&^uint32(flag)) {
			return
		}
	}
}

// trySet is the CAS primitive: flips flag false→true and reports whether
// this call performed the flip.
func (f *atomicFlags) trySet(flag mbxFlag) bool {
	for {
		old := f.v.Load()
		if old&uint32(flag) != 0 {
			return false
		}
		if f.v.CompareAndSwap(old, old|uint32(flag)) {
			return true
		}
	}
}
