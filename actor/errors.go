package actor

import "errors"

// CreateError values, returned synchronously from ActorOf (§6, §7).
var (
	ErrDuplicateName = errors.New("actor: duplicate name")
	ErrInvalidName   = errors.New("actor: invalid name")
	ErrSystemStopped = errors.New("actor: system stopped")
)

// TellError values, returned synchronously from TryTell (§6, §7).
var (
	ErrMailboxClosed   = errors.New("actor: mailbox closed")
	ErrMailboxOverflow = errors.New("actor: mailbox overflow")
)

// errRestartAttempt is never returned to a caller; it is fed to the
// per-child restart-intensity breaker purely to make each restart attempt
// count against gobreaker's consecutive-failure bookkeeping (see
// supervision.go).
var errRestartAttempt = errors.New("actor: restart attempt")
