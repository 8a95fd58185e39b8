// Package actor is the hard core of arbiter: the actor cell, its mailbox,
// the hierarchy/registry, supervision, and the dispatcher that schedules
// cell drains onto a caller-supplied executor.
//
// Everything that needs to see both a Reference and the cell it addresses
// lives in this one package (mirroring the pack's own actor libraries,
// e.g. protoactor-go and czx-lab-czx, which keep PID/process/context
// together for the same reason): a Reference is a weak, clonable
// enqueue-capability, and a Cell is the sole strong owner of its
// children, so splitting them across packages would force either an
// import cycle or exported plumbing with no other purpose.
//
// Type safety is recovered only at the Reference/Actor boundary (Ref[M],
// Actor[M]); the cell, mailbox, registry, dispatcher and supervision
// machinery below that boundary are intentionally untyped (any-payloads,
// boxed actor instances), per the "dynamic dispatch over the actor type"
// design note.
package actor
