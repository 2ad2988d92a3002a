// Package allocator implements a bounded, lock-free, one-way bump allocator:
// a fixed-capacity slice handed out one element at a time via a single
// atomic cursor, with no corresponding free operation. It is the companion
// collaborator the ring buffer package is commonly paired with, illustrating
// the same CAS-loop style applied to the simpler problem of claiming a
// unique index rather than handing off a value between goroutines.
package allocator
