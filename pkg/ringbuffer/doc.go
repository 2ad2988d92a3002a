// Package ringbuffer implements a bounded, lock-free, multi-producer /
// single-consumer circular buffer.
//
// Producers enqueue by publishing a payload into a slot chosen by a
// monotonically increasing write sequence; the single consumer drains in the
// same order using a matching read sequence. Each slot carries a numeric tag
// derived from the sequence it next expects, which shields slot reuse across
// buffer wraps from the ABA hazard: a stalled producer can never mistake an
// empty slot from two epochs ago for the one it is waiting on.
//
// Put is multi-producer safe and lock-free: any producer that observes the
// current write sequence helps complete it (by attempting to advance the
// counter) regardless of whether its own publish attempt won or lost, which
// is what keeps the system as a whole making progress under contention. Get
// must only ever be called from a single goroutine.
package ringbuffer
