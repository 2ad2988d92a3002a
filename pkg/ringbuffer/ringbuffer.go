package ringbuffer

import (
	"errors"
	"math"
	"math/bits"
	"sync/atomic"
)

// ErrOverrun is returned by Put when the buffer has no free slot for the
// producer's write sequence, i.e. wcount-rcount has already reached capacity.
var ErrOverrun = errors.New("ringbuffer: buffer overrun")

const (
	// BufferOverrun is the sentinel index value returned alongside ErrOverrun.
	// It is drawn from the top of the index space and can never collide with a
	// real slot index, which always lies in [0, capacity).
	BufferOverrun uint64 = math.MaxUint64 - 1

	// ImpossibleValue is reserved for unreachable-code signaling only; it is
	// never returned by any exported operation.
	ImpossibleValue uint64 = math.MaxUint64 - 2
)

// cell is the boxed, single-word, CAS-able state of one ring slot. Exactly
// one of its two interpretations is live at a time:
//
//   - empty-tag:      val == nil, tag holds the epoch tag of the next write
//     sequence this slot expects.
//   - pointer-record: val != nil, the payload deposited by the producer that
//     most recently won this slot's publish CAS.
//
// A *cell[T] is immutable once constructed; publish and drain each swap in a
// freshly allocated cell rather than mutating one in place, so the slot's
// atomic.Pointer CAS is the sole arbiter of who gets to transition it.
type cell[T any] struct {
	tag uint64
	val *T
}

// isPointer reports whether c represents a pointer-record rather than an
// empty-tag. A nil c (never stored, but checked defensively) counts as empty.
func isPointer[T any](c *cell[T]) bool {
	return c != nil && c.val != nil
}

// Buffer is a fixed-capacity, lock-free, multi-producer / single-consumer
// ring buffer of *T payloads. The zero value is not usable; construct one
// with New.
type Buffer[T any] struct {
	mask  uint64
	slots []atomic.Pointer[cell[T]]

	wcount atomic.Uint64 // writer sequence, monotonically increasing
	rcount atomic.Uint64 // reader sequence, monotonically increasing

	// OnHelp, if set, is invoked each time Put advances wcount on behalf of a
	// rival producer that already won the slot CAS for sequence w, rather
	// than on behalf of its own successful publish. It exists purely as an
	// instrumentation seam for callers that want to observe the helping
	// discipline (e.g. pkg/metrics); the protocol itself never reads it.
	OnHelp func()
}

// New creates a Buffer with capacity 2^sizeMagnitude. sizeMagnitude must be
// at least 1 (capacity >= 2) and small enough that capacity fits comfortably
// under the sentinel values reserved near the top of the uint64 range; 62 is
// an extremely generous practical ceiling.
func New[T any](sizeMagnitude uint) *Buffer[T] {
	if sizeMagnitude < 1 || sizeMagnitude > 62 {
		panic("ringbuffer: sizeMagnitude must be in [1, 62]")
	}
	capacity := uint64(1) << sizeMagnitude
	b := &Buffer[T]{
		mask:  capacity - 1,
		slots: make([]atomic.Pointer[cell[T]], capacity),
	}
	for i := range b.slots {
		// Every slot starts empty, advertising tag 0: under the per-epoch
		// scheme every index's first expected write sequence (0..capacity-1)
		// maps to epoch tag 0, so the zero value needs no special case.
		b.slots[i].Store(&cell[T]{tag: 0})
	}
	return b
}

// Cap returns the buffer's fixed capacity.
func (b *Buffer[T]) Cap() int {
	return int(b.mask + 1)
}

// epochTag is the empty-state tag a slot advertises when it is next expecting
// write sequence s: the high bits of s above the index bits. All slots
// belonging to the same revolution of wcount share this tag; it changes by
// capacity on every wrap.
func (b *Buffer[T]) epochTag(s uint64) uint64 {
	return s &^ b.mask
}

// index maps a sequence number to its slot.
func (b *Buffer[T]) index(s uint64) uint64 {
	return s & b.mask
}

// Put publishes p into the buffer. On success it returns the slot index the
// payload landed in and ownership of p transfers to the buffer. On overrun it
// returns (BufferOverrun, ErrOverrun) and leaves all shared state unchanged.
//
// Put is safe for concurrent use by any number of producer goroutines. It is
// wait-free in the absence of contention and lock-free under contention: at
// every retry, some producer is guaranteed to make progress, via the helping
// discipline described below.
func (b *Buffer[T]) Put(p *T) (uint64, error) {
	// Acquire ordering here is needed both to order this load against the
	// subsequent slot load below (so a stale slot is never observed) and to
	// prevent a reordered rcount load from reporting a false overrun.
	w := b.wcount.Load()

	for {
		// Relaxed is sufficient: a stale-but-smaller r only causes a spurious
		// overflow report, which callers already tolerate; a stale-but-larger r
		// cannot happen because r <= w always holds.
		r := b.rcount.Load()
		if diff := w - r; diff >= uint64(len(b.slots)) {
			return BufferOverrun, ErrOverrun
		}

		i := b.index(w)
		slot := &b.slots[i]
		expected := slot.Load()
		rivalWon := isPointer(expected)

		if !rivalWon && expected.tag == b.epochTag(w) {
			// The slot is genuinely waiting for sequence w. Win the race to
			// claim it with a strong CAS: a spurious (weak) failure here
			// would let the helping step below advance wcount past a
			// sequence nobody actually published.
			if slot.CompareAndSwap(expected, &cell[T]{val: p}) {
				// Help complete our own bookkeeping; a failure here is
				// benign and means a rival producer already did it for us.
				b.wcount.CompareAndSwap(w, w+1)
				return i, nil
			}
			// Only a producer's publish moves a slot off the tag it
			// advertises for w, so losing this CAS means a rival won it.
			rivalWon = true
		}

		// Either the slot was not ours to claim, or we lost the CAS race for
		// it. Either way, help advance wcount regardless of outcome: this is
		// what lets a producer preempted between its slot-CAS and its own
		// counter-CAS be completed by a rival instead of stalling the whole
		// buffer.
		advanced := b.wcount.CompareAndSwap(w, w+1)
		if advanced && rivalWon && b.OnHelp != nil {
			b.OnHelp()
		}
		w = b.wcount.Load()
	}
}

// Get drains the oldest undrained payload, if any. It must only ever be
// called from a single goroutine; concurrent calls to Get race each other.
//
// A false second return means the buffer is empty. This includes the
// transient case where a producer's counter check has already made w > r
// true but that producer's slot CAS has not yet landed: the consumer sees
// the invariant satisfied but the slot still advertising its empty tag, and
// is specified to report empty rather than wait, retrying on the caller's
// next call.
func (b *Buffer[T]) Get() (*T, bool) {
	w := b.wcount.Load()
	r := b.rcount.Load()
	if w == r {
		return nil, false
	}

	i := b.index(r)
	slot := &b.slots[i]
	cur := slot.Load() // must synchronize-with the producer's publish CAS

	if !isPointer(cur) {
		// In-progress publish window: the write was counted but the slot
		// hasn't been CAS'd in yet. Report empty; the caller retries.
		return nil, false
	}

	// Retag the slot for the next epoch before advancing rcount: a producer
	// for sequence r+capacity must never observe a stale tag and waste a CAS
	// attempt against it.
	slot.Store(&cell[T]{tag: b.epochTag(r + uint64(len(b.slots)))})
	b.rcount.Store(r + 1)

	return cur.val, true
}

// Size returns a lower bound on the number of payloads currently occupying
// the buffer. Because the two counter loads are independent and
// unsynchronized, a producer that has claimed a sequence but not yet
// published is invisible to this count; callers must treat the result as
// advisory (back-pressure heuristics), never as an exact occupancy.
func (b *Buffer[T]) Size() int {
	w := b.wcount.Load()
	r := b.rcount.Load()
	diff := w - r
	if diff > uint64(len(b.slots)) {
		// Only reachable under a torn read of the two independent counters;
		// clamp rather than report a nonsensical negative-as-unsigned value.
		return 0
	}
	return int(diff)
}

// sizeMagnitudeFor returns the smallest sizeMagnitude whose capacity is >= n,
// for callers that think in terms of desired capacity rather than magnitude.
func sizeMagnitudeFor(n int) uint {
	if n < 1 {
		n = 1
	}
	return uint(bits.Len(uint(n - 1)))
}

// NewWithCapacity is a convenience constructor for callers that would rather
// specify a minimum capacity than a size magnitude; the actual capacity is
// rounded up to the next power of two.
func NewWithCapacity[T any](minCapacity int) *Buffer[T] {
	return New[T](sizeMagnitudeFor(minCapacity))
}
