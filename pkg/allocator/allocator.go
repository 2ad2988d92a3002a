package allocator

import (
	"crypto/rand"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// Pool is a fixed-capacity, lock-free, one-way bump allocator. Elements are
// handed out in index order via AllocateOne and never returned; once every
// slot has been claimed, further calls report failure. The zero value is not
// usable; construct one with New.
type Pool[T any] struct {
	buf   []T
	tags  []ulid.ULID
	idx   atomic.Uint64
	clock func() time.Time
}

// New creates a Pool with room for exactly capacity elements.
func New[T any](capacity int) *Pool[T] {
	if capacity < 1 {
		panic("allocator: capacity must be >= 1")
	}
	return &Pool[T]{
		buf:   make([]T, capacity),
		tags:  make([]ulid.ULID, capacity),
		clock: time.Now,
	}
}

// AllocateOne claims the next unclaimed element and returns a pointer to it.
// It reports false once capacity is exhausted. AllocateOne is safe for
// concurrent use by any number of goroutines: the claiming CAS loop mirrors
// the ring buffer's own counter-advance discipline, but there is only one
// thing to contend over here, so no helping step is needed — a losing
// goroutine simply retries with the cursor's latest value.
func (p *Pool[T]) AllocateOne() (*T, bool) {
	i := p.idx.Load()
	for {
		if i >= uint64(len(p.buf)) {
			return nil, false
		}
		if p.idx.CompareAndSwap(i, i+1) {
			break
		}
		i = p.idx.Load()
	}

	p.tags[i] = ulid.MustNew(ulid.Timestamp(p.clock()), rand.Reader)
	return &p.buf[i], true
}

// Cap returns the pool's fixed capacity.
func (p *Pool[T]) Cap() int {
	return len(p.buf)
}

// Remaining returns an upper bound on the number of elements left to
// allocate; concurrent AllocateOne calls may claim more right after this
// read, so treat it as advisory only.
func (p *Pool[T]) Remaining() int {
	claimed := p.idx.Load()
	if claimed > uint64(len(p.buf)) {
		return 0
	}
	return len(p.buf) - int(claimed)
}

// TagFor returns the ULID minted for the element at index i, and whether
// that index has been allocated yet. The tag exists purely for demo and
// debugging traceability; it plays no role in the allocation protocol.
func (p *Pool[T]) TagFor(i int) (ulid.ULID, bool) {
	if i < 0 || i >= len(p.buf) || uint64(i) >= p.idx.Load() {
		return ulid.ULID{}, false
	}
	return p.tags[i], true
}
