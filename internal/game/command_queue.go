package game

import (
	"sync/atomic"
)

// CacheLineSize is the typical CPU cache line size (64 bytes on x86-64)
const CacheLineSize = 64

// padding keeps producer and consumer counters on separate cache lines
type padding [CacheLineSize]byte

type queueSlot[T any] struct {
	seq  atomic.Uint64
	item T
}

// CommandQueue is a bounded lock-free MPSC ring buffer.
// Any goroutine may push; only the simulation goroutine pops.
//
// Each slot carries a sequence number so the consumer never reads a slot
// whose producer has claimed it but not finished writing.
type CommandQueue[T any] struct {
	_     padding
	head  atomic.Uint64 // next position claimed by a producer
	_     padding
	tail  atomic.Uint64 // next position read by the consumer
	_     padding
	mask  uint64
	slots []queueSlot[T]

	dropped atomic.Uint64
}

// NewCommandQueue creates a queue; capacity is rounded up to a power of two
func NewCommandQueue[T any](capacity int) *CommandQueue[T] {
	size := 1
	for size < capacity {
		size <<= 1
	}
	q := &CommandQueue[T]{
		mask:  uint64(size - 1),
		slots: make([]queueSlot[T], size),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// TryPush adds an item. Returns false when the queue is full.
func (q *CommandQueue[T]) TryPush(item T) bool {
	for {
		pos := q.head.Load()
		s := &q.slots[pos&q.mask]
		seq := s.seq.Load()
		switch diff := int64(seq) - int64(pos); {
		case diff == 0:
			if q.head.CompareAndSwap(pos, pos+1) {
				s.item = item
				s.seq.Store(pos + 1)
				return true
			}
		case diff < 0:
			q.dropped.Add(1)
			return false
		}
		// another producer claimed pos; retry with a fresh head
	}
}

// TryPop removes the oldest item (consumer only)
func (q *CommandQueue[T]) TryPop() (T, bool) {
	var zero T
	tail := q.tail.Load()
	s := &q.slots[tail&q.mask]
	if int64(s.seq.Load())-int64(tail+1) < 0 {
		return zero, false
	}
	item := s.item
	s.item = zero
	s.seq.Store(tail + q.mask + 1)
	q.tail.Store(tail + 1)
	return item, true
}

// Drain pops every available item into fn, in push order (consumer only)
func (q *CommandQueue[T]) Drain(fn func(T)) int {
	n := 0
	for {
		item, ok := q.TryPop()
		if !ok {
			return n
		}
		fn(item)
		n++
	}
}

// Len returns the approximate number of queued items
func (q *CommandQueue[T]) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if head < tail {
		return 0
	}
	return int(head - tail)
}

// Cap returns the queue capacity
func (q *CommandQueue[T]) Cap() int { return int(q.mask + 1) }

// Dropped returns how many pushes were refused because the queue was full
func (q *CommandQueue[T]) Dropped() uint64 { return q.dropped.Load() }
