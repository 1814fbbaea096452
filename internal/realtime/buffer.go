package realtime

import (
	"sync"
)

// growableBuffer is a thread-safe FIFO that doubles its capacity when it
// reaches 70% full. Publish side never blocks; the consume side blocks until
// an item arrives or the buffer closes.
type growableBuffer[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	// Stats
	totalIn     int64
	totalOut    int64
	resizeCount int
}

// newGrowableBuffer creates a buffer with the given initial capacity.
func newGrowableBuffer[T any](initialCapacity int) *growableBuffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	b := &growableBuffer[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// send adds an item, growing the buffer first when at 70% capacity.
// Returns false if the buffer is closed.
func (b *growableBuffer[T]) send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold {
		b.grow()
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalIn++

	b.cond.Signal()
	return true
}

// receive removes and returns the oldest item, blocking until one is
// available or the buffer is closed. Remaining items drain out before the
// closed signal is reported.
func (b *growableBuffer[T]) receive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}

	if b.count == 0 && b.closed {
		var zero T
		return zero, false
	}

	item := b.buf[b.head]
	var zero T
	b.buf[b.head] = zero // clear reference for GC
	b.head = (b.head + 1) % b.capacity
	b.count--
	b.totalOut++

	return item, true
}

// tryReceive removes the oldest item without blocking.
func (b *growableBuffer[T]) tryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		var zero T
		return zero, false
	}

	item := b.buf[b.head]
	var zero T
	b.buf[b.head] = zero
	b.head = (b.head + 1) % b.capacity
	b.count--
	b.totalOut++

	return item, true
}

// close closes the buffer. After closing, send returns false and receivers
// drain remaining items before seeing the closed signal.
func (b *growableBuffer[T]) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

// length returns the current number of buffered items.
func (b *growableBuffer[T]) length() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// stats returns buffer statistics.
func (b *growableBuffer[T]) stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:       b.count,
		Capacity:    b.capacity,
		TotalIn:     b.totalIn,
		TotalOut:    b.totalOut,
		ResizeCount: b.resizeCount,
	}
}

// BufferStats contains router FIFO statistics.
type BufferStats struct {
	Count       int   `json:"count"`
	Capacity    int   `json:"capacity"`
	TotalIn     int64 `json:"total_in"`
	TotalOut    int64 `json:"total_out"`
	ResizeCount int   `json:"resize_count"`
}

// grow doubles the capacity. Caller holds the lock.
func (b *growableBuffer[T]) grow() {
	newCapacity := b.capacity * 2
	newBuf := make([]T, newCapacity)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}

	b.buf = newBuf
	b.head = 0
	b.tail = b.count
	b.capacity = newCapacity
	b.resizeCount++
}
