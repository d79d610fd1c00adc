package buffer

import (
	"sync"

	"github.com/c360/wordstream/errors"
)

// ringBuffer is a thread-safe fixed-size buffer with configurable overflow policies.
type ringBuffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	tail     int // next read position
	stats    *Statistics
	metrics  *bufferMetrics
	opts     *bufferOptions[T]

	// For the Block policy
	notFull *sync.Cond
	closed  bool
}

func newRingBuffer[T any](capacity int, opts *bufferOptions[T]) (*ringBuffer[T], error) {
	if capacity <= 0 {
		capacity = 1
	}

	var metrics *bufferMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newBufferMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "buffer", "newRingBuffer", "metrics registration")
		}
	}

	rb := &ringBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
		metrics:  metrics,
		opts:     opts,
	}
	rb.notFull = sync.NewCond(&rb.mu)

	return rb, nil
}

// Write adds an item to the buffer according to the overflow policy.
func (rb *ringBuffer[T]) Write(item T) error {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", "Write", "buffer closed")
	}

	if rb.size == rb.capacity {
		switch rb.opts.overflowPolicy {
		case DropOldest:
			dropped := rb.items[rb.tail]
			rb.tail = (rb.tail + 1) % rb.capacity
			rb.size--

			rb.stats.Overflow()
			rb.stats.Drop()
			rb.metrics.recordOverflow()
			rb.metrics.recordDrop()

			if rb.opts.dropCallback != nil {
				// Run the callback outside the lock to avoid deadlock
				defer rb.opts.dropCallback(dropped)
			}

		case DropNewest:
			rb.stats.Overflow()
			rb.stats.Drop()
			rb.metrics.recordOverflow()
			rb.metrics.recordDrop()

			if rb.opts.dropCallback != nil {
				defer rb.opts.dropCallback(item)
			}
			return nil

		case Block:
			for rb.size == rb.capacity && !rb.closed {
				rb.notFull.Wait()
			}
			if rb.closed {
				return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", "Write",
					"buffer closed during blocking wait")
			}
		}
	}

	rb.items[rb.head] = item
	rb.head = (rb.head + 1) % rb.capacity
	rb.size++

	rb.stats.Write()
	rb.stats.UpdateSize(int64(rb.size))
	rb.metrics.recordWrite(rb.size, rb.capacity)

	return nil
}

// Read retrieves and removes one item from the buffer.
func (rb *ringBuffer[T]) Read() (T, bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	var zero T
	if rb.size == 0 {
		return zero, false
	}

	item := rb.items[rb.tail]
	rb.items[rb.tail] = zero // release for GC
	rb.tail = (rb.tail + 1) % rb.capacity
	rb.size--

	rb.stats.Read()
	rb.stats.UpdateSize(int64(rb.size))
	rb.metrics.recordRead(rb.size, rb.capacity)

	rb.notFull.Signal()

	return item, true
}

// ReadBatch retrieves and removes up to max items from the buffer.
func (rb *ringBuffer[T]) ReadBatch(max int) []T {
	if max <= 0 {
		return nil
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == 0 {
		return nil
	}

	readCount := max
	if readCount > rb.size {
		readCount = rb.size
	}

	result := make([]T, readCount)
	var zero T

	for i := 0; i < readCount; i++ {
		result[i] = rb.items[rb.tail]
		rb.items[rb.tail] = zero
		rb.tail = (rb.tail + 1) % rb.capacity
		rb.size--
		rb.stats.Read()
	}

	rb.stats.UpdateSize(int64(rb.size))
	rb.metrics.updateSize(rb.size, rb.capacity)

	for i := 0; i < readCount; i++ {
		rb.notFull.Signal()
	}

	return result
}

// Size returns the current number of items in the buffer.
func (rb *ringBuffer[T]) Size() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// Capacity returns the maximum number of items the buffer can hold.
func (rb *ringBuffer[T]) Capacity() int {
	return rb.capacity // immutable, no lock needed
}

// IsFull returns true if the buffer is at maximum capacity.
func (rb *ringBuffer[T]) IsFull() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size == rb.capacity
}

// IsEmpty returns true if the buffer contains no items.
func (rb *ringBuffer[T]) IsEmpty() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size == 0
}

// Clear removes all items from the buffer.
func (rb *ringBuffer[T]) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	var zero T

	if rb.opts.dropCallback != nil {
		itemsToDrop := make([]T, rb.size)
		for i := 0; i < rb.size; i++ {
			idx := (rb.tail + i) % rb.capacity
			itemsToDrop[i] = rb.items[idx]
		}
		defer func() {
			for _, item := range itemsToDrop {
				rb.opts.dropCallback(item)
			}
		}()
	}

	for i := 0; i < rb.capacity; i++ {
		rb.items[i] = zero
	}

	rb.head = 0
	rb.tail = 0
	rb.size = 0

	rb.stats.UpdateSize(0)
	rb.metrics.updateSize(0, rb.capacity)

	rb.notFull.Broadcast()
}

// Stats returns buffer statistics.
func (rb *ringBuffer[T]) Stats() *Statistics {
	return rb.stats
}

// Close shuts down the buffer and wakes any blocked writers.
func (rb *ringBuffer[T]) Close() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed {
		return nil
	}
	rb.closed = true
	rb.notFull.Broadcast()

	return nil
}
