package data

import (
	"container/heap"
	"sync"
	"time"
)

// MRUQueue is an abstraction on top of a priority queue that assigns priorities based on
// timestamps, for most-recently-used retrieval semantics. It is safe for concurrent use.
type MRUQueue[T any] struct {
	store    *PriorityQueue[T]
	capacity int
	now      func() time.Time
	mutex    sync.Mutex
}

// NewMRUQueue creates a new MRU queue with the specified capacity.
// The capacity may be any non-positive integer to disable the capacity limit.
func NewMRUQueue[T any](capacity int) *MRUQueue[T] {
	var store PriorityQueue[T]

	if capacity > 0 {
		store = make(PriorityQueue[T], 0, capacity)
	} else {
		store = make(PriorityQueue[T], 0)
	}

	heap.Init(&store)

	return &MRUQueue[T]{store: &store, capacity: capacity, now: time.Now}
}

// Push inserts a new value into the queue. It is tagged with a priority equal to the timestamp at
// which the item is inserted. It returns false, without inserting, if the queue is at capacity.
func (m *MRUQueue[T]) Push(value T) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	// Refuse to add beyond capacity
	if m.capacity > 0 && m.store.Len() == m.capacity {
		return false
	}

	heap.Push(m.store, &Item[T]{
		value:    value,
		priority: m.now().UnixNano(),
	})

	return true
}

// Pop removes the most recently used item from the queue. It returns the item itself, the timestamp
// at which it was last used, and a boolean indicating whether the pop was successful.
func (m *MRUQueue[T]) Pop() (T, time.Time, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.store.Len() == 0 {
		var zero T
		return zero, time.Unix(0, 0), false
	}

	item := heap.Pop(m.store).(*Item[T])
	return item.value, time.Unix(0, item.priority), true
}

// Drain removes and returns every item in the queue, most recently used first.
func (m *MRUQueue[T]) Drain() []T {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	values := make([]T, 0, m.store.Len())
	for m.store.Len() > 0 {
		values = append(values, heap.Pop(m.store).(*Item[T]).value)
	}

	return values
}

// Size reads the current sizes of the queue.
func (m *MRUQueue[T]) Size() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.store.Len()
}

// Empty returns whether the queue holds no items.
func (m *MRUQueue[T]) Empty() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.store.Len() == 0
}
