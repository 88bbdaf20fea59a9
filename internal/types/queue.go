package types

import "sync"

// Queue - set of in-flight task keys, safe for concurrent use
type Queue[K comparable] struct {
	items map[K]struct{}
	mx    *sync.RWMutex
}

// NewQueue -
func NewQueue[K comparable]() *Queue[K] {
	return &Queue[K]{
		items: make(map[K]struct{}),
		mx:    new(sync.RWMutex),
	}
}

// Add - returns false if key is already in queue
func (q *Queue[K]) Add(key K) bool {
	q.mx.Lock()
	defer q.mx.Unlock()

	if _, ok := q.items[key]; ok {
		return false
	}
	q.items[key] = struct{}{}
	return true
}

// Contains -
func (q *Queue[K]) Contains(key K) bool {
	q.mx.RLock()
	defer q.mx.RUnlock()

	_, ok := q.items[key]
	return ok
}

// Delete -
func (q *Queue[K]) Delete(key K) {
	q.mx.Lock()
	delete(q.items, key)
	q.mx.Unlock()
}

// Len -
func (q *Queue[K]) Len() int {
	q.mx.RLock()
	defer q.mx.RUnlock()

	return len(q.items)
}
