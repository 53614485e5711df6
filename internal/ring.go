package internal

import (
	"iter"
)

// Ring is a bounded FIFO which discards the oldest entry when full.
type Ring[T any] struct {
	data  []T
	first int
	count int
}

// NewRing creates a ring holding at most capacity entries.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{data: make([]T, capacity)}
}

// Push appends a value, evicting the oldest one if the ring is full.
func (r *Ring[T]) Push(value T) {
	if r.count == len(r.data) {
		r.data[r.first] = value
		r.first = (r.first + 1) % len(r.data)
		return
	}

	r.data[(r.first+r.count)%len(r.data)] = value
	r.count++
}

// Len is the number of values held.
func (r *Ring[T]) Len() int {
	return r.count
}

// Cap is the maximum number of values held.
func (r *Ring[T]) Cap() int {
	return len(r.data)
}

// All iterates from oldest to newest.
func (r *Ring[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for n := range r.count {
			if !yield(r.data[(r.first+n)%len(r.data)]) {
				return
			}
		}
	}
}

// Slice returns a copy of the values, oldest first.
func (r *Ring[T]) Slice() (values []T) {
	values = make([]T, 0, r.count)
	for value := range r.All() {
		values = append(values, value)
	}
	return
}

// Reset empties the ring.
func (r *Ring[T]) Reset() {
	clear(r.data)
	r.first = 0
	r.count = 0
}
