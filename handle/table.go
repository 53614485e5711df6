// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package handle

import (
	"iter"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// Table is the registry of live memory handles.
//
// Lookups take a read lock on the table; reference counting on a handle is
// lock-free and never serializes unrelated handles.
type Table struct {
	ArrayBase uint32 // Raw header bytes in front of array cells.

	lastId  atomic.Int32
	mutex   sync.RWMutex
	handles map[int32]*Handle
}

// NewTable creates an empty handle table.
func NewTable(arrayBase uint32) *Table {
	return &Table{
		ArrayBase: arrayBase,
		handles:   make(map[int32]*Handle),
	}
}

// Allocate creates and registers a handle of kind with a logical byte size.
// Array kinds use the table's array base as their raw header.
func (t *Table) Allocate(kind Kind, size int32) (h *Handle, err error) {
	if !kind.Valid() {
		err = ErrInvalidKind
		return
	}
	if size < 0 {
		err = ErrInvalidSize
		return
	}

	rawSize := size
	if kind.IsArray() {
		rawSize = min(int32(t.ArrayBase), size)
	}

	h, err = NewHandle(t.lastId.Add(1), kind, size, rawSize)
	if err != nil {
		return
	}

	t.mutex.Lock()
	if t.handles == nil {
		t.handles = make(map[int32]*Handle)
	}
	t.handles[h.Id] = h
	t.mutex.Unlock()

	return
}

// Get looks up a live handle.
func (t *Table) Get(id int32) (h *Handle, err error) {
	t.mutex.RLock()
	h, ok := t.handles[id]
	t.mutex.RUnlock()

	if !ok {
		err = &ErrHandle{Id: id, Err: ErrUnknownHandle}
	}
	return
}

// CountUp increments the reference count of a handle.
func (t *Table) CountUp(id int32) (count int32, err error) {
	h, err := t.Get(id)
	if err != nil {
		return
	}
	count = h.CountUp()
	return
}

// CountDown decrements the reference count of a handle.
func (t *Table) CountDown(id int32) (count int32, err error) {
	h, err := t.Get(id)
	if err != nil {
		return
	}
	count = h.CountDown()
	return
}

// Free unregisters a handle.
func (t *Table) Free(id int32) (err error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	_, ok := t.handles[id]
	if !ok {
		err = &ErrHandle{Id: id, Err: ErrUnknownHandle}
		return
	}
	delete(t.handles, id)
	return
}

// Len is the number of live handles.
func (t *Table) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return len(t.handles)
}

// All iterates over a snapshot of the live handles, in id order.
func (t *Table) All() iter.Seq[*Handle] {
	t.mutex.RLock()
	ids := slices.Sorted(maps.Keys(t.handles))
	snapshot := make([]*Handle, len(ids))
	for n, id := range ids {
		snapshot[n] = t.handles[id]
	}
	t.mutex.RUnlock()

	return slices.Values(snapshot)
}
