// Package store is the storage abstraction behind the engine's mutable
// registries. Memory keeps state for the life of the process; File persists it
// to a JSON file.
package store

import (
	"container/list"
	"sync"
)

// Store is a concurrency-safe keyed collection that remembers insertion order
type Store[T any] interface {
	Put(id string, value T)
	Get(id string) (T, bool)
	Delete(id string) bool
	// Update applies fn to the stored value under the store's lock. The change
	// is kept only when fn returns true.
	Update(id string, fn func(*T) bool) (T, bool)
	// List returns every value in insertion order
	List() []T
	Len() int
	Clear()
}

var (
	_ Store[int] = (*Memory[int])(nil)
	_ Store[int] = (*File[int])(nil)
)

type entry[T any] struct {
	id    string
	value T
}

// Memory is an in-memory Store
type Memory[T any] struct {
	items map[string]*list.Element
	order *list.List
	mu    sync.RWMutex
}

// NewMemory creates an empty in-memory store
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{
		items: make(map[string]*list.Element),
		order: list.New(),
	}
}

// Put stores value under id. Replacing an existing id keeps its position.
func (m *Memory[T]) Put(id string, value T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if element, exists := m.items[id]; exists {
		element.Value.(*entry[T]).value = value
		return
	}
	m.items[id] = m.order.PushBack(&entry[T]{id: id, value: value})
}

func (m *Memory[T]) Get(id string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	element, exists := m.items[id]
	if !exists {
		var zero T
		return zero, false
	}
	return element.Value.(*entry[T]).value, true
}

func (m *Memory[T]) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	element, exists := m.items[id]
	if !exists {
		return false
	}
	m.order.Remove(element)
	delete(m.items, id)
	return true
}

func (m *Memory[T]) Update(id string, fn func(*T) bool) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	element, exists := m.items[id]
	if !exists {
		var zero T
		return zero, false
	}

	e := element.Value.(*entry[T])
	candidate := e.value
	if fn(&candidate) {
		e.value = candidate
	}
	return e.value, true
}

func (m *Memory[T]) List() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values := make([]T, 0, len(m.items))
	for element := m.order.Front(); element != nil; element = element.Next() {
		values = append(values, element.Value.(*entry[T]).value)
	}
	return values
}

func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Memory[T]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*list.Element)
	m.order.Init()
}
