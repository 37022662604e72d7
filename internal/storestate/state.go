// Package storestate is the loading/error/list bookkeeping shared by the
// entity stores. A State is the single writer of its list; readers only
// ever get copies.
package storestate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kazz187/collabspace/pkg/cerr"
)

type State[T any] struct {
	name string

	mu       sync.RWMutex
	items    []T
	inflight int
	err      string
}

func New[T any](name string) *State[T] {
	return &State[T]{name: name}
}

// Items returns a copy of the current list.
func (s *State[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

func (s *State[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Loading reports whether any gateway call is in flight.
func (s *State[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Err is the message of the last failed operation, "" when it succeeded.
func (s *State[T]) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Begin marks the start of a gateway call and clears the previous error.
// The returned func must be called when the call returns.
func (s *State[T]) Begin() (end func()) {
	s.mu.Lock()
	s.inflight++
	s.err = ""
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.inflight--
			s.mu.Unlock()
		})
	}
}

// Fail records err as the store's error message and logs it.
func (s *State[T]) Fail(ctx context.Context, op string, err error) {
	msg := cerr.Message(err)
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
	slog.WarnContext(ctx, "store operation failed", "store", s.name, "op", op, "error", err)
}

// Replace swaps the whole list.
func (s *State[T]) Replace(items []T) {
	cp := make([]T, len(items))
	copy(cp, items)
	s.mu.Lock()
	s.items = cp
	s.mu.Unlock()
}

func (s *State[T]) Append(item T) {
	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()
}

// Find returns a copy of the first item matching pred.
func (s *State[T]) Find(pred func(T) bool) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if pred(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Mutate applies fn to the first item matching pred under the write lock and
// reports whether one matched. fn returning false leaves the item unchanged.
func (s *State[T]) Mutate(pred func(T) bool, fn func(*T) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if !pred(s.items[i]) {
			continue
		}
		it := s.items[i]
		if !fn(&it) {
			return false
		}
		s.items[i] = it
		return true
	}
	return false
}
