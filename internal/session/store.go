// Package session provides a keyed in-memory store that serializes access per
// key. Planning and execution managers each own one; there is no process-wide
// registry.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/josephgoksu/wbsplan/internal/util"
)

var (
	ErrExists    = errors.New("session already exists")
	ErrNotFound  = util.ErrNotFound
	ErrAmbiguous = util.ErrAmbiguousID
)

type entry[T any] struct {
	sem   chan struct{}
	value T
}

func (e *entry[T]) lock(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *entry[T]) unlock() {
	<-e.sem
}

// Store holds values of type T by identifier. Operations on different keys
// proceed in parallel; operations on the same key run one at a time.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[T]
}

// NewStore creates an empty store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{entries: make(map[string]*entry[T])}
}

// Create adds a value under id. It fails if id is taken.
func (s *Store[T]) Create(id string, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return fmt.Errorf("%s: %w", id, ErrExists)
	}
	s.entries[id] = &entry[T]{sem: make(chan struct{}, 1), value: value}
	return nil
}

// With runs fn while holding the lock for id. fn may modify the value through
// the pointer; the change is visible to the next caller. Waiting for the lock
// honors ctx.
func (s *Store[T]) With(ctx context.Context, id string, fn func(v *T) error) error {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err := e.lock(ctx); err != nil {
		return err
	}
	defer e.unlock()
	return fn(&e.value)
}

// Delete removes id. Deleting a missing id is not an error.
func (s *Store[T]) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Keys returns all identifiers in sorted order.
func (s *Store[T]) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored values.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Resolve maps an exact identifier or a unique prefix to a stored identifier.
func (s *Store[T]) Resolve(idOrPrefix string) (string, error) {
	return util.ResolvePrefix(idOrPrefix, s.Keys(), "session")
}
