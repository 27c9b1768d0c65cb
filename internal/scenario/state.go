package scenario

import (
	"fmt"
	"sync"
)

// State holds data between scenario steps.
type State struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewState creates a new state container.
func NewState() *State {
	return &State{data: make(map[string]any)}
}

// Set stores a value.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Get retrieves a value.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Delete removes a value.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// GetString retrieves a string value.
func (s *State) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// GetInt retrieves an int value.
func (s *State) GetInt(key string) int {
	v, _ := s.Get(key)
	i, _ := v.(int)
	return i
}

// MustGet retrieves a value or panics.
func (s *State) MustGet(key string) any {
	v, ok := s.Get(key)
	if !ok {
		panic(fmt.Sprintf("state key %q not found", key))
	}
	return v
}

// Lookup retrieves a typed value. ok is false when the key is missing or
// holds another type.
func Lookup[T any](s *State, key string) (T, bool) {
	v, ok := s.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
