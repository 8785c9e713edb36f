// Package clientstate holds the per-visitor key/value state that survives
// page reloads: the assigned brand variant, the visitor id, and the
// analytics session id.
package clientstate

import (
	"sync"

	"github.com/google/uuid"
)

// Store is a client-scoped key/value store.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// Memory is a map-backed Store. The zero value is ready to use.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
}

// Clear drops every key, like a visitor clearing site data.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
}

// VisitorKey holds the stable visitor id used for wishlists.
const VisitorKey = "visitor_id"

// VisitorID returns the visitor id in state, creating a uuid on first use.
func VisitorID(state Store) string {
	if id, ok := state.Get(VisitorKey); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	state.Set(VisitorKey, id)
	return id
}
