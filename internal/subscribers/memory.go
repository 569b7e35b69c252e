// Package subscribers stores users who asked to hear about new features.
package subscribers

import (
	"context"
	"sync"
)

// Memory keeps subscribers in process memory; they are lost on restart.
type Memory struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{ids: make(map[int64]struct{})}
}

// Add reports whether userID was newly added.
func (m *Memory) Add(_ context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[userID]; ok {
		return false, nil
	}
	m.ids[userID] = struct{}{}
	return true, nil
}

// Remove reports whether userID was subscribed.
func (m *Memory) Remove(_ context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[userID]; !ok {
		return false, nil
	}
	delete(m.ids, userID)
	return true, nil
}

func (m *Memory) IsMember(_ context.Context, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[userID]
	return ok, nil
}

func (m *Memory) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids), nil
}
