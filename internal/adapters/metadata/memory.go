package metadata

import (
	"context"
	"sync"
)

// Memory is a process-local Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

func (m *Memory) Get(_ context.Context, account, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[account][key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, account, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kv, ok := m.data[account]
	if !ok {
		kv = make(map[string]string)
		m.data[account] = kv
	}
	kv[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, account, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kv, ok := m.data[account]; ok {
		delete(kv, key)
		if len(kv) == 0 {
			delete(m.data, account)
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }
