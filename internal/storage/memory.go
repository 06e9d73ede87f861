package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Store used by tests and as a harmless fallback.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: map[string]map[string][]byte{}}
}

func (m *Memory) Get(_ context.Context, namespace, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ns, ok := m.data[namespace]
	if !ok {
		return nil, ErrKeyNotFound
	}
	v, ok := ns[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *Memory) Put(_ context.Context, namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.data[namespace]
	if !ok {
		ns = map[string][]byte{}
		m.data[namespace] = ns
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	ns[key] = cp
	return nil
}

func (m *Memory) Delete(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ns, ok := m.data[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

func (m *Memory) List(_ context.Context, namespace string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string][]byte{}
	for k, v := range m.data[namespace] {
		cp := make([]byte, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
