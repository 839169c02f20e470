package nodestore

import (
	"bytes"
	"sort"
	"sync"
)

// MemoryBackend keeps everything in a map. Contents are lost on Close.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
	open bool
}

// NewMemoryBackend creates a memory backend; config is unused.
func NewMemoryBackend(*Config) (Backend, error) {
	return &MemoryBackend{}, nil
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Open(bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		return ErrAlreadyOpen
	}
	m.data = make(map[string][]byte)
	m.open = true
	return nil
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	m.data = nil
	return nil
}

func (m *MemoryBackend) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.open {
		return nil, ErrBackendClosed
	}
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBackend) Put(key, value []byte) error {
	var b Batch
	b.Put(key, value)
	return m.Write(&b)
}

func (m *MemoryBackend) Write(b *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrBackendClosed
	}
	for _, op := range b.ops {
		if op.delete {
			delete(m.data, string(op.key))
			continue
		}
		m.data[string(op.key)] = append([]byte(nil), op.value...)
	}
	return nil
}

func (m *MemoryBackend) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	m.mu.RLock()
	if !m.open {
		m.mu.RUnlock()
		return ErrBackendClosed
	}
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = m.data[k]
	}
	m.mu.RUnlock()

	for i, k := range keys {
		if !fn([]byte(k), values[i]) {
			break
		}
	}
	return nil
}
