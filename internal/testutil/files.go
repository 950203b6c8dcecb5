package testutil

import (
	"bytes"
	"sync"

	"github.com/dtroode/keybox/internal/model"
)

var _ model.SnapshotStore = (*MemoryFiles)(nil)

// MemoryFiles is an in-memory snapshot store keyed by path.
type MemoryFiles struct {
	mu     sync.Mutex
	files  map[string][]byte
	Writes int
}

func NewMemoryFiles() *MemoryFiles {
	return &MemoryFiles{files: make(map[string][]byte)}
}

func (m *MemoryFiles) Read(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.files[path]
	if !ok {
		return nil, nil
	}
	return bytes.Clone(data), nil
}

func (m *MemoryFiles) Write(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Writes++
	m.files[path] = bytes.Clone(data)
	return nil
}

// Put seeds path with data without counting a write.
func (m *MemoryFiles) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[path] = bytes.Clone(data)
}

// Has reports whether path was written.
func (m *MemoryFiles) Has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.files[path]
	return ok
}
