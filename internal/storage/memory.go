package storage

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"pbserver/internal/backup"
)

// MemoryStorage is an in-memory implementation of the Storage interface,
// useful for testing. Safe for concurrent use.
type MemoryStorage struct {
	root  string
	mu    sync.RWMutex
	files map[string][]byte // relative path -> content
}

// NewMemoryStorage creates an empty in-memory storage backend. root is
// only reported back through Root and UsageSummary.
func NewMemoryStorage(root string) *MemoryStorage {
	return &MemoryStorage{
		root:  root,
		files: make(map[string][]byte),
	}
}

// Stage buffers the full content stream in memory.
func (m *MemoryStorage) Stage(r io.Reader) (backup.Staged, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("receiving content: %w", err)
	}
	return &memStaged{storage: m, data: data}, nil
}

// Exists reports whether a file is present at the given relative path.
func (m *MemoryStorage) Exists(relPath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[relPath]
	return ok
}

// Delete removes a file if present and reports whether removal occurred.
func (m *MemoryStorage) Delete(relPath string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[relPath]; !ok {
		return false, nil
	}
	delete(m.files, relPath)
	return true, nil
}

// UsageSummary reports file count and total size over all stored files.
func (m *MemoryStorage) UsageSummary() (*backup.UsageSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := &backup.UsageSummary{Root: m.root}
	for _, data := range m.files {
		summary.FileCount++
		summary.TotalBytes += int64(len(data))
	}
	summary.TotalHuman = backup.FormatSize(summary.TotalBytes)
	return summary, nil
}

// Root returns the configured pseudo-root.
func (m *MemoryStorage) Root() string {
	return m.root
}

// Read returns the content stored at relPath, for test assertions.
func (m *MemoryStorage) Read(relPath string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[relPath]
	return data, ok
}

type memStaged struct {
	storage   *MemoryStorage
	data      []byte
	committed bool
}

func (st *memStaged) Size() int64 {
	return int64(len(st.data))
}

func (st *memStaged) Commit(relPath string) (string, error) {
	st.storage.mu.Lock()
	defer st.storage.mu.Unlock()
	st.storage.files[relPath] = st.data
	st.committed = true
	return filepath.Join(st.storage.root, relPath), nil
}

func (st *memStaged) Discard() error {
	st.data = nil
	return nil
}

// Compile-time check that MemoryStorage implements backup.Storage
var _ backup.Storage = (*MemoryStorage)(nil)
