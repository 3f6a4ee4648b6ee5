package testutil

import (
	"testing"

	"pbserver/internal/backup"
	"pbserver/internal/index"
)

// NewTestIndex creates an in-memory dedup index with schema applied.
// The index is automatically closed when the test completes.
func NewTestIndex(t *testing.T, clock backup.Clock) backup.Index {
	t.Helper()

	idx, err := index.NewSQLiteIndex(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}

	t.Cleanup(func() {
		idx.Close()
	})

	return idx
}
