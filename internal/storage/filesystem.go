// Package storage provides the byte persistence backends behind the
// ingestion pipeline.
package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pbserver/internal/backup"
)

// spoolDirName holds in-flight uploads. Dot-prefixed so it is invisible
// to the usage walk and to anyone browsing the storage root.
const spoolDirName = ".spool"

// FilesystemStorage stores backed-up content as plain files under a root
// directory, organized by the paths the allocator hands it. Writes go
// through a spool file and a rename, so a partially received upload is
// never visible under a final path.
type FilesystemStorage struct {
	root     string
	spoolDir string
}

// NewFilesystemStorage creates a storage backend rooted at the given
// path, creating the root and spool directories as needed. An unwritable
// root surfaces here, at startup.
func NewFilesystemStorage(root string) (*FilesystemStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}

	// The spool lives inside the root so the commit rename never crosses
	// a filesystem boundary.
	spoolDir := filepath.Join(abs, spoolDirName)
	if err := os.MkdirAll(spoolDir, 0755); err != nil {
		return nil, fmt.Errorf("creating spool directory: %w", err)
	}

	return &FilesystemStorage{root: abs, spoolDir: spoolDir}, nil
}

// Stage receives the full content stream into a spool file.
func (s *FilesystemStorage) Stage(r io.Reader) (backup.Staged, error) {
	tmp, err := os.CreateTemp(s.spoolDir, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("creating spool file: %w", err)
	}

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("receiving content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("closing spool file: %w", err)
	}

	return &fsStaged{storage: s, path: tmp.Name(), size: size}, nil
}

// Exists reports whether a file is present at the given relative path.
func (s *FilesystemStorage) Exists(relPath string) bool {
	_, err := os.Stat(filepath.Join(s.root, relPath))
	return err == nil
}

// Delete removes a file if present and reports whether removal occurred.
func (s *FilesystemStorage) Delete(relPath string) (bool, error) {
	err := os.Remove(filepath.Join(s.root, relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("deleting %s: %w", relPath, err)
	}
	return true, nil
}

// UsageSummary recursively walks the storage root, counting files and
// bytes. Hidden (dot-prefixed) entries hold internal state — the index
// database, API key, server identity, the spool — and are skipped.
func (s *FilesystemStorage) UsageSummary() (*backup.UsageSummary, error) {
	summary := &backup.UsageSummary{Root: s.root}

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == s.root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		summary.FileCount++
		summary.TotalBytes += info.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking storage root: %w", err)
	}

	summary.TotalHuman = backup.FormatSize(summary.TotalBytes)
	return summary, nil
}

// Root returns the absolute storage root path.
func (s *FilesystemStorage) Root() string {
	return s.root
}

// fsStaged is a spooled upload waiting to be committed or discarded.
type fsStaged struct {
	storage   *FilesystemStorage
	path      string
	size      int64
	committed bool
}

func (st *fsStaged) Size() int64 {
	return st.size
}

// Commit moves the spool file to its final path in one rename.
func (st *fsStaged) Commit(relPath string) (string, error) {
	dest := filepath.Join(st.storage.root, relPath)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("creating parent directories: %w", err)
	}
	if err := os.Rename(st.path, dest); err != nil {
		return "", fmt.Errorf("committing %s: %w", relPath, err)
	}
	st.committed = true
	return dest, nil
}

// Discard removes the spool file. After a Commit it is a no-op.
func (st *fsStaged) Discard() error {
	if st.committed {
		return nil
	}
	if err := os.Remove(st.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing spool file: %w", err)
	}
	return nil
}

// Compile-time check that FilesystemStorage implements backup.Storage
var _ backup.Storage = (*FilesystemStorage)(nil)
