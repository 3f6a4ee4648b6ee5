package backup

import "io"

// Storage provides durable byte persistence under a single root and
// aggregate usage accounting. All paths are relative to the root.
type Storage interface {
	// Stage receives the full content stream into a spool area that is
	// invisible to readers of the storage root. The returned Staged must
	// be either committed or discarded.
	Stage(r io.Reader) (Staged, error)

	// Exists reports whether a file is present at the given relative path.
	Exists(relPath string) bool

	// Delete removes a file if present and reports whether removal
	// occurred. An absent file is not an error.
	Delete(relPath string) (bool, error)

	// UsageSummary walks the storage root, skipping hidden (dot-prefixed)
	// entries, and reports file count and total size.
	UsageSummary() (*UsageSummary, error)

	// Root returns the absolute storage root path.
	Root() string
}

// Staged is fully received content that has not yet been committed to its
// final path. Commit moves it into place in one step, so a crash can never
// leave a truncated file visible under a final path.
type Staged interface {
	// Size is the number of bytes received.
	Size() int64

	// Commit places the content at the given relative path, creating
	// parent directories as needed, and returns the absolute destination.
	Commit(relPath string) (string, error)

	// Discard drops the staged content. Calling it after Commit is a no-op.
	Discard() error
}
