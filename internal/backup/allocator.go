package backup

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// placeholderName replaces filenames that sanitize down to nothing.
const placeholderName = "unnamed"

// Allocator maps upload metadata to a collision-free storage-relative
// path of the shape {folder}/{year}/{month}/{filename}.
//
// The collision check and the eventual write are not wrapped in a lock:
// two concurrent uploads with the same destination filename but different
// content can both pass the existence check before either commits. This
// is an accepted limitation.
type Allocator struct {
	storage Storage
	clock   Clock
}

// NewAllocator creates an Allocator that checks candidate paths against
// the given storage backend.
func NewAllocator(storage Storage, clock Clock) *Allocator {
	return &Allocator{storage: storage, clock: clock}
}

// Allocate returns a storage-relative path for the given upload metadata.
// Year and month come from capturedAt when supplied, else from the
// current time.
func (a *Allocator) Allocate(filename, mimeType string, capturedAt *time.Time, sourceTag string) string {
	when := a.clock.Now()
	if capturedAt != nil {
		when = *capturedAt
	}

	folder := CategoryFor(sourceTag, mimeType)
	name := SanitizeFilename(filename)

	dir := filepath.Join(string(folder), fmt.Sprintf("%d", when.Year()), fmt.Sprintf("%02d", int(when.Month())))

	rel := filepath.Join(dir, name)
	if !a.storage.Exists(rel) {
		return rel
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		rel = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if !a.storage.Exists(rel) {
			return rel
		}
	}
}

// SanitizeFilename strips every character outside the conservative safe
// set (alphanumerics, '-', '_', '.', space) and trims leading/trailing
// dots and spaces. This blocks path traversal and filesystem-illegal
// names while keeping filenames human-readable where possible.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_', r == '.', r == ' ':
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ". ")
	if out == "" {
		return placeholderName
	}
	return out
}
