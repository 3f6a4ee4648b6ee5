package backup

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"pbserver/internal/hash"
)

// Sentinel errors distinguishing which collaborator failed an upload.
// Both are recoverable at the transport boundary; retrying is always safe
// because no index record is committed on either failure.
var (
	// ErrStorageWrite wraps failures of the storage backend (disk full,
	// permission denied, path too long).
	ErrStorageWrite = errors.New("storage write failure")
	// ErrIndexWrite wraps failures of the index store itself.
	ErrIndexWrite = errors.New("index write failure")
)

// Service is the ingestion pipeline tying hash verification, disk write
// and index recording into one consistent operation. It serves concurrent
// independent uploads; the index is the only correctness-critical shared
// state.
type Service struct {
	index     Index
	storage   Storage
	allocator *Allocator
	logger    Logger
	clock     Clock
}

// NewService creates a Service with the provided dependencies.
func NewService(index Index, storage Storage, logger Logger, clock Clock) *Service {
	return &Service{
		index:     index,
		storage:   storage,
		allocator: NewAllocator(storage, clock),
		logger:    logger,
		clock:     clock,
	}
}

// CheckExisting answers which of the given digests are already backed up,
// so a client can skip re-uploading content it already pushed. The
// missing list preserves the input order.
func (s *Service) CheckExisting(digests []string) (*CheckResult, error) {
	existing, err := s.index.ExistingOf(digests)
	if err != nil {
		return nil, fmt.Errorf("checking existing digests: %w", err)
	}

	result := &CheckResult{
		Existing: make([]string, 0, len(existing)),
		Missing:  make([]string, 0, len(digests)-len(existing)),
	}
	for _, d := range digests {
		if existing[d] {
			result.Existing = append(result.Existing, d)
		} else {
			result.Missing = append(result.Missing, d)
		}
	}
	return result, nil
}

// Upload runs one ingestion attempt: Received -> {AlreadyExists |
// HashMismatch | Accepted}. The claimed digest is never trusted for
// storage decisions; the received bytes are re-hashed while being spooled
// and the upload is rejected on disagreement, which guards against
// transport corruption or a mismatched caller.
func (s *Service) Upload(content io.Reader, claimedDigest string, meta UploadMetadata) (*UploadResult, error) {
	claimedDigest = strings.ToLower(strings.TrimSpace(claimedDigest))

	exists, err := s.index.Exists(claimedDigest)
	if err != nil {
		return nil, fmt.Errorf("%w: checking digest %s: %w", ErrIndexWrite, claimedDigest, err)
	}
	if exists {
		s.logger.Debug("upload deduplicated", "digest", claimedDigest)
		return &UploadResult{Status: StatusAlreadyExists, Digest: claimedDigest}, nil
	}

	// Spool the stream while hashing it, so large payloads never need to
	// be memory-resident and nothing is visible under a final path yet.
	digest := hash.New()
	staged, err := s.storage.Stage(io.TeeReader(content, digest))
	if err != nil {
		return nil, fmt.Errorf("%w: staging upload: %w", ErrStorageWrite, err)
	}

	computed := digest.SumHex()
	if computed != claimedDigest {
		if derr := staged.Discard(); derr != nil {
			s.logger.Warn("discarding mismatched upload", "error", derr)
		}
		s.logger.Warn("hash mismatch", "claimed", claimedDigest, "computed", computed)
		return &UploadResult{Status: StatusHashMismatch, Digest: computed}, nil
	}

	relPath := s.allocator.Allocate(meta.Filename, meta.MimeType, meta.CapturedAt, meta.SourceTag)
	if _, err := staged.Commit(relPath); err != nil {
		if derr := staged.Discard(); derr != nil {
			s.logger.Warn("discarding staged upload", "error", derr)
		}
		return nil, fmt.Errorf("%w: committing %s: %w", ErrStorageWrite, relPath, err)
	}

	outcome, err := s.index.Insert(&BackupRecord{
		Digest:           computed,
		StoragePath:      relPath,
		OriginalPath:     meta.OriginalPath,
		OriginalFilename: meta.Filename,
		SizeBytes:        staged.Size(),
		MimeType:         meta.MimeType,
		SourceDevice:     meta.SourceDevice,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: recording digest %s: %w", ErrIndexWrite, computed, err)
	}

	if outcome == InsertDuplicate {
		// A concurrent upload of the same content won the race. The bytes
		// just committed are now an orphan; cleanup is a maintenance
		// concern, not handled here.
		s.logger.Warn("concurrent duplicate upload, orphan left", "digest", computed, "path", relPath)
		return &UploadResult{Status: StatusAlreadyExists, Digest: computed}, nil
	}

	s.logger.Info("file backed up", "digest", computed, "path", relPath, "bytes", staged.Size())
	return &UploadResult{Status: StatusAccepted, Digest: computed, StoragePath: relPath}, nil
}

// Stats reports aggregate backup statistics from the index together with
// the storage root location.
func (s *Service) Stats() (*ServerStats, error) {
	ist, err := s.index.Stats()
	if err != nil {
		return nil, fmt.Errorf("reading index stats: %w", err)
	}

	return &ServerStats{
		TotalFiles:     ist.TotalCount,
		TotalSizeBytes: ist.TotalSizeBytes,
		TotalSizeHuman: FormatSize(ist.TotalSizeBytes),
		FirstBackup:    ist.First,
		LastBackup:     ist.Last,
		StorageRoot:    s.storage.Root(),
	}, nil
}

// AllDigests enumerates every recorded digest, for maintenance and
// reconciliation tooling.
func (s *Service) AllDigests() ([]string, error) {
	digests, err := s.index.AllDigests()
	if err != nil {
		return nil, fmt.Errorf("enumerating digests: %w", err)
	}
	return digests, nil
}

// Usage reports disk usage under the storage root.
func (s *Service) Usage() (*UsageSummary, error) {
	return s.storage.UsageSummary()
}
