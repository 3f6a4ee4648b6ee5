package backup

import "time"

// BackupRecord is one row per unique piece of content ever accepted.
// Records are immutable after insertion: there is no update path, only
// insert and bulk read.
type BackupRecord struct {
	Digest           string     // SHA-256 of the content, lowercase hex; unique key
	StoragePath      string     // path relative to the storage root; stable once set
	OriginalPath     string     // client-supplied provenance, never validated
	OriginalFilename string     // client-supplied provenance, never validated
	SizeBytes        int64      // size of stored content at write time
	MimeType         string     // declared media type
	SourceDevice     string     // free-text device identifier
	BackedUpAt       time.Time  // set by the index at insertion, not the caller
}

// IndexStats is the aggregate view over the current index contents.
// First and Last are nil when the index is empty.
type IndexStats struct {
	TotalCount     int64
	TotalSizeBytes int64
	First          *time.Time
	Last           *time.Time
}

// UsageSummary describes disk usage under the storage root. Hidden
// (dot-prefixed) entries hold internal state and are never counted.
type UsageSummary struct {
	Root       string
	FileCount  int64
	TotalBytes int64
	TotalHuman string
}

// UploadMetadata carries the optional client-supplied fields of an upload.
type UploadMetadata struct {
	Filename     string
	OriginalPath string
	MimeType     string
	SourceDevice string
	SourceTag    string
	CapturedAt   *time.Time
}

// UploadStatus is the terminal state of one upload attempt.
type UploadStatus string

const (
	// StatusAccepted means the content was written and recorded.
	StatusAccepted UploadStatus = "accepted"
	// StatusAlreadyExists means the digest was already recorded; no bytes
	// were kept for this attempt. A normal outcome, not an error.
	StatusAlreadyExists UploadStatus = "exists"
	// StatusHashMismatch means the claimed digest disagreed with the
	// computed digest; the upload was rejected with no side effects.
	StatusHashMismatch UploadStatus = "hash_mismatch"
)

// UploadResult is returned to the transport layer for every non-failed
// upload attempt.
type UploadResult struct {
	Status      UploadStatus
	Digest      string // computed digest (claimed digest for StatusAlreadyExists)
	StoragePath string // set only for StatusAccepted
}

// CheckResult answers a batch existence query. Both slices preserve the
// order of the queried digests.
type CheckResult struct {
	Existing []string
	Missing  []string
}

// ServerStats combines index aggregates with the storage root location.
type ServerStats struct {
	TotalFiles     int64
	TotalSizeBytes int64
	TotalSizeHuman string
	FirstBackup    *time.Time
	LastBackup     *time.Time
	StorageRoot    string
}
