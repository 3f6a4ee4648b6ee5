// Package index persists the deduplication index in SQLite. Digest
// uniqueness is enforced by the store's UNIQUE constraint, so concurrent
// inserts of the same content resolve inside the database rather than by
// application-level locking.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pbserver/internal/backup"
	"pbserver/internal/index/migrations"

	"github.com/mattn/go-sqlite3"
)

// SQLiteIndex implements the backup.Index interface using SQLite.
type SQLiteIndex struct {
	db    *sql.DB
	clock backup.Clock
	path  string
}

// NewSQLiteIndex opens (or creates) the index database at path and brings
// its schema up to date. path can be ":memory:" for an in-memory index.
func NewSQLiteIndex(path string, clock backup.Clock) (*SQLiteIndex, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating index schema: %w", err)
	}

	return &SQLiteIndex{db: db, clock: clock, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with the
// PRAGMAs this index relies on. Exported for tests that need a raw,
// properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	// Concurrent uploads insert from multiple pooled connections; the
	// busy timeout goes in the DSN so every connection waits for locks
	// instead of failing with SQLITE_BUSY. An Exec'd PRAGMA would only
	// configure the one connection that happened to run it.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// An in-memory SQLite database exists per connection; the pool must
	// not hand out a second connection or it would see an empty database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// Exists reports whether a record with the given digest is present.
func (s *SQLiteIndex) Exists(digest string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM backup_records WHERE digest = ?", digest).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking digest: %w", err)
	}
	return true, nil
}

// ExistingOf returns the subset of digests already recorded.
func (s *SQLiteIndex) ExistingOf(digests []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(digests))
	if len(digests) == 0 {
		return existing, nil
	}

	placeholders := strings.Repeat("?,", len(digests)-1) + "?"
	args := make([]any, len(digests))
	for i, d := range digests {
		args[i] = d
	}

	rows, err := s.db.Query(
		"SELECT digest FROM backup_records WHERE digest IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("querying digests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning digest: %w", err)
		}
		existing[d] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading digests: %w", err)
	}
	return existing, nil
}

// Insert attempts to create a new record, setting its BackedUpAt
// timestamp. A UNIQUE violation on the digest maps to InsertDuplicate.
func (s *SQLiteIndex) Insert(record *backup.BackupRecord) (backup.InsertOutcome, error) {
	record.BackedUpAt = s.clock.Now().UTC()

	_, err := s.db.Exec(`
		INSERT INTO backup_records
		(digest, storage_path, original_path, original_filename, size_bytes, mime_type, source_device, backed_up_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Digest,
		record.StoragePath,
		nullable(record.OriginalPath),
		nullable(record.OriginalFilename),
		record.SizeBytes,
		nullable(record.MimeType),
		nullable(record.SourceDevice),
		record.BackedUpAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) &&
			(serr.ExtendedCode == sqlite3.ErrConstraintUnique || serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
			return backup.InsertDuplicate, nil
		}
		return 0, fmt.Errorf("inserting record: %w", err)
	}
	return backup.InsertCreated, nil
}

// AllDigests enumerates every recorded digest.
func (s *SQLiteIndex) AllDigests() ([]string, error) {
	rows, err := s.db.Query("SELECT digest FROM backup_records")
	if err != nil {
		return nil, fmt.Errorf("querying digests: %w", err)
	}
	defer rows.Close()

	var digests []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning digest: %w", err)
		}
		digests = append(digests, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading digests: %w", err)
	}
	return digests, nil
}

// Stats computes the aggregate view over current index contents.
func (s *SQLiteIndex) Stats() (*backup.IndexStats, error) {
	var (
		count, size int64
		first, last sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(size_bytes), 0), MIN(backed_up_at), MAX(backed_up_at)
		FROM backup_records`).Scan(&count, &size, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("computing stats: %w", err)
	}

	stats := &backup.IndexStats{TotalCount: count, TotalSizeBytes: size}
	if stats.First, err = parseStamp(first); err != nil {
		return nil, err
	}
	if stats.Last, err = parseStamp(last); err != nil {
		return nil, err
	}
	return stats, nil
}

// parseStamp parses a backed_up_at value read through an aggregate.
// Aggregate expressions carry no column type, so the driver hands back
// the stored RFC 3339 string rather than a time.Time.
func parseStamp(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp %q: %w", v.String, err)
	}
	return &t, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteIndex) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// nullable stores empty strings as NULL, matching the optional columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Compile-time check that SQLiteIndex implements backup.Index
var _ backup.Index = (*SQLiteIndex)(nil)
