package backup

// InsertOutcome is the result of an Index.Insert attempt.
type InsertOutcome int

const (
	// InsertCreated means a new record was committed.
	InsertCreated InsertOutcome = iota
	// InsertDuplicate means another insert with the same digest had
	// already committed, possibly a concurrent one that won the race.
	// This is a normal outcome, never an error.
	InsertDuplicate
)

func (o InsertOutcome) String() string {
	switch o {
	case InsertCreated:
		return "created"
	case InsertDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Index is the durable record of which content digests have already been
// backed up. It is the single authority for digest uniqueness and must be
// safe for concurrent use: uniqueness is enforced by the store itself at
// insertion time, not by a check-then-insert at the caller.
type Index interface {
	// Exists reports whether a record with the given digest is present.
	Exists(digest string) (bool, error)

	// ExistingOf returns the subset of the given digests that are already
	// recorded. An empty input yields an empty result, not an error.
	ExistingOf(digests []string) (map[string]bool, error)

	// Insert attempts to create a new record. The index sets the record's
	// BackedUpAt timestamp. A digest collision yields InsertDuplicate.
	Insert(record *BackupRecord) (InsertOutcome, error)

	// AllDigests enumerates every recorded digest, for maintenance and
	// reconciliation tasks.
	AllDigests() ([]string, error)

	// Stats computes the aggregate view over current contents.
	Stats() (*IndexStats, error)

	// Close releases the underlying store.
	Close() error
}
