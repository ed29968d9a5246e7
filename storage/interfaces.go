package storage

import "listing-guard/models"

// Snapshot is what a store knows about earlier runs.
type Snapshot struct {
	SeenURLs []string
	MaxID    int64
	Rows     int
}

// CheckpointStore is the crawler's durable output. Each Checkpoint rewrites
// the whole store, so it is always a superset of every earlier checkpoint.
type CheckpointStore interface {
	Load() (*Snapshot, error)
	Checkpoint(records []*models.ListingRecord) error
}

// ListingWriter is the interface any secondary storage backend must satisfy.
type ListingWriter interface {
	Write(records []*models.ListingRecord) error
	Close() error
}

// ListingReader exposes stored listings for reporting.
type ListingReader interface {
	FetchAll() ([]*models.ListingRecord, error)
}

var (
	_ CheckpointStore = (*CSVStore)(nil)
	_ ListingReader   = (*CSVStore)(nil)
	_ ListingWriter   = (*PostgresWriter)(nil)
	_ ListingReader   = (*PostgresWriter)(nil)
)
