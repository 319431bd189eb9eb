// Package archive stores completed simulation reports so runs can be
// compared later. Backends exist for the local filesystem and any
// S3-compatible object store.
package archive

import (
	"context"
	"fmt"
	"time"
)

// Store is the interface simulation reports are archived through.
type Store interface {
	// Put stores a report document under the given key.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves a report document by key.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys under the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists checks whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// ResultKey builds the canonical key for a run's report document:
// results/<year>/<run-id>.json, grouped by the run's end date.
func ResultKey(endDate time.Time, runID string) string {
	return fmt.Sprintf("results/%04d/%s.json", endDate.Year(), runID)
}
