// internal/domain/mention/store.go

package mention

import (
	"context"
	"time"
)

// Store persists uploaded datasets
type Store interface {
	// SaveDataset stores a dataset and its mentions
	SaveDataset(ctx context.Context, ds Dataset) error

	// GetDataset loads a dataset with its mentions, or returns ErrNotFound
	GetDataset(ctx context.Context, id string) (*Dataset, error)

	// ListDatasets returns every dataset, newest upload first
	ListDatasets(ctx context.Context) ([]DatasetInfo, error)

	// DeleteDataset removes a dataset, or returns ErrNotFound
	DeleteDataset(ctx context.Context, id string) error

	// DeleteOlderThan removes datasets uploaded before cutoff and returns their ids
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)

	// Close releases the underlying connections
	Close() error
}
