package ports

import (
	"context"

	"github.com/aretw0/helix/pkg/domain"
)

// CacheStore persists collection snapshots. Implementations must be safe for concurrent use.
type CacheStore interface {
	// Save replaces the snapshot of snap.Collection.
	Save(ctx context.Context, snap domain.Snapshot) error

	// Load returns the snapshot of c.
	// Returns domain.ErrNotCached if c was never saved.
	Load(ctx context.Context, c domain.Collection) (domain.Snapshot, error)

	// Delete removes the snapshot of c. Deleting a missing snapshot is not an error.
	Delete(ctx context.Context, c domain.Collection) error

	// List returns the collections that currently hold a snapshot.
	List(ctx context.Context) ([]domain.Collection, error)
}
