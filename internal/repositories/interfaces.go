package repositories

import (
	"context"
	"errors"

	domain "github.com/orderforge/pricing-api/internal/domain"
)

// ErrSnapshotUnavailable signals that no rule snapshot could be loaded and no
// cached snapshot exists to fall back on.
var ErrSnapshotUnavailable = errors.New("repositories: rule snapshot unavailable")

// RuleRepository loads immutable rule snapshots for the pricing engine.
//
// Implementations may cache snapshots; LoadSnapshot returns the cached copy
// while it is fresh and reloads otherwise. Invalidate forces the next call to
// reload from the backing store.
type RuleRepository interface {
	LoadSnapshot(ctx context.Context) (domain.RuleSnapshot, error)
	Invalidate()
}

// RepositoryError categorises low-level persistence failures for services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsUnavailable() bool
}
