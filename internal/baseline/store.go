// Package baseline persists per-(task, platform) score history used by
// regression detection. Histories are bounded FIFO windows: entries are
// appended after analysis and the oldest entries are evicted once a key
// exceeds the bound.
package baseline

import (
	"context"
	"fmt"

	"github.com/plugvet/plugvet/internal/models"
)

//go:generate go tool mockgen -source=store.go -destination=mock_store.go -package=baseline

// DefaultHistoryBound is how many entries a (task, platform) key retains.
const DefaultHistoryBound = 10

// Key identifies one score history.
type Key struct {
	TaskName string
	Platform string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.TaskName, k.Platform)
}

// Store is the persistence boundary for baseline histories.
type Store interface {
	// History returns entries for the key ordered newest first.
	// A limit <= 0 returns the full retained history.
	History(ctx context.Context, taskName, platform string, limit int) ([]models.BaselineEntry, error)

	// Append records one entry and evicts the oldest entries beyond
	// the store's bound.
	Append(ctx context.Context, taskName, platform string, entry models.BaselineEntry) error

	// Keys lists every (task, platform) with retained history, sorted.
	Keys(ctx context.Context) ([]Key, error)

	// Trim shrinks every history to at most keep entries and reports
	// how many rows were removed.
	Trim(ctx context.Context, keep int) (int64, error)

	Close() error
}
