package baseline

import (
	"context"
	"fmt"
	"time"

	"github.com/plugvet/plugvet/internal/models"
)

// SnapshotVersion is bumped when the snapshot document shape changes.
// Older documents stay readable; unknown fields are ignored.
const SnapshotVersion = 1

// Snapshot is the portable form of a whole store, used to mirror
// histories through blob storage.
type Snapshot struct {
	Version    int             `json:"version"`
	ExportedAt time.Time       `json:"exportedAt"`
	Entries    []SnapshotEntry `json:"entries"`
}

// SnapshotEntry pairs a history key with one of its entries.
type SnapshotEntry struct {
	TaskName string               `json:"taskName"`
	Platform string               `json:"platform"`
	Entry    models.BaselineEntry `json:"entry"`
}

// Export walks every key and flattens the store into a Snapshot.
// Entries are ordered oldest first within each key so importing them
// in sequence reproduces the original history order.
func Export(ctx context.Context, store Store) (*Snapshot, error) {
	keys, err := store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("export baselines: %w", err)
	}

	snap := &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: time.Now().UTC(),
		Entries:    []SnapshotEntry{},
	}
	for _, key := range keys {
		history, err := store.History(ctx, key.TaskName, key.Platform, 0)
		if err != nil {
			return nil, fmt.Errorf("export baselines: %w", err)
		}
		// History is newest first; reverse into append order.
		for i := len(history) - 1; i >= 0; i-- {
			snap.Entries = append(snap.Entries, SnapshotEntry{
				TaskName: key.TaskName,
				Platform: key.Platform,
				Entry:    history[i],
			})
		}
	}
	return snap, nil
}

// Import replaces the store's contents with the snapshot's entries.
func Import(ctx context.Context, store *SQLiteStore, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("import baselines: nil snapshot")
	}
	if snap.Version > SnapshotVersion {
		return fmt.Errorf("import baselines: snapshot version %d is newer than supported %d", snap.Version, SnapshotVersion)
	}
	if err := store.replaceAll(ctx, snap.Entries); err != nil {
		return fmt.Errorf("import baselines: %w", err)
	}
	return nil
}
