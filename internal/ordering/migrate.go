package ordering

import (
	"context"
	"fmt"
)

// LegacyRow is a membership row still ordered by its integer position.
type LegacyRow struct {
	PlaylistID int64
	TrackID    string
	Position   int
}

// AssignedKey is the sort key computed for a legacy row.
type AssignedKey struct {
	PlaylistID int64
	TrackID    string
	SortKey    string
}

// MigrationStore persists the one-time move from integer positions to sort keys.
type MigrationStore interface {
	// MigrationDone reports whether the migration flag is already set.
	MigrationDone(ctx context.Context) (bool, error)
	// LegacyRows returns every membership row grouped by playlist, ascending by position.
	LegacyRows(ctx context.Context) ([]LegacyRow, error)
	// ApplyKeys writes all keys and sets the migration flag in a single transaction.
	ApplyKeys(ctx context.Context, keys []AssignedKey) error
}

// MigrateLegacy assigns sort keys to every legacy row and returns how many were written.
//
// It is a no-op once the persisted flag is set, so a second run never rewrites keys.
func MigrateLegacy(ctx context.Context, store MigrationStore) (int, error) {
	done, err := store.MigrationDone(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read migration flag: %w", err)
	}
	if done {
		return 0, nil
	}

	rows, err := store.LegacyRows(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read legacy rows: %w", err)
	}

	keys, err := AssignKeys(rows)
	if err != nil {
		return 0, err
	}

	if err := store.ApplyKeys(ctx, keys); err != nil {
		return 0, fmt.Errorf("failed to persist sort keys: %w", err)
	}
	return len(keys), nil
}

// AssignKeys computes append-order keys for rows already sorted by playlist and position.
func AssignKeys(rows []LegacyRow) ([]AssignedKey, error) {
	keys := make([]AssignedKey, 0, len(rows))
	var (
		playlist int64
		prev     string
	)
	for i, row := range rows {
		if i == 0 || row.PlaylistID != playlist {
			playlist, prev = row.PlaylistID, ""
		}
		k, err := KeyBetween(prev, "")
		if err != nil {
			return nil, fmt.Errorf("playlist %d: %w", row.PlaylistID, err)
		}
		keys = append(keys, AssignedKey{PlaylistID: row.PlaylistID, TrackID: row.TrackID, SortKey: k})
		prev = k
	}
	return keys, nil
}
