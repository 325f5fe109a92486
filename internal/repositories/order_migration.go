package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/ytmirror/internal/ordering"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// SortKeysMigratedFlag is the settings key set once legacy positions have been converted.
const SortKeysMigratedFlag = "ordering.sort_keys_migrated"

// OrderMigrationStore implements [ordering.MigrationStore] over SQLite.
type OrderMigrationStore struct {
	db *sql.DB
}

func NewOrderMigrationStore(db *sql.DB) *OrderMigrationStore {
	return &OrderMigrationStore{db: db}
}

func (s *OrderMigrationStore) MigrationDone(ctx context.Context) (bool, error) {
	return NewSettingsRepository(s.db).GetFlag(ctx, SortKeysMigratedFlag)
}

// LegacyRows returns all membership rows grouped by playlist, each playlist in the order
// [PlaylistTrackRepository.List] shows it, so assigning keys never moves a track.
func (s *OrderMigrationStore) LegacyRows(ctx context.Context) ([]ordering.LegacyRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pt.playlist_id, pt.track_id, COALESCE(pt.position, -1)
		FROM playlist_tracks pt
		ORDER BY pt.playlist_id ASC, `+membershipOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to query legacy rows: %w", err)
	}
	defer rows.Close()

	var out []ordering.LegacyRow
	for rows.Next() {
		var r ordering.LegacyRow
		if err := rows.Scan(&r.PlaylistID, &r.TrackID, &r.Position); err != nil {
			return nil, fmt.Errorf("failed to scan legacy row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ApplyKeys rewrites every sort key and sets the flag in one transaction.
func (s *OrderMigrationStore) ApplyKeys(ctx context.Context, keys []ordering.AssignedKey) error {
	return shared.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE playlist_tracks SET sort_key = NULL`); err != nil {
			return fmt.Errorf("failed to clear sort keys: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			UPDATE playlist_tracks SET sort_key = ? WHERE playlist_id = ? AND track_id = ?
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare key update: %w", err)
		}
		defer stmt.Close()

		for _, k := range keys {
			if _, err := stmt.ExecContext(ctx, k.SortKey, k.PlaylistID, k.TrackID); err != nil {
				return fmt.Errorf("failed to set key for %d/%s: %w", k.PlaylistID, k.TrackID, err)
			}
		}

		return NewSettingsRepository(tx).SetFlag(ctx, SortKeysMigratedFlag)
	})
}
