package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// PlaylistTrackRepository persists playlist membership ordered by sort key.
type PlaylistTrackRepository struct {
	db shared.DBTX
}

// NewPlaylistTrackRepository creates a new PlaylistTrackRepository with the given database connection
func NewPlaylistTrackRepository(db shared.DBTX) *PlaylistTrackRepository {
	return &PlaylistTrackRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *PlaylistTrackRepository) WithTx(tx *sql.Tx) *PlaylistTrackRepository {
	return &PlaylistTrackRepository{db: tx}
}

// membershipOrder sorts legacy rows by position ahead of keyed rows by sort key. Migrated rows keep
// their old position, so it only applies to rows without a key.
const membershipOrder = `pt.sort_key IS NOT NULL, CASE WHEN pt.sort_key IS NULL THEN pt.position END, pt.sort_key, pt.added_at, pt.rowid`

// List returns the playlist's items with their tracks, in sort key order.
//
// Rows without a sort key predate the ordering migration; they come first by legacy position,
// the order [OrderMigrationStore.LegacyRows] assigns keys in.
func (r *PlaylistTrackRepository) List(ctx context.Context, playlistID int64) ([]models.PlaylistItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT pt.playlist_id, pt.track_id, pt.sort_key, pt.added_at,
		       t.title, t.artist, t.album, t.duration
		FROM playlist_tracks pt
		JOIN tracks t ON t.external_id = pt.track_id
		WHERE pt.playlist_id = ?
		ORDER BY `+membershipOrder+`
	`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	var items []models.PlaylistItem
	for rows.Next() {
		var (
			item    models.PlaylistItem
			key     sql.NullString
			addedAt int64
			t       models.Track
		)
		if err := rows.Scan(&item.PlaylistID, &item.TrackID, &key, &addedAt, &t.Title, &t.Artist, &t.Album, &t.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan playlist track: %w", err)
		}
		t.ExternalID = item.TrackID
		item.SortKey = key.String
		item.AddedAt = shared.FromMillis(addedAt)
		item.Track = &t
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// TrackIDs returns the playlist's track IDs in order.
func (r *PlaylistTrackRepository) TrackIDs(ctx context.Context, playlistID int64) ([]string, error) {
	items, err := r.List(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.TrackID
	}
	return ids, nil
}

// LastKey returns the greatest sort key of the playlist, "" when it has none.
func (r *PlaylistTrackRepository) LastKey(ctx context.Context, playlistID int64) (string, error) {
	var key sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT MAX(sort_key) FROM playlist_tracks WHERE playlist_id = ?`, playlistID).Scan(&key)
	if err != nil {
		return "", fmt.Errorf("failed to read last sort key: %w", err)
	}
	return key.String, nil
}

// Contains reports whether trackID is a member of the playlist.
func (r *PlaylistTrackRepository) Contains(ctx context.Context, playlistID int64, trackID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?
	`, playlistID, trackID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return true, nil
}

// Insert adds a member with the given sort key.
func (r *PlaylistTrackRepository) Insert(ctx context.Context, playlistID int64, trackID, sortKey string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO playlist_tracks (playlist_id, track_id, sort_key, added_at) VALUES (?, ?, ?, ?)
	`, playlistID, trackID, sortKey, shared.NowMillis())
	if err != nil {
		return fmt.Errorf("failed to insert playlist track: %w", err)
	}
	return nil
}

// UpdateKey moves one member. No other row is touched.
func (r *PlaylistTrackRepository) UpdateKey(ctx context.Context, playlistID int64, trackID, sortKey string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE playlist_tracks SET sort_key = ? WHERE playlist_id = ? AND track_id = ?
	`, sortKey, playlistID, trackID)
	if err != nil {
		return fmt.Errorf("failed to update sort key: %w", err)
	}
	return requireAffected(result, shared.ErrTrackNotFound, trackID)
}

// Delete removes a member and reports whether it existed.
func (r *PlaylistTrackRepository) Delete(ctx context.Context, playlistID int64, trackID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?
	`, playlistID, trackID)
	if err != nil {
		return false, fmt.Errorf("failed to delete playlist track: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// InsertLegacy adds a member ordered only by an integer position, as rows written before sort keys existed.
func (r *PlaylistTrackRepository) InsertLegacy(ctx context.Context, playlistID int64, trackID string, position int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO playlist_tracks (playlist_id, track_id, position, added_at) VALUES (?, ?, ?, ?)
	`, playlistID, trackID, position, shared.NowMillis())
	if err != nil {
		return fmt.Errorf("failed to insert legacy playlist track: %w", err)
	}
	return nil
}
