package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// TrackRepository persists remote track references. Rows are never updated or deleted.
type TrackRepository struct {
	db shared.DBTX
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db shared.DBTX) *TrackRepository {
	return &TrackRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *TrackRepository) WithTx(tx *sql.Tx) *TrackRepository {
	return &TrackRepository{db: tx}
}

// Upsert stores t unless a track with the same external ID exists.
func (r *TrackRepository) Upsert(ctx context.Context, t *models.Track) error {
	if t.ExternalID == "" {
		return &shared.ValidationError{Field: "external_id", Reason: "must not be blank"}
	}
	title := t.Title
	if title == "" {
		title = t.ExternalID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO tracks (external_id, title, artist, album, duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ExternalID, title, t.Artist, t.Album, t.Duration, shared.NowMillis())
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}
	return nil
}

// Get retrieves a track by external ID.
func (r *TrackRepository) Get(ctx context.Context, id string) (*models.Track, error) {
	var t models.Track
	err := r.db.QueryRowContext(ctx, `
		SELECT external_id, title, artist, album, duration FROM tracks WHERE external_id = ?
	`, id).Scan(&t.ExternalID, &t.Title, &t.Artist, &t.Album, &t.Duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	return &t, nil
}
