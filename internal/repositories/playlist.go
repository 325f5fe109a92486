package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// PlaylistRepository persists [models.Playlist] rows.
type PlaylistRepository struct {
	db shared.DBTX
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db shared.DBTX) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *PlaylistRepository) WithTx(tx *sql.Tx) *PlaylistRepository {
	return &PlaylistRepository{db: tx}
}

const playlistColumns = `id, name, description, type, remote_sync_id, created_at, updated_at`

// Create inserts a playlist and sets its ID and timestamps.
func (r *PlaylistRepository) Create(ctx context.Context, p *models.Playlist) error {
	if strings.TrimSpace(p.Name) == "" {
		return &shared.ValidationError{Field: "name", Reason: "must not be blank"}
	}
	if p.Type == "" {
		p.Type = models.PlaylistLocal
	}
	if !p.Type.Valid() {
		return &shared.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown playlist type %q", p.Type)}
	}

	now := shared.NowMillis()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO playlists (name, description, type, remote_sync_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Name, p.Description, p.Type, shared.NullString(p.RemoteSyncID), now, now)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read playlist id: %w", err)
	}
	p.ID = id
	p.CreatedAt = shared.FromMillis(now)
	p.UpdatedAt = p.CreatedAt
	return nil
}

// Get retrieves a playlist by ID
func (r *PlaylistRepository) Get(ctx context.Context, id int64) (*models.Playlist, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE id = ?`, id)
	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", shared.ErrPlaylistNotFound, id)
	}
	return p, err
}

// List returns every playlist ordered by ID.
func (r *PlaylistRepository) List(ctx context.Context) ([]*models.Playlist, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+playlistColumns+` FROM playlists ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playlists, nil
}

// BindRemote turns a playlist into a mirror of the remote collection remoteID.
func (r *PlaylistRepository) BindRemote(ctx context.Context, id int64, remoteID string) error {
	if remoteID == "" {
		return &shared.ValidationError{Field: "remote_sync_id", Reason: "must not be blank"}
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE playlists SET type = ?, remote_sync_id = ?, updated_at = ? WHERE id = ?
	`, models.PlaylistMirror, remoteID, shared.NowMillis(), id)
	if err != nil {
		return fmt.Errorf("failed to bind playlist: %w", err)
	}
	return requireAffected(result, shared.ErrPlaylistNotFound, id)
}

// UpdateMetadata renames a playlist.
func (r *PlaylistRepository) UpdateMetadata(ctx context.Context, id int64, name, description string) error {
	if strings.TrimSpace(name) == "" {
		return &shared.ValidationError{Field: "name", Reason: "must not be blank"}
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE playlists SET name = ?, description = ?, updated_at = ? WHERE id = ?
	`, name, description, shared.NowMillis(), id)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}
	return requireAffected(result, shared.ErrPlaylistNotFound, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(s scanner) (*models.Playlist, error) {
	var (
		p                    models.Playlist
		remote               sql.NullString
		createdAt, updatedAt int64
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Type, &remote, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}
	p.RemoteSyncID = remote.String
	p.CreatedAt = shared.FromMillis(createdAt)
	p.UpdatedAt = shared.FromMillis(updatedAt)
	return &p, nil
}
