package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// SyncQueueRepository is the persisted outbox of remote mutations.
//
// Status only moves pending → processing → completed|failed, plus failed → pending through
// [SyncQueueRepository.Requeue] and processing → pending through [SyncQueueRepository.RecoverInterrupted].
type SyncQueueRepository struct {
	db shared.DBTX
}

// NewSyncQueueRepository creates a new SyncQueueRepository with the given database connection
func NewSyncQueueRepository(db shared.DBTX) *SyncQueueRepository {
	return &SyncQueueRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *SyncQueueRepository) WithTx(tx *sql.Tx) *SyncQueueRepository {
	return &SyncQueueRepository{db: tx}
}

// QueueFilter narrows [SyncQueueRepository.List]. Zero values match everything.
type QueueFilter struct {
	PlaylistID int64
	Status     models.Status
	Limit      int
}

const entryColumns = `id, playlist_id, operation, payload, status, created_at, attempts, last_error, updated_at`

// liveCeiling returns the latest created_at among the playlist's pending and processing entries, 0 if none.
func liveCeiling(ctx context.Context, q shared.DBTX, playlistID int64) (int64, error) {
	var ceiling sql.NullInt64
	err := q.QueryRowContext(ctx, `
		SELECT MAX(created_at) FROM sync_queue WHERE playlist_id = ? AND status IN ('pending', 'processing')
	`, playlistID).Scan(&ceiling)
	if err != nil {
		return 0, fmt.Errorf("failed to read queue ceiling: %w", err)
	}
	return ceiling.Int64, nil
}

// Enqueue validates and records an operation for playlistID, returning the entry ID.
//
// New entries never sort ahead of live entries of the same playlist.
func (r *SyncQueueRepository) Enqueue(ctx context.Context, playlistID int64, op models.Operation, payload models.Payload) (int64, error) {
	if !op.Valid() {
		return 0, &shared.ValidationError{Field: "operation", Reason: fmt.Sprintf("unknown operation %q", op)}
	}
	if payload == nil {
		return 0, &shared.ValidationError{Field: "payload", Reason: "must not be nil"}
	}
	if err := payload.Validate(); err != nil {
		return 0, err
	}
	if _, err := models.NewPayload(op); err != nil {
		return 0, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode payload: %w", err)
	}

	var id int64
	err = inTx(ctx, r.db, func(q shared.DBTX) error {
		ceiling, err := liveCeiling(ctx, q, playlistID)
		if err != nil {
			return err
		}
		now := shared.NowMillis()
		createdAt := max(now, ceiling)

		result, err := q.ExecContext(ctx, `
			INSERT INTO sync_queue (playlist_id, operation, payload, status, created_at, attempts, updated_at)
			VALUES (?, ?, ?, ?, ?, 0, ?)
		`, playlistID, op, string(data), models.StatusPending, createdAt, now)
		if err != nil {
			return fmt.Errorf("failed to enqueue %s: %w", op, err)
		}
		id, err = result.LastInsertId()
		return err
	})
	return id, err
}

// Get retrieves an entry by ID.
func (r *SyncQueueRepository) Get(ctx context.Context, id int64) (*models.SyncQueueEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM sync_queue WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", shared.ErrEntryNotFound, id)
	}
	return e, err
}

// List returns entries matching f in processing order.
func (r *SyncQueueRepository) List(ctx context.Context, f QueueFilter) ([]*models.SyncQueueEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM sync_queue WHERE 1 = 1`
	args := []any{}

	if f.PlaylistID != 0 {
		query += " AND playlist_id = ?"
		args = append(args, f.PlaylistID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}

	query += " ORDER BY created_at ASC, id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync queue: %w", err)
	}
	defer rows.Close()

	var entries []*models.SyncQueueEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// ListFailed returns failed entries of playlistID, or of every playlist when it is 0.
func (r *SyncQueueRepository) ListFailed(ctx context.Context, playlistID int64) ([]*models.SyncQueueEntry, error) {
	return r.List(ctx, QueueFilter{PlaylistID: playlistID, Status: models.StatusFailed})
}

// Requeue moves exactly the given failed entries back to pending and returns how many moved.
//
// Entries in any other state are left alone. Requeued entries go behind the live entries of their
// playlist, keeping their original relative order.
func (r *SyncQueueRepository) Requeue(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	moved := 0
	err := inTx(ctx, r.db, func(q shared.DBTX) error {
		rows, err := q.QueryContext(ctx, `
			SELECT id, playlist_id FROM sync_queue
			WHERE status = 'failed' AND id IN (`+placeholders(len(ids))+`)
			ORDER BY created_at ASC, id ASC
		`, args...)
		if err != nil {
			return fmt.Errorf("failed to select failed entries: %w", err)
		}

		type target struct{ id, playlistID int64 }
		var targets []target
		for rows.Next() {
			var t target
			if err := rows.Scan(&t.id, &t.playlistID); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan entry: %w", err)
			}
			targets = append(targets, t)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("row iteration error: %w", err)
		}

		now := shared.NowMillis()
		for _, t := range targets {
			ceiling, err := liveCeiling(ctx, q, t.playlistID)
			if err != nil {
				return err
			}
			createdAt := now
			if ceiling > 0 {
				createdAt = max(now, ceiling+1)
			}
			if _, err := q.ExecContext(ctx, `
				UPDATE sync_queue SET status = 'pending', created_at = ?, updated_at = ?
				WHERE id = ? AND status = 'failed'
			`, createdAt, now, t.id); err != nil {
				return fmt.Errorf("failed to requeue entry %d: %w", t.id, err)
			}
			moved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// ClaimNext marks the oldest pending entry of playlistID as processing and returns it.
//
// A processing row is the playlist's lock: while one exists, in this process or another sharing the
// database, nothing is claimed and [shared.ErrAlreadyRunning] is returned. Returns
// [shared.ErrNoPendingEntries] when the playlist has nothing left.
func (r *SyncQueueRepository) ClaimNext(ctx context.Context, playlistID int64) (*models.SyncQueueEntry, error) {
	var claimed *models.SyncQueueEntry
	err := inTx(ctx, r.db, func(q shared.DBTX) error {
		row := q.QueryRowContext(ctx, `
			UPDATE sync_queue SET status = 'processing', attempts = attempts + 1, updated_at = ?
			WHERE id = (
				SELECT id FROM sync_queue
				WHERE playlist_id = ? AND status = 'pending'
				ORDER BY created_at ASC, id ASC
				LIMIT 1
			)
			AND NOT EXISTS (
				SELECT 1 FROM sync_queue WHERE playlist_id = ? AND status = 'processing'
			)
			RETURNING `+entryColumns, shared.NowMillis(), playlistID, playlistID)
		e, err := scanEntry(row)
		if err == nil {
			claimed = e
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to claim entry: %w", err)
		}

		busy, err := inFlight(ctx, q, playlistID)
		if err != nil {
			return err
		}
		if busy {
			return fmt.Errorf("%w: playlist %d has an entry in flight", shared.ErrAlreadyRunning, playlistID)
		}
		return shared.ErrNoPendingEntries
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// InFlight reports whether an entry of playlistID is processing.
func (r *SyncQueueRepository) InFlight(ctx context.Context, playlistID int64) (bool, error) {
	return inFlight(ctx, r.db, playlistID)
}

func inFlight(ctx context.Context, q shared.DBTX, playlistID int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sync_queue WHERE playlist_id = ? AND status = 'processing'
	`, playlistID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check in-flight entries: %w", err)
	}
	return n > 0, nil
}

// Complete marks a processing entry as completed.
func (r *SyncQueueRepository) Complete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = 'completed', last_error = NULL, updated_at = ?
		WHERE id = ? AND status = 'processing'
	`, shared.NowMillis(), id)
	if err != nil {
		return fmt.Errorf("failed to complete entry %d: %w", id, err)
	}
	return requireAffected(result, shared.ErrEntryNotFound, id)
}

// Fail marks a processing entry as failed with reason.
func (r *SyncQueueRepository) Fail(ctx context.Context, id int64, reason string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = 'failed', last_error = ?, updated_at = ?
		WHERE id = ? AND status = 'processing'
	`, reason, shared.NowMillis(), id)
	if err != nil {
		return fmt.Errorf("failed to fail entry %d: %w", id, err)
	}
	return requireAffected(result, shared.ErrEntryNotFound, id)
}

// FailPending fails every pending entry of playlistID without attempting it, returning the count.
func (r *SyncQueueRepository) FailPending(ctx context.Context, playlistID int64, reason string) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = 'failed', last_error = ?, updated_at = ?
		WHERE playlist_id = ? AND status = 'pending'
	`, reason, shared.NowMillis(), playlistID)
	if err != nil {
		return 0, fmt.Errorf("failed to fail pending entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

// RecordAttempt notes a failed attempt on a processing entry that will be tried again in the same drain.
func (r *SyncQueueRepository) RecordAttempt(ctx context.Context, id int64, reason string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE id = ? AND status = 'processing'
	`, reason, shared.NowMillis(), id)
	if err != nil {
		return fmt.Errorf("failed to record attempt on entry %d: %w", id, err)
	}
	return requireAffected(result, shared.ErrEntryNotFound, id)
}

// CountPending returns the number of pending entries of playlistID.
func (r *SyncQueueRepository) CountPending(ctx context.Context, playlistID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sync_queue WHERE playlist_id = ? AND status = 'pending'
	`, playlistID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending entries: %w", err)
	}
	return n, nil
}

// PendingPlaylists returns the IDs of playlists with pending entries, ascending.
func (r *SyncQueueRepository) PendingPlaylists(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT playlist_id FROM sync_queue WHERE status = 'pending' ORDER BY playlist_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending playlists: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan playlist id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats counts entries by status for playlistID, or for every playlist when it is 0.
func (r *SyncQueueRepository) Stats(ctx context.Context, playlistID int64) (models.QueueStats, error) {
	query := `SELECT status, COUNT(*) FROM sync_queue`
	args := []any{}
	if playlistID != 0 {
		query += " WHERE playlist_id = ?"
		args = append(args, playlistID)
	}
	query += " GROUP BY status"

	var stats models.QueueStats
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return stats, fmt.Errorf("failed to query queue stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status models.Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return stats, fmt.Errorf("failed to scan queue stats: %w", err)
		}
		switch status {
		case models.StatusPending:
			stats.Pending = n
		case models.StatusProcessing:
			stats.Processing = n
		case models.StatusCompleted:
			stats.Completed = n
		case models.StatusFailed:
			stats.Failed = n
		}
	}
	return stats, rows.Err()
}

// RecoverInterrupted returns entries left processing by a crashed drain to pending.
//
// Their remote effect may already have happened; delivery is at-least-once.
func (r *SyncQueueRepository) RecoverInterrupted(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = 'pending', updated_at = ? WHERE status = 'processing'
	`, shared.NowMillis())
	if err != nil {
		return 0, fmt.Errorf("failed to recover interrupted entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

// PruneCompleted deletes completed entries last updated before the cutoff.
func (r *SyncQueueRepository) PruneCompleted(ctx context.Context, before time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sync_queue WHERE status = 'completed' AND updated_at < ?
	`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune completed entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(n), nil
}

func scanEntry(s scanner) (*models.SyncQueueEntry, error) {
	var (
		e                    models.SyncQueueEntry
		payload              string
		lastError            sql.NullString
		createdAt, updatedAt int64
	)
	err := s.Scan(&e.ID, &e.PlaylistID, &e.Operation, &payload, &e.Status, &createdAt, &e.Attempts, &lastError, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan queue entry: %w", err)
	}
	e.Payload = json.RawMessage(payload)
	e.CreatedAt = shared.FromMillis(createdAt)
	e.UpdatedAt = shared.FromMillis(updatedAt)
	e.LastError = lastError.String
	return &e, nil
}

