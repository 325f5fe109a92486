package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/repositories"
	"github.com/desertthunder/ytmirror/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

type entryRow struct {
	ID         int64            `json:"id"`
	PlaylistID int64            `json:"playlist_id"`
	Operation  models.Operation `json:"operation"`
	Status     models.Status    `json:"status"`
	Attempts   int              `json:"attempts"`
	LastError  string           `json:"last_error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func toEntryRows(entries []*models.SyncQueueEntry) []entryRow {
	rows := make([]entryRow, len(entries))
	for i, e := range entries {
		rows[i] = entryRow{
			ID:         e.ID,
			PlaylistID: e.PlaylistID,
			Operation:  e.Operation,
			Status:     e.Status,
			Attempts:   e.Attempts,
			LastError:  e.LastError,
			CreatedAt:  e.CreatedAt,
			UpdatedAt:  e.UpdatedAt,
		}
	}
	return rows
}

func (r *Runner) writeEntries(entries []*models.SyncQueueEntry, withErrors bool) error {
	header := []string{"ID", "Playlist", "Operation", "Status", "Attempts", "Queued", "Updated"}
	if withErrors {
		header = append(header, "Error")
	}

	table := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := []string{
			strconv.FormatInt(e.ID, 10),
			strconv.FormatInt(e.PlaylistID, 10),
			string(e.Operation),
			r.styles.Status(e.Status),
			strconv.Itoa(e.Attempts),
			humanize.Time(e.CreatedAt),
			humanize.Time(e.UpdatedAt),
		}
		if withErrors {
			row = append(row, e.LastError)
		}
		table = append(table, row)
	}
	return r.writePlain("%s", r.styles.Table(header, table))
}

// QueueList lists outbox entries in drain order.
func (r *Runner) QueueList(ctx context.Context, cmd *cli.Command) error {
	filter := repositories.QueueFilter{
		PlaylistID: cmd.Int64("playlist"),
		Status:     models.Status(cmd.String("status")),
		Limit:      cmd.Int("limit"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, filter.Status)
	}

	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	entries, err := store.Queue.List(ctx, filter)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(toEntryRows(entries), true)
	}
	if len(entries) == 0 {
		return r.writePlain("Queue is empty.\n")
	}
	return r.writeEntries(entries, false)
}

// QueueFailed lists failed entries with the error that failed them.
func (r *Runner) QueueFailed(ctx context.Context, cmd *cli.Command) error {
	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	entries, err := store.Queue.ListFailed(ctx, cmd.Int64("playlist"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(toEntryRows(entries), true)
	}
	if len(entries) == 0 {
		return r.writePlain("%s no failed entries\n", r.styles.OK("✓"))
	}
	if err := r.writeEntries(entries, true); err != nil {
		return err
	}
	return r.writePlain("%s\n", r.styles.Help("Requeue with 'ytmirror queue retry <id>...' or 'ytmirror queue retry-all'."))
}

// QueueRetry requeues exactly the given failed entries.
func (r *Runner) QueueRetry(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: at least one entry ID", shared.ErrMissingArgument)
	}

	ids := make([]int64, len(args))
	for i, arg := range args {
		id, err := parseID("entry-id", arg)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	return r.requeue(ctx, store, ids)
}

// QueueRetryAll requeues every failed entry, optionally of one playlist.
func (r *Runner) QueueRetryAll(ctx context.Context, cmd *cli.Command) error {
	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	failed, err := store.Queue.ListFailed(ctx, cmd.Int64("playlist"))
	if err != nil {
		return err
	}
	if len(failed) == 0 {
		return r.writePlain("%s no failed entries\n", r.styles.OK("✓"))
	}

	ids := make([]int64, len(failed))
	for i, e := range failed {
		ids[i] = e.ID
	}
	return r.requeue(ctx, store, ids)
}

func (r *Runner) requeue(ctx context.Context, store *repositories.Store, ids []int64) error {
	moved, err := store.Queue.Requeue(ctx, ids)
	if err != nil {
		return err
	}
	if skipped := len(ids) - moved; skipped > 0 {
		r.logger.Warn("entries not in failed state were left alone", "count", skipped)
	}
	return r.writePlain("%s requeued %d of %d entr%s\n", r.styles.OK("✓"), moved, len(ids), plural(len(ids), "y", "ies"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

type statsRow struct {
	PlaylistID int64  `json:"playlist_id"`
	Name       string `json:"name"`
	models.QueueStats
}

// QueueStats counts entries by status for each playlist.
func (r *Runner) QueueStats(ctx context.Context, cmd *cli.Command) error {
	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	var playlists []*models.Playlist
	if id := cmd.Int64("playlist"); id > 0 {
		p, err := store.Playlists.Get(ctx, id)
		if err != nil {
			return err
		}
		playlists = []*models.Playlist{p}
	} else if playlists, err = store.Playlists.List(ctx); err != nil {
		return err
	}

	rows := make([]statsRow, 0, len(playlists))
	for _, p := range playlists {
		stats, err := store.Queue.Stats(ctx, p.ID)
		if err != nil {
			return err
		}
		rows = append(rows, statsRow{PlaylistID: p.ID, Name: p.Name, QueueStats: stats})
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	var total models.QueueStats
	table := make([][]string, 0, len(rows)+1)
	for _, row := range rows {
		total.Pending += row.Pending
		total.Processing += row.Processing
		total.Completed += row.Completed
		total.Failed += row.Failed
		table = append(table, statsCells(r, strconv.FormatInt(row.PlaylistID, 10), row.Name, row.QueueStats))
	}
	table = append(table, statsCells(r, "", "total", total))

	return r.writePlain("%s", r.styles.Table([]string{"ID", "Playlist", "Pending", "Processing", "Completed", "Failed"}, table))
}

func statsCells(r *Runner, id, name string, s models.QueueStats) []string {
	return []string{
		id,
		name,
		humanize.Comma(int64(s.Pending)),
		humanize.Comma(int64(s.Processing)),
		humanize.Comma(int64(s.Completed)),
		failedCell(r, s.Failed),
	}
}

// QueuePrune deletes completed entries older than --older-than.
func (r *Runner) QueuePrune(ctx context.Context, cmd *cli.Command) error {
	olderThan := cmd.Duration("older-than")
	if olderThan < 0 {
		return fmt.Errorf("%w: --older-than must not be negative", shared.ErrInvalidArgument)
	}

	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	cutoff := time.Now().Add(-olderThan)
	n, err := store.Queue.PruneCompleted(ctx, cutoff)
	if err != nil {
		return err
	}
	return r.writePlain("%s pruned %s completed entr%s last updated before %s\n",
		r.styles.OK("✓"), humanize.Comma(int64(n)), plural(n, "y", "ies"), cutoff.Format(time.DateTime))
}
