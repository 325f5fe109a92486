package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/ytmirror/internal/formatter"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistCreate creates a local playlist, optionally binding it to a remote playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: name", shared.ErrMissingArgument)
	}

	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	p, err := store.CreatePlaylist(ctx, name, cmd.String("description"))
	if err != nil {
		return err
	}
	r.logger.Info("playlist created", "id", p.ID, "name", p.Name)

	if remoteID := cmd.String("remote"); remoteID != "" {
		if err := store.BindRemote(ctx, p.ID, remoteID); err != nil {
			return err
		}
		return r.writePlain("%s created playlist %d (%s), mirroring %s\n", r.styles.OK("✓"), p.ID, p.Name, remoteID)
	}
	return r.writePlain("%s created playlist %d (%s)\n", r.styles.OK("✓"), p.ID, p.Name)
}

type playlistRow struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	RemoteID string            `json:"remote_id,omitempty"`
	Queue    models.QueueStats `json:"queue"`
}

// PlaylistList prints every playlist with its queue counts.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	playlists, err := store.Playlists.List(ctx)
	if err != nil {
		return err
	}

	rows := make([]playlistRow, 0, len(playlists))
	for _, p := range playlists {
		stats, err := store.Queue.Stats(ctx, p.ID)
		if err != nil {
			return err
		}
		rows = append(rows, playlistRow{ID: p.ID, Name: p.Name, Type: string(p.Type), RemoteID: p.RemoteSyncID, Queue: stats})
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}
	if len(rows) == 0 {
		return r.writePlain("No playlists yet. Create one with 'ytmirror playlist create <name>'.\n")
	}

	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, []string{
			strconv.FormatInt(row.ID, 10),
			row.Name,
			row.Type,
			row.RemoteID,
			strconv.Itoa(row.Queue.Live()),
			failedCell(r, row.Queue.Failed),
		})
	}
	return r.writePlain("%s", r.styles.Table([]string{"ID", "Name", "Type", "Remote", "Pending", "Failed"}, table))
}

func failedCell(r *Runner, n int) string {
	if n == 0 {
		return "0"
	}
	return r.styles.Err(strconv.Itoa(n))
}

// PlaylistShow renders a playlist's tracks in sort key order.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID("playlist-id", cmd.StringArg("playlist-id"))
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	p, err := store.Playlists.Get(ctx, id)
	if err != nil {
		return err
	}
	items, err := store.Items.List(ctx, id)
	if err != nil {
		return err
	}

	data, err := formatter.Playlist(p, items, format)
	if err != nil {
		return err
	}
	return r.emit(cmd.String("output"), data)
}

// emit writes data to path, or to the runner output when path is empty.
func (r *Runner) emit(path string, data []byte) error {
	if path == "" {
		return formatter.Write(r.output, data)
	}
	if err := formatter.WriteFile(path, data); err != nil {
		return err
	}
	r.logger.Info("report written", "path", path)
	return nil
}

// PlaylistBind makes a playlist a mirror of a remote playlist.
func (r *Runner) PlaylistBind(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID("playlist-id", cmd.StringArg("playlist-id"))
	if err != nil {
		return err
	}
	remoteID := cmd.StringArg("remote-id")
	if remoteID == "" {
		return fmt.Errorf("%w: remote-id", shared.ErrMissingArgument)
	}

	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	if err := store.BindRemote(ctx, id, remoteID); err != nil {
		return err
	}
	r.writePlain("%s playlist %d now mirrors %s\n", r.styles.OK("✓"), id, remoteID)
	return r.writePlain("%s\n", r.styles.Help(fmt.Sprintf("Run 'ytmirror sync plan %d' to queue the initial reconciliation.", id)))
}

// playlistAndTracks splits "<playlist-id> <track-id>..." arguments.
func playlistAndTracks(cmd *cli.Command) (int64, []string, error) {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return 0, nil, fmt.Errorf("%w: expected <playlist-id> <track-id>...", shared.ErrMissingArgument)
	}
	id, err := parseID("playlist-id", args[0])
	if err != nil {
		return 0, nil, err
	}
	return id, args[1:], nil
}

// PlaylistAdd appends tracks and enqueues add_tracks for mirrors.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	id, trackIDs, err := playlistAndTracks(cmd)
	if err != nil {
		return err
	}

	tracks := make([]models.Track, len(trackIDs))
	for i, trackID := range trackIDs {
		tracks[i] = models.Track{ExternalID: trackID}
	}
	if len(tracks) == 1 {
		tracks[0].Title = cmd.String("title")
		tracks[0].Artist = cmd.String("artist")
		tracks[0].Duration = cmd.Int("duration")
	}

	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	added, err := store.AddTracks(ctx, id, tracks)
	if err != nil {
		return err
	}
	if skipped := len(tracks) - len(added); skipped > 0 {
		r.logger.Warn("tracks already in playlist were skipped", "count", skipped)
	}
	return r.writePlain("%s added %d track(s) to playlist %d\n", r.styles.OK("✓"), len(added), id)
}

// PlaylistRemove removes tracks and enqueues remove_tracks for mirrors.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	id, trackIDs, err := playlistAndTracks(cmd)
	if err != nil {
		return err
	}

	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	removed, err := store.RemoveTracks(ctx, id, trackIDs)
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		return r.writePlain("%s none of the tracks were in playlist %d\n", r.styles.Warn("!"), id)
	}
	return r.writePlain("%s removed %d track(s) from playlist %d\n", r.styles.OK("✓"), len(removed), id)
}

// PlaylistMove moves one track, rewriting only its sort key.
func (r *Runner) PlaylistMove(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID("playlist-id", cmd.StringArg("playlist-id"))
	if err != nil {
		return err
	}
	trackID := cmd.StringArg("track-id")
	if trackID == "" {
		return fmt.Errorf("%w: track-id", shared.ErrMissingArgument)
	}
	to := cmd.Int("to")
	if to < 0 {
		return fmt.Errorf("%w: --to must not be negative", shared.ErrInvalidArgument)
	}

	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	key, err := store.MoveTrack(ctx, id, trackID, to)
	if err != nil {
		return err
	}
	r.logger.Debug("track moved", "playlist", id, "track", trackID, "key", key)
	return r.writePlain("%s moved %s to position %d\n", r.styles.OK("✓"), trackID, to)
}

// PlaylistRename updates name and description and enqueues update_metadata for mirrors.
func (r *Runner) PlaylistRename(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID("playlist-id", cmd.StringArg("playlist-id"))
	if err != nil {
		return err
	}

	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	if err := store.UpdateMetadata(ctx, id, cmd.String("name"), cmd.String("description")); err != nil {
		return err
	}
	return r.writePlain("%s renamed playlist %d to %s\n", r.styles.OK("✓"), id, cmd.String("name"))
}

// PlaylistMigrateOrder runs the one-time conversion from legacy positions to sort keys.
func (r *Runner) PlaylistMigrateOrder(ctx context.Context, cmd *cli.Command) error {
	store, done, err := r.openRawStore()
	if err != nil {
		return err
	}
	defer done()

	n, err := r.migrateOrder(ctx, store.DB())
	if err != nil {
		return err
	}
	if n == 0 {
		return r.writePlain("%s sort keys already assigned, nothing to migrate\n", r.styles.OK("✓"))
	}
	return r.writePlain("%s assigned sort keys to %d row(s)\n", r.styles.OK("✓"), n)
}
