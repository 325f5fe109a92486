package main

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/repositories"
	"github.com/desertthunder/ytmirror/internal/shared"
	tu "github.com/desertthunder/ytmirror/internal/testing"
)

func (f *cliFixture) entries(t *testing.T, playlistID int64) []*models.SyncQueueEntry {
	t.Helper()
	entries, err := f.store.Queue.List(context.Background(), repositories.QueueFilter{PlaylistID: playlistID})
	if err != nil {
		t.Fatalf("failed to list entries: %v", err)
	}
	return entries
}

func operations(entries []*models.SyncQueueEntry) []models.Operation {
	ops := make([]models.Operation, len(entries))
	for i, e := range entries {
		ops[i] = e.Operation
	}
	return ops
}

func TestSetupCommands(t *testing.T) {
	t.Run("config writes the default file once", func(t *testing.T) {
		f := newCLIFixture(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		out := f.mustRun(t, "setup", "config", "--path", path)
		if !strings.Contains(out, path) {
			t.Errorf("expected path in output, got %q", out)
		}
		tu.AssertFileExists(t, path)

		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("expected written config to load, got %v", err)
		}
		if err := f.run("setup", "config", "--path", path); err == nil {
			t.Error("expected error when the file already exists")
		}
	})

	t.Run("database applies migrations then reports up to date", func(t *testing.T) {
		f := newCLIFixture(t)
		f.runner.config.Database.Path = filepath.Join(t.TempDir(), "ytmirror.db")

		if out := f.mustRun(t, "setup", "database"); !strings.Contains(out, "applied") {
			t.Errorf("expected applied migrations, got %q", out)
		}
		if out := f.mustRun(t, "setup", "database"); !strings.Contains(out, "already up to date") {
			t.Errorf("expected up to date on second run, got %q", out)
		}
	})

	t.Run("rollback reverts one migration at a time", func(t *testing.T) {
		f := newCLIFixture(t)
		f.runner.config.Database.Path = filepath.Join(t.TempDir(), "ytmirror.db")
		f.mustRun(t, "setup", "database")

		if out := f.mustRun(t, "setup", "rollback"); !strings.Contains(out, "1 remaining") {
			t.Errorf("expected one remaining migration, got %q", out)
		}
		if out := f.mustRun(t, "setup", "rollback"); !strings.Contains(out, "0 remaining") {
			t.Errorf("expected no remaining migrations, got %q", out)
		}
		if out := f.mustRun(t, "setup", "rollback"); !strings.Contains(out, "no migrations") {
			t.Errorf("expected nothing to roll back, got %q", out)
		}
	})

	t.Run("check reports remote health", func(t *testing.T) {
		f := newCLIFixture(t)
		if out := f.mustRun(t, "setup", "check"); !strings.Contains(out, "reachable") {
			t.Errorf("expected reachable remote, got %q", out)
		}

		f.remote.FailWith = func(call tu.RemoteCall) error {
			return &shared.AuthExpiredError{Op: call.Op, Err: errors.New("401")}
		}
		if err := f.run("setup", "check"); !shared.IsAuthExpired(err) {
			t.Errorf("expected auth error, got %v", err)
		}
		if len(f.remote.CallsFor("health")) != 2 {
			t.Errorf("expected two health calls, got %d", len(f.remote.CallsFor("health")))
		}
	})
}

func TestPlaylistCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("local playlists never enqueue", func(t *testing.T) {
		f := newCLIFixture(t)

		f.mustRun(t, "playlist", "create", "Scratch")
		f.mustRun(t, "playlist", "add", "1", "vidA1", "vidB2")
		f.mustRun(t, "playlist", "remove", "1", "vidA1")

		if entries := f.entries(t, 1); len(entries) != 0 {
			t.Errorf("expected no queue entries for a local playlist, got %v", operations(entries))
		}
	})

	t.Run("mirror edits enqueue remote operations in order", func(t *testing.T) {
		f := newCLIFixture(t)

		out := f.mustRun(t, "playlist", "create", "--remote", "PL1", "Morning")
		if !strings.Contains(out, "mirroring PL1") {
			t.Errorf("expected bound confirmation, got %q", out)
		}

		f.mustRun(t, "playlist", "add", "1", "vidA1", "vidB2", "vidC3")
		f.mustRun(t, "playlist", "move", "--to", "0", "1", "vidC3")
		f.mustRun(t, "playlist", "remove", "1", "vidB2", "missing")
		f.mustRun(t, "playlist", "rename", "--name", "Mornings", "1")

		want := []models.Operation{models.OpAddTracks, models.OpReorderTrack, models.OpRemoveTracks, models.OpUpdateMetadata}
		if got := operations(f.entries(t, 1)); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}

		ids, err := f.store.Items.TrackIDs(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(ids, []string{"vidC3", "vidA1"}) {
			t.Errorf("expected local order [vidC3 vidA1], got %v", ids)
		}
	})

	t.Run("add needs a playlist and tracks", func(t *testing.T) {
		f := newCLIFixture(t)

		if err := f.run("playlist", "add", "1"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if err := f.run("playlist", "add", "one", "vid"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if err := f.run("playlist", "add", "9", "vid"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("single added track takes metadata flags", func(t *testing.T) {
		f := newCLIFixture(t)
		f.mustRun(t, "playlist", "create", "Evening")
		f.mustRun(t, "playlist", "add", "--title", "Song One", "--artist", "Artist A", "--duration", "203", "1", "vid1")

		track, err := f.store.Tracks.Get(ctx, "vid1")
		if err != nil {
			t.Fatal(err)
		}
		if track.Title != "Song One" || track.Artist != "Artist A" || track.Duration != 203 {
			t.Errorf("unexpected track %+v", track)
		}
	})

	t.Run("list and show", func(t *testing.T) {
		f := newCLIFixture(t)
		f.mustRun(t, "playlist", "create", "--remote", "PL1", "Morning")
		f.mustRun(t, "playlist", "add", "1", "vidA1", "vidB2")
		f.mustRun(t, "playlist", "move", "--to", "0", "1", "vidB2")

		out := f.mustRun(t, "playlist", "list")
		for _, want := range []string{"Morning", "mirror", "PL1"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in list output, got %q", want, out)
			}
		}

		out = f.mustRun(t, "playlist", "list", "--json")
		var rows []playlistRow
		if err := json.Unmarshal([]byte(out), &rows); err != nil {
			t.Fatalf("expected JSON, got %q: %v", out, err)
		}
		if len(rows) != 1 || rows[0].Queue.Pending != 2 {
			t.Errorf("expected one playlist with two pending entries, got %+v", rows)
		}

		out = f.mustRun(t, "playlist", "show", "1")
		b, a := strings.Index(out, "vidB2"), strings.Index(out, "vidA1")
		if b < 0 || a < 0 || b > a {
			t.Errorf("expected vidB2 before vidA1, got %q", out)
		}

		path := filepath.Join(t.TempDir(), "morning.md")
		f.mustRun(t, "playlist", "show", "--format", "md", "--output", path, "1")
		if content := string(tu.MustReadFile(t, path)); !strings.Contains(content, "**Mirror of**: `PL1`") {
			t.Errorf("expected markdown export, got %q", content)
		}
	})

	t.Run("bind turns a local playlist into a mirror", func(t *testing.T) {
		f := newCLIFixture(t)
		f.mustRun(t, "playlist", "create", "Later")

		out := f.mustRun(t, "playlist", "bind", "1", "PL9")
		if !strings.Contains(out, "sync plan 1") {
			t.Errorf("expected next step hint, got %q", out)
		}
		p, err := f.store.Playlists.Get(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if !p.IsMirror() || p.RemoteSyncID != "PL9" {
			t.Errorf("expected mirror of PL9, got %+v", p)
		}
	})

	t.Run("add keys legacy rows before appending", func(t *testing.T) {
		f := newCLIFixture(t)
		f.mustRun(t, "playlist", "create", "Old")
		for i, id := range []string{"vidA1", "vidB2"} {
			tr := models.Track{ExternalID: id, Title: "Title " + id, Duration: 200}
			if err := f.store.Tracks.Upsert(ctx, &tr); err != nil {
				t.Fatal(err)
			}
			if err := f.store.Items.InsertLegacy(ctx, 1, id, i); err != nil {
				t.Fatal(err)
			}
		}

		f.mustRun(t, "playlist", "add", "1", "vidC3")
		if got, _ := f.store.Items.TrackIDs(ctx, 1); !slices.Equal(got, []string{"vidA1", "vidB2", "vidC3"}) {
			t.Errorf("expected append after legacy rows, got %v", got)
		}
		if done, _ := repositories.NewOrderMigrationStore(f.store.DB()).MigrationDone(ctx); !done {
			t.Error("expected the order migration to run on open")
		}
		if out := f.mustRun(t, "playlist", "migrate-order"); !strings.Contains(out, "nothing to migrate") {
			t.Errorf("expected explicit migration to be a no-op, got %q", out)
		}
	})

	t.Run("migrate-order is idempotent", func(t *testing.T) {
		f := newCLIFixture(t)

		f.mustRun(t, "playlist", "migrate-order")
		if out := f.mustRun(t, "playlist", "migrate-order"); !strings.Contains(out, "nothing to migrate") {
			t.Errorf("expected no-op on second run, got %q", out)
		}
	})
}

func TestSyncCommands(t *testing.T) {
	t.Run("run drains to the remote", func(t *testing.T) {
		f := newCLIFixture(t)
		f.mustRun(t, "playlist", "create", "--remote", "PL1", "Morning")
		f.mustRun(t, "playlist", "add", "1", "vidA1", "vidB2", "vidC3")

		out := f.mustRun(t, "sync", "run", "1")
		if !strings.Contains(out, "Sync completed: 1 succeeded") {
			t.Errorf("expected completion summary, got %q", out)
		}
		if got := f.remote.Collection("PL1"); !slices.Equal(got, []string{"vidA1", "vidB2", "vidC3"}) {
			t.Errorf("expected remote to mirror local, got %v", got)
		}
		if e := f.entries(t, 1)[0]; e.Status != models.StatusCompleted {
			t.Errorf("expected completed entry, got %s", e.Status)
		}
	})

	t.Run("run streams JSON progress", func(t *testing.T) {
		f := newCLIFixture(t)
		f.mustRun(t, "playlist", "create", "--remote", "PL1", "Morning")
		f.mustRun(t, "playlist", "add", "1", "vidA1")

		out := f.mustRun(t, "sync", "run", "--json", "1")
		lines := strings.Split(strings.TrimSpace(out), "\n")
		var last struct {
			Stage   string `json:"stage"`
			Summary struct {
				Succeeded int `json:"succeeded"`
			} `json:"summary"`
		}
		if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
			t.Fatalf("expected JSON lines, got %q: %v", out, err)
		}
		if last.Stage != "completed" || last.Summary.Succeeded != 1 {
			t.Errorf("unexpected terminal update %+v", last)
		}
	})

	t.Run("run reports failures and keeps them queued", func(t *testing.T) {
		f := newCLIFixture(t)
		f.remote.FailWith = func(call tu.RemoteCall) error {
			if call.Op == "remove_tracks" {
				return &shared.RemoteError{Op: call.Op, StatusCode: 404, Detail: "not in playlist"}
			}
			return nil
		}
		f.mustRun(t, "playlist", "create", "--remote", "PL1", "Morning")
		f.mustRun(t, "playlist", "add", "1", "vidA1", "vidB2")
		f.mustRun(t, "playlist", "remove", "1", "vidB2")

		out := f.mustRun(t, "sync", "run", "1")
		if !strings.Contains(out, "1 succeeded, 1 failed") || !strings.Contains(out, "queue failed") {
			t.Errorf("expected partial failure summary and hint, got %q", out)
		}
	})

	t.Run("run fails on expired auth", func(t *testing.T) {
		f := newCLIFixture(t)
		f.remote.FailWith = func(call tu.RemoteCall) error {
			return &shared.AuthExpiredError{Op: call.Op, Err: errors.New("401")}
		}
		f.mustRun(t, "playlist", "create", "--remote", "PL1", "Morning")
		f.mustRun(t, "playlist", "add", "1", "vidA1")
		f.mustRun(t, "playlist", "add", "1", "vidB2")

		err := f.run("sync", "run", "1")
		if !shared.IsAuthExpired(err) {
			t.Fatalf("expected auth expired error, got %v", err)
		}
		for _, e := range f.entries(t, 1) {
			if e.Status != models.StatusFailed {
				t.Errorf("expected every entry failed, entry %d is %s", e.ID, e.Status)
			}
		}
		if n := len(f.remote.CallsFor("add_tracks")); n != 1 {
			t.Errorf("expected one remote call before giving up, got %d", n)
		}
	})

	t.Run("plan queues the mirror delta and runs it", func(t *testing.T) {
		f := newCLIFixture(t)
		f.mustRun(t, "playlist", "create", "Morning")
		f.mustRun(t, "playlist", "add", "1", "vidA1", "vidB2")
		f.mustRun(t, "playlist", "bind", "1", "PL1")
		f.remote.Collections["PL1"] = []string{"stale", "vidA1"}

		out := f.mustRun(t, "sync", "plan", "1")
		if !strings.Contains(out, "- stale") || !strings.Contains(out, "+ vidB2") {
			t.Errorf("expected plan listing, got %q", out)
		}
		if err := f.run("sync", "plan", "1"); !errors.Is(err, shared.ErrPendingOperations) {
			t.Errorf("expected ErrPendingOperations while entries are live, got %v", err)
		}

		f.mustRun(t, "sync", "run", "1")
		if got := f.remote.Collection("PL1"); !slices.Equal(got, []string{"vidA1", "vidB2"}) {
			t.Errorf("expected reconciled remote, got %v", got)
		}
		if out := f.mustRun(t, "sync", "plan", "--run", "1"); !strings.Contains(out, "already matches") {
			t.Errorf("expected empty plan, got %q", out)
		}
	})

	t.Run("plan refuses local playlists", func(t *testing.T) {
		f := newCLIFixture(t)
		f.mustRun(t, "playlist", "create", "Scratch")

		if err := f.run("sync", "plan", "1"); !errors.Is(err, shared.ErrNotMirror) {
			t.Errorf("expected ErrNotMirror, got %v", err)
		}
	})

	t.Run("all drains every pending playlist", func(t *testing.T) {
		f := newCLIFixture(t)
		f.mustRun(t, "playlist", "create", "--remote", "PL1", "One")
		f.mustRun(t, "playlist", "create", "--remote", "PL2", "Two")
		f.mustRun(t, "playlist", "add", "1", "vidA1")
		f.mustRun(t, "playlist", "add", "2", "vidB2")

		f.mustRun(t, "sync", "all")
		if !slices.Equal(f.remote.Collection("PL1"), []string{"vidA1"}) || !slices.Equal(f.remote.Collection("PL2"), []string{"vidB2"}) {
			t.Errorf("expected both remotes synced, got %v", f.remote.Collections)
		}
		if out := f.mustRun(t, "sync", "all"); !strings.Contains(out, "nothing to sync") {
			t.Errorf("expected nothing left, got %q", out)
		}
	})

	t.Run("all stops calling the remote after an expired credential", func(t *testing.T) {
		f := newCLIFixture(t)
		for i := 1; i <= 3; i++ {
			f.mustRun(t, "playlist", "create", "--remote", "PL"+strconv.Itoa(i), "P"+strconv.Itoa(i))
			f.mustRun(t, "playlist", "add", strconv.Itoa(i), "vid"+strconv.Itoa(i))
		}
		f.remote.FailWith = func(call tu.RemoteCall) error {
			return &shared.AuthExpiredError{Op: call.Op, Err: errors.New("401")}
		}

		if err := f.run("sync", "all"); !shared.IsAuthExpired(err) {
			t.Errorf("expected auth error, got %v", err)
		}
		if calls := f.remote.Calls(); len(calls) != 1 {
			t.Errorf("expected one remote call for the whole run, got %d", len(calls))
		}
		for i := int64(1); i <= 3; i++ {
			for _, e := range f.entries(t, i) {
				if e.Status != models.StatusFailed {
					t.Errorf("playlist %d entry %d: expected failed, got %s", i, e.ID, e.Status)
				}
			}
		}
	})

	t.Run("run refuses a playlist another process is draining", func(t *testing.T) {
		f := newCLIFixture(t)
		f.mustRun(t, "playlist", "create", "--remote", "PL1", "One")
		f.mustRun(t, "playlist", "add", "1", "vidA1", "vidB2")
		f.mustRun(t, "playlist", "remove", "1", "vidB2")

		if _, err := f.store.Queue.ClaimNext(context.Background(), 1); err != nil {
			t.Fatalf("failed to claim: %v", err)
		}

		if err := f.run("sync", "run", "1"); !errors.Is(err, shared.ErrAlreadyRunning) {
			t.Errorf("expected ErrAlreadyRunning, got %v", err)
		}
		if !strings.Contains(f.out.String(), "Another ytmirror process") {
			t.Errorf("expected a hint, got %q", f.out.String())
		}
		if calls := f.remote.Calls(); len(calls) != 0 {
			t.Errorf("expected no remote calls, got %+v", calls)
		}
	})
}

func TestQueueCommands(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*cliFixture, int64) {
		f := newCLIFixture(t)
		fail := true
		f.remote.FailWith = func(call tu.RemoteCall) error {
			if fail && call.Op == "add_tracks" {
				return &shared.TransientRemoteError{Op: call.Op, StatusCode: 503, Err: shared.ErrServiceUnavailable}
			}
			return nil
		}
		f.mustRun(t, "playlist", "create", "--remote", "PL1", "Morning")
		f.mustRun(t, "playlist", "add", "1", "vidA1")
		f.mustRun(t, "sync", "run", "1")
		fail = false
		return f, f.entries(t, 1)[0].ID
	}

	t.Run("failed lists the error", func(t *testing.T) {
		f, _ := setup(t)

		out := f.mustRun(t, "queue", "failed")
		if !strings.Contains(out, "add_tracks") || !strings.Contains(out, "status 503") {
			t.Errorf("expected failed entry with its error, got %q", out)
		}

		out = f.mustRun(t, "queue", "failed", "--json", "--playlist", "1")
		var rows []entryRow
		if err := json.Unmarshal([]byte(out), &rows); err != nil {
			t.Fatalf("expected JSON, got %q: %v", out, err)
		}
		if len(rows) != 1 || rows[0].Status != models.StatusFailed || rows[0].LastError == "" {
			t.Errorf("unexpected rows %+v", rows)
		}
	})

	t.Run("retry requeues exactly the given entries", func(t *testing.T) {
		f, id := setup(t)

		if err := f.run("queue", "retry"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}

		out := f.mustRun(t, "queue", "retry", strconv.FormatInt(id, 10), "999")
		if !strings.Contains(out, "requeued 1 of 2") {
			t.Errorf("expected one requeued entry, got %q", out)
		}
		e, err := f.store.Queue.Get(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if e.Status != models.StatusPending {
			t.Errorf("expected pending, got %s", e.Status)
		}

		f.mustRun(t, "sync", "run", "1")
		if !slices.Equal(f.remote.Collection("PL1"), []string{"vidA1"}) {
			t.Errorf("expected retried entry to reach the remote, got %v", f.remote.Collection("PL1"))
		}
	})

	t.Run("retry-all", func(t *testing.T) {
		f, id := setup(t)

		out := f.mustRun(t, "queue", "retry-all")
		if !strings.Contains(out, "requeued 1 of 1 entry") {
			t.Errorf("unexpected output %q", out)
		}
		if e, _ := f.store.Queue.Get(ctx, id); e.Status != models.StatusPending {
			t.Errorf("expected pending, got %s", e.Status)
		}
		if out := f.mustRun(t, "queue", "retry-all"); !strings.Contains(out, "no failed entries") {
			t.Errorf("expected nothing to retry, got %q", out)
		}
	})

	t.Run("list filters by status", func(t *testing.T) {
		f, _ := setup(t)
		f.mustRun(t, "playlist", "add", "1", "vidB2")

		out := f.mustRun(t, "queue", "list", "--status", "pending", "--json")
		var rows []entryRow
		if err := json.Unmarshal([]byte(out), &rows); err != nil {
			t.Fatalf("expected JSON, got %q: %v", out, err)
		}
		if len(rows) != 1 || rows[0].Status != models.StatusPending {
			t.Errorf("expected only the pending entry, got %+v", rows)
		}

		out = f.mustRun(t, "queue", "list")
		humanized := strings.Contains(out, "now") || strings.Contains(out, "ago")
		if !strings.Contains(out, "add_tracks") || !humanized {
			t.Errorf("expected entries with humanized times, got %q", out)
		}
		if err := f.run("queue", "list", "--status", "stuck"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("stats and prune", func(t *testing.T) {
		f, id := setup(t)
		f.mustRun(t, "queue", "retry", strconv.FormatInt(id, 10))
		f.mustRun(t, "sync", "run", "1")

		out := f.mustRun(t, "queue", "stats", "--json")
		var rows []statsRow
		if err := json.Unmarshal([]byte(out), &rows); err != nil {
			t.Fatalf("expected JSON, got %q: %v", out, err)
		}
		if len(rows) != 1 || rows[0].Completed != 1 || rows[0].Failed != 0 {
			t.Errorf("unexpected stats %+v", rows)
		}
		if out := f.mustRun(t, "queue", "stats"); !strings.Contains(out, "total") {
			t.Errorf("expected totals row, got %q", out)
		}

		out = f.mustRun(t, "queue", "prune")
		if !strings.Contains(out, "pruned 0") {
			t.Errorf("expected recent entries kept, got %q", out)
		}

		time.Sleep(5 * time.Millisecond)
		out = f.mustRun(t, "queue", "prune", "--older-than", "0s")
		if !strings.Contains(out, "pruned 1 completed entry") {
			t.Errorf("expected completed entry pruned, got %q", out)
		}
		if len(f.entries(t, 1)) != 0 {
			t.Error("expected queue to be empty after prune")
		}
	})
}

func roadTrip() *tu.MockSource {
	return &tu.MockSource{
		Name: "spotify",
		Playlists: map[string]*models.ExternalPlaylist{
			"SP1": {
				ID:       "SP1",
				Platform: "spotify",
				Name:     "Road Trip",
				Tracks: []models.ExternalTrack{
					{Title: "Song One", Artists: []string{"Artist A"}, DurationMs: 203000},
					{Title: "Lost Song", Artists: []string{"Nobody"}, DurationMs: 100000},
				},
			},
		},
	}
}

func TestImportCommand(t *testing.T) {
	ctx := context.Background()

	newImportFixture := func(t *testing.T) *cliFixture {
		f := newCLIFixture(t, roadTrip())
		f.remote.Results["Song One Artist A"] = []models.Candidate{
			{ID: "v1", Title: "Song One", Artists: []string{"Artist A"}, Duration: 203, Rank: 0},
		}
		return f
	}

	t.Run("reports every track and adds matches to a mirror", func(t *testing.T) {
		f := newImportFixture(t)
		f.mustRun(t, "playlist", "create", "--remote", "PL1", "Trip")

		out := f.mustRun(t, "import", "--into", "1", "--format", "csv", "spotify", "SP1")
		for _, want := range []string{"Song One", "v1", "Lost Song", "unmatched"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in report, got %q", want, out)
			}
		}

		ids, err := f.store.Items.TrackIDs(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(ids, []string{"v1"}) {
			t.Errorf("expected only the matched track, got %v", ids)
		}
		if got := operations(f.entries(t, 1)); !slices.Equal(got, []models.Operation{models.OpAddTracks}) {
			t.Errorf("expected one add_tracks entry, got %v", got)
		}
	})

	t.Run("create makes a new local playlist", func(t *testing.T) {
		f := newImportFixture(t)
		path := filepath.Join(t.TempDir(), "report.md")

		out := f.mustRun(t, "import", "--create", "Road Trip", "--format", "md", "--output", path, "spotify", "SP1")
		if !strings.Contains(out, "matched") {
			t.Errorf("expected streamed result lines, got %q", out)
		}
		tu.AssertFileExists(t, path)

		playlists, err := f.store.Playlists.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(playlists) != 1 || playlists[0].Name != "Road Trip" || playlists[0].IsMirror() {
			t.Errorf("expected one local playlist, got %+v", playlists)
		}
		if len(f.entries(t, playlists[0].ID)) != 0 {
			t.Error("expected no queue entries for a local playlist")
		}
	})

	t.Run("pick overrides an ambiguous match", func(t *testing.T) {
		f := newImportFixture(t)
		f.remote.Results["Lost Song Nobody"] = []models.Candidate{
			{ID: "x1", Title: "Other", Artists: []string{"Nobody"}, Duration: 300, Rank: 0},
			{ID: "x2", Title: "Other", Artists: []string{"Nobody"}, Duration: 300, Rank: 1},
		}
		f.mustRun(t, "playlist", "create", "--remote", "PL1", "Trip")

		out := f.mustRun(t, "import", "--into", "1", "--pick", "2=2", "--format", "csv", "spotify", "SP1")
		if !strings.Contains(out, "manual") {
			t.Errorf("expected manual score in report, got %q", out)
		}
		ids, err := f.store.Items.TrackIDs(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(ids, []string{"v1", "x2"}) {
			t.Errorf("expected picked candidate to be added, got %v", ids)
		}

		for _, pick := range []string{"2", "2=5", "9=1", "0=1", "2=x"} {
			if err := f.run("import", "--pick", pick, "spotify", "SP1"); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("pick %q: expected ErrInvalidArgument, got %v", pick, err)
			}
		}
	})

	t.Run("argument errors", func(t *testing.T) {
		f := newImportFixture(t)

		if err := f.run("import", "spotify"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if err := f.run("import", "--into", "1", "--create", "x", "spotify", "SP1"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if err := f.run("import", "--format", "xml", "spotify", "SP1"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for format, got %v", err)
		}
		if err := f.run("import", "deezer", "SP1"); !errors.Is(err, shared.ErrUnknownPlatform) {
			t.Errorf("expected ErrUnknownPlatform, got %v", err)
		}
		if err := f.run("import", "spotify", "missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected fetch error, got %v", err)
		}
	})
}

func TestMatchCommand(t *testing.T) {
	f := newCLIFixture(t)
	f.remote.Results["Song One Artist A"] = []models.Candidate{
		{ID: "v1", Title: "Song One", Artists: []string{"Artist A"}, Duration: 203, Rank: 0},
		{ID: "v2", Title: "Song One (Live)", Artists: []string{"Artist A"}, Duration: 260, Rank: 1},
	}

	out := f.mustRun(t, "match", "--artist", "Artist A", "--duration", "203", "--json", "Song One")
	var got matchOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("expected JSON, got %q: %v", out, err)
	}
	if got.Query != "Song One Artist A" || got.Status != "matched" || got.Best != "v1" {
		t.Errorf("unexpected match %+v", got)
	}
	if len(got.Candidates) != 2 || got.Candidates[0].ID != "v1" {
		t.Errorf("expected ranked candidates, got %+v", got.Candidates)
	}

	out = f.mustRun(t, "match", "--artist", "Nobody", "Unknown")
	if !strings.Contains(out, "unmatched") || !strings.Contains(out, "no usable candidate") {
		t.Errorf("expected unmatched report, got %q", out)
	}

	if err := f.run("match"); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}
