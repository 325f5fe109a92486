package repositories

import (
	"context"
	"database/sql"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

func addPayload(ids ...string) *models.TrackIDsPayload {
	return &models.TrackIDsPayload{TrackIDs: ids}
}

func enqueueN(t *testing.T, q *SyncQueueRepository, playlistID int64, n int) []int64 {
	t.Helper()
	ids := make([]int64, n)
	for i := range n {
		id, err := q.Enqueue(context.Background(), playlistID, models.OpAddTracks, addPayload("t"))
		if err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		ids[i] = id
	}
	return ids
}

func setStatus(t *testing.T, db *sql.DB, id int64, status models.Status) {
	t.Helper()
	if _, err := db.Exec(`UPDATE sync_queue SET status = ? WHERE id = ?`, status, id); err != nil {
		t.Fatalf("failed to set status: %v", err)
	}
}

// drainOrder claims every pending entry of the playlist and returns the claim order.
func drainOrder(t *testing.T, q *SyncQueueRepository, playlistID int64) []int64 {
	t.Helper()
	var order []int64
	for {
		e, err := q.ClaimNext(context.Background(), playlistID)
		if errors.Is(err, shared.ErrNoPendingEntries) {
			return order
		}
		if err != nil {
			t.Fatalf("failed to claim: %v", err)
		}
		order = append(order, e.ID)
		if err := q.Complete(context.Background(), e.ID); err != nil {
			t.Fatalf("failed to complete: %v", err)
		}
	}
}

func TestSyncQueueRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Enqueue validates", func(t *testing.T) {
		db := setupTestDB(t)
		p := createPlaylist(t, NewStore(db), "P", "")
		q := NewSyncQueueRepository(db)

		if _, err := q.Enqueue(ctx, p.ID, models.OpAddTracks, addPayload()); !shared.IsValidation(err) {
			t.Errorf("expected validation error for empty track list, got %v", err)
		}
		if _, err := q.Enqueue(ctx, p.ID, models.Operation("nope"), addPayload("a")); !shared.IsValidation(err) {
			t.Errorf("expected validation error for unknown operation, got %v", err)
		}
		if _, err := q.Enqueue(ctx, p.ID, models.OpReorderTrack, nil); !shared.IsValidation(err) {
			t.Errorf("expected validation error for nil payload, got %v", err)
		}

		id, err := q.Enqueue(ctx, p.ID, models.OpReorderTrack, &models.ReorderPayload{TrackID: "a", Position: 2})
		if err != nil {
			t.Fatalf("failed to enqueue: %v", err)
		}
		e, err := q.Get(ctx, id)
		if err != nil {
			t.Fatalf("failed to get entry: %v", err)
		}
		if e.Status != models.StatusPending || e.Attempts != 0 {
			t.Errorf("unexpected entry %+v", e)
		}
		payload, err := e.Decode()
		if err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if rp := payload.(*models.ReorderPayload); rp.TrackID != "a" || rp.Position != 2 {
			t.Errorf("unexpected payload %+v", rp)
		}
	})

	t.Run("ClaimNext follows creation order per playlist", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewStore(db)
		a := createPlaylist(t, store, "A", "")
		b := createPlaylist(t, store, "B", "")
		q := store.Queue

		first := enqueueN(t, q, a.ID, 2)
		other := enqueueN(t, q, b.ID, 1)
		last := enqueueN(t, q, a.ID, 1)

		e, err := q.ClaimNext(ctx, a.ID)
		if err != nil {
			t.Fatalf("failed to claim: %v", err)
		}
		if e.ID != first[0] || e.Status != models.StatusProcessing || e.Attempts != 1 {
			t.Errorf("unexpected claimed entry %+v", e)
		}
		if err := q.Complete(ctx, e.ID); err != nil {
			t.Fatalf("failed to complete: %v", err)
		}
		if err := q.Complete(ctx, e.ID); !errors.Is(err, shared.ErrEntryNotFound) {
			t.Errorf("completing twice should fail, got %v", err)
		}

		order := drainOrder(t, q, a.ID)
		if len(order) != 2 || order[0] != first[1] || order[1] != last[0] {
			t.Errorf("unexpected order %v", order)
		}

		if n, _ := q.CountPending(ctx, b.ID); n != 1 {
			t.Errorf("other playlist should be untouched, got %d pending (entry %d)", n, other[0])
		}
		if _, err := q.ClaimNext(ctx, a.ID); !errors.Is(err, shared.ErrNoPendingEntries) {
			t.Errorf("expected ErrNoPendingEntries, got %v", err)
		}
	})

	t.Run("ClaimNext holds the playlist while an entry is processing", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewStore(db)
		a := createPlaylist(t, store, "A", "")
		b := createPlaylist(t, store, "B", "")
		q := store.Queue

		ids := enqueueN(t, q, a.ID, 2)
		enqueueN(t, q, b.ID, 1)

		first, err := q.ClaimNext(ctx, a.ID)
		if err != nil {
			t.Fatalf("failed to claim: %v", err)
		}
		if busy, err := q.InFlight(ctx, a.ID); err != nil || !busy {
			t.Errorf("expected playlist A in flight, got %v (%v)", busy, err)
		}

		other := NewSyncQueueRepository(db)
		if _, err := other.ClaimNext(ctx, a.ID); !errors.Is(err, shared.ErrAlreadyRunning) {
			t.Errorf("expected ErrAlreadyRunning, got %v", err)
		}
		if e, _ := q.Get(ctx, ids[1]); e.Status != models.StatusPending || e.Attempts != 0 {
			t.Errorf("second entry must stay untouched, got %+v", e)
		}
		if _, err := other.ClaimNext(ctx, b.ID); err != nil {
			t.Errorf("other playlists stay claimable, got %v", err)
		}

		if err := q.Complete(ctx, first.ID); err != nil {
			t.Fatalf("failed to complete: %v", err)
		}
		next, err := other.ClaimNext(ctx, a.ID)
		if err != nil || next.ID != ids[1] {
			t.Errorf("expected entry %d once released, got %+v (%v)", ids[1], next, err)
		}
	})

	t.Run("Fail, FailPending and ListFailed", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewStore(db)
		a := createPlaylist(t, store, "A", "")
		b := createPlaylist(t, store, "B", "")
		q := store.Queue

		enqueueN(t, q, a.ID, 3)
		enqueueN(t, q, b.ID, 1)

		e, _ := q.ClaimNext(ctx, a.ID)
		if err := q.Fail(ctx, e.ID, "503"); err != nil {
			t.Fatalf("failed to fail entry: %v", err)
		}
		n, err := q.FailPending(ctx, a.ID, "auth expired")
		if err != nil || n != 2 {
			t.Fatalf("expected 2 short-circuited entries, got %d (%v)", n, err)
		}

		failed, err := q.ListFailed(ctx, a.ID)
		if err != nil {
			t.Fatalf("failed to list failed: %v", err)
		}
		if len(failed) != 3 || failed[0].LastError != "503" || failed[1].LastError != "auth expired" {
			t.Errorf("unexpected failed entries %+v", failed)
		}
		if failed[1].Attempts != 0 {
			t.Error("short-circuited entries were never attempted")
		}

		all, _ := q.ListFailed(ctx, 0)
		if len(all) != 3 {
			t.Errorf("expected 3 failed entries overall, got %d", len(all))
		}

		stats, _ := q.Stats(ctx, 0)
		if stats.Failed != 3 || stats.Pending != 1 || stats.Live() != 1 {
			t.Errorf("unexpected stats %+v", stats)
		}
		ids, _ := q.PendingPlaylists(ctx)
		if len(ids) != 1 || ids[0] != b.ID {
			t.Errorf("expected only playlist %d pending, got %v", b.ID, ids)
		}
	})

	t.Run("Requeue appends behind live entries", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewStore(db)
		p := createPlaylist(t, store, "P", "")
		q := store.Queue

		ids := enqueueN(t, q, p.ID, 4)
		setStatus(t, db, ids[0], models.StatusFailed)
		setStatus(t, db, ids[1], models.StatusFailed)

		n, err := q.Requeue(ctx, []int64{ids[1], ids[0]})
		if err != nil || n != 2 {
			t.Fatalf("expected 2 requeued, got %d (%v)", n, err)
		}

		order := drainOrder(t, q, p.ID)
		want := []int64{ids[2], ids[3], ids[0], ids[1]}
		if len(order) != len(want) {
			t.Fatalf("expected %v, got %v", want, order)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, order)
			}
		}
	})

	t.Run("Requeue touches exactly the failed entries named", func(t *testing.T) {
		r := rand.New(rand.NewPCG(3, 5))
		statuses := []models.Status{models.StatusPending, models.StatusProcessing, models.StatusCompleted, models.StatusFailed}

		for round := range 10 {
			db := setupTestDB(t)
			store := NewStore(db)
			a := createPlaylist(t, store, "A", "")
			b := createPlaylist(t, store, "B", "")

			ids := append(enqueueN(t, store.Queue, a.ID, 6), enqueueN(t, store.Queue, b.ID, 6)...)
			before := make(map[int64]models.Status, len(ids))
			for _, id := range ids {
				s := statuses[r.IntN(len(statuses))]
				setStatus(t, db, id, s)
				before[id] = s
			}

			var chosen []int64
			wantMoved := 0
			for _, id := range ids {
				if r.IntN(2) == 0 {
					chosen = append(chosen, id)
					if before[id] == models.StatusFailed {
						wantMoved++
					}
				}
			}

			n, err := store.Queue.Requeue(ctx, chosen)
			if err != nil {
				t.Fatalf("round %d: requeue failed: %v", round, err)
			}
			if n != wantMoved {
				t.Errorf("round %d: expected %d moved, got %d", round, wantMoved, n)
			}

			picked := make(map[int64]bool, len(chosen))
			for _, id := range chosen {
				picked[id] = true
			}
			for _, id := range ids {
				e, _ := store.Queue.Get(ctx, id)
				want := before[id]
				if picked[id] && want == models.StatusFailed {
					want = models.StatusPending
				}
				if e.Status != want {
					t.Errorf("round %d: entry %d expected %s, got %s", round, id, want, e.Status)
				}
			}
		}
	})

	t.Run("RecoverInterrupted and PruneCompleted", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewStore(db)
		p := createPlaylist(t, store, "P", "")
		q := store.Queue

		ids := enqueueN(t, q, p.ID, 2)
		q.ClaimNext(ctx, p.ID)

		n, err := q.RecoverInterrupted(ctx)
		if err != nil || n != 1 {
			t.Fatalf("expected 1 recovered entry, got %d (%v)", n, err)
		}
		e, _ := q.Get(ctx, ids[0])
		if e.Status != models.StatusPending || e.Attempts != 1 {
			t.Errorf("recovered entry should be pending with its attempt kept, got %+v", e)
		}

		drainOrder(t, q, p.ID)
		n, err = q.PruneCompleted(ctx, time.Now().Add(time.Minute))
		if err != nil || n != 2 {
			t.Fatalf("expected 2 pruned entries, got %d (%v)", n, err)
		}
		if _, err := q.Get(ctx, ids[0]); !errors.Is(err, shared.ErrEntryNotFound) {
			t.Errorf("expected pruned entry to be gone, got %v", err)
		}
	})

	t.Run("RecordAttempt keeps the entry processing", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewStore(db)
		p := createPlaylist(t, store, "P", "")

		enqueueN(t, store.Queue, p.ID, 1)
		e, _ := store.Queue.ClaimNext(ctx, p.ID)
		if err := store.Queue.RecordAttempt(ctx, e.ID, "timeout"); err != nil {
			t.Fatalf("failed to record attempt: %v", err)
		}
		got, _ := store.Queue.Get(ctx, e.ID)
		if got.Status != models.StatusProcessing || got.Attempts != 2 || got.LastError != "timeout" {
			t.Errorf("unexpected entry %+v", got)
		}
	})
}
