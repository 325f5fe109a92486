package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmirror/internal/mirror"
	"github.com/desertthunder/ytmirror/internal/repositories"
	"github.com/desertthunder/ytmirror/internal/services"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// MirrorPlan describes the entries enqueued to reconcile a mirror.
type MirrorPlan struct {
	PlaylistID int64
	ToAdd      []string // local order
	ToRemove   []string // sorted
	EntryIDs   []int64
}

// Empty reports whether the remote already matched local.
func (p *MirrorPlan) Empty() bool {
	return len(p.ToAdd) == 0 && len(p.ToRemove) == 0
}

// Planner computes mirror deltas and records them in the outbox.
type Planner struct {
	store  *repositories.Store
	remote services.RemoteAPI
	logger *log.Logger
}

// NewPlanner creates a planner over store and remote.
func NewPlanner(store *repositories.Store, remote services.RemoteAPI, logger *log.Logger) *Planner {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Planner{store: store, remote: remote, logger: logger}
}

// PlanMirror diffs local membership against the remote collection and enqueues removals then
// additions. Nothing is enqueued when the sets already agree.
//
// Returns [shared.ErrPendingOperations] while the playlist has live entries.
func (p *Planner) PlanMirror(ctx context.Context, playlistID int64) (*MirrorPlan, error) {
	playlist, err := p.store.Playlists.Get(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if !playlist.IsMirror() {
		return nil, fmt.Errorf("%w: %d", shared.ErrNotMirror, playlistID)
	}

	stats, err := p.store.Queue.Stats(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if stats.Live() > 0 {
		return nil, fmt.Errorf("%w: playlist %d has %d live entries", shared.ErrPendingOperations, playlistID, stats.Live())
	}

	local, err := p.store.Items.TrackIDs(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	remote, err := p.remote.PlaylistTrackIDs(ctx, playlist.RemoteSyncID)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote collection %s: %w", playlist.RemoteSyncID, err)
	}

	delta := mirror.Diff(mirror.NewSet(remote...), mirror.NewSet(local...))
	plan := &MirrorPlan{
		PlaylistID: playlistID,
		ToAdd:      delta.OrderAdds(local),
		ToRemove:   delta.ToRemove.Sorted(),
	}

	logger := shared.WithLogger(p.logger, "playlist", playlistID)
	if delta.Empty() {
		logger.Info("mirror already in sync", "tracks", len(local))
		return plan, nil
	}

	plan.EntryIDs, err = p.store.EnqueueMirror(ctx, playlistID, plan.ToRemove, plan.ToAdd)
	if err != nil {
		return nil, err
	}

	logger.Info("mirror planned", "add", len(plan.ToAdd), "remove", len(plan.ToRemove), "entries", len(plan.EntryIDs))
	return plan, nil
}
