package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/ordering"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// Store is the explicit store handle: the repositories over one database, plus the local edit
// operations that change membership and enqueue the matching remote operation atomically.
type Store struct {
	db        *sql.DB
	Playlists *PlaylistRepository
	Tracks    *TrackRepository
	Items     *PlaylistTrackRepository
	Queue     *SyncQueueRepository
	Settings  *SettingsRepository
}

// NewStore creates a Store over db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		Playlists: NewPlaylistRepository(db),
		Tracks:    NewTrackRepository(db),
		Items:     NewPlaylistTrackRepository(db),
		Queue:     NewSyncQueueRepository(db),
		Settings:  NewSettingsRepository(db),
	}
}

// DB returns the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

// txStore groups the repositories bound to one transaction.
type txStore struct {
	playlists *PlaylistRepository
	tracks    *TrackRepository
	items     *PlaylistTrackRepository
	queue     *SyncQueueRepository
}

func (s *Store) inTx(ctx context.Context, fn func(t txStore) error) error {
	return shared.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(txStore{
			playlists: s.Playlists.WithTx(tx),
			tracks:    s.Tracks.WithTx(tx),
			items:     s.Items.WithTx(tx),
			queue:     s.Queue.WithTx(tx),
		})
	})
}

// CreatePlaylist creates a local playlist.
func (s *Store) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	p := &models.Playlist{Name: name, Description: description, Type: models.PlaylistLocal}
	if err := s.Playlists.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// BindRemote makes playlistID a mirror of remoteID.
func (s *Store) BindRemote(ctx context.Context, playlistID int64, remoteID string) error {
	return s.Playlists.BindRemote(ctx, playlistID, remoteID)
}

// AddTracks appends tracks not already in the playlist and returns the IDs added.
//
// Mirror playlists get one add_tracks entry covering every added track.
func (s *Store) AddTracks(ctx context.Context, playlistID int64, tracks []models.Track) ([]string, error) {
	var added []string
	err := s.inTx(ctx, func(t txStore) error {
		p, err := t.playlists.Get(ctx, playlistID)
		if err != nil {
			return err
		}

		prev, err := t.items.LastKey(ctx, playlistID)
		if err != nil {
			return err
		}

		seen := make(map[string]bool, len(tracks))
		for i := range tracks {
			tr := &tracks[i]
			if seen[tr.ExternalID] {
				continue
			}
			seen[tr.ExternalID] = true

			if err := t.tracks.Upsert(ctx, tr); err != nil {
				return err
			}
			member, err := t.items.Contains(ctx, playlistID, tr.ExternalID)
			if err != nil {
				return err
			}
			if !member {
				added = append(added, tr.ExternalID)
			}
		}

		keys, err := ordering.KeysAfter(prev, len(added))
		if err != nil {
			return fmt.Errorf("failed to allocate sort keys: %w", err)
		}
		for i, id := range added {
			if err := t.items.Insert(ctx, playlistID, id, keys[i]); err != nil {
				return err
			}
		}

		if len(added) == 0 || !p.IsMirror() {
			return nil
		}
		_, err = t.queue.Enqueue(ctx, playlistID, models.OpAddTracks, &models.TrackIDsPayload{TrackIDs: added})
		return err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// RemoveTracks removes members and returns the IDs that were present.
func (s *Store) RemoveTracks(ctx context.Context, playlistID int64, trackIDs []string) ([]string, error) {
	var removed []string
	err := s.inTx(ctx, func(t txStore) error {
		p, err := t.playlists.Get(ctx, playlistID)
		if err != nil {
			return err
		}

		for _, id := range trackIDs {
			ok, err := t.items.Delete(ctx, playlistID, id)
			if err != nil {
				return err
			}
			if ok {
				removed = append(removed, id)
			}
		}

		if len(removed) == 0 || !p.IsMirror() {
			return nil
		}
		_, err = t.queue.Enqueue(ctx, playlistID, models.OpRemoveTracks, &models.TrackIDsPayload{TrackIDs: removed})
		return err
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// MoveTrack places trackID at the zero-based index toIndex and returns its new sort key.
//
// Only the moved row changes; the new key falls between its new neighbours.
func (s *Store) MoveTrack(ctx context.Context, playlistID int64, trackID string, toIndex int) (string, error) {
	var newKey string
	err := s.inTx(ctx, func(t txStore) error {
		p, err := t.playlists.Get(ctx, playlistID)
		if err != nil {
			return err
		}

		items, err := t.items.List(ctx, playlistID)
		if err != nil {
			return err
		}

		rest := make([]models.PlaylistItem, 0, len(items))
		found := false
		for _, item := range items {
			if item.SortKey == "" {
				return fmt.Errorf("%w: playlist %d still uses legacy positions, run the order migration first", shared.ErrInvalidInput, playlistID)
			}
			if item.TrackID == trackID {
				found = true
				continue
			}
			rest = append(rest, item)
		}
		if !found {
			return fmt.Errorf("%w: %s in playlist %d", shared.ErrTrackNotFound, trackID, playlistID)
		}

		toIndex = max(0, min(toIndex, len(rest)))
		var prev, next string
		if toIndex > 0 {
			prev = rest[toIndex-1].SortKey
		}
		if toIndex < len(rest) {
			next = rest[toIndex].SortKey
		}

		newKey, err = ordering.KeyBetween(prev, next)
		if err != nil {
			return fmt.Errorf("failed to allocate sort key: %w", err)
		}
		if err := t.items.UpdateKey(ctx, playlistID, trackID, newKey); err != nil {
			return err
		}

		if !p.IsMirror() {
			return nil
		}
		_, err = t.queue.Enqueue(ctx, playlistID, models.OpReorderTrack, &models.ReorderPayload{TrackID: trackID, Position: toIndex})
		return err
	})
	if err != nil {
		return "", err
	}
	return newKey, nil
}

// UpdateMetadata renames a playlist, enqueueing update_metadata for mirrors.
func (s *Store) UpdateMetadata(ctx context.Context, playlistID int64, name, description string) error {
	return s.inTx(ctx, func(t txStore) error {
		if err := t.playlists.UpdateMetadata(ctx, playlistID, name, description); err != nil {
			return err
		}
		p, err := t.playlists.Get(ctx, playlistID)
		if err != nil {
			return err
		}
		if !p.IsMirror() {
			return nil
		}
		_, err = t.queue.Enqueue(ctx, playlistID, models.OpUpdateMetadata, &models.MetadataPayload{Name: name, Description: description})
		return err
	})
}

// EnqueueMirror records the removals then the additions that reconcile a mirror, returning the entry IDs.
//
// It refuses with [shared.ErrPendingOperations] while the playlist has live entries, since the remote
// snapshot the diff was computed from would not reflect them.
func (s *Store) EnqueueMirror(ctx context.Context, playlistID int64, toRemove, toAdd []string) ([]int64, error) {
	var ids []int64
	err := s.inTx(ctx, func(t txStore) error {
		p, err := t.playlists.Get(ctx, playlistID)
		if err != nil {
			return err
		}
		if !p.IsMirror() {
			return fmt.Errorf("%w: %d", shared.ErrNotMirror, playlistID)
		}

		stats, err := t.queue.Stats(ctx, playlistID)
		if err != nil {
			return err
		}
		if stats.Live() > 0 {
			return fmt.Errorf("%w: playlist %d has %d live entries", shared.ErrPendingOperations, playlistID, stats.Live())
		}

		if len(toRemove) > 0 {
			id, err := t.queue.Enqueue(ctx, playlistID, models.OpRemoveTracks, &models.TrackIDsPayload{TrackIDs: toRemove})
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		if len(toAdd) > 0 {
			id, err := t.queue.Enqueue(ctx, playlistID, models.OpAddTracks, &models.TrackIDsPayload{TrackIDs: toAdd})
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
