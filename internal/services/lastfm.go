package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
	"github.com/shkh/lastfm-go/lastfm"
)

const defaultLastFMLimit = 50

// TopTracksFunc returns an artist's most played track names, best first.
type TopTracksFunc func(ctx context.Context, artist string, limit int) ([]string, error)

// LastFMSource implements [ExternalSource] for an artist's Last.fm top tracks.
//
// Last.fm does not expose durations, so every track has DurationMs 0 and is scored on title alone.
type LastFMSource struct {
	topTracks TopTracksFunc
	limit     int
}

// NewLastFMSource creates a source backed by the Last.fm API.
func NewLastFMSource(cfg shared.LastFMConfig, limit int) (*LastFMSource, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: lastfm api_key is required", shared.ErrMissingCredentials)
	}

	api := lastfm.New(cfg.APIKey, cfg.APISecret)
	fetch := func(_ context.Context, artist string, limit int) ([]string, error) {
		result, err := api.Artist.GetTopTracks(lastfm.P{"artist": artist, "limit": limit})
		if err != nil {
			return nil, fmt.Errorf("%w: get artist top tracks: %w", shared.ErrAPIRequest, err)
		}
		names := make([]string, 0, len(result.Tracks))
		for _, t := range result.Tracks {
			names = append(names, t.Name)
		}
		return names, nil
	}

	return NewLastFMSourceFunc(fetch, limit), nil
}

// NewLastFMSourceFunc creates a source around an arbitrary top-tracks lookup.
func NewLastFMSourceFunc(fetch TopTracksFunc, limit int) *LastFMSource {
	if limit <= 0 {
		limit = defaultLastFMLimit
	}
	return &LastFMSource{topTracks: fetch, limit: limit}
}

// Platform returns "lastfm".
func (l *LastFMSource) Platform() string {
	return PlatformLastFM
}

// FetchPlaylist treats id as an artist name and returns its top tracks.
func (l *LastFMSource) FetchPlaylist(ctx context.Context, id string) (*models.ExternalPlaylist, error) {
	artist := strings.TrimSpace(id)
	if artist == "" {
		return nil, &shared.ValidationError{Field: "artist", Reason: "must not be empty"}
	}

	names, err := l.topTracks(ctx, artist, l.limit)
	if err != nil {
		return nil, err
	}

	playlist := &models.ExternalPlaylist{
		ID:       artist,
		Platform: PlatformLastFM,
		Name:     artist + " top tracks",
		Tracks:   make([]models.ExternalTrack, 0, len(names)),
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		playlist.Tracks = append(playlist.Tracks, models.ExternalTrack{Title: name, Artists: []string{artist}})
	}
	return playlist, nil
}
