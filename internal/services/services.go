// package services defines the remote platform and external catalog interfaces
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// RemoteAPI is the remote platform the mirror playlists live on.
//
// Callers chunk batches; implementations issue one request per call.
type RemoteAPI interface {
	// AddTracks appends tracks to the remote collection.
	AddTracks(ctx context.Context, collectionID string, trackIDs []string) error

	// RemoveTracks removes tracks from the remote collection.
	RemoveTracks(ctx context.Context, collectionID string, trackIDs []string) error

	// Reorder moves one track to a zero-based position.
	Reorder(ctx context.Context, collectionID, trackID string, position int) error

	// UpdateMetadata renames the remote collection.
	UpdateMetadata(ctx context.Context, collectionID, name, description string) error

	// Search returns candidates in upstream rank order.
	Search(ctx context.Context, query string) ([]models.Candidate, error)

	// PlaylistTrackIDs returns the remote collection's membership in remote order.
	PlaylistTrackIDs(ctx context.Context, collectionID string) ([]string, error)
}

// ExternalSource fetches track listings from a third-party catalog.
type ExternalSource interface {
	// Platform returns the name used to select this source, e.g. "spotify".
	Platform() string

	// FetchPlaylist returns the listing identified by id.
	FetchPlaylist(ctx context.Context, id string) (*models.ExternalPlaylist, error)
}

const (
	PlatformSpotify  = "spotify"
	PlatformLastFM   = "lastfm"
	PlatformBandcamp = "bandcamp"
)

// Sources indexes external sources by platform.
type Sources map[string]ExternalSource

// NewSources builds a registry from the given sources, skipping nil ones.
func NewSources(sources ...ExternalSource) Sources {
	s := make(Sources, len(sources))
	for _, src := range sources {
		if src != nil {
			s[src.Platform()] = src
		}
	}
	return s
}

// Get returns the source registered for platform.
func (s Sources) Get(platform string) (ExternalSource, error) {
	src, ok := s[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s (configured: %s)", shared.ErrUnknownPlatform, platform, strings.Join(s.Platforms(), ", "))
	}
	return src, nil
}

// Platforms lists registered platforms alphabetically.
func (s Sources) Platforms() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
