// package models defines the data model for the playlist sync engine
package models

import (
	"time"
)

// PlaylistType distinguishes locally owned playlists from those mirrored to a remote collection.
type PlaylistType string

const (
	PlaylistLocal  PlaylistType = "local"
	PlaylistMirror PlaylistType = "mirror"
)

// Valid reports whether t is a known playlist type.
func (t PlaylistType) Valid() bool {
	return t == PlaylistLocal || t == PlaylistMirror
}

// Playlist is a user playlist. Mirror playlists are bound to a remote collection through RemoteSyncID.
type Playlist struct {
	ID           int64
	Name         string
	Description  string
	Type         PlaylistType
	RemoteSyncID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsMirror reports whether local edits to the playlist must be pushed to the remote.
func (p *Playlist) IsMirror() bool {
	return p.Type == PlaylistMirror && p.RemoteSyncID != ""
}

// Track is a remote-platform track reference
type Track struct {
	ExternalID string
	Title      string
	Artist     string
	Album      string
	Duration   int // Duration in seconds, 0 when unknown
}

// PlaylistItem is one ordered membership row.
type PlaylistItem struct {
	PlaylistID int64
	TrackID    string
	SortKey    string
	AddedAt    time.Time
	Track      *Track // populated by joined reads
}
