// Package models defines the domain entities shared by the ytmirror sync and matching engine.
//
// The package contains three groups of types:
//
// 1. Library entities persisted in SQLite
//   - [Playlist] : a local or mirror playlist, mirrors carry a remote binding
//   - [Track] : a remote-platform track reference, immutable once stored
//   - [PlaylistItem] : ordered playlist membership keyed by a fractional sort key
//
// 2. Outbox entries
//   - [SyncQueueEntry] : a persisted remote mutation with its [Operation] and [Status]
//   - [TrackIDsPayload], [ReorderPayload], [MetadataPayload] : operation payloads
//
// 3. Matching values
//   - [ExternalTrack], [ExternalPlaylist] : source descriptors from third-party catalogs
//   - [Candidate], [MatchCandidate] : remote search hits and their scores
//   - [MatchResult] : the outcome of matching one source track
package models
