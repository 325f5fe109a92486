package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/ytmirror/internal/shared"
)

// Operation names a remote mutation recorded in the outbox.
type Operation string

const (
	OpAddTracks      Operation = "add_tracks"
	OpRemoveTracks   Operation = "remove_tracks"
	OpReorderTrack   Operation = "reorder_track"
	OpUpdateMetadata Operation = "update_metadata"
)

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	switch op {
	case OpAddTracks, OpRemoveTracks, OpReorderTrack, OpUpdateMetadata:
		return true
	default:
		return false
	}
}

// Status is the lifecycle state of a [SyncQueueEntry].
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no worker will touch an entry in this state again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SyncQueueEntry is a persisted remote mutation.
//
// Entries of one playlist are applied in (CreatedAt, ID) order.
type SyncQueueEntry struct {
	ID         int64
	PlaylistID int64
	Operation  Operation
	Payload    json.RawMessage
	Status     Status
	CreatedAt  time.Time
	Attempts   int
	LastError  string
	UpdatedAt  time.Time
}

// Payload is implemented by every operation payload.
type Payload interface {
	Validate() error
}

// TrackIDsPayload carries the tracks of an add_tracks or remove_tracks entry.
type TrackIDsPayload struct {
	TrackIDs []string `json:"track_ids"`
}

func (p TrackIDsPayload) Validate() error {
	if len(p.TrackIDs) == 0 {
		return &shared.ValidationError{Field: "track_ids", Reason: "must not be empty"}
	}
	for i, id := range p.TrackIDs {
		if id == "" {
			return &shared.ValidationError{Field: fmt.Sprintf("track_ids[%d]", i), Reason: "must not be blank"}
		}
	}
	return nil
}

// ReorderPayload moves one track to a zero-based position in the remote collection.
type ReorderPayload struct {
	TrackID  string `json:"track_id"`
	Position int    `json:"position"`
}

func (p ReorderPayload) Validate() error {
	if p.TrackID == "" {
		return &shared.ValidationError{Field: "track_id", Reason: "must not be blank"}
	}
	if p.Position < 0 {
		return &shared.ValidationError{Field: "position", Reason: "must not be negative"}
	}
	return nil
}

// MetadataPayload renames or re-describes the remote collection.
type MetadataPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (p MetadataPayload) Validate() error {
	if p.Name == "" {
		return &shared.ValidationError{Field: "name", Reason: "must not be blank"}
	}
	return nil
}

// NewPayload returns an empty payload value for op.
func NewPayload(op Operation) (Payload, error) {
	switch op {
	case OpAddTracks, OpRemoveTracks:
		return &TrackIDsPayload{}, nil
	case OpReorderTrack:
		return &ReorderPayload{}, nil
	case OpUpdateMetadata:
		return &MetadataPayload{}, nil
	default:
		return nil, &shared.ValidationError{Field: "operation", Reason: fmt.Sprintf("unknown operation %q", op)}
	}
}

// DecodePayload parses and validates the JSON payload of an entry with operation op.
func DecodePayload(op Operation, raw []byte) (Payload, error) {
	p, err := NewPayload(op)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, &shared.ValidationError{Field: "payload", Reason: err.Error()}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Decode parses the entry's payload.
func (e *SyncQueueEntry) Decode() (Payload, error) {
	return DecodePayload(e.Operation, e.Payload)
}

// QueueStats counts entries by status.
type QueueStats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// Live returns the number of entries a drain may still pick up.
func (s QueueStats) Live() int {
	return s.Pending + s.Processing
}
