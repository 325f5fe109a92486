package models

import (
	"errors"
	"testing"

	"github.com/desertthunder/ytmirror/internal/shared"
)

func TestDecodePayload(t *testing.T) {
	tc := []struct {
		name    string
		op      Operation
		raw     string
		wantErr bool
	}{
		{name: "add tracks", op: OpAddTracks, raw: `{"track_ids":["a","b"]}`},
		{name: "empty track list", op: OpRemoveTracks, raw: `{"track_ids":[]}`, wantErr: true},
		{name: "blank track id", op: OpAddTracks, raw: `{"track_ids":["a",""]}`, wantErr: true},
		{name: "reorder", op: OpReorderTrack, raw: `{"track_id":"a","position":3}`},
		{name: "negative position", op: OpReorderTrack, raw: `{"track_id":"a","position":-1}`, wantErr: true},
		{name: "metadata", op: OpUpdateMetadata, raw: `{"name":"Road Trip"}`},
		{name: "blank name", op: OpUpdateMetadata, raw: `{"description":"x"}`, wantErr: true},
		{name: "malformed json", op: OpAddTracks, raw: `{"track_ids":`, wantErr: true},
		{name: "unknown operation", op: Operation("delete_playlist"), raw: `{}`, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePayload(tt.op, []byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusProcessing} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestExternalTrack(t *testing.T) {
	tr := ExternalTrack{Title: "Song", Artists: []string{"A", "B"}, DurationMs: 203_600}
	if tr.Artist() != "A, B" {
		t.Errorf("unexpected artist %q", tr.Artist())
	}
	if tr.DurationSeconds() != 204 {
		t.Errorf("expected rounded 204s, got %d", tr.DurationSeconds())
	}
	if (ExternalTrack{}).DurationSeconds() != 0 {
		t.Error("unknown duration should stay 0")
	}
}
