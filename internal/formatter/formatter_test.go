package formatter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
	th "github.com/desertthunder/ytmirror/internal/testing"
)

func sampleReport() MatchReport {
	best := &models.Candidate{ID: "v1", Title: "Song One", Artists: []string{"Artist One"}, Duration: 203}
	return MatchReport{
		Playlist: &models.ExternalPlaylist{ID: "PL1", Platform: "spotify", Name: "Road Trip"},
		Results: []models.MatchResult{
			{Index: 0, Total: 3, Source: models.ExternalTrack{Title: "Song One", Artists: []string{"Artist One"}, DurationMs: 203000}, Best: best, Score: 0.968, Status: models.MatchMatched},
			{Index: 1, Total: 3, Source: models.ExternalTrack{Title: "Song, Two", Artists: []string{"Artist Two"}}, Status: models.MatchUnmatched, Err: &shared.NoMatchError{Title: "Song, Two"}},
			{Index: 2, Total: 3, Source: models.ExternalTrack{Title: "Three"}, Best: &models.Candidate{ID: "v3"}, Score: models.ManualScore, Status: models.MatchMatched, Manual: true},
		},
	}
}

func TestReportExporters(t *testing.T) {
	report := sampleReport()

	t.Run("ReportToCSV", func(t *testing.T) {
		data, err := ReportToCSV(report)
		if err != nil {
			t.Fatalf("ReportToCSV failed: %v", err)
		}

		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 4 {
			t.Fatalf("expected header plus 3 rows, got %d", len(records))
		}
		if records[1][5] != "v1" || records[1][9] != "0.968" {
			t.Errorf("unexpected matched row %v", records[1])
		}
		if records[2][1] != "Song, Two" || records[2][4] != "unmatched" || records[2][10] == "" {
			t.Errorf("unexpected unmatched row %v", records[2])
		}
		if records[3][9] != "manual" {
			t.Errorf("expected manual score marker, got %q", records[3][9])
		}
	})

	t.Run("ReportToMarkdown", func(t *testing.T) {
		data, err := ReportToMarkdown(report)
		if err != nil {
			t.Fatalf("ReportToMarkdown failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{"# Road Trip", "**Matched**: 2", "## Matched", "## Unmatched", "`v1`", "3:23"} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q", want)
			}
		}
		if strings.Contains(output, "## Ambiguous") {
			t.Error("empty sections should be omitted")
		}
	})

	t.Run("ReportToText", func(t *testing.T) {
		data, err := Report(report, FormatText)
		if err != nil {
			t.Fatalf("Report failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, "Tracks: 3 (matched 2, ambiguous 0, unmatched 1)") {
			t.Errorf("missing summary line, got: %s", output)
		}
		if !strings.Contains(output, "[1/3] matched") {
			t.Errorf("missing result line, got: %s", output)
		}
	})
}

func TestPlaylistExporters(t *testing.T) {
	p := &models.Playlist{ID: 1, Name: "Road Trip", Description: "long drives", Type: models.PlaylistMirror, RemoteSyncID: "RM1"}
	items := []models.PlaylistItem{
		{PlaylistID: 1, TrackID: "a", SortKey: "a0", Track: &models.Track{ExternalID: "a", Title: "Song One", Artist: "Artist", Album: "Album", Duration: 203}},
		{PlaylistID: 1, TrackID: "b", SortKey: "a1"},
	}

	t.Run("csv", func(t *testing.T) {
		data, err := Playlist(p, items, FormatCSV)
		if err != nil {
			t.Fatalf("Playlist failed: %v", err)
		}
		if !strings.Contains(string(data), "1,a,Song One,Artist,Album,203,a0") {
			t.Errorf("unexpected CSV: %s", data)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		data, _ := Playlist(p, items, FormatMarkdown)
		if !strings.Contains(string(data), "**Mirror of**: `RM1`") || !strings.Contains(string(data), "1. Artist - Song One (Album) [3:23]") {
			t.Errorf("unexpected Markdown: %s", data)
		}
	})

	t.Run("text falls back to track id", func(t *testing.T) {
		data, _ := Playlist(p, items, FormatText)
		if !strings.Contains(string(data), "2.  - b") {
			t.Errorf("unexpected text: %s", data)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{in: "csv", want: FormatCSV},
		{in: "Markdown", want: FormatMarkdown},
		{in: "", want: FormatText},
		{in: "xml", err: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseFormat(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWrite(t *testing.T) {
	t.Run("writer failure", func(t *testing.T) {
		if err := Write(&th.FWriter{}, []byte("x")); err == nil {
			t.Error("expected write error")
		}
	})

	t.Run("limited writer", func(t *testing.T) {
		var buf bytes.Buffer
		w := th.NewLimitedWriter(1, 0, &buf)
		if err := Write(&w, []byte("first")); err != nil {
			t.Fatalf("first write failed: %v", err)
		}
		if err := Write(&w, []byte("second")); err == nil {
			t.Error("expected second write to fail")
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.txt")
		if err := WriteFile(path, []byte("hello")); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		th.AssertFileExists(t, path)
		if got := th.MustReadFile(t, path); got != "hello" {
			t.Errorf("expected file contents, got %q", got)
		}
	})

	t.Run("file in missing dir", func(t *testing.T) {
		err := WriteFile(filepath.Join(t.TempDir(), "missing", "x.txt"), nil)
		if err == nil || errors.Unwrap(err) == nil {
			t.Errorf("expected wrapped error, got %v", err)
		}
	})
}
