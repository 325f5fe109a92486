package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/ytmirror/internal/models"
)

func TestPalette(t *testing.T) {
	t.Run("status text survives styling", func(t *testing.T) {
		for _, s := range []models.Status{models.StatusPending, models.StatusProcessing, models.StatusCompleted, models.StatusFailed} {
			if got := Styles.Status(s); !strings.Contains(got, string(s)) {
				t.Errorf("Status(%q) = %q", s, got)
			}
		}
		for _, s := range []models.MatchStatus{models.MatchMatched, models.MatchAmbiguous, models.MatchUnmatched} {
			if got := Styles.Match(s); !strings.Contains(got, string(s)) {
				t.Errorf("Match(%q) = %q", s, got)
			}
		}
	})

	t.Run("Header", func(t *testing.T) {
		out := Styles.Header("Queue")
		lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected title and rule, got %q", out)
		}
		if !strings.Contains(lines[0], "Queue") {
			t.Errorf("expected title line, got %q", lines[0])
		}
		if lipgloss.Width(lines[1]) != 39 {
			t.Errorf("expected minimum rule width, got %d", lipgloss.Width(lines[1]))
		}
	})

	t.Run("Table aligns columns", func(t *testing.T) {
		out := Styles.Table(
			[]string{"ID", "Name"},
			[][]string{{"1", "Morning"}, {"12", "Evening Mix"}},
		)
		lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and two rows, got %d lines: %q", len(lines), out)
		}

		col := strings.Index(lines[1], "Morning")
		if col < 0 || strings.Index(lines[2], "Evening Mix") != col {
			t.Errorf("expected second column aligned, got %q", out)
		}
	})

	t.Run("Table ignores extra cells", func(t *testing.T) {
		out := Styles.Table([]string{"ID"}, [][]string{{"1", "extra"}})
		if strings.Contains(out, "extra") {
			t.Errorf("expected cells beyond the header to be dropped, got %q", out)
		}
	})
}
