// package formatter renders match reports and local playlists as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// Format selects an output encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// ParseFormat accepts csv, md/markdown and txt/text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "", "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want csv, md or txt)", shared.ErrInvalidArgument, s)
	}
}

// MatchReport is the outcome of an import.
type MatchReport struct {
	Playlist *models.ExternalPlaylist
	Results  []models.MatchResult
}

// Counts returns the number of results per status.
func (r MatchReport) Counts() map[models.MatchStatus]int {
	counts := make(map[models.MatchStatus]int, 3)
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}

func scoreString(res models.MatchResult) string {
	if res.Manual {
		return "manual"
	}
	if res.Best == nil {
		return ""
	}
	return strconv.FormatFloat(res.Score, 'f', 3, 64)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ReportToCSV converts a report to CSV with one row per source track.
func ReportToCSV(report MatchReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "Title", "Artist", "Duration", "Status", "Match ID", "Match Title", "Match Artist", "Match Duration", "Score", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, res := range report.Results {
		record := []string{
			strconv.Itoa(res.Index + 1),
			res.Source.Title,
			res.Source.Artist(),
			strconv.Itoa(res.Source.DurationSeconds()),
			string(res.Status),
			"", "", "", "",
			scoreString(res),
			errString(res.Err),
		}
		if res.Best != nil {
			record[5] = res.Best.ID
			record[6] = res.Best.Title
			record[7] = res.Best.Artist()
			record[8] = strconv.Itoa(res.Best.Duration)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportToMarkdown converts a report to Markdown, grouping tracks by status.
func ReportToMarkdown(report MatchReport) ([]byte, error) {
	var buf bytes.Buffer
	counts := report.Counts()

	name := "Import"
	if report.Playlist != nil {
		name = report.Playlist.Name
		fmt.Fprintf(&buf, "# %s\n\n", name)
		fmt.Fprintf(&buf, "**Source**: %s `%s`\n\n", report.Playlist.Platform, report.Playlist.ID)
	} else {
		fmt.Fprintf(&buf, "# %s\n\n", name)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(report.Results))
	fmt.Fprintf(&buf, "**Matched**: %d · **Ambiguous**: %d · **Unmatched**: %d\n\n",
		counts[models.MatchMatched], counts[models.MatchAmbiguous], counts[models.MatchUnmatched])

	for _, status := range []models.MatchStatus{models.MatchMatched, models.MatchAmbiguous, models.MatchUnmatched} {
		if counts[status] == 0 {
			continue
		}
		fmt.Fprintf(&buf, "## %s\n\n", strings.ToUpper(string(status[:1]))+string(status[1:]))
		for _, res := range report.Results {
			if res.Status != status {
				continue
			}
			fmt.Fprintf(&buf, "%d. %s - %s [%s]", res.Index+1, res.Source.Artist(), res.Source.Title, shared.FormatDuration(res.Source.DurationSeconds()))
			if res.Best != nil {
				fmt.Fprintf(&buf, " → %s - %s [%s] (`%s`, %s)", res.Best.Artist(), res.Best.Title, shared.FormatDuration(res.Best.Duration), res.Best.ID, scoreString(res))
			}
			if res.Err != nil {
				fmt.Fprintf(&buf, " _%s_", res.Err)
			}
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ReportToText converts a report to plain text, one line per source track.
func ReportToText(report MatchReport) ([]byte, error) {
	var buf bytes.Buffer

	if report.Playlist != nil {
		fmt.Fprintf(&buf, "Playlist: %s (%s)\n", report.Playlist.Name, report.Playlist.Platform)
	}
	counts := report.Counts()
	fmt.Fprintf(&buf, "Tracks: %d (matched %d, ambiguous %d, unmatched %d)\n\n", len(report.Results),
		counts[models.MatchMatched], counts[models.MatchAmbiguous], counts[models.MatchUnmatched])

	for _, res := range report.Results {
		buf.WriteString(ResultLine(res))
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ResultLine renders one result, e.g. "[3/12] matched Artist - Title → v1 (0.968)".
func ResultLine(res models.MatchResult) string {
	line := fmt.Sprintf("[%d/%d] %-9s %s - %s", res.Index+1, res.Total, res.Status, res.Source.Artist(), res.Source.Title)
	if res.Best != nil {
		line += fmt.Sprintf(" → %s (%s)", res.Best.ID, scoreString(res))
	}
	if res.Err != nil {
		line += ": " + res.Err.Error()
	}
	return line
}

// Report encodes report in format.
func Report(report MatchReport, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ReportToCSV(report)
	case FormatMarkdown:
		return ReportToMarkdown(report)
	default:
		return ReportToText(report)
	}
}

// PlaylistToCSV converts a local playlist to CSV with columns: Position, ID, Title, Artist, Album, Duration, Sort Key
func PlaylistToCSV(items []models.PlaylistItem) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "ID", "Title", "Artist", "Album", "Duration", "Sort Key"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, item := range items {
		t := trackOf(item)
		record := []string{strconv.Itoa(i + 1), item.TrackID, t.Title, t.Artist, t.Album, strconv.Itoa(t.Duration), item.SortKey}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// PlaylistToMarkdown converts a local playlist to Markdown.
func PlaylistToMarkdown(p *models.Playlist, items []models.PlaylistItem) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(items))
	if p.IsMirror() {
		fmt.Fprintf(&buf, "**Mirror of**: `%s`\n", p.RemoteSyncID)
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, item := range items {
		t := trackOf(item)
		albumPart := ""
		if t.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", t.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, t.Artist, t.Title, albumPart, shared.FormatDuration(t.Duration))
	}
	return buf.Bytes(), nil
}

// PlaylistToText converts a local playlist to plain text.
func PlaylistToText(p *models.Playlist, items []models.PlaylistItem) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(items))

	for i, item := range items {
		t := trackOf(item)
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, t.Artist, t.Title)
	}
	return buf.Bytes(), nil
}

// Playlist encodes a local playlist in format.
func Playlist(p *models.Playlist, items []models.PlaylistItem, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return PlaylistToCSV(items)
	case FormatMarkdown:
		return PlaylistToMarkdown(p, items)
	default:
		return PlaylistToText(p, items)
	}
}

func trackOf(item models.PlaylistItem) models.Track {
	if item.Track != nil {
		return *item.Track
	}
	return models.Track{ExternalID: item.TrackID, Title: item.TrackID}
}

// Write writes data to w.
func Write(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteFile writes data to path, creating or truncating it.
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
