package models

import "strings"

// ManualScore marks a result chosen by a manual override rather than by scoring.
const ManualScore = -1.0

// ExternalTrack describes a track on a third-party catalog.
type ExternalTrack struct {
	Title      string
	Artists    []string
	Album      string
	DurationMs int // 0 when the source does not expose durations
}

// Artist returns the joined artist credit.
func (t ExternalTrack) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// DurationSeconds returns the rounded duration, 0 when unknown.
func (t ExternalTrack) DurationSeconds() int {
	return (t.DurationMs + 500) / 1000
}

// ExternalPlaylist is a playlist fetched from a third-party catalog.
type ExternalPlaylist struct {
	ID       string
	Platform string
	Name     string
	Tracks   []ExternalTrack
}

// Candidate is one remote search hit. Rank is its position in the upstream results.
type Candidate struct {
	ID       string
	Title    string
	Artists  []string
	Album    string
	Duration int // seconds, 0 when unknown
	Rank     int
}

// Artist returns the joined artist credit.
func (c Candidate) Artist() string {
	return strings.Join(c.Artists, ", ")
}

// Track converts the candidate into a storable [Track].
func (c Candidate) Track() Track {
	return Track{
		ExternalID: c.ID,
		Title:      c.Title,
		Artist:     c.Artist(),
		Album:      c.Album,
		Duration:   c.Duration,
	}
}

// MatchCandidate is a scored candidate.
type MatchCandidate struct {
	Candidate
	TitleScore    float64
	DurationScore float64
	Score         float64
}

// MatchStatus classifies a [MatchResult].
type MatchStatus string

const (
	MatchMatched   MatchStatus = "matched"
	MatchAmbiguous MatchStatus = "ambiguous"
	MatchUnmatched MatchStatus = "unmatched"
)

// MatchResult is the outcome of matching one source track against remote candidates.
type MatchResult struct {
	Index      int // zero-based position in the source playlist
	Total      int
	Source     ExternalTrack
	Best       *Candidate
	Score      float64
	Status     MatchStatus
	Candidates []MatchCandidate // ranked, best first
	Manual     bool
	Err        error
}

// Accepted reports whether the result should be added to a playlist.
func (r MatchResult) Accepted() bool {
	return r.Status == MatchMatched && r.Best != nil
}
