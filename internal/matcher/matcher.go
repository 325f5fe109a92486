// Package matcher resolves a third-party track to a remote candidate by title and duration.
//
// Duration is the stronger identity signal: titles differ by formatting noise such as
// "(Live)" or romanization, while a recording's length rarely moves by more than a few seconds.
package matcher

import (
	"math"
	"sort"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// Options tunes scoring.
type Options struct {
	Sigma             float64 // Gaussian kernel width in seconds
	DurationWeight    float64 // weight of duration when the source has one
	TopK              int     // ranked candidates considered for the duration preference
	DurationTolerance int     // seconds within which a candidate counts as a duration match
	MatchThreshold    float64
	AmbiguityMargin   float64
}

// DefaultOptions returns the stock scoring parameters.
func DefaultOptions() Options {
	return Options{
		Sigma:             4,
		DurationWeight:    0.7,
		TopK:              5,
		DurationTolerance: 3,
		MatchThreshold:    0.6,
		AmbiguityMargin:   0.02,
	}
}

// OptionsFromConfig maps the [matcher] config section, keeping defaults for zero values.
func OptionsFromConfig(c shared.MatcherConfig) Options {
	o := DefaultOptions()
	if c.Sigma > 0 {
		o.Sigma = c.Sigma
	}
	if c.DurationWeight > 0 {
		o.DurationWeight = c.DurationWeight
	}
	if c.TopK > 0 {
		o.TopK = c.TopK
	}
	if c.DurationTolerance > 0 {
		o.DurationTolerance = c.DurationTolerance
	}
	if c.MatchThreshold > 0 {
		o.MatchThreshold = c.MatchThreshold
	}
	if c.AmbiguityMargin > 0 {
		o.AmbiguityMargin = c.AmbiguityMargin
	}
	return o
}

// Matcher scores candidates. It holds no state and is safe for concurrent use.
type Matcher struct {
	opts Options
}

// New creates a Matcher.
func New(opts Options) *Matcher {
	return &Matcher{opts: opts}
}

// DurationSimilarity is exp(-Δ²/2σ²) for a delta in seconds.
func (m *Matcher) DurationSimilarity(delta float64) float64 {
	if m.opts.Sigma <= 0 {
		if delta == 0 {
			return 1
		}
		return 0
	}
	return math.Exp(-(delta * delta) / (2 * m.opts.Sigma * m.opts.Sigma))
}

// Score rates one candidate against the source.
func (m *Matcher) Score(source models.ExternalTrack, c models.Candidate) models.MatchCandidate {
	mc := models.MatchCandidate{Candidate: c, TitleScore: TitleSimilarity(source.Title, c.Title)}

	srcDur := source.DurationSeconds()
	if srcDur <= 0 {
		mc.Score = mc.TitleScore
		return mc
	}
	if c.Duration > 0 {
		mc.DurationScore = m.DurationSimilarity(float64(srcDur - c.Duration))
	}
	w := m.opts.DurationWeight
	mc.Score = w*mc.DurationScore + (1-w)*mc.TitleScore
	return mc
}

// Rank scores and orders candidates, best first. Equal scores keep upstream rank order.
func (m *Matcher) Rank(source models.ExternalTrack, candidates []models.Candidate) []models.MatchCandidate {
	ranked := make([]models.MatchCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = m.Score(source, c)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Rank < ranked[j].Rank
	})
	return ranked
}

// Match picks the best candidate for source.
//
// No candidates yields an unmatched result carrying a [shared.NoMatchError]; it is not a failure.
func (m *Matcher) Match(source models.ExternalTrack, candidates []models.Candidate) models.MatchResult {
	result := models.MatchResult{Source: source}
	if len(candidates) == 0 {
		result.Status = models.MatchUnmatched
		result.Err = &shared.NoMatchError{Title: source.Title}
		return result
	}

	ranked := m.Rank(source, candidates)
	result.Candidates = ranked

	best, preferred := 0, false
	if srcDur := source.DurationSeconds(); srcDur > 0 && !m.withinTolerance(srcDur, ranked[0].Candidate) {
		for i := 1; i < min(m.opts.TopK, len(ranked)); i++ {
			if m.withinTolerance(srcDur, ranked[i].Candidate) {
				best, preferred = i, true
				break
			}
		}
	}

	winner := ranked[best]
	result.Best = &winner.Candidate
	result.Score = winner.Score

	switch {
	case preferred:
		result.Status = models.MatchMatched
	case winner.Score < m.opts.MatchThreshold:
		result.Status = models.MatchAmbiguous
	case len(ranked) > 1 && winner.Score-ranked[1].Score <= m.opts.AmbiguityMargin:
		result.Status = models.MatchAmbiguous
	default:
		result.Status = models.MatchMatched
	}
	return result
}

func (m *Matcher) withinTolerance(srcDur int, c models.Candidate) bool {
	if c.Duration <= 0 {
		return false
	}
	d := srcDur - c.Duration
	if d < 0 {
		d = -d
	}
	return d <= m.opts.DurationTolerance
}

// Override replaces a result's choice with a user-selected candidate, bypassing scoring.
func Override(result models.MatchResult, c models.Candidate) models.MatchResult {
	result.Best = &c
	result.Score = models.ManualScore
	result.Status = models.MatchMatched
	result.Manual = true
	result.Err = nil
	return result
}
