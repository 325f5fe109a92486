// package importer matches third-party playlists against remote search results
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmirror/internal/matcher"
	"github.com/desertthunder/ytmirror/internal/metrics"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/services"
	"github.com/desertthunder/ytmirror/internal/shared"
	"golang.org/x/time/rate"
)

// Searcher is the remote search surface the importer needs.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.Candidate, error)
}

// Options configures an [Importer].
type Options struct {
	// SearchDelay spaces consecutive remote searches. Zero disables throttling.
	SearchDelay time.Duration
	// WithArtist appends the artist credit to search queries.
	WithArtist bool
	// Buffer is the capacity of the results channel.
	Buffer int
}

// Importer resolves external playlists into ranked remote matches.
type Importer struct {
	sources services.Sources
	remote  Searcher
	matcher *matcher.Matcher
	limiter *rate.Limiter
	opts    Options
	metrics *metrics.Metrics
	logger  *log.Logger
}

// New creates an importer. metrics may be nil.
func New(sources services.Sources, remote Searcher, m *matcher.Matcher, opts Options, mt *metrics.Metrics, logger *log.Logger) *Importer {
	limit := rate.Inf
	if opts.SearchDelay > 0 {
		limit = rate.Every(opts.SearchDelay)
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 16
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Importer{
		sources: sources,
		remote:  remote,
		matcher: m,
		limiter: rate.NewLimiter(limit, 1),
		opts:    opts,
		metrics: mt,
		logger:  logger,
	}
}

// Import is a running import. Results arrive in source order.
type Import struct {
	Playlist *models.ExternalPlaylist
	results  chan models.MatchResult
}

// Results returns the result stream. It is closed after the last track or on cancellation.
func (i *Import) Results() <-chan models.MatchResult {
	return i.results
}

// Collect drains the stream into a slice.
func (i *Import) Collect() []models.MatchResult {
	var out []models.MatchResult
	for r := range i.results {
		out = append(out, r)
	}
	return out
}

// ImportPlaylist fetches sourceID from platform and starts matching its tracks.
//
// Only resolving the source and fetching the playlist fail up front. Per-track failures are
// reported on the matching result and never stop later tracks.
func (im *Importer) ImportPlaylist(ctx context.Context, sourceID, platform string) (*Import, error) {
	src, err := im.sources.Get(platform)
	if err != nil {
		return nil, err
	}

	playlist, err := src.FetchPlaylist(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s playlist %q: %w", platform, sourceID, err)
	}

	imp := &Import{Playlist: playlist, results: make(chan models.MatchResult, im.opts.Buffer)}
	logger := shared.WithLogger(im.logger, "platform", platform, "source", sourceID)
	logger.Info("import started", "name", playlist.Name, "tracks", len(playlist.Tracks))

	go im.run(ctx, imp, logger)
	return imp, nil
}

func (im *Importer) run(ctx context.Context, imp *Import, logger *log.Logger) {
	defer close(imp.results)

	tracks := imp.Playlist.Tracks
	counts := make(map[models.MatchStatus]int)
	for i, track := range tracks {
		if err := im.limiter.Wait(ctx); err != nil {
			logger.Warn("import cancelled", "done", i, "total", len(tracks))
			return
		}

		result := im.MatchTrack(ctx, track)
		result.Index = i
		result.Total = len(tracks)
		counts[result.Status]++
		im.metrics.ImportResult(string(result.Status))

		if result.Err != nil {
			logger.Debug("track not matched", "title", track.Title, "err", result.Err)
		}

		select {
		case imp.results <- result:
		case <-ctx.Done():
			logger.Warn("import cancelled", "done", i, "total", len(tracks))
			return
		}
	}

	logger.Info("import finished",
		"matched", counts[models.MatchMatched],
		"ambiguous", counts[models.MatchAmbiguous],
		"unmatched", counts[models.MatchUnmatched])
}

// MatchTrack searches the remote for one track and scores the candidates.
//
// A failed search yields an unmatched result carrying the error.
func (im *Importer) MatchTrack(ctx context.Context, track models.ExternalTrack) models.MatchResult {
	query := matcher.SearchQuery(track.Title, track.Artist(), im.opts.WithArtist)
	candidates, err := im.remote.Search(ctx, query)
	if err != nil {
		return models.MatchResult{Source: track, Status: models.MatchUnmatched, Err: err}
	}
	return im.matcher.Match(track, candidates)
}

// Accepted returns the tracks of matched results in order, skipping duplicates.
func Accepted(results []models.MatchResult) []models.Track {
	seen := make(map[string]bool, len(results))
	tracks := make([]models.Track, 0, len(results))
	for _, r := range results {
		if !r.Accepted() || seen[r.Best.ID] {
			continue
		}
		seen[r.Best.ID] = true
		tracks = append(tracks, r.Best.Track())
	}
	return tracks
}
