package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/ytmirror/internal/formatter"
	"github.com/desertthunder/ytmirror/internal/importer"
	"github.com/desertthunder/ytmirror/internal/matcher"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
	"github.com/urfave/cli/v3"
)

// Import fetches an external playlist, matches every track and reports the results.
//
// With --into or --create the matched tracks are appended to a local playlist, which enqueues
// one add_tracks entry when that playlist is a mirror. Ambiguous and unmatched tracks are only reported.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	platform := cmd.StringArg("platform")
	sourceID := cmd.StringArg("source-id")
	if platform == "" || sourceID == "" {
		return fmt.Errorf("%w: expected <platform> <source-id>", shared.ErrMissingArgument)
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	into, create := cmd.String("into"), cmd.String("create")
	if into != "" && create != "" {
		return fmt.Errorf("%w: --into and --create are mutually exclusive", shared.ErrInvalidArgument)
	}
	var intoID int64
	if into != "" {
		if intoID, err = parseID("into", into); err != nil {
			return err
		}
	}

	picks, err := parsePicks(cmd.StringSlice("pick"))
	if err != nil {
		return err
	}

	imp, err := r.importer(ctx).ImportPlaylist(ctx, sourceID, platform)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	results := make([]models.MatchResult, 0, len(imp.Playlist.Tracks))
	for res := range imp.Results() {
		results = append(results, res)
		r.printResult(res, output != "")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := applyPicks(results, picks); err != nil {
		return err
	}

	report := formatter.MatchReport{Playlist: imp.Playlist, Results: results}
	data, err := formatter.Report(report, format)
	if err != nil {
		return err
	}
	if err := r.emit(output, data); err != nil {
		return err
	}

	if into == "" && create == "" {
		return nil
	}
	return r.addMatches(ctx, intoID, create, results)
}

// parsePicks reads --pick values of the form <track>=<rank>, both 1-based, into a map keyed by
// zero-based track index.
func parsePicks(values []string) (map[int]int, error) {
	picks := make(map[int]int, len(values))
	for _, v := range values {
		track, rank, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("%w: pick %q, expected <track>=<rank>", shared.ErrInvalidArgument, v)
		}
		t, err := strconv.Atoi(strings.TrimSpace(track))
		if err != nil || t < 1 {
			return nil, fmt.Errorf("%w: pick %q, track must be a positive number", shared.ErrInvalidArgument, v)
		}
		n, err := strconv.Atoi(strings.TrimSpace(rank))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: pick %q, rank must be a positive number", shared.ErrInvalidArgument, v)
		}
		picks[t-1] = n
	}
	return picks, nil
}

// applyPicks replaces each picked result's choice with the ranked candidate the user selected.
func applyPicks(results []models.MatchResult, picks map[int]int) error {
	byIndex := make(map[int]int, len(results))
	for i, res := range results {
		byIndex[res.Index] = i
	}
	for track, rank := range picks {
		i, ok := byIndex[track]
		if !ok {
			return fmt.Errorf("%w: pick for track %d, playlist has %d tracks", shared.ErrInvalidArgument, track+1, len(results))
		}
		res := results[i]
		if rank > len(res.Candidates) {
			return fmt.Errorf("%w: pick for track %d, only %d candidate(s)", shared.ErrInvalidArgument, track+1, len(res.Candidates))
		}
		results[i] = matcher.Override(res, res.Candidates[rank-1].Candidate)
	}
	return nil
}

// printResult writes a result line to the output when the report goes to a file, and logs it otherwise.
func (r *Runner) printResult(res models.MatchResult, toOutput bool) {
	line := formatter.ResultLine(res)
	if !toOutput {
		r.logger.Info(line)
		return
	}
	switch res.Status {
	case models.MatchMatched:
		r.writePlain("%s\n", line)
	case models.MatchAmbiguous:
		r.writePlain("%s\n", r.styles.Warn(line))
	default:
		r.writePlain("%s\n", r.styles.Err(line))
	}
}

func (r *Runner) addMatches(ctx context.Context, playlistID int64, create string, results []models.MatchResult) error {
	tracks := importer.Accepted(results)
	if len(tracks) == 0 {
		r.logger.Warn("no matched tracks to add")
		return nil
	}

	store, done, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer done()

	if create != "" {
		p, err := store.CreatePlaylist(ctx, create, "")
		if err != nil {
			return err
		}
		playlistID = p.ID
	}

	added, err := store.AddTracks(ctx, playlistID, tracks)
	if err != nil {
		return err
	}
	r.logger.Info("imported tracks added", "playlist", playlistID, "added", len(added), "matched", len(tracks))
	return nil
}

type candidateRow struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Artist        string  `json:"artist"`
	Duration      int     `json:"duration"`
	Rank          int     `json:"rank"`
	TitleScore    float64 `json:"title_score"`
	DurationScore float64 `json:"duration_score"`
	Score         float64 `json:"score"`
}

type matchOutput struct {
	Query      string         `json:"query"`
	Status     string         `json:"status"`
	Best       string         `json:"best,omitempty"`
	Score      float64        `json:"score"`
	Error      string         `json:"error,omitempty"`
	Candidates []candidateRow `json:"candidates"`
}

// Match scores a live search for one track and prints the ranked candidates.
func (r *Runner) Match(ctx context.Context, cmd *cli.Command) error {
	title := cmd.StringArg("title")
	if title == "" {
		return fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}

	track := models.ExternalTrack{Title: title, DurationMs: cmd.Int("duration") * 1000}
	if artist := cmd.String("artist"); artist != "" {
		track.Artists = []string{artist}
	}

	res := r.importer(ctx).MatchTrack(ctx, track)

	out := matchOutput{
		Query:  matcher.SearchQuery(track.Title, track.Artist(), r.config.Matcher.SearchWithArtist),
		Status: string(res.Status),
		Score:  res.Score,
	}
	if res.Best != nil {
		out.Best = res.Best.ID
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	for _, c := range res.Candidates {
		out.Candidates = append(out.Candidates, candidateRow{
			ID: c.ID, Title: c.Title, Artist: c.Artist(), Duration: c.Duration, Rank: c.Rank,
			TitleScore: c.TitleScore, DurationScore: c.DurationScore, Score: c.Score,
		})
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}

	r.writePlain("%s %s", r.styles.Match(res.Status), title)
	if res.Best != nil {
		r.writePlain(" → %s (%.3f)", res.Best.ID, res.Score)
	}
	r.writePlain("\n")
	if res.Err != nil && len(res.Candidates) == 0 {
		return r.writePlain("%s\n", r.styles.Err(res.Err.Error()))
	}

	table := make([][]string, 0, len(out.Candidates))
	for _, c := range out.Candidates {
		table = append(table, []string{
			strconv.Itoa(c.Rank),
			c.ID,
			c.Title,
			c.Artist,
			shared.FormatDuration(c.Duration),
			strconv.FormatFloat(c.TitleScore, 'f', 3, 64),
			strconv.FormatFloat(c.DurationScore, 'f', 3, 64),
			strconv.FormatFloat(c.Score, 'f', 3, 64),
		})
	}
	return r.writePlain("%s", r.styles.Table([]string{"Rank", "ID", "Title", "Artist", "Length", "Title", "Duration", "Score"}, table))
}
