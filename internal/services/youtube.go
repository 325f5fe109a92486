// YouTube Music [RemoteAPI] implementation
//
// Communicates with the FastAPI proxy server (music/) running on port 8080.
// The proxy wraps ytmusicapi Python library for YouTube Music operations.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

const defaultYTBaseURL string = "http://localhost:8080"

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Album       *youtubeAlbum   `json:"album"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"`
	SetVideoID  string          `json:"setVideoId,omitempty"`
}

// Seconds returns the track length, parsing the display duration when the proxy omits seconds.
func (t YouTubeTrack) Seconds() int {
	if t.DurationSec > 0 {
		return t.DurationSec
	}
	return parseClock(t.Duration)
}

// YouTubePlaylist represents a playlist from YouTube Music.
type YouTubePlaylist struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Privacy     string         `json:"privacy"`
	TrackCount  int            `json:"trackCount"`
	Tracks      []YouTubeTrack `json:"tracks,omitempty"`
}

// YouTubeService implements [RemoteAPI] for YouTube Music via proxy.
type YouTubeService struct {
	baseURL    string
	authFile   string
	httpClient *http.Client
}

// NewYouTubeService creates a new YouTube Music service instance.
func NewYouTubeService(baseURL, authFile string) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		authFile:   authFile,
		httpClient: http.DefaultClient,
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

// doRequest sends a JSON request and classifies failures by status code.
func (y *YouTubeService) doRequest(ctx context.Context, op, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ctxErr
		}
		return &shared.TransientRemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(op, resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func classifyStatus(op string, resp *http.Response) error {
	var errResp struct {
		Detail string `json:"detail"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errResp)

	cause := fmt.Errorf("youtube music API error: status %d", resp.StatusCode)
	if errResp.Detail != "" {
		cause = fmt.Errorf("youtube music API error (status %d): %s", resp.StatusCode, errResp.Detail)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &shared.AuthExpiredError{Op: op, Err: cause}
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return &shared.TransientRemoteError{Op: op, StatusCode: resp.StatusCode, Err: cause}
	default:
		return &shared.RemoteError{Op: op, StatusCode: resp.StatusCode, Detail: errResp.Detail}
	}
}

func playlistPath(collectionID string, parts ...string) string {
	return "/api/playlists/" + url.PathEscape(collectionID) + strings.Join(parts, "")
}

// AddTracks calls POST /api/playlists/{id}/items.
func (y *YouTubeService) AddTracks(ctx context.Context, collectionID string, trackIDs []string) error {
	body := map[string]any{"video_ids": trackIDs}
	return y.doRequest(ctx, "add_tracks", http.MethodPost, playlistPath(collectionID, "/items"), body, nil)
}

// RemoveTracks calls DELETE /api/playlists/{id}/items.
func (y *YouTubeService) RemoveTracks(ctx context.Context, collectionID string, trackIDs []string) error {
	body := map[string]any{"video_ids": trackIDs}
	return y.doRequest(ctx, "remove_tracks", http.MethodDelete, playlistPath(collectionID, "/items"), body, nil)
}

// Reorder calls POST /api/playlists/{id}/move.
func (y *YouTubeService) Reorder(ctx context.Context, collectionID, trackID string, position int) error {
	body := map[string]any{"video_id": trackID, "position": position}
	return y.doRequest(ctx, "reorder_track", http.MethodPost, playlistPath(collectionID, "/move"), body, nil)
}

// UpdateMetadata calls PATCH /api/playlists/{id}.
func (y *YouTubeService) UpdateMetadata(ctx context.Context, collectionID, name, description string) error {
	body := map[string]any{"title": name, "description": description}
	return y.doRequest(ctx, "update_metadata", http.MethodPatch, playlistPath(collectionID), body, nil)
}

// Search calls GET /api/search?q={query}&filter=songs.
func (y *YouTubeService) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	endpoint := fmt.Sprintf("/api/search?q=%s&filter=songs", url.QueryEscape(query))

	var results []YouTubeTrack
	if err := y.doRequest(ctx, "search", http.MethodGet, endpoint, nil, &results); err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(results))
	for _, r := range results {
		if r.VideoID == "" {
			continue
		}
		c := models.Candidate{
			ID:       r.VideoID,
			Title:    r.Title,
			Duration: r.Seconds(),
			Rank:     len(candidates),
		}
		for _, a := range r.Artists {
			c.Artists = append(c.Artists, a.Name)
		}
		if r.Album != nil {
			c.Album = r.Album.Name
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// PlaylistTrackIDs calls GET /api/playlists/{id}.
func (y *YouTubeService) PlaylistTrackIDs(ctx context.Context, collectionID string) ([]string, error) {
	var playlist YouTubePlaylist
	if err := y.doRequest(ctx, "playlist", http.MethodGet, playlistPath(collectionID), nil, &playlist); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(playlist.Tracks))
	for _, t := range playlist.Tracks {
		if t.VideoID != "" {
			ids = append(ids, t.VideoID)
		}
	}
	return ids, nil
}

// Health calls GET /health.
func (y *YouTubeService) Health(ctx context.Context) error {
	return y.doRequest(ctx, "health", http.MethodGet, "/health", nil, nil)
}

// parseClock parses "m:ss" or "h:mm:ss" into seconds, 0 when malformed.
func parseClock(s string) int {
	if s == "" {
		return 0
	}
	total := 0
	for part := range strings.SplitSeq(s, ":") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}
