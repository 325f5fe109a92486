// Spotify [ExternalSource] implementation
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
	spotifyPageSize = 100
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for removed or local items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents one page of playlist items.
type SpotifyPaginatedTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// SpotifyPlaylist is the subset of playlist fields the importer reads.
type SpotifyPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SpotifySource implements [ExternalSource] for public Spotify playlists using client credentials.
type SpotifySource struct {
	baseURL    string
	httpClient *http.Client
}

// SpotifyOption customizes a [SpotifySource].
type SpotifyOption func(*spotifyOptions)

type spotifyOptions struct {
	baseURL  string
	tokenURL string
}

// WithSpotifyEndpoints overrides the API and token URLs.
func WithSpotifyEndpoints(baseURL, tokenURL string) SpotifyOption {
	return func(o *spotifyOptions) {
		o.baseURL = baseURL
		o.tokenURL = tokenURL
	}
}

// NewSpotifySource creates a Spotify source from client credentials.
//
// Tokens are fetched lazily on the first request and refreshed by the oauth2 transport.
func NewSpotifySource(ctx context.Context, cfg shared.SpotifyConfig, opts ...SpotifyOption) (*SpotifySource, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	o := spotifyOptions{baseURL: spotifyBaseURL, tokenURL: spotifyTokenURL}
	for _, opt := range opts {
		opt(&o)
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     o.tokenURL,
	}

	return &SpotifySource{
		baseURL:    strings.TrimSuffix(o.baseURL, "/"),
		httpClient: cc.Client(ctx),
	}, nil
}

// Platform returns "spotify".
func (s *SpotifySource) Platform() string {
	return PlatformSpotify
}

// doRequest performs an authenticated GET against the Spotify API. Absolute URLs are used as-is.
func (s *SpotifySource) doRequest(ctx context.Context, endpoint string, result any) error {
	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http") {
		apiURL = s.baseURL + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error struct {
				Status  int    `json:"status"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Message != "" {
			return fmt.Errorf("%w: spotify (status %d): %s", shared.ErrAPIRequest, resp.StatusCode, errResp.Error.Message)
		}
		return fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// FetchPlaylist retrieves a playlist and every page of its tracks.
//
// Removed and local items without track data are skipped.
func (s *SpotifySource) FetchPlaylist(ctx context.Context, id string) (*models.ExternalPlaylist, error) {
	id = ParseSpotifyID(id)
	if id == "" {
		return nil, &shared.ValidationError{Field: "playlist_id", Reason: "must not be empty"}
	}

	var meta SpotifyPlaylist
	if err := s.doRequest(ctx, "/playlists/"+url.PathEscape(id)+"?fields=id,name,description", &meta); err != nil {
		return nil, err
	}

	playlist := &models.ExternalPlaylist{ID: id, Platform: PlatformSpotify, Name: meta.Name}

	next := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=0", url.PathEscape(id), spotifyPageSize)
	for next != "" {
		var page SpotifyPaginatedTracks
		if err := s.doRequest(ctx, next, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.Name == "" {
				continue
			}
			t := models.ExternalTrack{
				Title:      item.Track.Name,
				Album:      item.Track.Album.Name,
				DurationMs: item.Track.DurationMS,
			}
			for _, a := range item.Track.Artists {
				t.Artists = append(t.Artists, a.Name)
			}
			playlist.Tracks = append(playlist.Tracks, t)
		}

		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}

	return playlist, nil
}

// ParseSpotifyID extracts a playlist ID from a bare ID, a spotify: URI, or an open.spotify.com URL.
func ParseSpotifyID(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "spotify:playlist:"); ok {
		return rest
	}
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i := 0; i < len(parts)-1; i++ {
			if parts[i] == "playlist" {
				return parts[i+1]
			}
		}
		return ""
	}
	return s
}
