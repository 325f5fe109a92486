package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

const maxBandcampPage = 4 << 20

// BandcampSource implements [ExternalSource] by scraping public Bandcamp album pages.
type BandcampSource struct {
	httpClient *http.Client
}

// NewBandcampSource creates a Bandcamp scraper using client, or [http.DefaultClient] when nil.
func NewBandcampSource(client *http.Client) *BandcampSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &BandcampSource{httpClient: client}
}

// Platform returns "bandcamp".
func (b *BandcampSource) Platform() string {
	return PlatformBandcamp
}

// FetchPlaylist downloads the album page at id (a URL) and parses its track table.
func (b *BandcampSource) FetchPlaylist(ctx context.Context, id string) (*models.ExternalPlaylist, error) {
	if !strings.HasPrefix(id, "http://") && !strings.HasPrefix(id, "https://") {
		return nil, &shared.ValidationError{Field: "url", Reason: "must be an http(s) album URL"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: bandcamp status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	html, err := io.ReadAll(io.LimitReader(resp.Body, maxBandcampPage))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	playlist, err := ParseBandcampAlbum(html)
	if err != nil {
		return nil, err
	}
	playlist.ID = id
	return playlist, nil
}

// ParseBandcampAlbum extracts the album title, artist and track rows from album page HTML.
func ParseBandcampAlbum(html []byte) (*models.ExternalPlaylist, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	album := strings.TrimSpace(doc.Find("#name-section h2.trackTitle").First().Text())
	artist := strings.TrimSpace(doc.Find("#name-section h3 span a").First().Text())

	playlist := &models.ExternalPlaylist{Platform: PlatformBandcamp, Name: album}
	doc.Find("table#track_table tr.track_row_view").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find("span.track-title").First().Text())
		if title == "" {
			return
		}
		t := models.ExternalTrack{
			Title:      title,
			Album:      album,
			DurationMs: parseClock(strings.TrimSpace(s.Find("span.time").First().Text())) * 1000,
		}
		if artist != "" {
			t.Artists = []string{artist}
		}
		playlist.Tracks = append(playlist.Tracks, t)
	})

	if len(playlist.Tracks) == 0 {
		return nil, fmt.Errorf("%w: no tracks found on bandcamp page", shared.ErrAPIRequest)
	}
	return playlist, nil
}
