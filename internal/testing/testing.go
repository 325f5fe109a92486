// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// RemoteCall records one call made against a [MockRemote].
type RemoteCall struct {
	Op           string
	CollectionID string
	TrackIDs     []string
	TrackID      string
	Position     int
	Name         string
	Description  string
	Query        string
}

// MockRemote is a test double for [services.RemoteAPI].
//
// Mutations are applied to Collections when they succeed, so a drain can be checked against the
// resulting remote membership.
type MockRemote struct {
	mu          sync.Mutex
	calls       []RemoteCall
	Collections map[string][]string
	Results     map[string][]models.Candidate

	// FailWith returns the error for a call, or nil to let it succeed.
	FailWith func(call RemoteCall) error

	// Started receives each mutation as it begins, when non-nil.
	Started chan RemoteCall

	// Gate blocks each mutation until a value is received or it is closed, when non-nil.
	Gate chan struct{}
}

// NewMockRemote creates a remote with empty collections.
func NewMockRemote() *MockRemote {
	return &MockRemote{
		Collections: make(map[string][]string),
		Results:     make(map[string][]models.Candidate),
	}
}

// Calls returns a copy of the recorded calls.
func (m *MockRemote) Calls() []RemoteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CallsFor returns the recorded calls of op.
func (m *MockRemote) CallsFor(op string) []RemoteCall {
	var out []RemoteCall
	for _, c := range m.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Health records a "health" call and reports FailWith's verdict.
func (m *MockRemote) Health(context.Context) error {
	call := RemoteCall{Op: "health"}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith(call)
	}
	return nil
}

// Collection returns a copy of a collection's membership.
func (m *MockRemote) Collection(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Collections[id])
}

func (m *MockRemote) mutate(ctx context.Context, call RemoteCall, apply func(ids []string) []string) error {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	if m.Started != nil {
		m.Started <- call
	}
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if m.FailWith != nil {
		if err := m.FailWith(call); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Collections[call.CollectionID] = apply(m.Collections[call.CollectionID])
	return nil
}

func (m *MockRemote) AddTracks(ctx context.Context, collectionID string, trackIDs []string) error {
	call := RemoteCall{Op: "add_tracks", CollectionID: collectionID, TrackIDs: slices.Clone(trackIDs)}
	return m.mutate(ctx, call, func(ids []string) []string {
		return append(ids, trackIDs...)
	})
}

func (m *MockRemote) RemoveTracks(ctx context.Context, collectionID string, trackIDs []string) error {
	call := RemoteCall{Op: "remove_tracks", CollectionID: collectionID, TrackIDs: slices.Clone(trackIDs)}
	return m.mutate(ctx, call, func(ids []string) []string {
		return slices.DeleteFunc(ids, func(id string) bool { return slices.Contains(trackIDs, id) })
	})
}

func (m *MockRemote) Reorder(ctx context.Context, collectionID, trackID string, position int) error {
	call := RemoteCall{Op: "reorder_track", CollectionID: collectionID, TrackID: trackID, Position: position}
	return m.mutate(ctx, call, func(ids []string) []string {
		i := slices.Index(ids, trackID)
		if i < 0 {
			return ids
		}
		ids = slices.Delete(ids, i, i+1)
		return slices.Insert(ids, min(max(position, 0), len(ids)), trackID)
	})
}

func (m *MockRemote) UpdateMetadata(ctx context.Context, collectionID, name, description string) error {
	call := RemoteCall{Op: "update_metadata", CollectionID: collectionID, Name: name, Description: description}
	return m.mutate(ctx, call, func(ids []string) []string { return ids })
}

// Search returns Results[query]. A FailWith error for the query is returned instead when set.
func (m *MockRemote) Search(_ context.Context, query string) ([]models.Candidate, error) {
	call := RemoteCall{Op: "search", Query: query}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	results := m.Results[query]
	m.mu.Unlock()

	if m.FailWith != nil {
		if err := m.FailWith(call); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (m *MockRemote) PlaylistTrackIDs(_ context.Context, collectionID string) ([]string, error) {
	if m.FailWith != nil {
		if err := m.FailWith(RemoteCall{Op: "playlist", CollectionID: collectionID}); err != nil {
			return nil, err
		}
	}
	return m.Collection(collectionID), nil
}

// MockSource is a test double for [services.ExternalSource].
type MockSource struct {
	Name      string
	Playlists map[string]*models.ExternalPlaylist
	Err       error
}

func (m *MockSource) Platform() string { return m.Name }

func (m *MockSource) FetchPlaylist(_ context.Context, id string) (*models.ExternalPlaylist, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Playlists[id]
	if !ok {
		return nil, shared.ErrPlaylistNotFound
	}
	return p, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
