// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/promptlist/internal/services"
	"github.com/desertthunder/promptlist/internal/shared"
)

// Call names understood by [FakeCatalog.Errors].
const (
	CallUserProfile     = "user_profile"
	CallSavedTracks     = "saved_tracks"
	CallPlaylistTracks  = "playlist_tracks"
	CallTopTracks       = "top_tracks"
	CallRecommendations = "recommendations"
	CallAudioFeatures   = "audio_features"
	CallAudioFeature    = "audio_feature"
	CallGenreSeeds      = "genre_seeds"
	CallArtists         = "artists"
	CallCreatePlaylist  = "create_playlist"
	CallAddTracks       = "add_tracks"
)

// FakeCatalog is an in-memory [services.Catalog].
//
// Errors makes every call of the named kind fail. Calls counts invocations per kind.
type FakeCatalog struct {
	mu sync.Mutex

	User        services.SpotifyUser
	Liked       []services.SpotifyTrack
	Top         map[services.TimeRange][]services.SpotifyTrack
	Recommended []services.SpotifyTrack
	Playlists   map[string][]*services.SpotifyTrack
	Features    map[string]services.SpotifyAudioFeatures
	Artists     map[string]services.SpotifyArtist
	Seeds       []string
	Errors      map[string]error

	Calls     map[string]int
	Created   []services.SpotifyPlaylist
	Added     map[string][]string
	SeedsUsed [][]string
}

// NewFakeCatalog creates an empty catalog for user "user1".
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		User:      services.SpotifyUser{ID: "user1", DisplayName: "Test User"},
		Top:       make(map[services.TimeRange][]services.SpotifyTrack),
		Playlists: make(map[string][]*services.SpotifyTrack),
		Features:  make(map[string]services.SpotifyAudioFeatures),
		Artists:   make(map[string]services.SpotifyArtist),
		Errors:    make(map[string]error),
		Calls:     make(map[string]int),
		Added:     make(map[string][]string),
	}
}

// Track builds a catalog track credited to a single artist.
func Track(id string, popularity int, artistID string) services.SpotifyTrack {
	return services.SpotifyTrack{
		ID:         id,
		Name:       "Track " + id,
		Popularity: popularity,
		URI:        "spotify:track:" + id,
		Artists:    []services.SpotifyArtist{{ID: artistID, Name: "Artist " + artistID}},
	}
}

// CallCount returns how often the named call was made.
func (f *FakeCatalog) CallCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[call]
}

func (f *FakeCatalog) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[call]++
	return f.Errors[call]
}

func (f *FakeCatalog) UserProfile(ctx context.Context) (*services.SpotifyUser, error) {
	if err := f.record(CallUserProfile); err != nil {
		return nil, err
	}
	u := f.User
	return &u, nil
}

func (f *FakeCatalog) SavedTracks(ctx context.Context, limit, offset int) (*services.SpotifyPaginatedTracks, error) {
	if err := f.record(CallSavedTracks); err != nil {
		return nil, err
	}
	start, end := window(len(f.Liked), limit, offset)
	page := &services.SpotifyPaginatedTracks{Total: len(f.Liked), Limit: limit, Offset: offset}
	for _, t := range f.Liked[start:end] {
		page.Items = append(page.Items, services.SpotifySavedTrack{Track: t})
	}
	if end < len(f.Liked) {
		next := fmt.Sprintf("offset=%d", end)
		page.Next = &next
	}
	return page, nil
}

func (f *FakeCatalog) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*services.SpotifyPaginatedPlaylistTracks, error) {
	if err := f.record(CallPlaylistTracks); err != nil {
		return nil, err
	}
	items, ok := f.Playlists[playlistID]
	if !ok {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, playlistID)
	}
	start, end := window(len(items), limit, offset)
	page := &services.SpotifyPaginatedPlaylistTracks{Total: len(items), Limit: limit, Offset: offset}
	for _, t := range items[start:end] {
		page.Items = append(page.Items, services.SpotifyPlaylistTrack{Track: t})
	}
	if end < len(items) {
		next := fmt.Sprintf("offset=%d", end)
		page.Next = &next
	}
	return page, nil
}

func (f *FakeCatalog) TopTracks(ctx context.Context, timeRange services.TimeRange, limit int) ([]services.SpotifyTrack, error) {
	if err := f.record(CallTopTracks); err != nil {
		return nil, err
	}
	tracks := f.Top[timeRange]
	return tracks[:min(len(tracks), limit)], nil
}

func (f *FakeCatalog) Recommendations(ctx context.Context, seedGenres, seedTracks []string, limit int) ([]services.SpotifyTrack, error) {
	if err := f.record(CallRecommendations); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.SeedsUsed = append(f.SeedsUsed, append(append([]string(nil), seedGenres...), seedTracks...))
	f.mu.Unlock()
	return f.Recommended[:min(len(f.Recommended), limit)], nil
}

func (f *FakeCatalog) AudioFeatures(ctx context.Context, trackIDs []string) ([]*services.SpotifyAudioFeatures, error) {
	if err := f.record(CallAudioFeatures); err != nil {
		return nil, err
	}
	out := make([]*services.SpotifyAudioFeatures, len(trackIDs))
	for i, id := range trackIDs {
		if feat, ok := f.Features[id]; ok {
			feat.ID = id
			out[i] = &feat
		}
	}
	return out, nil
}

func (f *FakeCatalog) AudioFeature(ctx context.Context, trackID string) (*services.SpotifyAudioFeatures, error) {
	if err := f.record(CallAudioFeature); err != nil {
		return nil, err
	}
	feat, ok := f.Features[trackID]
	if !ok {
		return nil, fmt.Errorf("%w: features for %s", shared.ErrNotFound, trackID)
	}
	feat.ID = trackID
	return &feat, nil
}

func (f *FakeCatalog) GenreSeeds(ctx context.Context) ([]string, error) {
	if err := f.record(CallGenreSeeds); err != nil {
		return nil, err
	}
	return append([]string(nil), f.Seeds...), nil
}

func (f *FakeCatalog) SeveralArtists(ctx context.Context, artistIDs []string) ([]services.SpotifyArtist, error) {
	if err := f.record(CallArtists); err != nil {
		return nil, err
	}
	var out []services.SpotifyArtist
	for _, id := range artistIDs {
		if a, ok := f.Artists[id]; ok {
			a.ID = id
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *FakeCatalog) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*services.SpotifyPlaylist, error) {
	if err := f.record(CallCreatePlaylist); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := services.SpotifyPlaylist{
		ID:          fmt.Sprintf("pl%d", len(f.Created)+1),
		Name:        name,
		Description: description,
		Public:      public,
	}
	p.URI = "spotify:playlist:" + p.ID
	f.Created = append(f.Created, p)
	return &p, nil
}

func (f *FakeCatalog) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	if err := f.record(CallAddTracks); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Added[playlistID] = append(f.Added[playlistID], uris...)
	return nil
}

func window(total, limit, offset int) (int, int) {
	start := min(max(offset, 0), total)
	end := min(start+limit, total)
	return start, end
}

// FakeCompleter is a [services.Completer] returning a canned reply.
type FakeCompleter struct {
	mu sync.Mutex

	Reply string
	Err   error

	Prompts []string
}

func (c *FakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prompts = append(c.Prompts, user)
	if c.Err != nil {
		return "", c.Err
	}
	return c.Reply, nil
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
