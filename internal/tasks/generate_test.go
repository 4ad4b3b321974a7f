package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/promptlist/internal/analysis"
	"github.com/desertthunder/promptlist/internal/genres"
	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/progress"
	"github.com/desertthunder/promptlist/internal/services"
	"github.com/desertthunder/promptlist/internal/shared"
	tu "github.com/desertthunder/promptlist/internal/testing"
)

const workoutReply = `{
	"genres": ["electronic", "hip-hop"],
	"moods": ["energetic"],
	"energy_range": [0.7, 1.0],
	"tempo_range": [120, 160],
	"danceability_range": [0.6, 1.0],
	"description": "High energy workout mix",
	"filter_logic": "prioritize high energy",
	"popularity_level": "high"
}`

type fakeRecords struct {
	mu    sync.Mutex
	saved []*models.GeneratedPlaylist
	err   error
}

func (f *fakeRecords) Save(ctx context.Context, record *models.GeneratedPlaylist) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, record)
	return nil
}

type fakeObserver struct {
	countingRecorder
	mu       sync.Mutex
	finished []string
}

func (o *fakeObserver) UpstreamFailure(call string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.countingRecorder.UpstreamFailure(call)
}

func (o *fakeObserver) GenerationFinished(mode, method string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, mode+"/"+method)
}

func workoutCatalog(n int) *tu.FakeCatalog {
	catalog := tu.NewFakeCatalog()
	catalog.Seeds = []string{"electronic", "hip-hop", "rock", "work-out"}
	for i := range n {
		id := fmt.Sprintf("t%02d", i)
		catalog.Liked = append(catalog.Liked, tu.Track(id, 40+i%50, "artist"))
		catalog.Features[id] = services.SpotifyAudioFeatures{
			Energy:       float64(i%10) / 10,
			Danceability: 0.7,
			Tempo:        100 + float64(i),
			Valence:      0.6,
		}
	}
	catalog.Artists["artist"] = services.SpotifyArtist{Genres: []string{"electronic"}}
	return catalog
}

// cancelOnCreate cancels the caller's context as soon as the playlist shell exists.
type cancelOnCreate struct {
	*tu.FakeCatalog
	cancel context.CancelFunc
}

func (c cancelOnCreate) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*services.SpotifyPlaylist, error) {
	pl, err := c.FakeCatalog.CreatePlaylist(ctx, userID, name, description, public)
	c.cancel()
	return pl, err
}

func newTestGenerator(records RecordSaver, opts ...GeneratorOption) *Generator {
	completer := &tu.FakeCompleter{Reply: workoutReply}
	base := []GeneratorOption{
		WithRecords(records),
		WithGeneratorRand(testRand()),
		WithEnricherOptions(WithDelays(0, 0)),
	}
	return NewGenerator(
		analysis.NewAnalyzer(completer, nil),
		genres.NewResolver(),
		progress.NewStore(),
		append(base, opts...)...,
	)
}

func workoutRequest() GenerateRequest {
	return GenerateRequest{
		Prompt:           "upbeat workout songs",
		Sources:          models.SourceSelection{UseLikedSongs: true},
		ProcessingMode:   "quick",
		TargetTrackCount: 20,
	}
}

func TestGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("Quick workout generation", func(t *testing.T) {
		catalog := workoutCatalog(60)
		records := &fakeRecords{}
		observer := &fakeObserver{}
		gen := newTestGenerator(records, WithObserver(observer))

		req := workoutRequest()
		req.GenerationID = "gen-1"
		resp, err := gen.Generate(ctx, catalog, req)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if n := len(resp.Playlist.Tracks); n == 0 || n > 20 {
			t.Errorf("expected between 1 and 20 tracks, got %d", n)
		}
		if resp.ProcessingStats.Mode != models.ModeQuick {
			t.Errorf("expected quick mode, got %s", resp.ProcessingStats.Mode)
		}
		for _, tr := range resp.Playlist.Tracks {
			if tr.SelectionReason == "" {
				t.Errorf("track %s has no selection reason", tr.ID)
			}
		}

		stats := resp.ProcessingStats
		if stats.SelectionMethod != MethodFeatures || stats.AudioFeaturesStatus != FeaturesAvailable {
			t.Errorf("unexpected method %s / status %s", stats.SelectionMethod, stats.AudioFeaturesStatus)
		}
		if stats.TotalCollected != 50 || stats.PoolSize != 50 || stats.TracksAdded != len(resp.Playlist.Tracks) {
			t.Errorf("unexpected stats %+v", stats)
		}
		if stats.AnalysisFallback {
			t.Error("expected the model analysis to be used")
		}

		if resp.Playlist.ID != "pl1" || resp.RefinementData.PlaylistID != "pl1" {
			t.Errorf("unexpected playlist id %q", resp.Playlist.ID)
		}
		if resp.Playlist.URL != "https://open.spotify.com/playlist/pl1" {
			t.Errorf("unexpected url %q", resp.Playlist.URL)
		}
		if resp.Playlist.Description != "High energy workout mix" {
			t.Errorf("expected analysis description, got %q", resp.Playlist.Description)
		}
		if fmt.Sprint(resp.Playlist.GenresUsed) != "[electronic hip-hop]" {
			t.Errorf("unexpected genres %v", resp.Playlist.GenresUsed)
		}
		if !strings.HasPrefix(resp.Playlist.Name, "AI Playlist: upbeat workout") {
			t.Errorf("unexpected default name %q", resp.Playlist.Name)
		}
		if got := len(catalog.Added["pl1"]); got != len(resp.Playlist.Tracks) {
			t.Errorf("expected %d tracks added, got %d", len(resp.Playlist.Tracks), got)
		}

		for _, key := range []string{"pl1", "gen-1"} {
			p := gen.Progress().Get(key)
			if p.Stage != models.StageComplete || p.Progress != 100 {
				t.Errorf("expected completed progress under %s, got %+v", key, p)
			}
		}

		if len(records.saved) != 1 || records.saved[0].TrackCount() != len(resp.Playlist.Tracks) {
			t.Fatalf("expected one saved record, got %d", len(records.saved))
		}
		if records.saved[0].Mode() != models.ModeQuick || records.saved[0].AnalysisJSON() == "" {
			t.Errorf("unexpected record %+v", records.saved[0])
		}
		if fmt.Sprint(observer.finished) != "[quick/ai_features]" {
			t.Errorf("unexpected observations %v", observer.finished)
		}
	})

	t.Run("Rejects missing credential", func(t *testing.T) {
		_, err := newTestGenerator(nil).Generate(ctx, nil, workoutRequest())
		if !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
	})

	t.Run("Rejects empty prompt before side effects", func(t *testing.T) {
		catalog := workoutCatalog(5)
		req := workoutRequest()
		req.Prompt = "   "

		_, err := newTestGenerator(nil).Generate(ctx, catalog, req)
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
		if catalog.CallCount(tu.CallCreatePlaylist) != 0 || catalog.CallCount(tu.CallGenreSeeds) != 0 {
			t.Error("expected no catalog calls")
		}
	})

	t.Run("Fails when the playlist cannot be created", func(t *testing.T) {
		catalog := workoutCatalog(5)
		catalog.Errors[tu.CallCreatePlaylist] = errors.New("forbidden")

		_, err := newTestGenerator(nil).Generate(ctx, catalog, workoutRequest())
		if !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
		}
		if catalog.CallCount(tu.CallSavedTracks) != 0 {
			t.Error("expected collection not to start")
		}
	})

	t.Run("Reports a rejected credential as auth required", func(t *testing.T) {
		catalog := workoutCatalog(5)
		catalog.Errors[tu.CallUserProfile] = &services.APIError{Method: "GET", Endpoint: "/me", StatusCode: 401}

		_, err := newTestGenerator(nil).Generate(ctx, catalog, workoutRequest())
		if !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
		if !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Errorf("expected ErrUpstreamUnavailable too, got %v", err)
		}
		var apiErr *services.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 {
			t.Errorf("expected the catalog error in the chain, got %v", err)
		}
	})

	t.Run("Runs to completion after the caller cancels", func(t *testing.T) {
		reqCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		catalog := workoutCatalog(30)
		gen := newTestGenerator(nil)

		req := workoutRequest()
		req.GenerationID = "gen-cancel"
		resp, err := gen.Generate(reqCtx, cancelOnCreate{FakeCatalog: catalog, cancel: cancel}, req)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if reqCtx.Err() == nil {
			t.Fatal("expected the caller context to be cancelled")
		}
		n := len(resp.Playlist.Tracks)
		if n == 0 || n > 20 || resp.ProcessingStats.TotalCollected != 30 {
			t.Errorf("expected a filled playlist, got %d tracks from %d collected", n, resp.ProcessingStats.TotalCollected)
		}
		if got := catalog.Added[resp.Playlist.ID]; len(got) != n {
			t.Errorf("expected %d tracks added, got %d", n, len(got))
		}
		if p := gen.Progress().Get(resp.Playlist.ID); p.Stage != models.StageComplete || p.Progress != 100 {
			t.Errorf("unexpected final progress %+v", p)
		}
	})

	t.Run("Degrades to popularity without audio features", func(t *testing.T) {
		catalog := workoutCatalog(30)
		catalog.Errors[tu.CallAudioFeatures] = errors.New("forbidden")
		catalog.Errors[tu.CallAudioFeature] = errors.New("forbidden")

		resp, err := newTestGenerator(nil).Generate(ctx, catalog, workoutRequest())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.ProcessingStats.AudioFeaturesStatus != FeaturesUnavailable || resp.ProcessingStats.SelectionMethod != MethodPopularity {
			t.Errorf("unexpected stats %+v", resp.ProcessingStats)
		}
		tracks := resp.Playlist.Tracks
		if len(tracks) != 20 {
			t.Fatalf("expected 20 tracks, got %d", len(tracks))
		}
		for i := 1; i < len(tracks); i++ {
			if tracks[i].Popularity > tracks[i-1].Popularity {
				t.Fatalf("expected popularity order, got %d after %d", tracks[i].Popularity, tracks[i-1].Popularity)
			}
		}
	})

	t.Run("Creates an empty playlist when nothing is collected", func(t *testing.T) {
		catalog := workoutCatalog(0)

		resp, err := newTestGenerator(nil).Generate(ctx, catalog, workoutRequest())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(resp.Playlist.Tracks) != 0 || resp.Playlist.ID == "" {
			t.Errorf("expected empty created playlist, got %+v", resp.Playlist)
		}
		if catalog.CallCount(tu.CallAddTracks) != 0 {
			t.Error("expected no add tracks call")
		}
	})

	t.Run("Succeeds when adding tracks and saving fail", func(t *testing.T) {
		catalog := workoutCatalog(10)
		catalog.Errors[tu.CallAddTracks] = errors.New("rate limited")
		records := &fakeRecords{err: errors.New("disk full")}

		resp, err := newTestGenerator(records).Generate(ctx, catalog, workoutRequest())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(resp.Playlist.Tracks) != 10 || resp.ProcessingStats.TracksAdded != 0 {
			t.Errorf("expected 10 selected and none added, got %d/%d", len(resp.Playlist.Tracks), resp.ProcessingStats.TracksAdded)
		}
	})

	t.Run("Falls back to the default analysis", func(t *testing.T) {
		catalog := workoutCatalog(10)
		gen := NewGenerator(
			analysis.NewAnalyzer(&tu.FakeCompleter{Err: errors.New("timeout")}, nil),
			genres.NewResolver(),
			progress.NewStore(),
			WithEnricherOptions(WithDelays(0, 0)),
		)

		resp, err := gen.Generate(ctx, catalog, workoutRequest())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !resp.ProcessingStats.AnalysisFallback || len(resp.Playlist.GenresUsed) != 0 {
			t.Errorf("expected default analysis, got %+v", resp.Playlist.AIAnalysis)
		}
	})

	t.Run("Applies request defaults", func(t *testing.T) {
		catalog := workoutCatalog(30)
		req := GenerateRequest{
			Prompt:         strings.Repeat("long prompt ", 10),
			Sources:        models.SourceSelection{UseLikedSongs: true},
			ProcessingMode: "turbo",
			Name:           "",
		}

		resp, err := newTestGenerator(nil).Generate(ctx, catalog, req)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.ProcessingStats.Mode != models.ModeStandard {
			t.Errorf("expected standard mode, got %s", resp.ProcessingStats.Mode)
		}
		if len(resp.Playlist.Tracks) != DefaultTrackCount {
			t.Errorf("expected %d tracks, got %d", DefaultTrackCount, len(resp.Playlist.Tracks))
		}
		if got := []rune(strings.TrimPrefix(resp.Playlist.Name, "AI Playlist: ")); len(got) > 40 {
			t.Errorf("expected name suffix of at most 40 runes, got %q", resp.Playlist.Name)
		}
		if resp.GenerationID == "" {
			t.Error("expected a generated id")
		}
	})

	t.Run("Concurrent generations share an injected random source", func(t *testing.T) {
		catalog := workoutCatalog(0)
		for i := range 120 {
			id := fmt.Sprintf("p%03d", i)
			tr := tu.Track(id, i%100, "artist")
			catalog.Playlists["big"] = append(catalog.Playlists["big"], &tr)
		}
		gen := newTestGenerator(nil)

		var wg sync.WaitGroup
		errs := make(chan error, 4)
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := workoutRequest()
				req.ProcessingMode = "standard"
				req.Sources = models.SourceSelection{Playlists: []string{"big"}}
				resp, err := gen.Generate(ctx, catalog, req)
				if err == nil && resp.ProcessingStats.PoolSize != 50 {
					err = fmt.Errorf("expected a sampled pool of 50, got %d", resp.ProcessingStats.PoolSize)
				}
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Error(err)
			}
		}
	})
}
