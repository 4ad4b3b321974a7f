package tasks

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/services"
	"github.com/desertthunder/promptlist/internal/shared"
	"golang.org/x/time/rate"
)

const (
	likedPageSize    = 50
	topTracksLimit   = 50
	playlistPageSize = 100
	recommendLimit   = 50
	maxSeeds         = 5
	artistBatchSize  = 50
)

// FailureRecorder counts upstream calls that failed and were recovered locally.
type FailureRecorder interface {
	UpstreamFailure(call string)
}

type noopRecorder struct{}

func (noopRecorder) UpstreamFailure(string) {}

// Fetcher reads raw tracks for one source kind at a time, paced by the mode's request delay.
type Fetcher struct {
	catalog  services.Catalog
	config   models.ProcessingConfig
	limiter  *rate.Limiter
	rng      *rand.Rand
	logger   *log.Logger
	failures FailureRecorder
}

// NewFetcher creates a Fetcher for catalog under cfg. Consecutive requests are spaced by cfg.RequestDelayMs.
func NewFetcher(catalog services.Catalog, cfg models.ProcessingConfig, rng *rand.Rand, logger *log.Logger, failures FailureRecorder) *Fetcher {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	if failures == nil {
		failures = noopRecorder{}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Fetcher{
		catalog:  catalog,
		config:   cfg,
		limiter:  newPacer(time.Duration(cfg.RequestDelayMs) * time.Millisecond),
		rng:      rng,
		logger:   shared.WithLogger(logger, "component", "fetcher"),
		failures: failures,
	}
}

// newPacer allows one request immediately and one per delay afterwards. A zero delay never waits.
func newPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// LikedSongs reads the user's liked songs: every page when FetchAllPages is set, otherwise one page of 50.
// A failing page fails the whole source.
func (f *Fetcher) LikedSongs(ctx context.Context) ([]models.CandidateTrack, error) {
	var tracks []models.CandidateTrack
	for offset := 0; ; offset += likedPageSize {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := f.catalog.SavedTracks(ctx, likedPageSize, offset)
		if err != nil {
			f.failures.UpstreamFailure("saved_tracks")
			return nil, fmt.Errorf("%w: liked songs at offset %d: %v", shared.ErrUpstreamUnavailable, offset, err)
		}

		for _, item := range page.Items {
			if t, ok := toCandidate(&item.Track); ok {
				tracks = append(tracks, t)
			}
		}
		f.logger.Debug("liked songs page", "offset", offset, "items", len(page.Items), "total", page.Total)

		if !f.config.FetchAllPages || page.Next == nil || len(page.Items) == 0 {
			return tracks, nil
		}
	}
}

// TopTracks reads the user's top tracks for every time range and merges them, first occurrence winning.
//
// This source is not gated by FetchAllPages. A failing range is skipped; only all ranges failing is an error.
func (f *Fetcher) TopTracks(ctx context.Context) ([]models.CandidateTrack, error) {
	var (
		tracks []models.CandidateTrack
		seen   = make(map[string]bool)
		failed int
	)
	for _, tr := range services.TimeRanges {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		items, err := f.catalog.TopTracks(ctx, tr, topTracksLimit)
		if err != nil {
			failed++
			f.failures.UpstreamFailure("top_tracks")
			f.logger.Warn("top tracks range failed", "range", tr, "error", err)
			continue
		}

		for i := range items {
			t, ok := toCandidate(&items[i])
			if !ok || seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			tracks = append(tracks, t)
		}
	}

	if failed == len(services.TimeRanges) {
		return nil, fmt.Errorf("%w: every top tracks range failed", shared.ErrUpstreamUnavailable)
	}
	return tracks, nil
}

// Recommendations reads tracks seeded by genres first, then by track ids, five seeds at most.
// Without any seed nothing is requested.
func (f *Fetcher) Recommendations(ctx context.Context, seedGenres, seedTracks []string) ([]models.CandidateTrack, error) {
	genres, trackIDs := pickSeeds(seedGenres, seedTracks)
	if len(genres)+len(trackIDs) == 0 {
		return nil, nil
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	items, err := f.catalog.Recommendations(ctx, genres, trackIDs, recommendLimit)
	if err != nil {
		f.failures.UpstreamFailure("recommendations")
		return nil, fmt.Errorf("%w: recommendations: %v", shared.ErrUpstreamUnavailable, err)
	}

	tracks := make([]models.CandidateTrack, 0, len(items))
	for i := range items {
		if t, ok := toCandidate(&items[i]); ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

func pickSeeds(seedGenres, seedTracks []string) ([]string, []string) {
	genres := seedGenres[:min(len(seedGenres), maxSeeds)]
	room := maxSeeds - len(genres)
	trackIDs := seedTracks[:min(len(seedTracks), room)]
	return genres, trackIDs
}

// Playlist reads a playlist: every page when FetchAllPages is set, otherwise one page of 100.
//
// A failing page fails the whole playlist. Removed or local items are dropped. With a nonzero MaxTracksPerPlaylist the result is truncated, or sampled
// by relevance to promptGenres when the playlist holds at least twice that many tracks and the mode prioritizes
// relevance.
func (f *Fetcher) Playlist(ctx context.Context, playlistID string, promptGenres []string) ([]models.CandidateTrack, error) {
	var tracks []models.CandidateTrack
	for offset := 0; ; offset += playlistPageSize {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := f.catalog.PlaylistTracks(ctx, playlistID, playlistPageSize, offset)
		if err != nil {
			f.failures.UpstreamFailure("playlist_tracks")
			return nil, fmt.Errorf("%w: playlist %s at offset %d: %v", shared.ErrUpstreamUnavailable, playlistID, offset, err)
		}

		for _, item := range page.Items {
			if t, ok := toCandidate(item.Track); ok {
				tracks = append(tracks, t)
			}
		}
		f.logger.Debug("playlist page", "playlist", playlistID, "offset", offset, "items", len(page.Items), "total", page.Total)

		if !f.config.FetchAllPages || page.Next == nil || len(page.Items) == 0 {
			break
		}
	}

	limit := f.config.MaxTracksPerPlaylist
	if limit <= 0 || len(tracks) <= limit {
		return tracks, nil
	}

	if f.config.PrioritizeByRelevance && len(tracks) >= 2*limit && len(promptGenres) > 0 {
		deriveGenres(ctx, f.catalog, tracks, f.limiter, f.logger, f.failures)
		return SampleByRelevance(tracks, promptGenres, limit, f.rng), nil
	}
	return tracks[:limit], nil
}

// toCandidate converts a catalog track, rejecting nil, local and id-less tracks.
func toCandidate(t *services.SpotifyTrack) (models.CandidateTrack, bool) {
	if t == nil || t.ID == "" || t.IsLocal {
		return models.CandidateTrack{}, false
	}

	c := models.CandidateTrack{
		ID:         t.ID,
		Name:       t.Name,
		URI:        t.URI,
		DurationMS: t.DurationMS,
		Popularity: t.Popularity,
	}
	if c.URI == "" {
		c.URI = "spotify:track:" + t.ID
	}
	for i, a := range t.Artists {
		if i == 0 {
			c.Artist = a.Name
		}
		if a.ID != "" {
			c.ArtistIDs = append(c.ArtistIDs, a.ID)
		}
	}
	return c, true
}

// deriveGenres fills ExtractedGenres from primary artist metadata, 50 artists per request. Failures leave genres empty.
func deriveGenres(ctx context.Context, catalog services.Catalog, tracks []models.CandidateTrack, limiter *rate.Limiter, logger *log.Logger, failures FailureRecorder) {
	var ids []string
	seen := make(map[string]bool)
	for _, t := range tracks {
		id := t.PrimaryArtistID()
		if id == "" || seen[id] || len(t.ExtractedGenres) > 0 {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	genresByArtist := make(map[string][]string, len(ids))
	for start := 0; start < len(ids); start += artistBatchSize {
		batch := ids[start:min(start+artistBatchSize, len(ids))]
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		artists, err := catalog.SeveralArtists(ctx, batch)
		if err != nil {
			failures.UpstreamFailure("artists")
			logger.Warn("artist genre lookup failed", "batch", len(batch), "error", err)
			continue
		}
		for _, a := range artists {
			genresByArtist[a.ID] = a.Genres
		}
	}

	for i := range tracks {
		if g, ok := genresByArtist[tracks[i].PrimaryArtistID()]; ok && len(tracks[i].ExtractedGenres) == 0 {
			tracks[i].ExtractedGenres = append([]string(nil), g...)
		}
	}
}
