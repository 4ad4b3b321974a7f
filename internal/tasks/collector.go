package tasks

import (
	"context"
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/services"
	"github.com/desertthunder/promptlist/internal/shared"
)

// CollectRequest describes what one collection reads.
type CollectRequest struct {
	Sources      models.SourceSelection
	PromptGenres []string // genres from the prompt analysis, used for playlist sampling
	SeedGenres   []string // genres resolved onto the seed vocabulary, used for recommendations
}

// CollectResult is the deduplicated, capped pool.
type CollectResult struct {
	Tracks         []models.CandidateTrack
	TotalCollected int            // tracks read before deduplication
	SourceCounts   map[string]int // tracks read per source
	Truncated      bool
}

// Collector runs the fetchers for the selected sources one after another and merges their output.
type Collector struct {
	catalog  services.Catalog
	config   models.ProcessingConfig
	rng      *rand.Rand
	logger   *log.Logger
	failures FailureRecorder
}

// CollectorOption configures a [Collector].
type CollectorOption func(*Collector)

// WithRand injects the random source used by playlist sampling.
func WithRand(rng *rand.Rand) CollectorOption {
	return func(c *Collector) { c.rng = rng }
}

// WithCollectorLogger sets the logger.
func WithCollectorLogger(l *log.Logger) CollectorOption {
	return func(c *Collector) { c.logger = l }
}

// WithFailureRecorder sets where recovered upstream failures are counted.
func WithFailureRecorder(r FailureRecorder) CollectorOption {
	return func(c *Collector) { c.failures = r }
}

// NewCollector creates a Collector for catalog under cfg.
func NewCollector(catalog services.Catalog, cfg models.ProcessingConfig, opts ...CollectorOption) *Collector {
	c := &Collector{catalog: catalog, config: cfg, logger: shared.DiscardLogger(), failures: noopRecorder{}}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = shared.WithLogger(c.logger, "component", "collector")
	return c
}

// Collect reads liked songs, top tracks, recommendations and playlists in that order.
//
// A failing source contributes nothing and is logged. Tracks are deduplicated by id with the first occurrence
// winning, then the pool is truncated to TargetPoolSize. Progress is published on events without blocking.
// Only context cancellation is returned as an error.
func (c *Collector) Collect(ctx context.Context, req CollectRequest, events chan<- CollectEvent) (*CollectResult, error) {
	fetcher := NewFetcher(c.catalog, c.config, c.rng, c.logger, c.failures)
	result := &CollectResult{SourceCounts: make(map[string]int)}

	var raw []models.CandidateTrack
	add := func(source string, tracks []models.CandidateTrack, err error) error {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			c.logger.Warn("source failed, continuing without it", "source", source, "error", err)
			return nil
		}
		raw = append(raw, tracks...)
		result.SourceCounts[source] += len(tracks)
		return nil
	}

	if req.Sources.UseLikedSongs {
		tracks, err := fetcher.LikedSongs(ctx)
		if err := add("liked_songs", tracks, err); err != nil {
			return nil, err
		}
		sendProgress(events, likedSongsEvent(len(tracks)))
	}

	if req.Sources.UseTopTracks {
		tracks, err := fetcher.TopTracks(ctx)
		if err := add("top_tracks", tracks, err); err != nil {
			return nil, err
		}
		sendProgress(events, topTracksEvent(len(tracks)))
	}

	if req.Sources.UseRecommendations {
		seedTracks := make([]string, 0, maxSeeds)
		for _, t := range raw {
			if len(seedTracks) == maxSeeds {
				break
			}
			seedTracks = append(seedTracks, t.ID)
		}
		tracks, err := fetcher.Recommendations(ctx, req.SeedGenres, seedTracks)
		if err := add("recommendations", tracks, err); err != nil {
			return nil, err
		}
		sendProgress(events, recommendationsEvent(len(tracks)))
	}

	playlistIDs := req.Sources.PlaylistIDs()
	if max := c.config.MaxPlaylists; max > 0 && len(playlistIDs) > max {
		c.logger.Info("limiting playlists for mode", "selected", len(playlistIDs), "max", max)
		playlistIDs = playlistIDs[:max]
	}
	if len(playlistIDs) > 0 {
		sendProgress(events, playlistEvent(0, len(playlistIDs), 0))
		for i, id := range playlistIDs {
			tracks, err := fetcher.Playlist(ctx, id, req.PromptGenres)
			if err := add("playlists", tracks, err); err != nil {
				return nil, err
			}
			sendProgress(events, playlistEvent(i+1, len(playlistIDs), len(tracks)))
		}
	}

	result.TotalCollected = len(raw)
	pool := dedupe(raw)
	sendProgress(events, dedupeEvent(len(raw), len(pool)))

	if target := c.config.TargetPoolSize; target > 0 {
		sendProgress(events, capPoolEvent(len(pool), target))
		if len(pool) > target {
			pool = pool[:target]
			result.Truncated = true
		}
	}

	result.Tracks = pool
	sendProgress(events, collectDoneEvent(len(pool)))
	c.logger.Info("collection finished", "collected", result.TotalCollected, "pool", len(pool), "truncated", result.Truncated)
	return result, nil
}

// dedupe keeps the first occurrence of every track id, preserving order.
func dedupe(tracks []models.CandidateTrack) []models.CandidateTrack {
	seen := make(map[string]bool, len(tracks))
	out := make([]models.CandidateTrack, 0, len(tracks))
	for _, t := range tracks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}
