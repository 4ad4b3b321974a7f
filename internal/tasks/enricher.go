package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/services"
	"github.com/desertthunder/promptlist/internal/shared"
	"golang.org/x/time/rate"
)

const (
	featureBatchSize = 50
	batchDelay       = 100 * time.Millisecond
	singleDelay      = 50 * time.Millisecond
)

// FeatureStatus summarizes how many tracks received audio features.
type FeatureStatus string

const (
	FeaturesAvailable   FeatureStatus = "available"
	FeaturesPartial     FeatureStatus = "partial"
	FeaturesUnavailable FeatureStatus = "unavailable"
	FeaturesDisabled    FeatureStatus = "disabled"
)

// Enrichment is the outcome of one [Enricher.Enrich] call.
type Enrichment struct {
	Tracks       []models.CandidateTrack
	WithFeatures int
	Status       FeatureStatus
}

// Enricher attaches audio features and artist genres to a pool. It never fails:
// lookups that cannot be served leave the affected tracks without features.
type Enricher struct {
	catalog   services.Catalog
	batches   *rate.Limiter
	singles   *rate.Limiter
	logger    *log.Logger
	failures  FailureRecorder
	genres    bool
	batchSize int
}

// EnricherOption configures an [Enricher].
type EnricherOption func(*Enricher)

// WithDelays overrides the pause between batches and between one-by-one lookups.
func WithDelays(batch, single time.Duration) EnricherOption {
	return func(e *Enricher) {
		e.batches = newPacer(batch)
		e.singles = newPacer(single)
	}
}

// WithEnricherLogger sets the logger.
func WithEnricherLogger(l *log.Logger) EnricherOption {
	return func(e *Enricher) { e.logger = l }
}

// WithEnricherFailures sets where failed lookups are counted.
func WithEnricherFailures(r FailureRecorder) EnricherOption {
	return func(e *Enricher) { e.failures = r }
}

// WithoutGenres skips the artist genre lookup.
func WithoutGenres() EnricherOption {
	return func(e *Enricher) { e.genres = false }
}

// NewEnricher creates an Enricher reading from catalog.
func NewEnricher(catalog services.Catalog, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		catalog:   catalog,
		batches:   newPacer(batchDelay),
		singles:   newPacer(singleDelay),
		logger:    shared.DiscardLogger(),
		failures:  noopRecorder{},
		genres:    true,
		batchSize: featureBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = shared.WithLogger(e.logger, "component", "enricher")
	return e
}

// Enrich returns a copy of tracks with features attached where the catalog provides them.
//
// Tracks are requested in batches of 50. When the bulk call for a batch fails every track in it is looked up on
// its own. When a batch yields nothing at all through either path the feature endpoints are considered gone and
// no further batches are requested.
func (e *Enricher) Enrich(ctx context.Context, tracks []models.CandidateTrack, useFeatures bool) Enrichment {
	out := make([]models.CandidateTrack, len(tracks))
	copy(out, tracks)

	if !useFeatures {
		return Enrichment{Tracks: out, Status: FeaturesDisabled}
	}

	withFeatures := 0
	for start := 0; start < len(out); start += e.batchSize {
		batch := out[start:min(start+e.batchSize, len(out))]

		if err := e.batches.Wait(ctx); err != nil {
			e.logger.Warn("enrichment interrupted", "error", err)
			break
		}

		found, ok := e.enrichBatch(ctx, batch)
		withFeatures += found
		if !ok {
			e.logger.Warn("audio features unavailable, skipping remaining batches",
				"batch_start", start, "remaining", len(out)-start-len(batch))
			break
		}
	}

	if e.genres {
		deriveGenres(ctx, e.catalog, out, e.batches, e.logger, e.failures)
	}

	e.logger.Info("enrichment finished", "tracks", len(out), "with_features", withFeatures)
	return Enrichment{Tracks: out, WithFeatures: withFeatures, Status: statusFor(withFeatures, len(out))}
}

// enrichBatch fills features in place. It reports false when neither the bulk call nor any single lookup succeeded.
func (e *Enricher) enrichBatch(ctx context.Context, batch []models.CandidateTrack) (int, bool) {
	ids := make([]string, len(batch))
	for i, t := range batch {
		ids[i] = t.ID
	}

	features, err := e.catalog.AudioFeatures(ctx, ids)
	if err == nil {
		byID := make(map[string]*services.SpotifyAudioFeatures, len(features))
		for _, f := range features {
			if f != nil {
				byID[f.ID] = f
			}
		}
		found := 0
		for i := range batch {
			if f := toFeatures(byID[batch[i].ID]); f != nil {
				batch[i].Features = f
				found++
			}
		}
		e.logger.Debug("feature batch", "size", len(batch), "found", found)
		return found, true
	}

	e.failures.UpstreamFailure("audio_features")
	e.logger.Warn("bulk feature lookup failed, trying tracks one by one", "size", len(batch), "error", err)

	found, answered := 0, 0
	for i := range batch {
		if err := e.singles.Wait(ctx); err != nil {
			return found, answered > 0
		}
		f, err := e.catalog.AudioFeature(ctx, batch[i].ID)
		if err != nil {
			e.failures.UpstreamFailure("audio_feature")
			e.logger.Debug("feature lookup failed", "track", batch[i].ID, "error", err)
			continue
		}
		answered++
		if feat := toFeatures(f); feat != nil {
			batch[i].Features = feat
			found++
		}
	}
	return found, answered > 0
}

// toFeatures converts a catalog record. All-zero records are what the catalog returns for tracks it never analyzed,
// so they count as missing.
func toFeatures(f *services.SpotifyAudioFeatures) *models.AudioFeatures {
	if f == nil {
		return nil
	}
	if f.Energy == 0 && f.Danceability == 0 && f.Acousticness == 0 &&
		f.Instrumentalness == 0 && f.Valence == 0 && f.Tempo == 0 {
		return nil
	}
	return &models.AudioFeatures{
		Energy:           f.Energy,
		Danceability:     f.Danceability,
		Acousticness:     f.Acousticness,
		Instrumentalness: f.Instrumentalness,
		Valence:          f.Valence,
		Tempo:            f.Tempo,
	}
}

func statusFor(withFeatures, total int) FeatureStatus {
	switch {
	case total > 0 && withFeatures == total:
		return FeaturesAvailable
	case withFeatures > 0:
		return FeaturesPartial
	default:
		return FeaturesUnavailable
	}
}
