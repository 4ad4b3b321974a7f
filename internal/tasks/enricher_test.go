package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/services"
	tu "github.com/desertthunder/promptlist/internal/testing"
)

type countingRecorder struct {
	calls map[string]int
}

func (r *countingRecorder) UpstreamFailure(call string) {
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[call]++
}

func candidates(n int) []models.CandidateTrack {
	out := make([]models.CandidateTrack, n)
	for i := range out {
		out[i] = models.CandidateTrack{ID: fmt.Sprintf("t%d", i), ArtistIDs: []string{"artist"}}
	}
	return out
}

func newTestEnricher(catalog services.Catalog, opts ...EnricherOption) *Enricher {
	return NewEnricher(catalog, append([]EnricherOption{WithDelays(0, 0)}, opts...)...)
}

func TestEnricher(t *testing.T) {
	ctx := context.Background()
	feature := services.SpotifyAudioFeatures{Energy: 0.8, Danceability: 0.6, Tempo: 128}

	t.Run("Attaches features in batches of 50", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		pool := candidates(120)
		for _, tr := range pool {
			catalog.Features[tr.ID] = feature
		}

		result := newTestEnricher(catalog, WithoutGenres()).Enrich(ctx, pool, true)
		if got := catalog.CallCount(tu.CallAudioFeatures); got != 3 {
			t.Errorf("expected 3 bulk calls, got %d", got)
		}
		if result.WithFeatures != 120 || result.Status != FeaturesAvailable {
			t.Errorf("unexpected result %d/%s", result.WithFeatures, result.Status)
		}
		if result.Tracks[0].Features == nil || result.Tracks[0].Features.Tempo != 128 {
			t.Errorf("expected features on first track, got %+v", result.Tracks[0].Features)
		}
		if pool[0].Features != nil {
			t.Error("expected input pool to stay untouched")
		}
	})

	t.Run("Reports partial coverage and treats all-zero features as missing", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		pool := candidates(3)
		catalog.Features["t0"] = feature
		catalog.Features["t1"] = services.SpotifyAudioFeatures{}

		result := newTestEnricher(catalog, WithoutGenres()).Enrich(ctx, pool, true)
		if result.WithFeatures != 1 || result.Status != FeaturesPartial {
			t.Errorf("unexpected result %d/%s", result.WithFeatures, result.Status)
		}
		if result.Tracks[1].Features != nil {
			t.Error("expected zero features to be dropped")
		}
	})

	t.Run("Falls back to single lookups when the bulk call fails", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.Errors[tu.CallAudioFeatures] = errors.New("bulk down")
		pool := candidates(3)
		catalog.Features["t0"] = feature
		catalog.Features["t2"] = feature
		rec := &countingRecorder{}

		result := newTestEnricher(catalog, WithoutGenres(), WithEnricherFailures(rec)).Enrich(ctx, pool, true)
		if got := catalog.CallCount(tu.CallAudioFeature); got != 3 {
			t.Errorf("expected 3 single lookups, got %d", got)
		}
		if result.WithFeatures != 2 || result.Tracks[1].Features != nil {
			t.Errorf("expected t0 and t2 enriched, got %d", result.WithFeatures)
		}
		if rec.calls["audio_features"] != 1 || rec.calls["audio_feature"] != 1 {
			t.Errorf("unexpected failure counts %v", rec.calls)
		}
	})

	t.Run("Stops after a batch where every lookup fails", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.Errors[tu.CallAudioFeatures] = errors.New("forbidden")
		catalog.Errors[tu.CallAudioFeature] = errors.New("forbidden")
		pool := candidates(120)

		result := newTestEnricher(catalog, WithoutGenres()).Enrich(ctx, pool, true)
		if got := catalog.CallCount(tu.CallAudioFeatures); got != 1 {
			t.Errorf("expected one bulk call before giving up, got %d", got)
		}
		if got := catalog.CallCount(tu.CallAudioFeature); got != 50 {
			t.Errorf("expected 50 single lookups, got %d", got)
		}
		if result.Status != FeaturesUnavailable || len(result.Tracks) != 120 {
			t.Errorf("expected unchanged pool with unavailable status, got %d/%s", len(result.Tracks), result.Status)
		}
		for _, tr := range result.Tracks {
			if tr.Features != nil {
				t.Fatalf("expected no features, got %+v", tr)
			}
		}
	})

	t.Run("Skips lookups when disabled", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		result := newTestEnricher(catalog).Enrich(ctx, candidates(5), false)
		if result.Status != FeaturesDisabled || catalog.CallCount(tu.CallAudioFeatures) != 0 {
			t.Errorf("expected disabled status and no calls, got %s", result.Status)
		}
	})

	t.Run("Derives genres from primary artists", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.Artists["artist"] = services.SpotifyArtist{Genres: []string{"house", "techno"}}

		result := newTestEnricher(catalog).Enrich(ctx, candidates(2), true)
		if fmt.Sprint(result.Tracks[1].ExtractedGenres) != "[house techno]" {
			t.Errorf("unexpected genres %v", result.Tracks[1].ExtractedGenres)
		}
		if catalog.CallCount(tu.CallArtists) != 1 {
			t.Errorf("expected one artist lookup, got %d", catalog.CallCount(tu.CallArtists))
		}
	})

	t.Run("Tolerates artist lookup failure", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.Errors[tu.CallArtists] = errors.New("down")

		result := newTestEnricher(catalog).Enrich(ctx, candidates(2), true)
		if len(result.Tracks) != 2 || result.Tracks[0].ExtractedGenres != nil {
			t.Errorf("unexpected result %+v", result.Tracks)
		}
	})
}
