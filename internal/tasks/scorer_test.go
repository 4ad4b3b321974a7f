package tasks

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/desertthunder/promptlist/internal/analysis"
	"github.com/desertthunder/promptlist/internal/models"
)

func featured(id string, popularity int, f models.AudioFeatures) models.CandidateTrack {
	return models.CandidateTrack{ID: id, Popularity: popularity, Features: &f}
}

func workoutAnalysis() models.PromptAnalysis {
	a := analysis.Default()
	a.EnergyRange = models.Range{0.7, 0.9}
	a.TempoRange = models.Range{120, 140}
	a.FilterLogic = "prioritize high energy"
	return a
}

func TestKeywordEmphasis(t *testing.T) {
	tests := []struct {
		logic string
		want  Dimension
		ok    bool
	}{
		{"Prioritize high ENERGY", Energy, true},
		{"fast BPM and high energy", Energy, true},
		{"keep the bpm steady", Tempo, true},
		{"something to dance to", Danceability, true},
		{"mostly acoustic, some instrumental", Acousticness, true},
		{"instrumental focus", Instrumentalness, true},
		{"happy vibes", Valence, true},
		{"balanced selection", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.logic, func(t *testing.T) {
			got, ok := KeywordEmphasis(tt.logic)
			if got != tt.want || ok != tt.ok {
				t.Errorf("KeywordEmphasis(%q) = %q, %v; want %q, %v", tt.logic, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestWeightsFor(t *testing.T) {
	t.Run("Balanced", func(t *testing.T) {
		for d, w := range WeightsFor("", false) {
			if w != 1 {
				t.Errorf("expected weight 1 for %s, got %v", d, w)
			}
		}
	})

	tests := []struct {
		emphasis  Dimension
		secondary Dimension
	}{
		{Energy, Tempo},
		{Tempo, Energy},
		{Danceability, Energy},
		{Acousticness, Valence},
		{Instrumentalness, Acousticness},
		{Valence, Energy},
	}
	for _, tt := range tests {
		t.Run(string(tt.emphasis), func(t *testing.T) {
			weights := WeightsFor(tt.emphasis, true)
			for d, w := range weights {
				want := 1.0
				switch d {
				case tt.emphasis:
					want = 3
				case tt.secondary:
					want = 1.5
				}
				if w != want {
					t.Errorf("weight of %s = %v, want %v", d, w, want)
				}
			}
		})
	}
}

func TestScorer(t *testing.T) {
	t.Run("Closer energy scores strictly higher under energy emphasis", func(t *testing.T) {
		base := models.AudioFeatures{Tempo: 130, Danceability: 0.5, Acousticness: 0.5, Valence: 0.5, Instrumentalness: 0.5}
		near, far := base, base
		near.Energy = 0.8
		far.Energy = 0.4

		got := FilterTracksByAIAnalysis([]models.CandidateTrack{
			featured("far", 50, far),
			featured("close", 50, near),
		}, workoutAnalysis(), 2)

		if got[0].ID != "close" || got[0].Score <= got[1].Score {
			t.Errorf("expected close track first with a higher score, got %s=%v %s=%v", got[0].ID, got[0].Score, got[1].ID, got[1].Score)
		}
		if got[0].ScoreDetails["energy"] != 30 {
			t.Errorf("expected weighted energy of 30, got %v", got[0].ScoreDetails["energy"])
		}
	})

	t.Run("Dimension scores", func(t *testing.T) {
		tests := []struct {
			name                string
			value, target, norm float64
			want                float64
		}{
			{"at target", 0.5, 0.5, 1, 10},
			{"halfway", 0.25, 0.75, 1, 5},
			{"beyond range", 0, 1, 1, 0},
			{"tempo", 100, 150, 200, 7.5},
			{"far tempo", 0, 300, 200, 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if got := dimensionScore(tt.value, tt.target, tt.norm); math.Abs(got-tt.want) > 1e-9 {
					t.Errorf("dimensionScore = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("Genre scores", func(t *testing.T) {
		tests := []struct {
			name   string
			track  []string
			prompt []string
			want   float64
		}{
			{"exact matches", []string{"Rock", "pop"}, []string{"rock", "pop", "jazz"}, 6},
			{"substring only", []string{"indie rock"}, []string{"rock", "indie"}, 3},
			{"exact suppresses substring", []string{"rock", "indie rock"}, []string{"rock", "indie"}, 3},
			{"capped", []string{"a", "b", "c", "d", "e", "f"}, []string{"a", "b", "c", "d", "e", "f"}, 15},
			{"no genres", nil, []string{"rock"}, 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if got := genreScore(tt.track, lowerAll(tt.prompt)); got != tt.want {
					t.Errorf("genreScore = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("Falls back to popularity when nothing has features", func(t *testing.T) {
		pool := []models.CandidateTrack{
			{ID: "a", Popularity: 10},
			{ID: "b", Popularity: 90},
			{ID: "c", Popularity: 50},
			{ID: "d", Popularity: 90},
		}

		sel := NewScorer(nil).Select(pool, workoutAnalysis(), 3)
		if sel.Method != MethodPopularity {
			t.Errorf("expected popularity method, got %s", sel.Method)
		}
		if !equalIDs(sel.Tracks, "b", "d", "c") {
			t.Errorf("unexpected order %v", ids(sel.Tracks))
		}
		for _, tr := range sel.Tracks {
			if tr.SelectionReason == "" {
				t.Errorf("missing reason for %s", tr.ID)
			}
		}
	})

	t.Run("Tops up a small featured pool with popular tracks", func(t *testing.T) {
		pool := []models.CandidateTrack{
			featured("f1", 10, models.AudioFeatures{Energy: 0.8, Tempo: 130}),
			{ID: "hit", Popularity: 95},
			{ID: "obscure", Popularity: 5},
		}

		sel := NewScorer(nil).Select(pool, workoutAnalysis(), 2)
		if sel.Method != MethodFeatures {
			t.Errorf("expected feature method, got %s", sel.Method)
		}
		if !equalIDs(sel.Tracks, "f1", "hit") {
			t.Fatalf("expected analyzed track then popular track, got %v", ids(sel.Tracks))
		}
		if sel.Tracks[1].ScoreDetails[DetailPopularityBonus] != 20 {
			t.Errorf("expected popularity bonus, got %v", sel.Tracks[1].ScoreDetails)
		}
	})

	t.Run("Returns the whole pool when asking for more", func(t *testing.T) {
		pool := []models.CandidateTrack{
			featured("a", 10, models.AudioFeatures{Energy: 0.8}),
			featured("b", 20, models.AudioFeatures{Energy: 0.2}),
			{ID: "c", Popularity: 30},
		}
		sel := NewScorer(nil).Select(pool, workoutAnalysis(), 50)
		if len(sel.Tracks) != 3 {
			t.Errorf("expected all 3 tracks, got %d", len(sel.Tracks))
		}
	})

	t.Run("Is idempotent and leaves input untouched", func(t *testing.T) {
		var pool []models.CandidateTrack
		for i := range 20 {
			pool = append(pool, featured(fmt.Sprintf("t%d", i), i*5, models.AudioFeatures{
				Energy: float64(i%5) / 5, Tempo: 100 + float64(i), Valence: 0.5,
			}))
		}

		first := FilterTracksByAIAnalysis(pool, workoutAnalysis(), 10)
		second := FilterTracksByAIAnalysis(pool, workoutAnalysis(), 10)
		if !reflect.DeepEqual(first, second) {
			t.Error("expected identical results")
		}
		for _, tr := range pool {
			if tr.Score != 0 || tr.ScoreDetails != nil {
				t.Fatalf("input track %s was modified", tr.ID)
			}
		}
	})

	t.Run("Keeps insertion order on ties", func(t *testing.T) {
		f := models.AudioFeatures{Energy: 0.5}
		pool := []models.CandidateTrack{featured("x", 50, f), featured("y", 50, f), featured("z", 50, f)}
		got := FilterTracksByAIAnalysis(pool, workoutAnalysis(), 3)
		if !equalIDs(got, "x", "y", "z") {
			t.Errorf("unexpected order %v", ids(got))
		}
	})

	t.Run("Uses an injected classifier", func(t *testing.T) {
		valence := func(string) (Dimension, bool) { return Valence, true }
		pool := []models.CandidateTrack{featured("a", 0, models.AudioFeatures{Valence: 0.5})}
		sel := NewScorer(valence).Select(pool, workoutAnalysis(), 1)
		if sel.Tracks[0].ScoreDetails["valence"] != 30 {
			t.Errorf("expected tripled valence, got %v", sel.Tracks[0].ScoreDetails)
		}
	})

	t.Run("Zero tracks requested", func(t *testing.T) {
		sel := NewScorer(nil).Select([]models.CandidateTrack{{ID: "a"}}, workoutAnalysis(), 0)
		if len(sel.Tracks) != 0 {
			t.Errorf("expected no tracks, got %d", len(sel.Tracks))
		}
	})
}

func TestSelectionReason(t *testing.T) {
	tests := []struct {
		name    string
		details map[string]float64
		want    string
	}{
		{"top two", map[string]float64{"energy": 30, "genre": 6, "popularity": 2}, "strong energy match, genre match"},
		{"merges popularity labels", map[string]float64{"popularityBonus": 20, "popularity": 9.5}, "popular track"},
		{"empty", map[string]float64{}, fillerReason},
		{"zero contributions", map[string]float64{"popularity": 0}, fillerReason},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectionReason(tt.details); got != tt.want {
				t.Errorf("selectionReason = %q, want %q", got, tt.want)
			}
		})
	}
}
