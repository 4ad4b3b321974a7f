package tasks

import (
	"math"
	"slices"
	"sort"

	"github.com/desertthunder/promptlist/internal/models"
)

// SelectionMethod names how the final tracks were chosen.
type SelectionMethod string

const (
	MethodFeatures   SelectionMethod = "ai_features"
	MethodPopularity SelectionMethod = "popularity"
)

const (
	dimensionMax     = 10.0
	tempoNorm        = 200.0
	genreExactPoints = 3.0
	genrePartPoints  = 1.5
	genreCap         = 15.0
	popularThreshold = 70
	popularBonus     = 20.0
)

// Score detail keys besides the dimension names.
const (
	DetailGenre           = "genre"
	DetailPopularity      = "popularity"
	DetailPopularityBonus = "popularityBonus"
)

// Selection is the scored, truncated result of [Scorer.Select].
type Selection struct {
	Tracks []models.CandidateTrack
	Method SelectionMethod
}

// Scorer ranks a pool against a prompt analysis.
type Scorer struct {
	classify EmphasisClassifier
}

// NewScorer creates a Scorer. A nil classifier means [KeywordEmphasis].
func NewScorer(classify EmphasisClassifier) *Scorer {
	if classify == nil {
		classify = KeywordEmphasis
	}
	return &Scorer{classify: classify}
}

// FilterTracksByAIAnalysis selects up to maxTracks tracks using keyword emphasis.
func FilterTracksByAIAnalysis(tracks []models.CandidateTrack, analysis models.PromptAnalysis, maxTracks int) []models.CandidateTrack {
	return NewScorer(nil).Select(tracks, analysis, maxTracks).Tracks
}

// Select returns the best maxTracks tracks. The input slice and its tracks are not modified.
//
// Tracks with audio features form the candidate pool; when fewer than 2*maxTracks have them the pool is topped up
// with up to 3*maxTracks of the most popular featureless tracks. When no track has features the whole input is
// ranked by popularity instead.
func (s *Scorer) Select(tracks []models.CandidateTrack, analysis models.PromptAnalysis, maxTracks int) Selection {
	if maxTracks <= 0 {
		return Selection{Tracks: []models.CandidateTrack{}, Method: MethodFeatures}
	}

	var featured, bare []models.CandidateTrack
	for _, t := range tracks {
		if t.HasFeatures() {
			featured = append(featured, t)
		} else {
			bare = append(bare, t)
		}
	}

	if len(featured) == 0 {
		return Selection{Tracks: byPopularity(tracks, maxTracks), Method: MethodPopularity}
	}

	pool := featured
	if len(featured) < 2*maxTracks && len(bare) > 0 {
		extra := make([]models.CandidateTrack, len(bare))
		copy(extra, bare)
		sort.SliceStable(extra, func(i, j int) bool { return extra[i].Popularity > extra[j].Popularity })
		pool = append(pool, extra[:min(len(extra), 3*maxTracks)]...)
	}

	emphasis, ok := s.classify(analysis.FilterLogic)
	weights := WeightsFor(emphasis, ok)
	genres := lowerAll(analysis.Genres)

	scored := make([]models.CandidateTrack, len(pool))
	for i, t := range pool {
		scored[i] = score(t, analysis, weights, genres)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	scored = scored[:min(len(scored), maxTracks)]
	for i := range scored {
		scored[i].SelectionReason = selectionReason(scored[i].ScoreDetails)
	}
	return Selection{Tracks: scored, Method: MethodFeatures}
}

func score(t models.CandidateTrack, analysis models.PromptAnalysis, weights map[Dimension]float64, genres []string) models.CandidateTrack {
	details := make(map[string]float64)
	total := 0.0

	if f := t.Features; f != nil {
		values := map[Dimension]struct {
			value, target float64
			norm          float64
		}{
			Energy:           {f.Energy, analysis.EnergyRange.Mid(), 1},
			Tempo:            {f.Tempo, analysis.TempoRange.Mid(), tempoNorm},
			Danceability:     {f.Danceability, analysis.DanceabilityRange.Mid(), 1},
			Acousticness:     {f.Acousticness, analysis.AcousticnessRange.Mid(), 1},
			Valence:          {f.Valence, analysis.ValenceRange.Mid(), 1},
			Instrumentalness: {f.Instrumentalness, analysis.InstrumentalnessRange.Mid(), 1},
		}
		for _, d := range Dimensions {
			v := values[d]
			contribution := dimensionScore(v.value, v.target, v.norm) * weights[d]
			details[string(d)] = contribution
			total += contribution
		}
	}

	if g := genreScore(t.ExtractedGenres, genres); g > 0 {
		details[DetailGenre] = g
		total += g
	}

	pop := float64(t.Popularity) / 10
	details[DetailPopularity] = pop
	total += pop

	if !t.HasFeatures() && t.Popularity > popularThreshold {
		details[DetailPopularityBonus] = popularBonus
		total += popularBonus
	}

	t.Score = total
	t.ScoreDetails = details
	return t
}

// dimensionScore is 10 at the target and falls linearly to 0 at a distance of norm or more.
func dimensionScore(value, target, norm float64) float64 {
	distance := math.Min(1, math.Abs(value-target)/norm)
	return dimensionMax * (1 - distance)
}

// genreScore awards 3 points per prompt genre found exactly among the track's genres, or 1.5 per
// substring match when nothing matched exactly, capped at 15.
func genreScore(trackGenres, promptGenres []string) float64 {
	if len(trackGenres) == 0 || len(promptGenres) == 0 {
		return 0
	}
	derived := lowerAll(trackGenres)

	exact, partial := 0, 0
	for _, g := range promptGenres {
		if g == "" {
			continue
		}
		if slices.Contains(derived, g) {
			exact++
		} else if containsPartial(derived, g) {
			partial++
		}
	}

	points := float64(exact) * genreExactPoints
	if exact == 0 {
		points = float64(partial) * genrePartPoints
	}
	return math.Min(points, genreCap)
}

// byPopularity ranks a copy of tracks by popularity, most popular first, keeping input order on ties.
func byPopularity(tracks []models.CandidateTrack, maxTracks int) []models.CandidateTrack {
	out := make([]models.CandidateTrack, len(tracks))
	copy(out, tracks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Popularity > out[j].Popularity })
	out = out[:min(len(out), maxTracks)]
	for i := range out {
		out[i].Score = 0
		out[i].ScoreDetails = map[string]float64{}
		out[i].SelectionReason = popularityReason(out[i].Popularity)
	}
	return out
}
