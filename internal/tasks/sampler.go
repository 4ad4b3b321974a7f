package tasks

import (
	"math/rand/v2"
	"slices"
	"sort"
	"strings"

	"github.com/desertthunder/promptlist/internal/models"
)

// relevantShare of a sample is taken by score; the rest is drawn at random from the remainder.
const relevantShare = 0.7

// SampleByRelevance picks n tracks from a playlist that is much larger than n.
//
// Tracks are ranked by relevance (+2 per prompt genre matching a derived genre exactly, +1 per substring match,
// plus popularity/100*0.5). The top 70% of n are kept and the remaining slots are filled by uniform sampling
// without replacement from the rest.
func SampleByRelevance(tracks []models.CandidateTrack, promptGenres []string, n int, rng *rand.Rand) []models.CandidateTrack {
	if n <= 0 {
		return []models.CandidateTrack{}
	}
	if len(tracks) <= n {
		return append([]models.CandidateTrack(nil), tracks...)
	}

	wanted := lowerAll(promptGenres)
	order := make([]int, len(tracks))
	scores := make([]float64, len(tracks))
	for i, t := range tracks {
		order[i] = i
		scores[i] = relevance(t, wanted)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	keep := int(float64(n) * relevantShare)
	sample := make([]models.CandidateTrack, 0, n)
	for _, idx := range order[:keep] {
		sample = append(sample, tracks[idx])
	}

	rest := order[keep:]
	for _, pick := range rng.Perm(len(rest))[:n-keep] {
		sample = append(sample, tracks[rest[pick]])
	}
	return sample
}

func relevance(t models.CandidateTrack, promptGenres []string) float64 {
	derived := lowerAll(t.ExtractedGenres)
	score := float64(t.Popularity) / 100 * 0.5
	for _, g := range promptGenres {
		switch {
		case slices.Contains(derived, g):
			score += 2
		case containsPartial(derived, g):
			score++
		}
	}
	return score
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsPartial(genres []string, g string) bool {
	for _, d := range genres {
		if strings.Contains(d, g) || strings.Contains(g, d) {
			return true
		}
	}
	return false
}
