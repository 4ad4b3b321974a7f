package tasks

import (
	"fmt"
	"sort"
	"strings"
)

var reasonLabels = map[string]string{
	string(Energy):           "strong energy match",
	string(Tempo):            "tempo match",
	string(Danceability):     "danceability match",
	string(Acousticness):     "acoustic feel match",
	string(Valence):          "mood match",
	string(Instrumentalness): "instrumental balance match",
	DetailGenre:              "genre match",
	DetailPopularity:         "popular track",
	DetailPopularityBonus:    "popular track",
}

const fillerReason = "selected to round out the playlist"

// selectionReason describes a track by its two largest score contributions.
func selectionReason(details map[string]float64) string {
	type contribution struct {
		key   string
		value float64
	}

	parts := make([]contribution, 0, len(details))
	for k, v := range details {
		if v > 0 && reasonLabels[k] != "" {
			parts = append(parts, contribution{k, v})
		}
	}
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].value != parts[j].value {
			return parts[i].value > parts[j].value
		}
		return parts[i].key < parts[j].key
	})

	var labels []string
	for _, p := range parts {
		label := reasonLabels[p.key]
		if len(labels) > 0 && labels[0] == label {
			continue
		}
		labels = append(labels, label)
		if len(labels) == 2 {
			break
		}
	}

	if len(labels) == 0 {
		return fillerReason
	}
	return strings.Join(labels, ", ")
}

func popularityReason(popularity int) string {
	return fmt.Sprintf("popular track (popularity %d), audio features unavailable", popularity)
}
