package tasks

import "strings"

// Dimension is one audio feature axis the scorer measures.
type Dimension string

const (
	Energy           Dimension = "energy"
	Tempo            Dimension = "tempo"
	Danceability     Dimension = "danceability"
	Acousticness     Dimension = "acousticness"
	Instrumentalness Dimension = "instrumentalness"
	Valence          Dimension = "valence"
)

// Dimensions lists every scored axis in a fixed order.
var Dimensions = []Dimension{Energy, Tempo, Danceability, Acousticness, Valence, Instrumentalness}

// EmphasisClassifier picks the dimension a filter description stresses, if any.
type EmphasisClassifier func(filterLogic string) (Dimension, bool)

var emphasisKeywords = []struct {
	dim      Dimension
	keywords []string
}{
	{Energy, []string{"energy"}},
	{Tempo, []string{"tempo", "bpm"}},
	{Danceability, []string{"dance"}},
	{Acousticness, []string{"acoustic"}},
	{Instrumentalness, []string{"instrument"}},
	{Valence, []string{"valence", "happ"}},
}

// KeywordEmphasis matches keywords case-insensitively; the first dimension in priority order wins.
func KeywordEmphasis(filterLogic string) (Dimension, bool) {
	text := strings.ToLower(filterLogic)
	for _, entry := range emphasisKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.dim, true
			}
		}
	}
	return "", false
}

var secondaries = map[Dimension]Dimension{
	Energy:           Tempo,
	Tempo:            Energy,
	Danceability:     Energy,
	Acousticness:     Valence,
	Instrumentalness: Acousticness,
	Valence:          Energy,
}

const (
	primaryWeight   = 3.0
	secondaryWeight = 1.5
)

// WeightsFor returns the multiplier of every dimension. Without emphasis all weights are 1.
func WeightsFor(emphasis Dimension, ok bool) map[Dimension]float64 {
	weights := make(map[Dimension]float64, len(Dimensions))
	for _, d := range Dimensions {
		weights[d] = 1
	}
	if !ok {
		return weights
	}
	if _, known := weights[emphasis]; !known {
		return weights
	}
	weights[emphasis] = primaryWeight
	if s, has := secondaries[emphasis]; has {
		weights[s] = secondaryWeight
	}
	return weights
}
