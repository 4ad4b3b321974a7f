// package analysis turns a free-text playlist prompt into a [models.PromptAnalysis]
//
// The LLM reply is merged field by field over [Default]; any failure yields [Default] unchanged.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/services"
	"github.com/desertthunder/promptlist/internal/shared"
)

// MaxDescriptionLength bounds [models.PromptAnalysis.Description] in runes.
const MaxDescriptionLength = 100

const instructions = `You are a music curator. Analyze the user's playlist request and describe the music it calls for.
Return ONLY a JSON object with these fields:
- "genres": array of genre names, most relevant first
- "moods": array of mood words
- "energy_range", "danceability_range", "acousticness_range", "instrumentalness_range", "valence_range": [min, max] between 0.0 and 1.0
- "tempo_range": [min, max] in BPM between 0 and 300
- "description": one sentence under 100 characters
- "filter_logic": one sentence naming the most important characteristic (energy, tempo, danceability, acousticness, instrumentalness or valence)
- "popularity_level": one of "high", "medium", "low", "any"`

// Default returns the analysis used when the model cannot be consulted.
func Default() models.PromptAnalysis {
	return models.PromptAnalysis{
		Genres:                []string{},
		Moods:                 []string{"general"},
		EnergyRange:           models.Range{0, 1},
		TempoRange:            models.Range{0, 300},
		DanceabilityRange:     models.Range{0, 1},
		AcousticnessRange:     models.Range{0, 1},
		InstrumentalnessRange: models.Range{0, 1},
		ValenceRange:          models.Range{0, 1},
		Description:           "General playlist based on popular tracks",
		FilterLogic:           "Sort by popularity as fallback",
		PopularityLevel:       models.PopularityMedium,
	}
}

// Analyzer wraps the LLM call.
type Analyzer struct {
	completer services.Completer
	logger    *log.Logger
}

// NewAnalyzer creates an Analyzer. A nil completer makes every analysis the default.
func NewAnalyzer(completer services.Completer, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Analyzer{completer: completer, logger: shared.WithLogger(logger, "component", "analyzer")}
}

// Analyze asks the model to describe prompt. It never fails: fallback reports whether [Default] was returned.
func (a *Analyzer) Analyze(ctx context.Context, prompt string) (analysis models.PromptAnalysis, fallback bool) {
	if a.completer == nil {
		return Default(), true
	}

	reply, err := a.completer.Complete(ctx, instructions, prompt)
	if err != nil {
		a.logger.Warn("prompt analysis failed, using default", "error", err)
		return Default(), true
	}

	analysis, err = Parse(reply)
	if err != nil {
		a.logger.Warn("unusable prompt analysis, using default", "error", err)
		return Default(), true
	}

	a.logger.Debug("prompt analyzed", "genres", analysis.Genres, "filter_logic", analysis.FilterLogic)
	return analysis, false
}

// Parse merges a model reply over [Default], then clamps ranges and bounds the description.
//
// The reply must contain a JSON object. Fields that are missing, null or of the wrong shape keep their default.
func Parse(reply string) (models.PromptAnalysis, error) {
	body := extractObject(reply)
	if body == "" {
		return models.PromptAnalysis{}, fmt.Errorf("%w: no JSON object in reply", shared.ErrLLMResponse)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return models.PromptAnalysis{}, fmt.Errorf("%w: %v", shared.ErrLLMResponse, err)
	}

	result := Default()
	merge := func(key string, dest any) {
		raw, ok := fields[key]
		if !ok || string(raw) == "null" {
			return
		}
		_ = json.Unmarshal(raw, dest)
	}

	var genres, moods []string
	merge("genres", &genres)
	merge("moods", &moods)
	if genres != nil {
		result.Genres = cleanList(genres)
	}
	if moods = cleanList(moods); len(moods) > 0 {
		result.Moods = moods
	}

	ranges := []struct {
		key    string
		target *models.Range
		hi     float64
	}{
		{"energy_range", &result.EnergyRange, 1},
		{"tempo_range", &result.TempoRange, 300},
		{"danceability_range", &result.DanceabilityRange, 1},
		{"acousticness_range", &result.AcousticnessRange, 1},
		{"instrumentalness_range", &result.InstrumentalnessRange, 1},
		{"valence_range", &result.ValenceRange, 1},
	}
	for _, r := range ranges {
		var parsed models.Range
		if raw, ok := fields[r.key]; ok && json.Unmarshal(raw, &parsed) == nil {
			*r.target = parsed
		}
		*r.target = r.target.Clamp(0, r.hi)
	}

	var description, filterLogic, popularity string
	merge("description", &description)
	merge("filter_logic", &filterLogic)
	merge("popularity_level", &popularity)

	if description = strings.TrimSpace(description); description != "" {
		result.Description = shared.Truncate(description, MaxDescriptionLength)
	}
	if filterLogic = strings.TrimSpace(filterLogic); filterLogic != "" {
		result.FilterLogic = filterLogic
	}
	switch p := strings.ToLower(strings.TrimSpace(popularity)); p {
	case models.PopularityHigh, models.PopularityMedium, models.PopularityLow, models.PopularityAny:
		result.PopularityLevel = p
	}

	return result, nil
}

// extractObject returns the outermost {...} span of s, tolerating code fences and surrounding prose.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

