package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProcessingMode names a collection depth preset.
type ProcessingMode string

const (
	ModeQuick         ProcessingMode = "quick"
	ModeStandard      ProcessingMode = "standard"
	ModeComprehensive ProcessingMode = "comprehensive"
	ModeComplete      ProcessingMode = "complete"
)

// ParseProcessingMode normalizes s into a known mode.
func ParseProcessingMode(s string) (ProcessingMode, error) {
	switch m := ProcessingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeQuick, ModeStandard, ModeComprehensive, ModeComplete:
		return m, nil
	default:
		return "", fmt.Errorf("unknown processing mode %q", s)
	}
}

// ProcessingConfig bundles the collection limits and pacing of a [ProcessingMode].
//
// MaxTracksPerPlaylist of 0 means unlimited.
type ProcessingConfig struct {
	MaxTracksPerPlaylist  int  `json:"maxTracksPerPlaylist"`
	MaxPlaylists          int  `json:"maxPlaylists"`
	UseAudioFeatures      bool `json:"useAudioFeatures"`
	FetchAllPages         bool `json:"fetchAllPages"`
	RequestDelayMs        int  `json:"requestDelayMs"`
	PrioritizeByRelevance bool `json:"prioritizeByRelevance"`
	TargetPoolSize        int  `json:"targetPoolSize"`
}

// SourceSelection describes which library sources feed one generation request.
type SourceSelection struct {
	UseLikedSongs      bool     `json:"useLikedSongs"`
	UseTopTracks       bool     `json:"useTopTracks"`
	UseRecommendations bool     `json:"useRecommendations"`
	Playlists          []string `json:"playlists"`
}

// PlaylistIDs returns the selected playlist ids with blanks and duplicates removed, in request order.
func (s SourceSelection) PlaylistIDs() []string {
	seen := make(map[string]bool, len(s.Playlists))
	ids := make([]string, 0, len(s.Playlists))
	for _, id := range s.Playlists {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// Empty reports whether no source is selected.
func (s SourceSelection) Empty() bool {
	return !s.UseLikedSongs && !s.UseTopTracks && !s.UseRecommendations && len(s.PlaylistIDs()) == 0
}

// Names lists the selected source kinds, used for stats and logging.
func (s SourceSelection) Names() []string {
	var names []string
	if s.UseLikedSongs {
		names = append(names, "liked_songs")
	}
	if s.UseTopTracks {
		names = append(names, "top_tracks")
	}
	if s.UseRecommendations {
		names = append(names, "recommendations")
	}
	if n := len(s.PlaylistIDs()); n > 0 {
		names = append(names, fmt.Sprintf("playlists:%d", n))
	}
	return names
}

// Range is an inclusive [min, max] interval serialized as a two element JSON array.
type Range [2]float64

// Min returns the lower bound.
func (r Range) Min() float64 { return r[0] }

// Max returns the upper bound.
func (r Range) Max() float64 { return r[1] }

// Mid returns the midpoint of the interval.
func (r Range) Mid() float64 { return (r[0] + r[1]) / 2 }

// Clamp limits both bounds to [lo, hi] and orders them.
func (r Range) Clamp(lo, hi float64) Range {
	clamp := func(v float64) float64 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	a, b := clamp(r[0]), clamp(r[1])
	if a > b {
		a, b = b, a
	}
	return Range{a, b}
}

// UnmarshalJSON accepts [min, max] arrays as well as {"min": x, "max": y} objects.
func (r *Range) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("range needs exactly two values, got %d", len(pair))
		}
		*r = Range{pair[0], pair[1]}
		return nil
	}

	var obj struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid range: %w", err)
	}
	if obj.Min == nil || obj.Max == nil {
		return fmt.Errorf("range object needs min and max")
	}
	*r = Range{*obj.Min, *obj.Max}
	return nil
}

// Popularity levels an analysis may ask for.
const (
	PopularityHigh   = "high"
	PopularityMedium = "medium"
	PopularityLow    = "low"
	PopularityAny    = "any"
)

// PromptAnalysis holds the musical characteristics inferred from a prompt.
type PromptAnalysis struct {
	Genres                []string `json:"genres"`
	Moods                 []string `json:"moods"`
	EnergyRange           Range    `json:"energy_range"`
	TempoRange            Range    `json:"tempo_range"`
	DanceabilityRange     Range    `json:"danceability_range"`
	AcousticnessRange     Range    `json:"acousticness_range"`
	InstrumentalnessRange Range    `json:"instrumentalness_range"`
	ValenceRange          Range    `json:"valence_range"`
	Description           string   `json:"description"`
	FilterLogic           string   `json:"filter_logic"`
	PopularityLevel       string   `json:"popularity_level"`
}

// AudioFeatures are the per-track musical characteristics reported by the catalog.
//
// Tempo is in BPM; every other field is normalized to 0..1.
type AudioFeatures struct {
	Energy           float64 `json:"energy"`
	Danceability     float64 `json:"danceability"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
}

// CandidateTrack is one track in a generation pool.
//
// Features are either entirely present or nil. Score, ScoreDetails and SelectionReason are only set by scoring.
type CandidateTrack struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Artist          string             `json:"artist"`
	ArtistIDs       []string           `json:"-"`
	URI             string             `json:"uri"`
	DurationMS      int                `json:"durationMs"`
	Popularity      int                `json:"popularity"`
	Features        *AudioFeatures     `json:"features,omitempty"`
	ExtractedGenres []string           `json:"extractedGenres,omitempty"`
	Score           float64            `json:"score"`
	ScoreDetails    map[string]float64 `json:"scoreDetails"`
	SelectionReason string             `json:"selectionReason"`
}

// HasFeatures reports whether audio features were attached.
func (t CandidateTrack) HasFeatures() bool {
	return t.Features != nil
}

// PrimaryArtistID returns the id of the first credited artist, if any.
func (t CandidateTrack) PrimaryArtistID() string {
	if len(t.ArtistIDs) == 0 {
		return ""
	}
	return t.ArtistIDs[0]
}

// Stage is a step of the generation state machine.
type Stage string

const (
	StageInitializing Stage = "initializing"
	StageAnalyzing    Stage = "analyzing"
	StageCreating     Stage = "creating"
	StageCollecting   Stage = "collecting"
	StageProcessing   Stage = "processing"
	StageSelecting    Stage = "selecting"
	StageFinalizing   Stage = "finalizing"
	StageComplete     Stage = "complete"
)

// GenerationProgress is the pollable state of one generation.
type GenerationProgress struct {
	Stage                        Stage   `json:"stage"`
	Progress                     int     `json:"progress"`
	Message                      string  `json:"message"`
	RemainingTimeEstimateSeconds float64 `json:"remainingTimeEstimateSeconds"`
}

// Done reports whether a poller can stop.
func (p GenerationProgress) Done() bool {
	return p.Stage == StageComplete || p.Progress >= 100
}
