// package modes holds the processing mode catalog and the processing time estimator
package modes

import (
	"math"

	"github.com/desertthunder/promptlist/internal/models"
)

// DefaultMode is used when a request names no mode or an unknown one.
const DefaultMode = models.ModeStandard

var catalog = map[models.ProcessingMode]models.ProcessingConfig{
	models.ModeQuick: {
		MaxTracksPerPlaylist:  30,
		MaxPlaylists:          5,
		UseAudioFeatures:      true,
		FetchAllPages:         false,
		RequestDelayMs:        50,
		PrioritizeByRelevance: false,
		TargetPoolSize:        200,
	},
	models.ModeStandard: {
		MaxTracksPerPlaylist:  50,
		MaxPlaylists:          10,
		UseAudioFeatures:      true,
		FetchAllPages:         false,
		RequestDelayMs:        100,
		PrioritizeByRelevance: true,
		TargetPoolSize:        500,
	},
	models.ModeComprehensive: {
		MaxTracksPerPlaylist:  100,
		MaxPlaylists:          20,
		UseAudioFeatures:      true,
		FetchAllPages:         true,
		RequestDelayMs:        150,
		PrioritizeByRelevance: true,
		TargetPoolSize:        1000,
	},
	models.ModeComplete: {
		MaxTracksPerPlaylist:  0,
		MaxPlaylists:          50,
		UseAudioFeatures:      true,
		FetchAllPages:         true,
		RequestDelayMs:        200,
		PrioritizeByRelevance: true,
		TargetPoolSize:        5000,
	},
}

var order = []models.ProcessingMode{
	models.ModeQuick,
	models.ModeStandard,
	models.ModeComprehensive,
	models.ModeComplete,
}

// Entry pairs a mode with its configuration.
type Entry struct {
	Mode   models.ProcessingMode   `json:"mode"`
	Config models.ProcessingConfig `json:"config"`
}

// Lookup returns the configuration for mode.
func Lookup(mode models.ProcessingMode) (models.ProcessingConfig, bool) {
	cfg, ok := catalog[mode]
	return cfg, ok
}

// Resolve parses s, falling back to [DefaultMode], and returns the mode with its configuration.
func Resolve(s string) (models.ProcessingMode, models.ProcessingConfig) {
	mode, err := models.ParseProcessingMode(s)
	if err != nil {
		mode = DefaultMode
	}
	return mode, catalog[mode]
}

// All lists every mode from the lightest to the heaviest.
func All() []Entry {
	entries := make([]Entry, 0, len(order))
	for _, m := range order {
		entries = append(entries, Entry{Mode: m, Config: catalog[m]})
	}
	return entries
}

// Warning levels of an [Estimate].
const (
	WarningLow    = "low"
	WarningMedium = "medium"
	WarningHigh   = "high"
)

// Cost model, in seconds.
const (
	baseCost            = 5.0
	likedSongsCost      = 5.0
	topTracksCost       = 3.0
	recommendationsCost = 5.0
	perPlaylistTrack    = 0.05
	perHundredPaged     = 2.0
	perFeatureTrack     = 0.02
	featureTrackCap     = 500
	unknownPlaylistSize = 50
)

// Estimate is the predicted duration of a generation.
type Estimate struct {
	EstimatedSeconds int    `json:"estimatedSeconds"`
	WarningLevel     string `json:"warningLevel"`
}

// EstimateProcessingTime predicts how long collecting from sources under mode takes.
//
// playlistSizes maps playlist ids to their known track counts; unknown playlists count as 50 tracks.
// Only the first MaxPlaylists selected playlists are costed since the collector reads no more.
func EstimateProcessingTime(sources models.SourceSelection, mode models.ProcessingMode, playlistSizes map[string]int) Estimate {
	cfg, ok := catalog[mode]
	if !ok {
		cfg = catalog[DefaultMode]
	}

	total := baseCost
	if sources.UseLikedSongs {
		total += likedSongsCost
	}
	if sources.UseTopTracks {
		total += topTracksCost
	}
	if sources.UseRecommendations {
		total += recommendationsCost
	}

	ids := sources.PlaylistIDs()
	if cfg.MaxPlaylists > 0 && len(ids) > cfg.MaxPlaylists {
		ids = ids[:cfg.MaxPlaylists]
	}
	for _, id := range ids {
		size, known := playlistSizes[id]
		if !known || size < 0 {
			size = unknownPlaylistSize
		}
		read := size
		if cfg.MaxTracksPerPlaylist > 0 && cfg.MaxTracksPerPlaylist < read {
			read = cfg.MaxTracksPerPlaylist
		}
		total += float64(read) * perPlaylistTrack
		if cfg.FetchAllPages {
			total += float64(size) / 100 * perHundredPaged
		}
	}

	if cfg.UseAudioFeatures {
		total += float64(min(cfg.TargetPoolSize, featureTrackCap)) * perFeatureTrack
	}

	seconds := int(math.Ceil(total))
	return Estimate{EstimatedSeconds: seconds, WarningLevel: WarningFor(seconds)}
}

// WarningFor classifies an estimate in seconds.
func WarningFor(seconds int) string {
	switch {
	case seconds <= 60:
		return WarningLow
	case seconds <= 180:
		return WarningMedium
	default:
		return WarningHigh
	}
}
