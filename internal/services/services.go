// package services defines the clients for the external music catalog and the LLM
//
// Spotify Web API, OpenAI-compatible chat completions
package services

import (
	"context"
)

// Catalog is the subset of the music catalog API the generation pipeline depends on.
//
// Every method treats a non-2xx response as an error local to that call.
type Catalog interface {
	// UserProfile retrieves the profile of the credential's owner.
	UserProfile(ctx context.Context) (*SpotifyUser, error)

	// SavedTracks retrieves one page of the user's liked songs (limit ≤ 50).
	SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error)

	// PlaylistTracks retrieves one page of a playlist's items (limit ≤ 100).
	// Items whose track was removed or is unavailable carry a nil Track.
	PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedPlaylistTracks, error)

	// TopTracks retrieves the user's top tracks for one time range (limit ≤ 50).
	TopTracks(ctx context.Context, timeRange TimeRange, limit int) ([]SpotifyTrack, error)

	// Recommendations retrieves tracks seeded by at most five genres and tracks in total.
	Recommendations(ctx context.Context, seedGenres, seedTracks []string, limit int) ([]SpotifyTrack, error)

	// AudioFeatures retrieves audio features for up to 100 tracks; unknown tracks yield nil entries.
	AudioFeatures(ctx context.Context, trackIDs []string) ([]*SpotifyAudioFeatures, error)

	// AudioFeature retrieves the audio features of a single track.
	AudioFeature(ctx context.Context, trackID string) (*SpotifyAudioFeatures, error)

	// GenreSeeds lists the genres accepted as recommendation seeds.
	GenreSeeds(ctx context.Context) ([]string, error)

	// SeveralArtists retrieves up to 50 artists.
	SeveralArtists(ctx context.Context, artistIDs []string) ([]SpotifyArtist, error)

	// CreatePlaylist creates an empty playlist owned by userID.
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*SpotifyPlaylist, error)

	// AddTracksToPlaylist appends up to 100 track URIs to a playlist.
	AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error
}

// Completer sends a single system/user exchange to a chat model and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// TimeRange selects the window of the user's listening history for top tracks.
type TimeRange string

const (
	ShortTerm  TimeRange = "short_term"
	MediumTerm TimeRange = "medium_term"
	LongTerm   TimeRange = "long_term"
)

// TimeRanges lists every [TimeRange] from most to least recent.
var TimeRanges = []TimeRange{ShortTerm, MediumTerm, LongTerm}
