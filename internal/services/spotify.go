// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/promptlist/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
	IsLocal    bool            `json:"is_local"`
}

// SpotifyArtist represents a Spotify artist. Genres are only populated by the artist endpoints.
type SpotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	URI    string   `json:"uri"`
}

// SpotifyAudioFeatures represents the audio analysis summary of a track.
type SpotifyAudioFeatures struct {
	ID               string  `json:"id"`
	Energy           float64 `json:"energy"`
	Danceability     float64 `json:"danceability"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Public       bool         `json:"public"`
	URI          string       `json:"uri"`
	ExternalURLs externalURLs `json:"external_urls"`
}

// URL returns the web link of the playlist.
func (p SpotifyPlaylist) URL() string {
	if p.ExternalURLs.Spotify != "" {
		return p.ExternalURLs.Spotify
	}
	return "https://open.spotify.com/playlist/" + p.ID
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifySavedTrack `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Next   *string             `json:"next"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylistTracks represents a paginated response of playlist items.
type SpotifyPaginatedPlaylistTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil when the item was removed from the catalog.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyService implements [Catalog] for the Spotify Web API.
type SpotifyService struct {
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
	logger      *log.Logger
}

// NewSpotifyService creates a Spotify client that authenticates every request through ts.
//
// An empty baseURL selects the public API.
func NewSpotifyService(baseURL string, ts oauth2.TokenSource, logger *log.Logger) *SpotifyService {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &SpotifyService{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  oauth2.NewClient(context.Background(), ts),
		maxRetries:  defaultMaxRetries,
		baseBackoff: defaultBackoff,
		logger:      shared.WithLogger(logger, "component", "spotify"),
	}
}

// NewSpotifyServiceWithToken creates a Spotify client for a bearer token supplied by a caller.
func NewSpotifyServiceWithToken(baseURL, accessToken string, logger *log.Logger) *SpotifyService {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return NewSpotifyService(baseURL, ts, logger)
}

// Name returns the service name.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated JSON request to the Spotify API, decoding the response into result when non-nil.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.doRequestWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(method, endpoint, resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SavedTracks retrieves the user's saved tracks with pagination.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SpotifyPaginatedTracks, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(clampLimit(limit, 50)))
	query.Set("offset", strconv.Itoa(max(offset, 0)))

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, http.MethodGet, "/me/tracks", query, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// PlaylistTracks retrieves one page of a playlist's items.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedPlaylistTracks, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id is required", shared.ErrInvalidArgument)
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(clampLimit(limit, 100)))
	query.Set("offset", strconv.Itoa(max(offset, 0)))

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	var response SpotifyPaginatedPlaylistTracks
	if err := s.doRequest(ctx, http.MethodGet, endpoint, query, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// TopTracks retrieves the user's top tracks for timeRange.
func (s *SpotifyService) TopTracks(ctx context.Context, timeRange TimeRange, limit int) ([]SpotifyTrack, error) {
	query := url.Values{}
	query.Set("time_range", string(timeRange))
	query.Set("limit", strconv.Itoa(clampLimit(limit, 50)))

	var response struct {
		Items []SpotifyTrack `json:"items"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/me/top/tracks", query, nil, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}

// Recommendations retrieves tracks seeded by genres and tracks.
func (s *SpotifyService) Recommendations(ctx context.Context, seedGenres, seedTracks []string, limit int) ([]SpotifyTrack, error) {
	if n := len(seedGenres) + len(seedTracks); n == 0 || n > 5 {
		return nil, fmt.Errorf("%w: recommendations need 1 to 5 seeds, got %d", shared.ErrInvalidArgument, n)
	}

	query := url.Values{}
	if len(seedGenres) > 0 {
		query.Set("seed_genres", strings.Join(seedGenres, ","))
	}
	if len(seedTracks) > 0 {
		query.Set("seed_tracks", strings.Join(seedTracks, ","))
	}
	query.Set("limit", strconv.Itoa(clampLimit(limit, 100)))

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/recommendations", query, nil, &response); err != nil {
		return nil, err
	}
	return response.Tracks, nil
}

// AudioFeatures retrieves audio features for several tracks in one request.
func (s *SpotifyService) AudioFeatures(ctx context.Context, trackIDs []string) ([]*SpotifyAudioFeatures, error) {
	if len(trackIDs) == 0 {
		return nil, nil
	}
	if len(trackIDs) > 100 {
		return nil, fmt.Errorf("%w: maximum 100 track IDs allowed", shared.ErrInvalidArgument)
	}

	query := url.Values{}
	query.Set("ids", strings.Join(trackIDs, ","))

	var response struct {
		AudioFeatures []*SpotifyAudioFeatures `json:"audio_features"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/audio-features", query, nil, &response); err != nil {
		return nil, err
	}
	return response.AudioFeatures, nil
}

// AudioFeature retrieves the audio features of one track.
func (s *SpotifyService) AudioFeature(ctx context.Context, trackID string) (*SpotifyAudioFeatures, error) {
	var features SpotifyAudioFeatures
	endpoint := "/audio-features/" + url.PathEscape(trackID)
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, nil, &features); err != nil {
		return nil, err
	}
	return &features, nil
}

// GenreSeeds lists the genres accepted as recommendation seeds.
func (s *SpotifyService) GenreSeeds(ctx context.Context) ([]string, error) {
	var response struct {
		Genres []string `json:"genres"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/recommendations/available-genre-seeds", nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Genres, nil
}

// SeveralArtists retrieves multiple artists by their IDs (up to 50). Unknown ids are skipped.
func (s *SpotifyService) SeveralArtists(ctx context.Context, artistIDs []string) ([]SpotifyArtist, error) {
	if len(artistIDs) == 0 {
		return nil, nil
	}
	if len(artistIDs) > 50 {
		return nil, fmt.Errorf("%w: maximum 50 artist IDs allowed", shared.ErrInvalidArgument)
	}

	query := url.Values{}
	query.Set("ids", strings.Join(artistIDs, ","))

	var response struct {
		Artists []*SpotifyArtist `json:"artists"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/artists", query, nil, &response); err != nil {
		return nil, err
	}

	artists := make([]SpotifyArtist, 0, len(response.Artists))
	for _, a := range response.Artists {
		if a != nil {
			artists = append(artists, *a)
		}
	}
	return artists, nil
}

// CreatePlaylist creates an empty playlist for userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*SpotifyPlaylist, error) {
	if userID == "" || name == "" {
		return nil, fmt.Errorf("%w: user id and name are required", shared.ErrInvalidArgument)
	}

	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, nil, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// AddTracksToPlaylist appends up to 100 track URIs to a playlist.
func (s *SpotifyService) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) > 100 {
		return fmt.Errorf("%w: maximum 100 URIs per request", shared.ErrInvalidArgument)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	body := map[string]any{"uris": uris}
	return s.doRequest(ctx, http.MethodPost, endpoint, nil, body, nil)
}

func clampLimit(limit, ceiling int) int {
	if limit <= 0 {
		return 20
	}
	return min(limit, ceiling)
}
