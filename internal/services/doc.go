// Package services implements the clients the generation pipeline uses to reach external systems.
//
// # Catalog Interface
//
// The [Catalog] interface lists the music catalog calls the pipeline needs: profile lookup,
// liked songs, playlist items, top tracks, recommendations, audio features, genre seeds,
// artists, playlist creation and track appends.
//
// # Spotify Implementation
//
// [SpotifyService] implements [Catalog] against the Spotify Web API. Requests are authenticated by an
// [oauth2.Client] so a refreshing token source renews expired tokens transparently.
//
// Requests that fail with 429 or 5xx are retried with exponential backoff, honouring Retry-After.
// Any other non-2xx response becomes an [*APIError], which unwraps to the matching sentinel:
//   - [shared.ErrAuthRequired] : 401
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrRateLimited] : 429 after the last retry
//   - [shared.ErrAPIRequest] : every non-2xx status
//
// # Credential Provider
//
// [TokenProvider] owns the token lifecycle (acquire from configuration, validate, refresh, clear).
// An empty provider reports [shared.ErrAuthRequired] and generation never starts.
//
// # LLM Client
//
// [LLMClient] implements [Completer] for OpenAI-compatible chat completion APIs, asking for a JSON object reply.
package services
