// Package server exposes the playlist generator over HTTP.
//
// [BasicRouter] wraps a chi mux behind the small [Router] interface. [API] registers the JSON endpoints:
//
//	GET  /health
//	GET  /api/modes
//	POST /api/playlists/estimate
//	POST /api/playlists/generate
//	GET  /api/playlists/{playlistID}/progress
//	GET  /api/playlists/history
//	GET  /metrics
//
// Errors are returned as {"error": "..."} with a status derived from the shared sentinel errors.
// [OAuthHandler] serves the one-shot authorization callback used by the auth command.
package server
