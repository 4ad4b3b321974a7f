package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/modes"
	"github.com/desertthunder/promptlist/internal/services"
	"github.com/desertthunder/promptlist/internal/shared"
	"github.com/desertthunder/promptlist/internal/tasks"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// CatalogSource returns the catalog to act on for a request's bearer token, which may be empty.
//
// It returns nil when no credential is available.
type CatalogSource func(bearer string) services.Catalog

// HistoryLister lists stored generations, newest first.
type HistoryLister interface {
	List(criteria map[string]any) ([]*models.GeneratedPlaylist, error)
}

// API serves the playlist generation endpoints.
type API struct {
	generator *tasks.Generator
	catalogs  CatalogSource
	history   HistoryLister
	metrics   http.Handler
	logger    *log.Logger
}

// APIOption configures an [API].
type APIOption func(*API)

// WithHistory enables GET /api/playlists/history.
func WithHistory(h HistoryLister) APIOption {
	return func(a *API) { a.history = h }
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) APIOption {
	return func(a *API) { a.metrics = h }
}

// WithAPILogger sets the logger.
func WithAPILogger(l *log.Logger) APIOption {
	return func(a *API) { a.logger = l }
}

// NewAPI creates an API around generator.
func NewAPI(generator *tasks.Generator, catalogs CatalogSource, opts ...APIOption) *API {
	a := &API{
		generator: generator,
		catalogs:  catalogs,
		logger:    shared.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = shared.WithLogger(a.logger, "component", "api")
	return a
}

// Register adds every endpoint to r.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/health", http.HandlerFunc(a.health))
	r.Handle(http.MethodGet, "/api/modes", http.HandlerFunc(a.listModes))
	r.Handle(http.MethodPost, "/api/playlists/estimate", http.HandlerFunc(a.estimate))
	r.Handle(http.MethodPost, "/api/playlists/generate", http.HandlerFunc(a.generate))
	r.Handle(http.MethodGet, "/api/playlists/{playlistID}/progress", http.HandlerFunc(a.progress))
	if a.history != nil {
		r.Handle(http.MethodGet, "/api/playlists/history", http.HandlerFunc(a.listHistory))
	}
	if a.metrics != nil {
		r.Handle(http.MethodGet, "/metrics", a.metrics)
	}
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) listModes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"modes": modes.All()})
}

// EstimateRequest is the body of POST /api/playlists/estimate.
type EstimateRequest struct {
	Sources        models.SourceSelection `json:"sources"`
	ProcessingMode string                 `json:"processingMode"`
	PlaylistSizes  map[string]int         `json:"playlistSizes"`
}

func (a *API) estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	mode, _ := modes.Resolve(req.ProcessingMode)
	writeJSON(w, http.StatusOK, modes.EstimateProcessingTime(req.Sources, mode, req.PlaylistSizes))
}

func (a *API) generate(w http.ResponseWriter, r *http.Request) {
	var req tasks.GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	catalog := a.catalogs(bearerToken(r))
	resp, err := a.generator.Generate(context.WithoutCancel(r.Context()), catalog, req)
	if err != nil {
		a.logger.Warn("generation failed", "error", err)
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// progress answers for either a playlist id or a generation id. Unknown keys read as initializing at 5.
func (a *API) progress(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "playlistID")
	writeJSON(w, http.StatusOK, map[string]any{"progress": a.generator.Progress().Get(key)})
}

func (a *API) listHistory(w http.ResponseWriter, r *http.Request) {
	criteria := map[string]any{"limit": 20}
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeFailure(w, fmt.Errorf("%w: limit must be a positive integer", shared.ErrValidation))
			return
		}
		criteria["limit"] = limit
	}
	if mode := q.Get("mode"); mode != "" {
		criteria["mode"] = mode
	}

	records, err := a.history.List(criteria)
	if err != nil {
		a.logger.Error("failed to list history", "error", err)
		writeFailure(w, err)
		return
	}

	out := make([]models.GenerationSummary, len(records))
	for i, rec := range records {
		out[i] = rec.Summary()
	}
	writeJSON(w, http.StatusOK, map[string]any{"generations": out})
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", shared.ErrValidation, err)
	}
	return nil
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrAPIRequest):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
