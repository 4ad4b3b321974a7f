// package progress tracks the pollable state of in-flight playlist generations
//
// A generation starts under its generation id ([Store.Begin]) and is re-keyed to the catalog playlist id
// once the playlist exists ([ProvisionalHandle.Promote]). The generation id stays resolvable as an alias.
package progress

import (
	"math"
	"sync"
	"time"

	"github.com/desertthunder/promptlist/internal/models"
)

const (
	// DefaultCompletedTTL is how long a completed generation stays readable.
	DefaultCompletedTTL = time.Hour
	// DefaultStaleTTL evicts generations that stopped reporting.
	DefaultStaleTTL = 24 * time.Hour

	initialProgress = 5
	initialMessage  = "Preparing playlist generation..."
)

// Default is returned for keys the store does not know.
func Default() models.GenerationProgress {
	return models.GenerationProgress{
		Stage:    models.StageInitializing,
		Progress: initialProgress,
		Message:  initialMessage,
	}
}

type record struct {
	state       models.GenerationProgress
	estimate    float64
	startedAt   time.Time
	updatedAt   time.Time
	completedAt time.Time
}

// Store holds generation progress keyed by generation id and, once promoted, by playlist id.
type Store struct {
	mu           sync.Mutex
	records      map[string]*record
	aliases      map[string]string
	now          func() time.Time
	completedTTL time.Duration
	staleTTL     time.Duration
}

// Option configures a [Store].
type Option func(*Store)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCompletedTTL overrides [DefaultCompletedTTL].
func WithCompletedTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.completedTTL = ttl
		}
	}
}

// WithStaleTTL overrides [DefaultStaleTTL].
func WithStaleTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.staleTTL = ttl
		}
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		records:      make(map[string]*record),
		aliases:      make(map[string]string),
		now:          time.Now,
		completedTTL: DefaultCompletedTTL,
		staleTTL:     DefaultStaleTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin starts tracking generationID with the given total estimate, replacing any previous record under that key.
func (s *Store) Begin(generationID string, estimatedSeconds int) *ProvisionalHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	delete(s.aliases, generationID)
	s.records[generationID] = &record{
		state:     Default(),
		estimate:  float64(estimatedSeconds),
		startedAt: now,
		updatedAt: now,
	}
	return &ProvisionalHandle{store: s, key: generationID}
}

// Get returns the progress stored under key, which may be a playlist id or a generation id.
//
// Unknown or expired keys yield [Default]. Get never fails.
func (s *Store) Get(key string) models.GenerationProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := s.lookup(key)
	if rec == nil || s.expired(rec, now) {
		return Default()
	}

	state := rec.state
	state.RemainingTimeEstimateSeconds = remaining(rec, now)
	return state
}

// Len reports how many generations are tracked.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) lookup(key string) *record {
	if rec, ok := s.records[key]; ok {
		return rec
	}
	if target, ok := s.aliases[key]; ok {
		return s.records[target]
	}
	return nil
}

func (s *Store) update(key string, stage models.Stage, pct int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.records[key]
	if !ok {
		return
	}

	pct = max(0, min(100, pct))
	if stage == models.StageComplete {
		pct = 100
		if rec.completedAt.IsZero() {
			rec.completedAt = now
		}
	}

	rec.state.Stage = stage
	rec.state.Progress = max(rec.state.Progress, pct)
	if message != "" {
		rec.state.Message = message
	}
	rec.updatedAt = now

	s.sweep(now)
}

func (s *Store) promote(from, to string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[from]
	if !ok {
		return false
	}
	delete(s.records, from)
	s.records[to] = rec
	rec.updatedAt = s.now()
	if from != to {
		s.aliases[from] = to
	}
	return true
}

func (s *Store) expired(rec *record, now time.Time) bool {
	if !rec.completedAt.IsZero() && now.Sub(rec.completedAt) > s.completedTTL {
		return true
	}
	return now.Sub(rec.updatedAt) > s.staleTTL
}

// sweep drops expired records and dangling aliases. Callers hold s.mu.
func (s *Store) sweep(now time.Time) {
	for key, rec := range s.records {
		if s.expired(rec, now) {
			delete(s.records, key)
		}
	}
	for alias, target := range s.aliases {
		if _, ok := s.records[target]; !ok {
			delete(s.aliases, alias)
		}
	}
}

// remaining is the estimate minus elapsed time, held at 80% of the estimate until progress reaches 20.
func remaining(rec *record, now time.Time) float64 {
	if rec.state.Stage == models.StageComplete {
		return 0
	}
	elapsed := now.Sub(rec.startedAt).Seconds()
	left := math.Max(0, rec.estimate-elapsed)
	if rec.state.Progress < 20 {
		left = math.Max(left, rec.estimate*0.8)
	}
	return math.Round(left)
}

// ProvisionalHandle reports progress before the target playlist exists.
type ProvisionalHandle struct {
	store *Store
	key   string
}

// Key returns the generation id.
func (h *ProvisionalHandle) Key() string { return h.key }

// Update records a stage transition. Progress never decreases.
func (h *ProvisionalHandle) Update(stage models.Stage, progress int, message string) {
	h.store.update(h.key, stage, progress, message)
}

// Promote re-keys the accumulated progress to playlistID.
//
// The generation id keeps resolving to the same record until it expires.
func (h *ProvisionalHandle) Promote(playlistID string) *PlaylistHandle {
	if !h.store.promote(h.key, playlistID) {
		h.store.Begin(playlistID, 0)
	}
	return &PlaylistHandle{store: h.store, playlistID: playlistID, generationID: h.key}
}

// PlaylistHandle reports progress for a generation whose playlist has been created.
type PlaylistHandle struct {
	store        *Store
	playlistID   string
	generationID string
}

// PlaylistID returns the key the record now lives under.
func (h *PlaylistHandle) PlaylistID() string { return h.playlistID }

// GenerationID returns the provisional key that aliases this record.
func (h *PlaylistHandle) GenerationID() string { return h.generationID }

// Update records a stage transition. Progress never decreases.
func (h *PlaylistHandle) Update(stage models.Stage, progress int, message string) {
	h.store.update(h.playlistID, stage, progress, message)
}
