package genres

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/promptlist/internal/shared"
)

// DefaultTTL is how long a fetched vocabulary stays valid.
const DefaultTTL = 24 * time.Hour

// SeedLister fetches the catalog's genre seed vocabulary.
type SeedLister interface {
	GenreSeeds(ctx context.Context) ([]string, error)
}

// SharedCache is a cache tier shared between processes.
//
// Load also reports how long the entry has left to live.
type SharedCache interface {
	Load(ctx context.Context) ([]string, time.Duration, bool)
	Store(ctx context.Context, seeds []string, ttl time.Duration)
}

// Resolver caches the genre seed vocabulary and matches prompt genres onto it.
//
// One Resolver is shared by all generations of a process.
type Resolver struct {
	mu        sync.Mutex
	seeds     []string
	fetchedAt time.Time
	ttl       time.Duration
	now       func() time.Time
	shared    SharedCache
	logger    *log.Logger
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithTTL overrides [DefaultTTL].
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithSharedCache adds a shared tier consulted before the catalog.
func WithSharedCache(c SharedCache) Option {
	return func(r *Resolver) { r.shared = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver with an empty cache.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{ttl: DefaultTTL, now: time.Now, logger: shared.DiscardLogger()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = shared.WithLogger(r.logger, "component", "genres")
	return r
}

// AvailableSeeds returns the cached vocabulary, fetching it through lister when the cache is older than the TTL.
func (r *Resolver) AvailableSeeds(ctx context.Context, lister SeedLister) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if len(r.seeds) > 0 && now.Sub(r.fetchedAt) < r.ttl {
		return r.seeds, nil
	}

	if r.shared != nil {
		if seeds, remaining, ok := r.shared.Load(ctx); ok && len(seeds) > 0 {
			r.seeds, r.fetchedAt = seeds, now
			if remaining > 0 && remaining < r.ttl {
				r.fetchedAt = now.Add(remaining - r.ttl)
			}
			return seeds, nil
		}
	}

	seeds, err := lister.GenreSeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: genre seeds: %v", shared.ErrUpstreamUnavailable, err)
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: genre seeds: empty vocabulary", shared.ErrUpstreamUnavailable)
	}

	r.seeds, r.fetchedAt = seeds, now
	if r.shared != nil {
		r.shared.Store(ctx, seeds, r.ttl)
	}
	r.logger.Debug("genre seeds refreshed", "count", len(seeds))
	return seeds, nil
}

// Resolve maps aiGenres onto the seed vocabulary.
//
// When the vocabulary cannot be fetched, the lowercased prompt genres (at most five) are used as-is.
func (r *Resolver) Resolve(ctx context.Context, lister SeedLister, aiGenres []string) []string {
	if len(aiGenres) == 0 {
		return []string{}
	}

	available, err := r.AvailableSeeds(ctx, lister)
	if err != nil {
		r.logger.Warn("using prompt genres without seed matching", "error", err)
		return fallbackGenres(aiGenres)
	}
	return Match(aiGenres, available)
}

// Invalidate drops the in-process vocabulary.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeds = nil
	r.fetchedAt = time.Time{}
}

func fallbackGenres(aiGenres []string) []string {
	out := make([]string, 0, MaxSubstringMatches)
	seen := make(map[string]bool)
	for _, g := range aiGenres {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
		if len(out) == MaxSubstringMatches {
			break
		}
	}
	return out
}
