package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/promptlist/internal/analysis"
	"github.com/desertthunder/promptlist/internal/genres"
	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/modes"
	"github.com/desertthunder/promptlist/internal/progress"
	"github.com/desertthunder/promptlist/internal/services"
	"github.com/desertthunder/promptlist/internal/shared"
)

const (
	DefaultTrackCount = 20
	MaxTrackCount     = 500
	addTracksBatch    = 100
	defaultNameLength = 40
)

// GenerateRequest is the input of one generation.
type GenerateRequest struct {
	Prompt           string                 `json:"prompt"`
	Name             string                 `json:"name,omitempty"`
	Description      string                 `json:"description,omitempty"`
	Sources          models.SourceSelection `json:"sources"`
	ProcessingMode   string                 `json:"processingMode,omitempty"`
	TargetTrackCount int                    `json:"targetTrackCount,omitempty"`
	GenerationID     string                 `json:"generationId,omitempty"`
}

// TrackResult is one selected track in a [GenerateResponse].
type TrackResult struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Artist          string             `json:"artist"`
	URI             string             `json:"uri"`
	Score           float64            `json:"score"`
	ScoreDetails    map[string]float64 `json:"scoreDetails"`
	Popularity      int                `json:"popularity"`
	SelectionReason string             `json:"selectionReason"`
}

// PlaylistResult describes the created playlist.
type PlaylistResult struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Tracks      []TrackResult         `json:"tracks"`
	URL         string                `json:"url"`
	AIAnalysis  models.PromptAnalysis `json:"aiAnalysis"`
	GenresUsed  []string              `json:"genresUsed"`
}

// ProcessingStats explains how a generation went.
type ProcessingStats struct {
	Mode                models.ProcessingMode `json:"mode"`
	SelectionMethod     SelectionMethod       `json:"selectionMethod"`
	AudioFeaturesStatus FeatureStatus         `json:"audioFeaturesStatus"`
	AnalysisFallback    bool                  `json:"analysisFallback"`
	TotalCollected      int                   `json:"totalCollected"`
	PoolSize            int                   `json:"poolSize"`
	TracksWithFeatures  int                   `json:"tracksWithFeatures"`
	TracksSelected      int                   `json:"tracksSelected"`
	TracksAdded         int                   `json:"tracksAdded"`
	SourcesUsed         []string              `json:"sourcesUsed"`
	EstimatedSeconds    int                   `json:"estimatedSeconds"`
	WarningLevel        string                `json:"warningLevel"`
	ElapsedSeconds      float64               `json:"elapsedSeconds"`
}

// RefinementData lets a client refine a generation later.
type RefinementData struct {
	PromptAnalysis models.PromptAnalysis `json:"promptAnalysis"`
	PlaylistID     string                `json:"playlistId"`
}

// GenerateResponse is the result of one generation.
type GenerateResponse struct {
	GenerationID    string          `json:"generationId"`
	Playlist        PlaylistResult  `json:"playlist"`
	ProcessingStats ProcessingStats `json:"processingStats"`
	RefinementData  RefinementData  `json:"refinementData"`
}

// RecordSaver persists a summary of finished generations.
type RecordSaver interface {
	Save(ctx context.Context, record *models.GeneratedPlaylist) error
}

// Observer receives generation metrics.
type Observer interface {
	FailureRecorder
	GenerationFinished(mode, method string, elapsed time.Duration)
}

type noopObserver struct{ noopRecorder }

func (noopObserver) GenerationFinished(string, string, time.Duration) {}

// Generator runs the whole pipeline for one request at a time per call: analyze, resolve genres, create the
// playlist, collect, enrich, score, fill and record. Progress is written to the injected store.
type Generator struct {
	analyzer    *analysis.Analyzer
	resolver    *genres.Resolver
	progress    *progress.Store
	scorer      *Scorer
	records     RecordSaver
	observer    Observer
	rngMu       sync.Mutex
	rng         *rand.Rand
	now         func() time.Time
	logger      *log.Logger
	enricherOps []EnricherOption
}

// GeneratorOption configures a [Generator].
type GeneratorOption func(*Generator)

// WithRecords sets where finished generations are saved.
func WithRecords(r RecordSaver) GeneratorOption {
	return func(g *Generator) { g.records = r }
}

// WithObserver sets the metrics sink.
func WithObserver(o Observer) GeneratorOption {
	return func(g *Generator) { g.observer = o }
}

// WithScorer replaces the default keyword-emphasis scorer.
func WithScorer(s *Scorer) GeneratorOption {
	return func(g *Generator) { g.scorer = s }
}

// WithGeneratorRand injects the random source used by playlist sampling.
//
// Each generation samples from its own source seeded from rng, so concurrent generations never share it.
func WithGeneratorRand(rng *rand.Rand) GeneratorOption {
	return func(g *Generator) { g.rng = rng }
}

// WithGeneratorClock injects the clock used for elapsed time.
func WithGeneratorClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// WithGeneratorLogger sets the logger.
func WithGeneratorLogger(l *log.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// WithEnricherOptions passes options to the enricher of every generation.
func WithEnricherOptions(opts ...EnricherOption) GeneratorOption {
	return func(g *Generator) { g.enricherOps = append(g.enricherOps, opts...) }
}

// NewGenerator creates a Generator.
func NewGenerator(analyzer *analysis.Analyzer, resolver *genres.Resolver, store *progress.Store, opts ...GeneratorOption) *Generator {
	g := &Generator{
		analyzer: analyzer,
		resolver: resolver,
		progress: store,
		scorer:   NewScorer(KeywordEmphasis),
		observer: noopObserver{},
		now:      time.Now,
		logger:   shared.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.analyzer == nil {
		g.analyzer = analysis.NewAnalyzer(nil, g.logger)
	}
	if g.resolver == nil {
		g.resolver = genres.NewResolver(genres.WithLogger(g.logger))
	}
	if g.progress == nil {
		g.progress = progress.NewStore()
	}
	g.logger = shared.WithLogger(g.logger, "component", "generator")
	return g
}

// Progress returns the store generations report to.
func (g *Generator) Progress() *progress.Store {
	return g.progress
}

// Generate runs one generation against catalog, which carries the user's credential.
//
// A nil catalog fails with [shared.ErrAuthRequired] and an empty prompt with [shared.ErrValidation], both before
// any side effect. Failing to create the playlist fails with [shared.ErrUpstreamUnavailable], still wrapping the
// catalog error so a rejected credential also matches [shared.ErrAuthRequired]. Every later failure
// degrades the result instead: the playlist is returned even if it ends up empty.
//
// Once validated, a generation runs to completion: cancelling ctx does not stop it, only its values are kept.
func (g *Generator) Generate(ctx context.Context, catalog services.Catalog, req GenerateRequest) (*GenerateResponse, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: no catalog credential", shared.ErrAuthRequired)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", shared.ErrValidation)
	}
	ctx = context.WithoutCancel(ctx)

	started := g.now()
	mode, cfg := modes.Resolve(req.ProcessingMode)
	count := req.TargetTrackCount
	if count <= 0 {
		count = DefaultTrackCount
	}
	count = min(count, MaxTrackCount)

	genID := req.GenerationID
	if genID == "" {
		genID = shared.GenerateID()
	}
	logger := g.logger.With("generation", genID, "mode", mode)

	estimate := modes.EstimateProcessingTime(req.Sources, mode, nil)
	handle := g.progress.Begin(genID, estimate.EstimatedSeconds)
	logger.Info("generation started", "count", count, "sources", req.Sources.Names(), "estimate", estimate.EstimatedSeconds)

	handle.Update(models.StageAnalyzing, 5, "Analyzing your prompt...")
	promptAnalysis, fallback := g.analyzer.Analyze(ctx, prompt)

	handle.Update(models.StageAnalyzing, 10, "Matching genres...")
	seedGenres := g.resolver.Resolve(ctx, catalog, promptAnalysis.Genres)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "AI Playlist: " + shared.Truncate(prompt, defaultNameLength)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = promptAnalysis.Description
	}

	handle.Update(models.StageCreating, 15, "Creating playlist...")
	user, err := catalog.UserProfile(ctx)
	if err != nil {
		g.observer.UpstreamFailure("user_profile")
		logger.Error("cannot read user profile", "error", err)
		return nil, fmt.Errorf("%w: read user profile: %w", shared.ErrUpstreamUnavailable, err)
	}
	shell, err := catalog.CreatePlaylist(ctx, user.ID, name, description, false)
	if err != nil {
		g.observer.UpstreamFailure("create_playlist")
		logger.Error("cannot create playlist", "error", err)
		return nil, fmt.Errorf("%w: create playlist: %w", shared.ErrUpstreamUnavailable, err)
	}
	ph := handle.Promote(shell.ID)
	logger = logger.With("playlist", shell.ID)

	ph.Update(models.StageCollecting, 20, "Collecting tracks...")
	collected := g.collect(ctx, catalog, cfg, ph, CollectRequest{
		Sources:      req.Sources,
		PromptGenres: promptAnalysis.Genres,
		SeedGenres:   seedGenres,
	}, logger)

	ph.Update(models.StageProcessing, 75, "Analyzing audio features...")
	enricher := NewEnricher(catalog, append([]EnricherOption{
		WithEnricherLogger(g.logger),
		WithEnricherFailures(g.observer),
	}, g.enricherOps...)...)
	enriched := enricher.Enrich(ctx, collected.Tracks, cfg.UseAudioFeatures)

	ph.Update(models.StageSelecting, 85, "Selecting the best matches...")
	selection := g.scorer.Select(enriched.Tracks, promptAnalysis, count)

	ph.Update(models.StageFinalizing, 90, fmt.Sprintf("Adding %d tracks...", len(selection.Tracks)))
	added := g.addTracks(ctx, catalog, shell.ID, selection.Tracks, logger)

	ph.Update(models.StageFinalizing, 95, "Saving...")
	g.save(ctx, shell.ID, name, description, prompt, mode, selection, promptAnalysis, logger)

	elapsed := g.now().Sub(started)
	ph.Update(models.StageComplete, 100, "Playlist ready")
	g.observer.GenerationFinished(string(mode), string(selection.Method), elapsed)
	logger.Info("generation finished",
		"selected", len(selection.Tracks), "method", selection.Method, "features", enriched.Status, "elapsed", elapsed)

	tracks := make([]TrackResult, len(selection.Tracks))
	for i, t := range selection.Tracks {
		tracks[i] = TrackResult{
			ID:              t.ID,
			Name:            t.Name,
			Artist:          t.Artist,
			URI:             t.URI,
			Score:           t.Score,
			ScoreDetails:    t.ScoreDetails,
			Popularity:      t.Popularity,
			SelectionReason: t.SelectionReason,
		}
	}

	return &GenerateResponse{
		GenerationID: genID,
		Playlist: PlaylistResult{
			ID:          shell.ID,
			Name:        name,
			Description: description,
			Tracks:      tracks,
			URL:         shell.URL(),
			AIAnalysis:  promptAnalysis,
			GenresUsed:  seedGenres,
		},
		ProcessingStats: ProcessingStats{
			Mode:                mode,
			SelectionMethod:     selection.Method,
			AudioFeaturesStatus: enriched.Status,
			AnalysisFallback:    fallback,
			TotalCollected:      collected.TotalCollected,
			PoolSize:            len(collected.Tracks),
			TracksWithFeatures:  enriched.WithFeatures,
			TracksSelected:      len(selection.Tracks),
			TracksAdded:         added,
			SourcesUsed:         req.Sources.Names(),
			EstimatedSeconds:    estimate.EstimatedSeconds,
			WarningLevel:        estimate.WarningLevel,
			ElapsedSeconds:      elapsed.Seconds(),
		},
		RefinementData: RefinementData{PromptAnalysis: promptAnalysis, PlaylistID: shell.ID},
	}, nil
}

// collect runs the collector while a goroutine maps its events onto the 20..80 band of overall progress.
func (g *Generator) collect(ctx context.Context, catalog services.Catalog, cfg models.ProcessingConfig, ph *progress.PlaylistHandle, req CollectRequest, logger *log.Logger) *CollectResult {
	events := make(chan CollectEvent, 32)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range events {
			ph.Update(models.StageCollecting, 20+ev.Percent*60/100, ev.Message)
		}
	}()

	collector := NewCollector(catalog, cfg,
		WithRand(g.sampleRand()),
		WithCollectorLogger(g.logger),
		WithFailureRecorder(g.observer),
	)
	result, err := collector.Collect(ctx, req, events)
	close(events)
	wg.Wait()

	if err != nil {
		logger.Warn("collection interrupted", "error", err)
		return &CollectResult{SourceCounts: map[string]int{}}
	}
	if len(result.Tracks) == 0 {
		logger.Warn("no tracks collected, playlist stays empty")
	}
	return result
}

// sampleRand returns a random source private to one generation, or nil to let the fetcher seed its own.
func (g *Generator) sampleRand() *rand.Rand {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	if g.rng == nil {
		return nil
	}
	return rand.New(rand.NewPCG(g.rng.Uint64(), g.rng.Uint64()))
}

// addTracks appends tracks in batches of 100 and returns how many were accepted. Failures are logged only.
func (g *Generator) addTracks(ctx context.Context, catalog services.Catalog, playlistID string, tracks []models.CandidateTrack, logger *log.Logger) int {
	added := 0
	for start := 0; start < len(tracks); start += addTracksBatch {
		batch := tracks[start:min(start+addTracksBatch, len(tracks))]
		uris := make([]string, len(batch))
		for i, t := range batch {
			uris[i] = t.URI
		}
		if err := catalog.AddTracksToPlaylist(ctx, playlistID, uris); err != nil {
			g.observer.UpstreamFailure("add_tracks")
			logger.Warn("failed to add tracks to playlist", "batch_start", start, "size", len(batch), "error", err)
			continue
		}
		added += len(batch)
	}
	return added
}

func (g *Generator) save(ctx context.Context, playlistID, name, description, prompt string, mode models.ProcessingMode, selection Selection, pa models.PromptAnalysis, logger *log.Logger) {
	if g.records == nil {
		return
	}

	record := models.NewGeneratedPlaylist(playlistID, name, prompt, mode)
	record.SetDescription(description)
	record.SetSelectionMethod(string(selection.Method))
	record.SetTrackCount(len(selection.Tracks))
	if raw, err := json.Marshal(pa); err == nil {
		record.SetAnalysisJSON(string(raw))
	}

	if err := g.records.Save(ctx, record); err != nil {
		logger.Warn("failed to save generation record", "error", fmt.Errorf("%w: %v", shared.ErrPersistence, err))
	}
}
