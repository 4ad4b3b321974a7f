package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/promptlist/internal/formatter"
	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/modes"
	"github.com/desertthunder/promptlist/internal/shared"
	"github.com/desertthunder/promptlist/internal/tasks"
	"github.com/urfave/cli/v3"
)

// parseSources builds the source selection from the shared source flags.
//
// Playlist values may carry a known size as ID=SIZE; sizes are returned separately for the estimator.
func parseSources(cmd *cli.Command) (models.SourceSelection, map[string]int, error) {
	sources := models.SourceSelection{
		UseLikedSongs:      cmd.Bool("liked"),
		UseTopTracks:       cmd.Bool("top"),
		UseRecommendations: cmd.Bool("recommendations"),
	}
	sizes := map[string]int{}

	for _, raw := range cmd.StringSlice("playlist") {
		id, size, hasSize := strings.Cut(strings.TrimSpace(raw), "=")
		if id == "" {
			return sources, nil, fmt.Errorf("%w: empty playlist id in %q", shared.ErrInvalidFlag, raw)
		}
		sources.Playlists = append(sources.Playlists, id)
		if !hasSize {
			continue
		}
		n, err := strconv.Atoi(size)
		if err != nil || n < 0 {
			return sources, nil, fmt.Errorf("%w: playlist size must be a non-negative integer, got %q", shared.ErrInvalidFlag, raw)
		}
		sizes[id] = n
	}

	if sources.Empty() {
		sources.UseLikedSongs = true
	}
	return sources, sizes, nil
}

// Generate runs one generation and prints the result.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	prompt := cmd.String("prompt")
	if prompt == "" {
		prompt = cmd.StringArg("prompt")
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: a prompt is required", shared.ErrInvalidArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		format = formatter.FormatJSON
	}

	sources, _, err := parseSources(cmd)
	if err != nil {
		return err
	}

	req := tasks.GenerateRequest{
		Prompt:           prompt,
		Name:             cmd.String("name"),
		Description:      cmd.String("description"),
		Sources:          sources,
		ProcessingMode:   cmd.String("mode"),
		TargetTrackCount: int(cmd.Int("count")),
		GenerationID:     shared.GenerateID(),
	}

	var resp *tasks.GenerateResponse
	if cmd.Bool("no-tui") {
		resp, err = r.generateWithLogs(ctx, req)
	} else {
		resp, err = r.runTUI(ctx, req)
	}
	if err != nil {
		if errors.Is(err, shared.ErrAuthRequired) {
			return fmt.Errorf("%w (run `promptlist auth login` first)", err)
		}
		return err
	}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteFile(resp, format, path)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Saved to %s\n", written)
	}
	return formatter.Write(r.output, resp, format)
}

// generateWithLogs runs the generation while polling its progress into the log.
func (r *Runner) generateWithLogs(ctx context.Context, req tasks.GenerateRequest) (*tasks.GenerateResponse, error) {
	type outcome struct {
		resp *tasks.GenerateResponse
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		resp, err := r.generator.Generate(ctx, r.catalog, req)
		done <- outcome{resp, err}
	}()

	ticker := time.NewTicker(r.config.Progress.PollInterval())
	defer ticker.Stop()

	last := -1
	for {
		select {
		case out := <-done:
			return out.resp, out.err
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			p := r.progress.Get(req.GenerationID)
			if p.Progress != last {
				last = p.Progress
				r.logger.Info(p.Message, "stage", p.Stage, "progress", p.Progress, "remaining", fmt.Sprintf("%.0fs", p.RemainingTimeEstimateSeconds))
			}
		}
	}
}

// Estimate prints the predicted processing time for the selected sources and mode.
func (r *Runner) Estimate(ctx context.Context, cmd *cli.Command) error {
	sources, sizes, err := parseSources(cmd)
	if err != nil {
		return err
	}
	mode, _ := modes.Resolve(cmd.String("mode"))
	estimate := modes.EstimateProcessingTime(sources, mode, sizes)

	if cmd.Bool("json") {
		return r.writeJSON(estimate, true)
	}
	return r.writePlain("Mode: %s\nSources: %s\nEstimated time: %ds (%s)\n",
		mode, strings.Join(sources.Names(), ", "), estimate.EstimatedSeconds, estimate.WarningLevel)
}

// Modes prints the processing mode catalog.
func (r *Runner) Modes(ctx context.Context, cmd *cli.Command) error {
	entries := modes.All()
	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	r.writePlainHeader("Processing modes")
	for _, e := range entries {
		perPlaylist := "unlimited"
		if e.Config.MaxTracksPerPlaylist > 0 {
			perPlaylist = strconv.Itoa(e.Config.MaxTracksPerPlaylist)
		}
		if err := r.writePlain("%-14s pool %-5d playlists %-4d tracks/playlist %-9s delay %dms relevance %t\n",
			e.Mode, e.Config.TargetPoolSize, e.Config.MaxPlaylists, perPlaylist,
			e.Config.RequestDelayMs, e.Config.PrioritizeByRelevance); err != nil {
			return err
		}
	}
	return nil
}

// History lists recorded generations, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if r.history == nil {
		return fmt.Errorf("%w: no database configured, run `promptlist setup database`", shared.ErrPersistence)
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if mode := cmd.String("mode"); mode != "" {
		parsed, err := models.ParseProcessingMode(mode)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
		criteria["mode"] = string(parsed)
	}

	records, err := r.history.List(criteria)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}

	summaries := make([]models.GenerationSummary, len(records))
	for i, rec := range records {
		summaries[i] = rec.Summary()
	}

	format := formatter.FormatText
	if cmd.Bool("json") {
		format = formatter.FormatJSON
	}
	return formatter.WriteHistory(r.output, summaries, format)
}
