package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/promptlist/internal/shared"
	"github.com/desertthunder/promptlist/internal/tasks"
	"github.com/desertthunder/promptlist/internal/ui"
)

const tuiLogPath = "./tmp/promptlist-tui.log"

// runTUI runs req inside the terminal UI and returns its outcome once the user quits.
func (r *Runner) runTUI(ctx context.Context, req tasks.GenerateRequest) (*tasks.GenerateResponse, error) {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.newGenerator(fileLogger), r.catalog, req, r.config.Progress.PollInterval())
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}

	resp, err := model.Result()
	if resp == nil && err == nil {
		return nil, fmt.Errorf("%w: generation cancelled", context.Canceled)
	}
	return resp, err
}
