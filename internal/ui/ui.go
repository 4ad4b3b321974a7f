package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/modes"
	"github.com/desertthunder/promptlist/internal/services"
	"github.com/desertthunder/promptlist/internal/shared"
	"github.com/desertthunder/promptlist/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	GeneratingView ViewState = iota
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	cancel    context.CancelFunc
	view      ViewState
	generator *tasks.Generator
	catalog   services.Catalog
	request   tasks.GenerateRequest
	estimate  modes.Estimate
	pollEvery time.Duration
	width     int
	height    int
	spinner   spinner.Model
	bar       progress.Model
	status    models.GenerationProgress
	response  *tasks.GenerateResponse
	err       error
	trackList list.Model
	help      help.Model
	keys      keyMap
}

// NewModel creates a model that runs req on generator against catalog and polls its progress every pollEvery.
//
// A generation id is assigned to req when missing so progress can be polled before the playlist exists.
func NewModel(ctx context.Context, generator *tasks.Generator, catalog services.Catalog, req tasks.GenerateRequest, pollEvery time.Duration) *Model {
	if req.GenerationID == "" {
		req.GenerationID = shared.GenerateID()
	}
	if pollEvery <= 0 {
		pollEvery = 2 * time.Second
	}
	mode, _ := modes.Resolve(req.ProcessingMode)
	ctx, cancel := context.WithCancel(ctx)

	return &Model{
		ctx:       ctx,
		cancel:    cancel,
		view:      GeneratingView,
		generator: generator,
		catalog:   catalog,
		request:   req,
		estimate:  modes.EstimateProcessingTime(req.Sources, mode, nil),
		pollEvery: pollEvery,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.title.UnsetMarginBottom())),
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		status:    models.GenerationProgress{Stage: models.StageInitializing},
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Result returns the generation outcome once the model has reached [ResultView].
func (m *Model) Result() (*tasks.GenerateResponse, error) {
	return m.response, m.err
}

// Init starts the generation, the spinner and the first progress poll.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.generate(), m.poll())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, min(msg.Width-8, 60))
		if m.view == ResultView {
			m.trackList.SetSize(msg.Width-4, msg.Height-12)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.cancel()
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.help) {
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		if m.view == ResultView && m.err == nil {
			var cmd tea.Cmd
			m.trackList, cmd = m.trackList.Update(msg)
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != GeneratingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			if m.view != GeneratingView {
				return m, nil
			}
			m.status = msg.data.(models.GenerationProgress)
			return m, m.poll()

		case MsgGenerationComplete:
			outcome := msg.data.(generationOutcome)
			m.response, m.err = outcome.response, outcome.err
			m.view = ResultView
			if m.response != nil {
				m.status = models.GenerationProgress{Stage: models.StageComplete, Progress: 100}
				m.trackList = list.New(trackItems(m.response.Playlist.Tracks), list.NewDefaultDelegate(), 0, 0)
				m.trackList.Title = m.response.Playlist.Name
				m.trackList.SetShowHelp(false)
				m.trackList.SetSize(max(m.width-4, 40), max(m.height-12, 10))
			}
			return m, nil
		}
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case GeneratingView:
		return m.renderGenerating()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) generate() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.generator.Generate(m.ctx, m.catalog, m.request)
		return generationCompleteMsg(resp, err)
	}
}

func (m *Model) poll() tea.Cmd {
	id := m.request.GenerationID
	return tea.Tick(m.pollEvery, func(time.Time) tea.Msg {
		return progressUpdateMsg(m.generator.Progress().Get(id))
	})
}

func (m *Model) renderGenerating() string {
	title := styles.title.Render("Generating playlist")
	prompt := fmt.Sprintf("Prompt: %q", shared.Truncate(m.request.Prompt, 60))

	message := m.status.Message
	if message == "" {
		message = "Starting..."
	}

	eta := warningStyle(m.estimate.WarningLevel).Render(fmt.Sprintf("estimated %ds", m.estimate.EstimatedSeconds))
	if m.status.RemainingTimeEstimateSeconds > 0 {
		eta = styles.help.Render(fmt.Sprintf("about %.0fs remaining", m.status.RemainingTimeEstimateSeconds))
	}

	return fmt.Sprintf("%s\n%s\n\n%s %s\n%s\n%s\n\n%s",
		title,
		prompt,
		m.spinner.View(), message,
		m.bar.ViewAs(float64(m.status.Progress)/100),
		eta,
		m.help.View(m.keys),
	)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Generation failed: %v\n\nPress q to quit", m.err))
	}
	if m.response == nil {
		return styles.err.Render("No result available\n\nPress q to quit")
	}

	pl := m.response.Playlist
	stats := m.response.ProcessingStats

	var b strings.Builder
	b.WriteString(styles.ok.Render("✓ Playlist ready"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n", pl.URL)
	fmt.Fprintf(&b, "%d of %d tracks added • %s selection • audio features %s • %.1fs\n",
		stats.TracksAdded, stats.TracksSelected, stats.SelectionMethod, stats.AudioFeaturesStatus, stats.ElapsedSeconds)
	if len(pl.GenresUsed) > 0 {
		fmt.Fprintf(&b, "Genres: %s\n", strings.Join(pl.GenresUsed, ", "))
	}
	if stats.AnalysisFallback {
		b.WriteString(styles.warn.Render("Prompt analysis unavailable, default profile used"))
		b.WriteString("\n")
	}
	if len(pl.Tracks) == 0 {
		b.WriteString(styles.warn.Render("No tracks matched; the playlist was created empty"))
		b.WriteString("\n")
	} else {
		b.WriteString("\n")
		b.WriteString(m.trackList.View())
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
