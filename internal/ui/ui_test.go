package ui

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/promptlist/internal/analysis"
	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/services"
	"github.com/desertthunder/promptlist/internal/tasks"
	tu "github.com/desertthunder/promptlist/internal/testing"
)

func newTestModel(catalog services.Catalog) *Model {
	gen := tasks.NewGenerator(
		analysis.NewAnalyzer(&tu.FakeCompleter{Reply: `{"genres":["rock"],"energy_range":[0.5,1]}`}, nil),
		nil,
		nil,
		tasks.WithGeneratorRand(rand.New(rand.NewPCG(1, 2))),
		tasks.WithEnricherOptions(tasks.WithDelays(0, 0)),
	)
	req := tasks.GenerateRequest{
		Prompt:           "loud rock for driving",
		Sources:          models.SourceSelection{UseLikedSongs: true},
		ProcessingMode:   "quick",
		TargetTrackCount: 3,
	}
	return NewModel(context.Background(), gen, catalog, req, time.Millisecond)
}

func rockCatalog() *tu.FakeCatalog {
	catalog := tu.NewFakeCatalog()
	catalog.Seeds = []string{"rock"}
	for i := range 5 {
		id := fmt.Sprintf("r%d", i)
		catalog.Liked = append(catalog.Liked, tu.Track(id, 50+i, "a"))
		catalog.Features[id] = services.SpotifyAudioFeatures{Energy: 0.9, Tempo: 130}
	}
	return catalog
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel(t *testing.T) {
	t.Run("Assigns a generation id", func(t *testing.T) {
		m := newTestModel(rockCatalog())
		if m.request.GenerationID == "" {
			t.Error("expected a generation id")
		}
		if m.Init() == nil {
			t.Error("expected init commands")
		}
	})

	t.Run("Progress updates keep polling", func(t *testing.T) {
		m := newTestModel(rockCatalog())
		_, cmd := m.Update(progressUpdateMsg(models.GenerationProgress{
			Stage: models.StageCollecting, Progress: 40, Message: "Collecting tracks...",
		}))
		if cmd == nil {
			t.Error("expected another poll")
		}
		if m.status.Progress != 40 || !strings.Contains(m.View(), "Collecting tracks...") {
			t.Errorf("unexpected view %q", m.View())
		}
	})

	t.Run("Runs the generation", func(t *testing.T) {
		catalog := rockCatalog()
		m := newTestModel(catalog)

		msg := m.generate()()
		m.Update(msg)

		resp, err := m.Result()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if m.view != ResultView || len(resp.Playlist.Tracks) != 3 {
			t.Errorf("expected result view with 3 tracks, got view %d and %d tracks", m.view, len(resp.Playlist.Tracks))
		}
		if !strings.Contains(m.View(), "Playlist ready") {
			t.Errorf("unexpected view %q", m.View())
		}

		if _, cmd := m.Update(progressUpdateMsg(models.GenerationProgress{Progress: 10})); cmd != nil {
			t.Error("expected polling to stop after completion")
		}
	})

	t.Run("Shows failures", func(t *testing.T) {
		m := newTestModel(nil)
		m.Update(generationCompleteMsg(nil, errors.New("authentication required")))
		if !strings.Contains(m.View(), "Generation failed: authentication required") {
			t.Errorf("unexpected view %q", m.View())
		}
	})

	t.Run("Quit cancels", func(t *testing.T) {
		m := newTestModel(rockCatalog())
		_, cmd := m.Update(keyPress("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
		if m.ctx.Err() == nil {
			t.Error("expected context to be cancelled")
		}
	})
}
