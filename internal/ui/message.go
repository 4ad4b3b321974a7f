package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgGenerationComplete
)

type generationOutcome struct {
	response *tasks.GenerateResponse
	err      error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(p models.GenerationProgress) Msg {
	return Msg{kind: MsgProgressUpdate, data: p}
}

// generationCompleteMsg is the constructor for [MsgGenerationComplete]
func generationCompleteMsg(resp *tasks.GenerateResponse, err error) Msg {
	return Msg{kind: MsgGenerationComplete, data: generationOutcome{resp, err}}
}
