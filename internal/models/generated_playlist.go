package models

import (
	"errors"
	"fmt"
	"time"
)

// GeneratedPlaylist records one completed generation: the catalog playlist it produced and the prompt behind it.
type GeneratedPlaylist struct {
	id              string
	sequence        int
	playlistID      string
	name            string
	description     string
	prompt          string
	mode            ProcessingMode
	selectionMethod string
	trackCount      int
	analysisJSON    string
	createdAt       time.Time
	updatedAt       time.Time
}

// NewGeneratedPlaylist creates a record for the catalog playlist playlistID.
func NewGeneratedPlaylist(playlistID, name, prompt string, mode ProcessingMode) *GeneratedPlaylist {
	now := time.Now()
	return &GeneratedPlaylist{
		playlistID: playlistID,
		name:       name,
		prompt:     prompt,
		mode:       mode,
		createdAt:  now,
		updatedAt:  now,
	}
}

// RestoreGeneratedPlaylist rebuilds a record read from storage.
func RestoreGeneratedPlaylist(
	id string, sequence int, playlistID, name, description, prompt string,
	mode ProcessingMode, selectionMethod string, trackCount int, analysisJSON string,
	createdAt, updatedAt time.Time,
) *GeneratedPlaylist {
	return &GeneratedPlaylist{
		id:              id,
		sequence:        sequence,
		playlistID:      playlistID,
		name:            name,
		description:     description,
		prompt:          prompt,
		mode:            mode,
		selectionMethod: selectionMethod,
		trackCount:      trackCount,
		analysisJSON:    analysisJSON,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func (g *GeneratedPlaylist) ID() string              { return g.id }
func (g *GeneratedPlaylist) Sequence() int           { return g.sequence }
func (g *GeneratedPlaylist) PlaylistID() string      { return g.playlistID }
func (g *GeneratedPlaylist) Name() string            { return g.name }
func (g *GeneratedPlaylist) Description() string     { return g.description }
func (g *GeneratedPlaylist) Prompt() string          { return g.prompt }
func (g *GeneratedPlaylist) Mode() ProcessingMode    { return g.mode }
func (g *GeneratedPlaylist) SelectionMethod() string { return g.selectionMethod }
func (g *GeneratedPlaylist) TrackCount() int         { return g.trackCount }
func (g *GeneratedPlaylist) AnalysisJSON() string    { return g.analysisJSON }
func (g *GeneratedPlaylist) CreatedAt() time.Time    { return g.createdAt }
func (g *GeneratedPlaylist) UpdatedAt() time.Time    { return g.updatedAt }

func (g *GeneratedPlaylist) SetID(id string)             { g.id = id }
func (g *GeneratedPlaylist) SetSequence(seq int)         { g.sequence = seq }
func (g *GeneratedPlaylist) SetName(name string)         { g.name = name }
func (g *GeneratedPlaylist) SetDescription(desc string)  { g.description = desc }
func (g *GeneratedPlaylist) SetSelectionMethod(m string) { g.selectionMethod = m }
func (g *GeneratedPlaylist) SetTrackCount(n int)         { g.trackCount = n }
func (g *GeneratedPlaylist) SetAnalysisJSON(raw string)  { g.analysisJSON = raw }
func (g *GeneratedPlaylist) SetUpdatedAt(t time.Time)    { g.updatedAt = t }

// Validate checks required fields.
func (g *GeneratedPlaylist) Validate() error {
	var errs []error
	if g.id == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if g.playlistID == "" {
		errs = append(errs, errors.New("playlist id is required"))
	}
	if g.prompt == "" {
		errs = append(errs, errors.New("prompt is required"))
	}
	if _, err := ParseProcessingMode(string(g.mode)); err != nil {
		errs = append(errs, err)
	}
	if g.trackCount < 0 {
		errs = append(errs, fmt.Errorf("track count must not be negative, got %d", g.trackCount))
	}
	return errors.Join(errs...)
}

// GenerationSummary is the exported view of a [GeneratedPlaylist].
type GenerationSummary struct {
	ID              string         `json:"id"`
	PlaylistID      string         `json:"playlistId"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	Prompt          string         `json:"prompt"`
	Mode            ProcessingMode `json:"mode"`
	SelectionMethod string         `json:"selectionMethod,omitempty"`
	TrackCount      int            `json:"trackCount"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// Summary returns the exported view of g.
func (g *GeneratedPlaylist) Summary() GenerationSummary {
	return GenerationSummary{
		ID:              g.id,
		PlaylistID:      g.playlistID,
		Name:            g.name,
		Description:     g.description,
		Prompt:          g.prompt,
		Mode:            g.mode,
		SelectionMethod: g.selectionMethod,
		TrackCount:      g.trackCount,
		CreatedAt:       g.createdAt,
	}
}
