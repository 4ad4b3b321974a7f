package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/promptlist/internal/tasks"
)

var _ list.Item = trackItem{}

// trackItem wraps [tasks.TrackResult] to implement [list.Item].
type trackItem struct {
	track tasks.TrackResult
}

func (i trackItem) FilterValue() string { return i.track.Name + " " + i.track.Artist }
func (i trackItem) Title() string       { return fmt.Sprintf("%s - %s", i.track.Artist, i.track.Name) }
func (i trackItem) Description() string {
	if i.track.Score > 0 {
		return fmt.Sprintf("%.1f • %s", i.track.Score, i.track.SelectionReason)
	}
	return i.track.SelectionReason
}

func trackItems(tracks []tasks.TrackResult) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t}
	}
	return items
}
