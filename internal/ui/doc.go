// Package ui implements the interactive generation screen using bubbletea's Elm architecture.
//
// The [Model] has two views:
//  1. [GeneratingView] : spinner and progress bar fed by polling the generator's progress store
//  2. [ResultView] : the created playlist, its stats and a scrollable list of the selected tracks
//
// The generation itself runs as a [tea.Cmd]; a second command re-polls progress on every tick until it
// completes, mirroring how a remote client polls the progress endpoint.
package ui
