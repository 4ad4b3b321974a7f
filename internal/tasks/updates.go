package tasks

import (
	"fmt"
)

// CollectEvent is a progress event emitted by the [Collector].
//
// Percent is relative to collection (0..100), not to the whole generation.
type CollectEvent struct {
	Phase   Phase  // Collection phase
	Percent int    // Collection progress, non-decreasing
	Count   int    // Tracks gathered so far in this phase
	Message string // Human-readable message for display
}

// Collection phase enumeration
type Phase int

const (
	FetchLiked Phase = iota
	FetchTop
	FetchRecommendations
	FetchPlaylists
	Dedupe
	CapPool
	CollectDone
)

func (p Phase) String() string {
	switch p {
	case FetchLiked:
		return "fetch_liked"
	case FetchTop:
		return "fetch_top"
	case FetchRecommendations:
		return "fetch_recommendations"
	case FetchPlaylists:
		return "fetch_playlists"
	case Dedupe:
		return "dedupe"
	case CapPool:
		return "cap_pool"
	case CollectDone:
		return "done"
	default:
		return ""
	}
}

// sendProgress sends an event through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks collection.
func sendProgress(events chan<- CollectEvent, event CollectEvent) {
	if events == nil {
		return
	}
	select {
	case events <- event:
		// Sent successfully
	default:
		// Channel full, skip this event
	}
}

func likedSongsEvent(count int) CollectEvent {
	return CollectEvent{
		Phase:   FetchLiked,
		Percent: 10,
		Count:   count,
		Message: fmt.Sprintf("Collected %d liked songs", count),
	}
}

func topTracksEvent(count int) CollectEvent {
	return CollectEvent{
		Phase:   FetchTop,
		Percent: 30,
		Count:   count,
		Message: fmt.Sprintf("Collected %d top tracks", count),
	}
}

func recommendationsEvent(count int) CollectEvent {
	return CollectEvent{
		Phase:   FetchRecommendations,
		Percent: 35,
		Count:   count,
		Message: fmt.Sprintf("Collected %d recommendations", count),
	}
}

// playlistEvent reports step of total playlists read, spreading progress over 40..80.
func playlistEvent(step, total, count int) CollectEvent {
	pct := 40
	if total > 0 {
		pct = 40 + 40*step/total
	}
	msg := fmt.Sprintf("Reading playlists (0/%d)...", total)
	if step > 0 {
		msg = fmt.Sprintf("[%d/%d] Read playlist (%d tracks)", step, total, count)
	}
	return CollectEvent{
		Phase:   FetchPlaylists,
		Percent: pct,
		Count:   count,
		Message: msg,
	}
}

func dedupeEvent(before, after int) CollectEvent {
	return CollectEvent{
		Phase:   Dedupe,
		Percent: 85,
		Count:   after,
		Message: fmt.Sprintf("Removed %d duplicates, %d unique tracks", before-after, after),
	}
}

func capPoolEvent(size, target int) CollectEvent {
	msg := fmt.Sprintf("Pool of %d tracks within limit of %d", size, target)
	if size > target {
		msg = fmt.Sprintf("Trimmed pool from %d to %d tracks", size, target)
	}
	return CollectEvent{
		Phase:   CapPool,
		Percent: 90,
		Count:   min(size, target),
		Message: msg,
	}
}

func collectDoneEvent(count int) CollectEvent {
	return CollectEvent{
		Phase:   CollectDone,
		Percent: 100,
		Count:   count,
		Message: fmt.Sprintf("Collected %d candidate tracks", count),
	}
}
