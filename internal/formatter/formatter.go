// Package formatter renders generation results and history as JSON, CSV, Markdown or plain text.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/desertthunder/promptlist/internal/models"
	"github.com/desertthunder/promptlist/internal/shared"
	"github.com/desertthunder/promptlist/internal/tasks"
)

// Format names an output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat normalizes s into a known [Format]. "md" and "txt" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension used when writing f to disk.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatText:
		return "txt"
	default:
		return string(f)
	}
}

// Render converts resp to the given format.
func Render(resp *tasks.GenerateResponse, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ToJSON(resp, true)
	case FormatCSV:
		return ToCSV(resp)
	case FormatMarkdown:
		return ToMarkdown(resp)
	case FormatText:
		return ToText(resp)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// ToJSON marshals resp, indented when pretty is set.
func ToJSON(resp *tasks.GenerateResponse, pretty bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(resp, "", "  ")
	} else {
		data, err = json.Marshal(resp)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ToCSV converts the selected tracks to CSV with columns: Position, ID, Name, Artist, URI, Score, Popularity, Reason
func ToCSV(resp *tasks.GenerateResponse) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Name", "Artist", "URI", "Score", "Popularity", "Reason"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range resp.Playlist.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.ID,
			track.Name,
			track.Artist,
			track.URI,
			strconv.FormatFloat(track.Score, 'f', 2, 64),
			strconv.Itoa(track.Popularity),
			track.SelectionReason,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts resp to a Markdown document with a stats section and a numbered track list.
func ToMarkdown(resp *tasks.GenerateResponse) ([]byte, error) {
	var buf bytes.Buffer
	pl := resp.Playlist
	stats := resp.ProcessingStats

	fmt.Fprintf(&buf, "# %s\n\n", pl.Name)
	if pl.Description != "" {
		fmt.Fprintf(&buf, "%s\n\n", pl.Description)
	}
	if pl.URL != "" {
		fmt.Fprintf(&buf, "[Open in Spotify](%s)\n\n", pl.URL)
	}

	buf.WriteString("## Generation\n\n")
	fmt.Fprintf(&buf, "- **Mode**: %s\n", stats.Mode)
	fmt.Fprintf(&buf, "- **Selection**: %s\n", stats.SelectionMethod)
	fmt.Fprintf(&buf, "- **Audio features**: %s (%d of %d tracks)\n", stats.AudioFeaturesStatus, stats.TracksWithFeatures, stats.PoolSize)
	fmt.Fprintf(&buf, "- **Collected**: %d tracks from %s\n", stats.TotalCollected, joinOr(stats.SourcesUsed, "no sources"))
	if len(pl.GenresUsed) > 0 {
		fmt.Fprintf(&buf, "- **Genres**: %s\n", strings.Join(pl.GenresUsed, ", "))
	}
	fmt.Fprintf(&buf, "- **Elapsed**: %.1fs (estimated %ds)\n\n", stats.ElapsedSeconds, stats.EstimatedSeconds)

	fmt.Fprintf(&buf, "## Tracks (%d)\n\n", len(pl.Tracks))
	for i, track := range pl.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s", i+1, track.Artist, track.Name)
		if track.SelectionReason != "" {
			fmt.Fprintf(&buf, " _%s_", track.SelectionReason)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ToText converts resp to plain text.
func ToText(resp *tasks.GenerateResponse) ([]byte, error) {
	var buf bytes.Buffer
	pl := resp.Playlist

	fmt.Fprintf(&buf, "Playlist: %s\n", pl.Name)
	if pl.URL != "" {
		fmt.Fprintf(&buf, "URL: %s\n", pl.URL)
	}
	fmt.Fprintf(&buf, "Selection: %s, audio features %s\n", resp.ProcessingStats.SelectionMethod, resp.ProcessingStats.AudioFeaturesStatus)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(pl.Tracks))

	for i, track := range pl.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s (%s)\n", i+1, track.Artist, track.Name, track.SelectionReason)
	}

	return buf.Bytes(), nil
}

// Write renders resp in format and writes it to w.
func Write(w io.Writer, resp *tasks.GenerateResponse, format Format) error {
	data, err := Render(resp, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteFile renders resp in format to path.
//
// Defaults to {playlistID}_playlist.{ext} when path is empty. Returns the path written.
func WriteFile(resp *tasks.GenerateResponse, format Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_playlist.%s", resp.Playlist.ID, format.Extension())
	}

	data, err := Render(resp, format)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriteHistory writes summaries to w as an aligned table, or as JSON when format is [FormatJSON].
func WriteHistory(w io.Writer, summaries []models.GenerationSummary, format Format) error {
	if format == FormatJSON {
		data, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tMODE\tTRACKS\tMETHOD\tPLAYLIST\tPROMPT")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			s.CreatedAt.Format("2006-01-02 15:04"), s.Mode, s.TrackCount, s.SelectionMethod, s.PlaylistID, shared.Truncate(s.Prompt, 40))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
