// package formatter renders now playing snapshots and listening history as text, CSV and Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/nowplaying/internal/models"
)

const (
	playingGlyph = "▶"
	pausedGlyph  = "⏸"
)

// FormatDuration renders d as m:ss, or h:mm:ss past an hour. Negative durations render as 0:00.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// TrackLine renders "Artist - Title (Album)".
func TrackLine(t models.Track) string {
	var b strings.Builder
	if artist := t.Artist(); artist != "" {
		b.WriteString(artist)
		b.WriteString(" - ")
	}
	b.WriteString(t.Title)
	if t.Album != "" {
		fmt.Fprintf(&b, " (%s)", t.Album)
	}
	return b.String()
}

// NowPlayingLine renders a single status line, e.g. "▶ Artist - Title (Album) [1:02/3:45]".
func NowPlayingLine(np models.NowPlaying) string {
	glyph := pausedGlyph
	if np.IsPlaying {
		glyph = playingGlyph
	}
	return fmt.Sprintf("%s %s [%s/%s]", glyph, TrackLine(np.Track),
		FormatDuration(np.Progress()), FormatDuration(np.Track.Duration()))
}

// Progress renders a progress bar of width cells followed by the elapsed and total time.
func Progress(np models.NowPlaying, width int) string {
	if width < 1 {
		width = 1
	}

	filled := 0
	if total := np.Track.DurationMS; total > 0 {
		filled = min(width, max(0, np.ProgressMS*width/total))
	}

	return fmt.Sprintf("[%s%s] %s / %s",
		strings.Repeat("#", filled), strings.Repeat("-", width-filled),
		FormatDuration(np.Progress()), FormatDuration(np.Track.Duration()))
}

// PlaysToCSV converts plays to CSV with columns: Sequence, Played At, Track ID, Title, Artists, Album, Duration
func PlaysToCSV(plays []*models.Play) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "Played At", "Track ID", "Title", "Artists", "Album", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, play := range plays {
		track := play.Track()
		record := []string{
			strconv.Itoa(play.Sequence()),
			play.PlayedAt().UTC().Format(time.RFC3339),
			track.ID,
			track.Title,
			track.Artist(),
			track.Album,
			FormatDuration(track.Duration()),
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

// PlaysToMarkdown renders plays as a Markdown list under a "Listening History" heading
func PlaysToMarkdown(plays []*models.Play) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Listening History\n\n")
	fmt.Fprintf(&buf, "**Plays**: %d\n\n", len(plays))

	for _, play := range plays {
		track := play.Track()
		fmt.Fprintf(&buf, "- %s **%s** by %s",
			play.PlayedAt().Local().Format("2006-01-02 15:04"), track.Title, track.Artist())
		if track.Album != "" {
			fmt.Fprintf(&buf, " (_%s_)", track.Album)
		}
		fmt.Fprintf(&buf, " [%s]\n", FormatDuration(track.Duration()))
	}

	return buf.Bytes(), nil
}

// PlaysToText converts plays to plain text, one per line
func PlaysToText(plays []*models.Play) ([]byte, error) {
	var buf bytes.Buffer

	for _, play := range plays {
		fmt.Fprintf(&buf, "%4d. %s  %s\n", play.Sequence(),
			play.PlayedAt().Local().Format("2006-01-02 15:04"), TrackLine(play.Track()))
	}

	return buf.Bytes(), nil
}
