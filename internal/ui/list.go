package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/nowplaying/internal/models"
)

var (
	_ list.Item = playItem{}
)

// playItem wraps [models.Play] to implement [list.Item].
type playItem struct {
	play *models.Play
}

func (i playItem) FilterValue() string { return i.play.Track().Title }
func (i playItem) Title() string       { return i.play.Track().Title }
func (i playItem) Description() string {
	track := i.play.Track()
	desc := track.Artist()
	if track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, track.Album)
	}
	return fmt.Sprintf("%s • %s", i.play.PlayedAt().Local().Format("Jan 2 15:04"), desc)
}

func playItems(plays []*models.Play) []list.Item {
	items := make([]list.Item, len(plays))
	for i, p := range plays {
		items[i] = playItem{play: p}
	}
	return items
}

// trackSummary is the second line under the title in the now playing view.
func trackSummary(t models.Track) string {
	if t.Album == "" {
		return t.Artist()
	}
	return fmt.Sprintf("%s • %s", t.Artist(), t.Album)
}
