package tasks

import "github.com/desertthunder/nowplaying/internal/models"

// Change classifies the difference between two consecutive snapshots.
type Change int

const (
	// Unchanged means the same track in the same play state.
	Unchanged Change = iota
	// TrackChanged means a different track, or the first snapshot seen.
	TrackChanged
	// Paused means the same track stopped playing.
	Paused
	// Resumed means the same track started playing again.
	Resumed
)

func (c Change) String() string {
	switch c {
	case Unchanged:
		return "unchanged"
	case TrackChanged:
		return "track_changed"
	case Paused:
		return "paused"
	case Resumed:
		return "resumed"
	default:
		return ""
	}
}

// Diff compares next against prev. A nil prev is treated as no previous snapshot.
func Diff(prev *models.NowPlaying, next models.NowPlaying) Change {
	switch {
	case prev == nil || prev.Track.ID != next.Track.ID:
		return TrackChanged
	case prev.IsPlaying && !next.IsPlaying:
		return Paused
	case !prev.IsPlaying && next.IsPlaying:
		return Resumed
	default:
		return Unchanged
	}
}
