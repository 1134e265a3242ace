// package tasks implements the result subscribers of the now playing relay.
//
// Each subscriber consumes [bus.KindCurrentlyPlaying] messages from its own inbox until the context ends or the bus closes.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/bus"
	"github.com/desertthunder/nowplaying/internal/formatter"
	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// Subscriber handles validated snapshots.
type Subscriber interface {
	Handle(ctx context.Context, np models.NowPlaying) error
}

// Consume feeds every message from in to sub until ctx is cancelled (nil) or the bus closes ([bus.ErrBusClosed]).
//
// Handler errors are logged and do not stop the loop.
func Consume(ctx context.Context, in *bus.Inbox, sub Subscriber, logger *log.Logger) error {
	for {
		msg, err := in.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		np, ok := msg.NowPlaying()
		if !ok {
			logger.Warn("unexpected message payload", "kind", msg.Kind(), "id", msg.ID())
			continue
		}

		if err := sub.Handle(ctx, np); err != nil {
			logger.Error("subscriber failed", "error", err, "track", np.Track.ID)
		}
	}
}

// PlayStore persists plays. Implemented by repositories.PlayRepository.
type PlayStore interface {
	Create(play *models.Play) error
	Latest() (*models.Play, error)
}

// Recorder stores a [models.Play] each time a new track starts playing.
type Recorder struct {
	store  PlayStore
	logger *log.Logger
	last   string
	primed bool
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store PlayStore, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Recorder{store: store, logger: logger}
}

// Handle records np when its track differs from the last recorded play. Paused snapshots and
// tracks without an ID, such as local files, are not recorded.
func (r *Recorder) Handle(_ context.Context, np models.NowPlaying) error {
	if np.Track.ID == "" {
		r.logger.Debug("skipping track without id", "title", np.Track.Title)
		return nil
	}

	if !r.primed {
		latest, err := r.store.Latest()
		switch {
		case err == nil:
			r.last = latest.Track().ID
		case !errors.Is(err, shared.ErrNotFound):
			return fmt.Errorf("failed to load latest play: %w", err)
		}
		r.primed = true
	}

	if !np.IsPlaying || np.Track.ID == r.last {
		return nil
	}

	play := models.NewPlay(0, np.Track, np.FetchedAt)
	if err := r.store.Create(play); err != nil {
		return fmt.Errorf("failed to record play: %w", err)
	}

	r.last = np.Track.ID
	r.logger.Info("recorded play", "sequence", play.Sequence(), "title", np.Track.Title)
	return nil
}

// Printer writes a status line to w whenever the track or play state changes.
type Printer struct {
	w    io.Writer
	prev *models.NowPlaying
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Handle prints np unless it only differs from the previous snapshot in progress.
func (p *Printer) Handle(_ context.Context, np models.NowPlaying) error {
	change := Diff(p.prev, np)
	p.prev = &np
	if change == Unchanged {
		return nil
	}

	if _, err := fmt.Fprintln(p.w, formatter.NowPlayingLine(np)); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return nil
}
