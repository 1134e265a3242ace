package relay

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/bus"
	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// Player reads the current playback state.
type Player interface {
	CurrentlyPlaying(ctx context.Context) (*services.CurrentlyPlaying, error)
}

// State is the position of a [Relay] in its loop.
type State int32

const (
	// StateWaiting means the relay is blocked on its inbox.
	StateWaiting State = iota
	// StateProcessing means the relay is handling a request.
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// DefaultCallTimeout bounds one player call.
const DefaultCallTimeout = 10 * time.Second

// Relay answers currently-playing requests from the bus.
type Relay struct {
	bus         *bus.Bus
	player      Player
	logger      *log.Logger
	now         func() time.Time
	callTimeout time.Duration
	state       atomic.Int32
}

// Option configures a [Relay].
type Option func(*Relay)

// WithLogger sets the relay logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Relay) { r.logger = l }
}

// WithClock sets the clock used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

// WithCallTimeout bounds each player call. Zero or less keeps [DefaultCallTimeout].
func WithCallTimeout(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

// New creates a relay reading from player and publishing on b.
func New(b *bus.Bus, player Player, opts ...Option) *Relay {
	r := &Relay{bus: b, player: player, now: time.Now, callTimeout: DefaultCallTimeout}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = shared.NewLogger(nil)
	}
	return r
}

// State returns the current loop state.
func (r *Relay) State() State {
	return State(r.state.Load())
}

// Run processes requests until ctx is cancelled, returning nil, or the bus closes, returning [bus.ErrBusClosed].
//
// Player failures, including calls exceeding the call timeout, and payloads that are not
// tracks are logged and skipped.
func (r *Relay) Run(ctx context.Context) error {
	in, err := r.Subscribe()
	if err != nil {
		return err
	}
	return r.Serve(ctx, in)
}

// Subscribe registers the relay's request inbox. Use it with [Relay.Serve] when requests
// published before the loop starts must not be lost.
//
// Requests carry no data, so the inbox holds at most one: requests arriving during a slow
// call collapse into a single follow-up read.
func (r *Relay) Subscribe() (*bus.Inbox, error) {
	return r.bus.Subscribe(bus.KindCurrentlyPlayingRequest, bus.WithInboxCapacity(1))
}

// Serve runs the loop of [Relay.Run] on an inbox from [Relay.Subscribe] and closes it on return.
func (r *Relay) Serve(ctx context.Context, in *bus.Inbox) error {
	defer in.Close()

	r.logger.Info("relay started")
	defer r.logger.Info("relay stopped")

	for {
		r.state.Store(int32(StateWaiting))

		if _, err := in.Next(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		r.state.Store(int32(StateProcessing))
		if err := r.process(ctx); err != nil {
			r.state.Store(int32(StateWaiting))
			return err
		}
	}
}

// process handles one request. Only a closed bus is returned as an error.
func (r *Relay) process(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	cp, err := r.player.CurrentlyPlaying(callCtx)
	cancel()
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("failed to read currently playing", "error", fmt.Errorf("%w: %w", shared.ErrExternalCall, err))
		}
		return nil
	}

	np, err := Validate(cp, r.now())
	if err != nil {
		r.logger.Warn("skipping currently playing payload", "error", err)
		return nil
	}

	if err := r.bus.Publish(bus.CurrentlyPlaying(np)); err != nil {
		return err
	}
	r.logger.Debug("published currently playing", "track", np.Track.Title, "playing", np.IsPlaying)
	return nil
}

// Validate checks that cp describes a track and converts it into a snapshot stamped with fetchedAt.
//
// It returns [shared.ErrShapeMismatch] when there is no item or the item has no album.
func Validate(cp *services.CurrentlyPlaying, fetchedAt time.Time) (models.NowPlaying, error) {
	switch {
	case cp == nil || cp.Item == nil:
		return models.NowPlaying{}, fmt.Errorf("%w: no item", shared.ErrShapeMismatch)
	case !cp.Item.IsTrack():
		return models.NowPlaying{}, fmt.Errorf("%w: %s item has no album", shared.ErrShapeMismatch, itemType(cp))
	}

	return models.NowPlaying{
		Track:      cp.Item.Track(),
		IsPlaying:  cp.IsPlaying,
		ProgressMS: cp.ProgressMS,
		FetchedAt:  fetchedAt,
	}, nil
}

func itemType(cp *services.CurrentlyPlaying) string {
	if cp.Item.Type != "" {
		return cp.Item.Type
	}
	if cp.CurrentlyPlayingType != "" {
		return cp.CurrentlyPlayingType
	}
	return "unknown"
}
