package relay

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/bus"
	"github.com/desertthunder/nowplaying/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultInterval is the default time between requests.
const DefaultInterval = 5 * time.Second

// Trigger publishes currently-playing requests at a steady rate.
type Trigger struct {
	bus     *bus.Bus
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewTrigger creates a trigger publishing on b once per interval. A non-positive interval uses [DefaultInterval].
func NewTrigger(b *bus.Bus, interval time.Duration, logger *log.Logger) *Trigger {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Trigger{
		bus:     b,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
	}
}

// Run publishes a request immediately and then once per interval until ctx is cancelled (nil) or the bus closes.
func (t *Trigger) Run(ctx context.Context) error {
	for {
		if err := t.limiter.Wait(ctx); err != nil {
			// Wait also fails early when the next token would land after ctx's deadline.
			<-ctx.Done()
			return nil
		}
		if err := t.bus.Publish(bus.CurrentlyPlayingRequest()); err != nil {
			return err
		}
	}
}

// Request publishes an extra request if the rate allows one now. It reports whether a request was sent.
func (t *Trigger) Request() (bool, error) {
	if !t.limiter.Allow() {
		t.logger.Debug("request throttled")
		return false, nil
	}
	if err := t.bus.Publish(bus.CurrentlyPlayingRequest()); err != nil {
		return false, err
	}
	return true, nil
}
