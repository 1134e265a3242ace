package bus

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// ErrBusClosed is returned by every operation on a closed [Bus] or [Inbox].
var ErrBusClosed = shared.ErrBusClosed

// Bus is a process-wide publish/subscribe mediator keyed by [Kind].
type Bus struct {
	mu      sync.Mutex
	inboxes map[Kind]map[uint64]*Inbox
	nextID  uint64
	closed  bool

	capacity int
	logger   *log.Logger
	metrics  *Metrics
}

// Option configures a [Bus].
type Option func(*Bus)

// WithCapacity bounds every inbox to n messages. Zero or less means unbounded.
func WithCapacity(n int) Option {
	return func(b *Bus) {
		if n < 0 {
			n = 0
		}
		b.capacity = n
	}
}

// WithLogger sets the logger used to report dropped messages.
func WithLogger(l *log.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// WithMetrics enables prometheus accounting.
func WithMetrics(m *Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

// New creates an open bus.
func New(opts ...Option) *Bus {
	b := &Bus{inboxes: make(map[Kind]map[uint64]*Inbox)}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = shared.NewLogger(nil)
	}
	return b
}

// SubscribeOption configures one [Inbox].
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	capacity int
}

// WithInboxCapacity bounds this inbox to n messages, overriding [WithCapacity].
// Zero or less means unbounded.
func WithInboxCapacity(n int) SubscribeOption {
	return func(c *subscribeConfig) { c.capacity = max(n, 0) }
}

// Subscribe registers and returns a new inbox for kind.
func (b *Bus) Subscribe(kind Kind, opts ...SubscribeOption) (*Inbox, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	cfg := subscribeConfig{capacity: b.capacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	b.nextID++
	in := newInbox(b, b.nextID, kind, cfg.capacity)

	set, ok := b.inboxes[kind]
	if !ok {
		set = make(map[uint64]*Inbox)
		b.inboxes[kind] = set
	}
	set[in.id] = in

	if b.metrics != nil {
		b.metrics.Subscribers.WithLabelValues(kind.String()).Set(float64(len(set)))
	}
	return in, nil
}

// Publish delivers msg to every inbox registered for msg.Kind(). It never blocks.
func (b *Bus) Publish(msg Message) error {
	kind := msg.Kind().String()
	dropped, delivered, err := b.deliver(msg)
	if err != nil {
		return err
	}

	if !delivered {
		b.logger.Debug("no subscribers, message dropped", "kind", kind, "id", msg.ID())
	}
	for _, id := range dropped {
		b.logger.Warn("inbox full, dropped oldest message", "kind", kind, "inbox", id)
	}
	return nil
}

// deliver pushes msg under the bus lock and returns the inboxes that dropped a message.
func (b *Bus) deliver(msg Message) (dropped []uint64, delivered bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, false, ErrBusClosed
	}

	kind := msg.Kind().String()
	if b.metrics != nil {
		b.metrics.Published.WithLabelValues(kind).Inc()
	}

	set := b.inboxes[msg.Kind()]
	if len(set) == 0 {
		if b.metrics != nil {
			b.metrics.Dropped.WithLabelValues(kind, dropNoSubscribers).Inc()
		}
		return nil, false, nil
	}

	for _, in := range set {
		if in.push(msg) {
			dropped = append(dropped, in.id)
			if b.metrics != nil {
				b.metrics.Dropped.WithLabelValues(kind, dropInboxFull).Inc()
			}
		}
		if b.metrics != nil {
			b.metrics.Delivered.WithLabelValues(kind).Inc()
		}
	}
	return dropped, true, nil
}

// Subscribers returns the number of inboxes registered for kind.
func (b *Bus) Subscribers(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inboxes[kind])
}

// Close shuts the bus down, closing every inbox. It is idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for kind, set := range b.inboxes {
		for _, in := range set {
			in.shutdown()
		}
		if b.metrics != nil {
			b.metrics.Subscribers.WithLabelValues(kind.String()).Set(0)
		}
	}
	b.inboxes = make(map[Kind]map[uint64]*Inbox)
	return nil
}

func (b *Bus) unsubscribe(in *Inbox) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if set, ok := b.inboxes[in.kind]; ok {
		delete(set, in.id)
		if b.metrics != nil {
			b.metrics.Subscribers.WithLabelValues(in.kind.String()).Set(float64(len(set)))
		}
		if len(set) == 0 {
			delete(b.inboxes, in.kind)
		}
	}
	in.shutdown()
}
