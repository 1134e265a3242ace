package bus

import (
	"context"
	"sync"
)

// Inbox is one subscriber's ordered queue of messages for a single [Kind].
type Inbox struct {
	id       uint64
	kind     Kind
	capacity int
	bus      *Bus

	mu     sync.Mutex
	queue  []Message
	closed bool

	signal chan struct{}
	done   chan struct{}
}

func newInbox(b *Bus, id uint64, kind Kind, capacity int) *Inbox {
	return &Inbox{
		id:       id,
		kind:     kind,
		capacity: capacity,
		bus:      b,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Kind returns the topic this inbox was registered for.
func (in *Inbox) Kind() Kind {
	return in.kind
}

// Len returns the number of queued messages.
func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.queue)
}

// Next returns the oldest queued message, waiting while the inbox is empty.
//
// It returns [ErrBusClosed] once the inbox or its bus is closed and ctx.Err() when ctx ends first.
func (in *Inbox) Next(ctx context.Context) (Message, error) {
	for {
		in.mu.Lock()
		if in.closed {
			in.mu.Unlock()
			return Message{}, ErrBusClosed
		}
		if len(in.queue) > 0 {
			msg := in.queue[0]
			in.queue[0] = Message{}
			in.queue = in.queue[1:]
			more := len(in.queue) > 0
			in.mu.Unlock()
			if more {
				in.wake()
			}
			return msg, nil
		}
		in.mu.Unlock()

		select {
		case <-in.signal:
		case <-in.done:
			return Message{}, ErrBusClosed
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

// Close unregisters the inbox from its bus and wakes any blocked reader.
func (in *Inbox) Close() {
	in.bus.unsubscribe(in)
}

// push appends msg, dropping the oldest message when a bounded inbox is full.
// It reports whether a message was dropped.
func (in *Inbox) push(msg Message) (dropped bool) {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return false
	}
	if in.capacity > 0 && len(in.queue) >= in.capacity {
		in.queue[0] = Message{}
		in.queue = in.queue[1:]
		dropped = true
	}
	in.queue = append(in.queue, msg)
	in.mu.Unlock()

	in.wake()
	return dropped
}

func (in *Inbox) wake() {
	select {
	case in.signal <- struct{}{}:
	default:
	}
}

// shutdown discards queued messages and marks the inbox closed. Safe to call twice.
func (in *Inbox) shutdown() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return
	}
	in.closed = true
	in.queue = nil
	close(in.done)
}
