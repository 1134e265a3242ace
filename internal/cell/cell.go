// Package cell provides [Cell], a write-once value used to hand a result from
// one goroutine (typically an HTTP handler) to any number of waiters.
//
// A Cell starts pending and is resolved exactly once, either with a value
// ([Cell.Resolve]) or a failure ([Cell.Reject]). The first resolution wins;
// later attempts return false and have no effect. [Cell.Await] blocks until
// the cell is resolved and every waiter observes the same outcome.
package cell

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNilFailure is recorded when [Cell.Reject] is called with a nil error.
var ErrNilFailure = errors.New("cell rejected with nil error")

// Cell is a single-fulfillment synchronization value. It must not be copied after first use.
type Cell[T any] struct {
	_ sync.Mutex // flags copies under go vet

	claimed atomic.Bool
	done    chan struct{}
	value   T
	err     error
}

// New returns a pending cell.
func New[T any]() *Cell[T] {
	return &Cell[T]{done: make(chan struct{})}
}

// Resolve completes the cell with v. It reports whether this call resolved the cell.
func (c *Cell[T]) Resolve(v T) bool {
	if !c.claimed.CompareAndSwap(false, true) {
		return false
	}
	c.value = v
	close(c.done)
	return true
}

// Reject completes the cell with err. It reports whether this call resolved the cell.
func (c *Cell[T]) Reject(err error) bool {
	if !c.claimed.CompareAndSwap(false, true) {
		return false
	}
	if err == nil {
		err = ErrNilFailure
	}
	c.err = err
	close(c.done)
	return true
}

// Await blocks until the cell is resolved or ctx is done.
//
// A context error leaves the cell pending.
func (c *Cell[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-c.done:
		return c.value, c.err
	default:
	}

	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel that is closed once the cell is resolved.
func (c *Cell[T]) Done() <-chan struct{} {
	return c.done
}

// Resolved reports whether the cell has been resolved, without blocking.
func (c *Cell[T]) Resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// RejectAfter rejects the cell with err once d elapses. Firing after the cell
// was resolved is a no-op. The returned function disarms the timer.
func (c *Cell[T]) RejectAfter(d time.Duration, err error) (stop func() bool) {
	return time.AfterFunc(d, func() { c.Reject(err) }).Stop
}
