package schedule

import (
	"context"
	"errors"
	"sync"
)

var ErrLoopStopped = errors.New("event loop stopped")

// Loop runs posted callbacks one at a time on a single goroutine. Scheduler
// flushes and decode completions share it, so they never interleave.
type Loop struct {
	tasks    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{tasks: make(chan func(), buffer), done: make(chan struct{})}
}

// Post queues fn. It is dropped once the loop has stopped.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes callbacks until ctx is canceled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			fn()
		}
	}
}

func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Stopped is closed after Stop.
func (l *Loop) Stopped() <-chan struct{} { return l.done }
