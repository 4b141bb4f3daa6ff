package schedule

import (
	"sync"

	"github.com/rook-computer/covermaker/internal/render"
	"github.com/rook-computer/covermaker/internal/state"
)

type Phase int

const (
	Idle Phase = iota
	Collecting
	Flushing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Flushing:
		return "flushing"
	}
	return "unknown"
}

// Target is the renderer side of a flush.
type Target interface {
	Redraw(layer render.Layer)
	Compose() bool
}

// Scheduler batches mutations that arrive within one frame into a single
// pass: every affected layer is redrawn once and the output is composed once.
type Scheduler struct {
	store  *state.Store
	target Target
	clock  FrameClock
	exec   render.Executor

	Logger render.Logger

	mu      sync.Mutex
	phase   Phase
	queue   []Event
	epoch   uint64
	flushes int
}

func NewScheduler(store *state.Store, target Target, clock FrameClock, exec render.Executor) *Scheduler {
	if clock == nil {
		clock = TickerClock{}
	}
	if exec == nil {
		exec = render.Inline
	}
	return &Scheduler{store: store, target: target, clock: clock, exec: exec, Logger: nopLogger{}}
}

// Submit queues events for the next frame.
func (s *Scheduler) Submit(events ...Event) {
	if len(events) == 0 {
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, events...)
	epoch, arm := s.collectLocked()
	s.mu.Unlock()
	if arm {
		s.arm(epoch)
	}
}

// FlushNow runs a pending flush immediately instead of waiting for the
// frame. It must be called on the executor. The armed frame callback then
// finds nothing to do.
func (s *Scheduler) FlushNow() {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()
	s.flush(epoch)
}

// collectLocked moves Idle to Collecting and reports whether a frame must be
// armed. During a flush the pending work is picked up when the flush ends.
func (s *Scheduler) collectLocked() (uint64, bool) {
	if s.phase != Idle {
		return s.epoch, false
	}
	s.phase = Collecting
	return s.epoch, true
}

func (s *Scheduler) arm(epoch uint64) {
	s.clock.AfterFrame(func() {
		s.exec.Post(func() { s.flush(epoch) })
	})
}

func (s *Scheduler) flush(epoch uint64) {
	s.mu.Lock()
	if s.epoch != epoch || s.phase != Collecting {
		s.mu.Unlock()
		return
	}
	s.phase = Flushing
	events := s.queue
	s.queue = nil
	s.flushes++
	s.mu.Unlock()

	var dirty render.LayerSet
	if len(events) > 0 {
		s.store.Update(func(st *state.RenderState) {
			for _, e := range events {
				e.Apply(st)
				dirty |= e.Dirty()
			}
		})
	}
	for _, layer := range render.RedrawOrder {
		if dirty.Has(layer) {
			s.target.Redraw(layer)
		}
	}
	s.target.Compose()
	if len(events) > 0 {
		s.Logger.Infof("schedule", "flushed %d events, redrew [%s]", len(events), dirty)
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	rearm := len(s.queue) > 0
	if rearm {
		s.phase = Collecting
	} else {
		s.phase = Idle
	}
	s.mu.Unlock()
	if rearm {
		s.arm(epoch)
	}
}

// Reset drops queued events and returns to Idle. Frames armed before the
// reset do nothing when they fire.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.epoch++
	s.queue = nil
	s.phase = Idle
	s.mu.Unlock()
}

func (s *Scheduler) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Pending reports the number of queued events.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Flushes counts completed frame callbacks.
func (s *Scheduler) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

type nopLogger struct{}

func (nopLogger) Infof(string, string, ...interface{})  {}
func (nopLogger) Errorf(string, string, ...interface{}) {}
