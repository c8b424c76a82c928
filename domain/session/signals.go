package session

import "sync/atomic"

// Signals is the control flag set shared between the hotkey watcher (which
// only raises flags) and the cycle worker (which alone consumes them).
// Reload and cycle requests are one-shot: Take* clears the flag it reports.
type Signals struct {
	paused  atomic.Bool
	stopped atomic.Bool
	reload  atomic.Bool
	cycle   atomic.Bool
}

// NewSignals returns a flag set, paused when startPaused is set.
func NewSignals(startPaused bool) *Signals {
	s := &Signals{}
	s.paused.Store(startPaused)
	return s
}

// TogglePause flips the pause flag and returns the new value.
func (s *Signals) TogglePause() bool {
	for {
		old := s.paused.Load()
		if s.paused.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (s *Signals) Pause()         { s.paused.Store(true) }
func (s *Signals) Resume()        { s.paused.Store(false) }
func (s *Signals) RequestStop()   { s.stopped.Store(true) }
func (s *Signals) RequestReload() { s.reload.Store(true) }
func (s *Signals) RequestCycle()  { s.cycle.Store(true) }

func (s *Signals) Paused() bool  { return s.paused.Load() }
func (s *Signals) Stopped() bool { return s.stopped.Load() }

// TakeReload reports and clears a pending reload request.
func (s *Signals) TakeReload() bool { return s.reload.CompareAndSwap(true, false) }

// TakeCycle reports and clears a pending strategy-cycle request.
func (s *Signals) TakeCycle() bool { return s.cycle.CompareAndSwap(true, false) }

var _ Control = (*Signals)(nil)
