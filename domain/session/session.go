// Package session tracks the controller's phase, the expecting-secondary
// flag, the no-match streak and the session counters.
package session

import (
	"log/slog"
	"sync"
)

// Session is written by the cycle worker and read by presenters.
type Session struct {
	logger *slog.Logger

	mu        sync.RWMutex
	state     State
	expecting bool
	streak    int
	counters  Counters
	listeners []Listener
}

// New returns an idle session.
func New(logger *slog.Logger) *Session {
	return &Session{logger: logger, state: StateIdle}
}

func (s *Session) AddListener(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *Session) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Transition moves to next. Stopped is terminal; repeated states are ignored.
// Reports whether the state changed.
func (s *Session) Transition(next State) bool {
	s.mu.Lock()
	prev := s.state
	if prev == next || prev == StateStopped {
		s.mu.Unlock()
		return false
	}
	s.state = next
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Debug("session state transition", "from", prev.String(), "to", next.String())
	}
	for _, l := range listeners {
		l(prev, next)
	}
	return true
}

func (s *Session) Expecting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expecting
}

func (s *Session) SetExpecting(v bool) {
	s.mu.Lock()
	s.expecting = v
	s.mu.Unlock()
}

// Streak is the number of consecutive cycles without a match.
func (s *Session) Streak() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streak
}

// Miss records a cycle without a match and returns the new streak.
func (s *Session) Miss() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streak++
	return s.streak
}

// Hit resets the streak and counts a match.
func (s *Session) Hit() {
	s.mu.Lock()
	s.streak = 0
	s.counters.Matches++
	s.mu.Unlock()
}

func (s *Session) AddCycle() { s.bump(func(c *Counters) { c.Cycles++ }) }
func (s *Session) AddClick() { s.bump(func(c *Counters) { c.Clicks++ }) }
func (s *Session) AddError() { s.bump(func(c *Counters) { c.Errors++ }) }

func (s *Session) bump(f func(*Counters)) {
	s.mu.Lock()
	f(&s.counters)
	s.mu.Unlock()
}

// Counters returns a snapshot.
func (s *Session) Counters() Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters
}

var _ StateSource = (*Session)(nil)
