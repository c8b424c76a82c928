package model

import (
	"time"
)

// SessionModel splits wall-clock run time into active and paused time.
// Presenters feed it observations and poll Values. The zero value is ready to use.
type SessionModel struct {
	started  bool
	running  bool
	last     time.Time
	active   time.Duration
	paused   time.Duration
	pauses   int
	finished bool
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// Observe records whether the bot is working at now. The interval since the
// previous observation is credited to the state seen then. Once finished, the
// clock stops.
func (m *SessionModel) Observe(running, finished bool, now time.Time) {
	if m == nil || m.finished {
		return
	}
	if !m.started {
		m.started = true
		m.running = running
		m.last = now
		if !running {
			m.pauses++
		}
		m.finished = finished
		return
	}
	if d := now.Sub(m.last); d > 0 {
		if m.running {
			m.active += d
		} else {
			m.paused += d
		}
	}
	if m.running && !running {
		m.pauses++
	}
	m.running = running
	m.last = now
	m.finished = finished
}

// Values returns accumulated active and paused durations.
func (m *SessionModel) Values() (active, paused time.Duration) {
	if m == nil {
		return 0, 0
	}
	return m.active, m.paused
}

// Pauses counts transitions into the paused state, including a paused start.
func (m *SessionModel) Pauses() int {
	if m == nil {
		return 0
	}
	return m.pauses
}
