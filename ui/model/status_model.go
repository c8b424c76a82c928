package model

import (
	"sync"
	"time"

	"github.com/soocke/autodl-bot-go/domain/cycle"
)

// LogLine is one user-facing event.
type LogLine struct {
	At       time.Time
	Severity cycle.Severity
	Text     string
}

// StatusModel buffers controller output between UI ticks. The controller
// writes from its worker goroutine and the UI thread reads, so every method
// takes the lock.
type StatusModel struct {
	mu       sync.Mutex
	status   cycle.Status
	version  uint64
	history  []LogLine
	pending  []LogLine
	capacity int
}

// NewStatusModel keeps at most capacity lines of history (minimum 1).
func NewStatusModel(capacity int) *StatusModel {
	if capacity < 1 {
		capacity = 1
	}
	return &StatusModel{capacity: capacity}
}

// SetStatus stores the latest snapshot and bumps the version.
func (m *StatusModel) SetStatus(st cycle.Status) {
	m.mu.Lock()
	m.status = st
	m.version++
	m.mu.Unlock()
}

// Status returns the latest snapshot and its version. Version 0 means no
// snapshot has arrived yet.
func (m *StatusModel) Status() (cycle.Status, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.version
}

// Append records a line in history and in the pending queue.
func (m *StatusModel) Append(l LogLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = appendBounded(m.history, l, m.capacity)
	m.pending = appendBounded(m.pending, l, m.capacity)
}

// Drain returns lines appended since the previous Drain.
func (m *StatusModel) Drain() []LogLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending
	m.pending = nil
	return out
}

// History returns a copy of the retained lines, oldest first.
func (m *StatusModel) History() []LogLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogLine(nil), m.history...)
}

func appendBounded(s []LogLine, l LogLine, capacity int) []LogLine {
	s = append(s, l)
	if over := len(s) - capacity; over > 0 {
		s = append(s[:0:0], s[over:]...)
	}
	return s
}
