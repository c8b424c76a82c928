package capture

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const captureStatsLogInterval = 5 * time.Second

// ErrInvalidDisplay is returned when a display index does not exist.
var ErrInvalidDisplay = errors.New("capture: invalid display index")

// Provider produces a raw pixel buffer for a selected display on demand.
type Provider interface {
	ListDisplays() ([]Display, error)
	CaptureRegion(displayIndex int) (*image.RGBA, error)
}

// Service is the OS-backed Provider. It keeps the latest frame and capture
// counters for instrumentation. Use NewService to construct an instance.
type Service struct {
	logger    *slog.Logger
	enumerate func() ([]image.Rectangle, error)
	grab      func(image.Rectangle) (*image.RGBA, error)

	latest       atomic.Pointer[FrameSnapshot]
	captures     atomic.Uint64
	failures     atomic.Uint64
	captureNanos atomic.Uint64
	sequence     atomic.Uint64

	mu      sync.Mutex
	lastLog time.Time
}

// NewService returns a Provider backed by the platform screen API.
func NewService(logger *slog.Logger) *Service {
	return newService(logger, enumMonitors, grabRect)
}

func newService(logger *slog.Logger, enumerate func() ([]image.Rectangle, error), grab func(image.Rectangle) (*image.RGBA, error)) *Service {
	return &Service{logger: logger, enumerate: enumerate, grab: grab}
}

// ListDisplays returns the virtual desktop at index 0 followed by each
// monitor, primary first.
func (s *Service) ListDisplays() ([]Display, error) {
	monitors, err := s.enumerate()
	if err != nil {
		return nil, fmt.Errorf("capture: enumerate displays: %w", err)
	}
	if len(monitors) == 0 {
		return nil, errors.New("capture: no displays")
	}
	var union image.Rectangle
	for i, m := range monitors {
		if i == 0 {
			union = m
			continue
		}
		union = union.Union(m)
	}
	out := make([]Display, 0, len(monitors)+1)
	out = append(out, Display{Index: 0, Bounds: union, Virtual: true})
	for i, m := range monitors {
		out = append(out, Display{Index: i + 1, Bounds: m, Primary: i == 0})
	}
	return out, nil
}

// CaptureRegion grabs the full bounds of the display at displayIndex.
func (s *Service) CaptureRegion(displayIndex int) (*image.RGBA, error) {
	displays, err := s.ListDisplays()
	if err != nil {
		s.failures.Add(1)
		return nil, err
	}
	if displayIndex < 0 || displayIndex >= len(displays) {
		s.failures.Add(1)
		return nil, fmt.Errorf("%w: %d (have %d)", ErrInvalidDisplay, displayIndex, len(displays))
	}
	start := time.Now()
	img, err := s.grab(displays[displayIndex].Bounds)
	if err != nil {
		s.failures.Add(1)
		return nil, err
	}
	if img == nil {
		s.failures.Add(1)
		return nil, errors.New("capture: empty frame")
	}
	s.captureNanos.Add(uint64(time.Since(start).Nanoseconds()))
	s.captures.Add(1)
	seq := s.sequence.Add(1)
	s.latest.Store(&FrameSnapshot{Bounds: img.Bounds(), Display: displayIndex, CapturedAt: time.Now(), Sequence: seq})
	s.maybeLogStats()
	return img, nil
}

// LatestFrame returns metadata of the most recent successful capture.
func (s *Service) LatestFrame() FrameSnapshot {
	snap := s.latest.Load()
	if snap == nil {
		return FrameSnapshot{}
	}
	return *snap
}

func (s *Service) Stats() CaptureStats {
	captures := s.captures.Load()
	total := s.captureNanos.Load()
	var avg time.Duration
	avgMicros := 0.0
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
		avgMicros = float64(avg) / float64(time.Microsecond)
	}
	snapshot := s.LatestFrame()
	age := time.Duration(0)
	if !snapshot.CapturedAt.IsZero() {
		age = time.Since(snapshot.CapturedAt)
	}
	return CaptureStats{
		Captures:         captures,
		Failures:         s.failures.Load(),
		AvgCapture:       avg,
		AvgCaptureMicros: avgMicros,
		LastCapture:      snapshot.CapturedAt,
		LatestFrameAge:   age,
		Sequence:         snapshot.Sequence,
	}
}

func (s *Service) maybeLogStats() {
	if s.logger == nil {
		return
	}
	s.mu.Lock()
	now := time.Now()
	due := now.Sub(s.lastLog) >= captureStatsLogInterval
	if due {
		s.lastLog = now
	}
	s.mu.Unlock()
	if !due {
		return
	}
	stats := s.Stats()
	s.logger.Debug("capture.stats",
		"captures", stats.Captures,
		"failures", stats.Failures,
		"avg_capture", stats.AvgCapture,
	)
}

var _ Provider = (*Service)(nil)
