package cycle

import (
	"context"
	"log/slog"

	"github.com/soocke/autodl-bot-go/domain/session"
)

// Severity grades user-facing events.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeveritySuccess
	SeverityClick
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeveritySuccess:
		return "SUCCESS"
	case SeverityClick:
		return "CLICK"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Status is a periodic snapshot for the presentation layer.
type Status struct {
	Phase     session.State
	Paused    bool
	Profile   string
	Strategy  string
	Template  string // template under test, empty between scans
	Algorithm string
	Approach  string // non-empty while the pointer is acting on a target
	Streak    int
	Counters  session.Counters
}

// Sink receives events and status snapshots. The controller calls it from
// its single worker goroutine.
type Sink interface {
	Log(msg string, sev Severity)
	Status(Status)
	// Refresh gives the presentation a chance to redraw during waits.
	Refresh()
}

// LogSink forwards events to a slog logger and drops status snapshots. It is
// the sink used in headless mode.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Log(msg string, sev Severity) {
	if s.Logger == nil {
		return
	}
	s.Logger.Log(context.Background(), sev.Level(), msg, "severity", sev.String())
}

func (LogSink) Status(Status) {}
func (LogSink) Refresh()      {}

// Level maps a severity onto a slog level.
func (s Severity) Level() slog.Level {
	switch s {
	case SeverityDebug:
		return slog.LevelDebug
	case SeverityWarn:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// multiSink fans events out to several sinks.
type multiSink []Sink

// Tee returns a sink that forwards to every non-nil sink.
func Tee(sinks ...Sink) Sink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Log(msg string, sev Severity) {
	for _, s := range m {
		s.Log(msg, sev)
	}
}

func (m multiSink) Status(st Status) {
	for _, s := range m {
		s.Status(st)
	}
}

func (m multiSink) Refresh() {
	for _, s := range m {
		s.Refresh()
	}
}
