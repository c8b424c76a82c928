package vision

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/soocke/autodl-bot-go/config"
)

// NextStrategy returns the strategy after s in the cycle
// cascade -> template -> orb -> akaze -> cascade.
func NextStrategy(s string) string {
	switch config.NormalizeStrategy(s) {
	case config.StrategyCascade:
		return config.StrategyTemplate
	case config.StrategyTemplate:
		return config.StrategyORB
	case config.StrategyORB:
		return config.StrategyAKAZE
	default:
		return config.StrategyCascade
	}
}

// Engine dispatches a match to the method selected by the configured
// strategy and optionally records annotated debug frames.
type Engine struct {
	logger    *slog.Logger
	annotator *Annotator

	correlation Method
	orb         Method
	akaze       Method
	cascade     *Cascade
	confidence  float64
	marginal    float64

	mu       sync.RWMutex
	strategy string
}

// NewEngine builds the correlation method from cfg and composes it with the
// given feature methods. orb and akaze may be nil; annotator may be nil.
func NewEngine(cfg config.Matching, orb, akaze Method, annotator *Annotator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	corr := NewCorrelator(CorrelatorOptions{
		Grayscale: cfg.UseGrayscale,
		Stride:    cfg.Stride,
		Scales:    ScaleRange(cfg.ScaleMin, cfg.ScaleMax, cfg.ScaleStep),
	})
	return newEngine(cfg, corr, orb, akaze, annotator, logger)
}

func newEngine(cfg config.Matching, corr, orb, akaze Method, annotator *Annotator, logger *slog.Logger) *Engine {
	return &Engine{
		logger:      logger,
		annotator:   annotator,
		correlation: corr,
		orb:         orb,
		akaze:       akaze,
		cascade:     NewCascade(corr, orb, akaze, cfg.ConfidenceThreshold, cfg.MarginalThreshold, logger),
		confidence:  cfg.ConfidenceThreshold,
		marginal:    cfg.MarginalThreshold,
		strategy:    config.NormalizeStrategy(cfg.Strategy),
	}
}

// Strategy returns the active strategy name.
func (e *Engine) Strategy() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.strategy
}

// SetStrategy switches the dispatch target. Unknown names select cascade.
func (e *Engine) SetStrategy(s string) {
	e.mu.Lock()
	e.strategy = config.NormalizeStrategy(s)
	e.mu.Unlock()
}

// Match runs the active strategy. It never fails; errors and panics inside a
// method become NotFound.
func (e *Engine) Match(tmpl Template, frame *Frame) Result {
	var m Method
	strategy := e.Strategy()
	switch strategy {
	case config.StrategyTemplate:
		m = e.correlation
	case config.StrategyORB:
		m = e.orb
	case config.StrategyAKAZE:
		m = e.akaze
	default:
		m = e.cascade
	}
	res := attempt(m, tmpl, frame)
	f, ok := AsFound(res)
	if ok && strategy == config.StrategyTemplate {
		// Correlation always reports its best window; only hits that clear
		// the marginal threshold are worth recording.
		switch {
		case f.Confidence >= e.confidence:
		case f.Confidence >= e.marginal:
			e.logger.Warn("marginal match",
				"template", tmpl.Name,
				"confidence", f.Confidence,
				"threshold", e.confidence)
		default:
			ok = false
		}
	}
	if ok && e.annotator != nil && frame != nil {
		if path, err := e.annotator.Save(tmpl.Name, frame.Image, f); err != nil {
			e.logger.Warn("debug frame not saved", "template", tmpl.Name, "error", err)
		} else {
			e.logger.Debug("debug frame saved", "path", path)
		}
	}
	return res
}

// Close releases methods holding native resources.
func (e *Engine) Close() error {
	var errs []error
	for _, m := range []Method{e.orb, e.akaze} {
		if c, ok := m.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
