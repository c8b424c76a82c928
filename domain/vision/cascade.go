package vision

import (
	"log/slog"
)

// Cascade tries correlation first, then ORB, then AKAZE, and finally accepts
// a marginal correlation hit rather than failing outright.
type Cascade struct {
	correlation Method
	orb         Method
	akaze       Method
	confidence  float64
	marginal    float64
	logger      *slog.Logger
}

// NewCascade composes the three methods. orb and akaze may be nil when
// feature matching is unavailable.
func NewCascade(correlation, orb, akaze Method, confidence, marginal float64, logger *slog.Logger) *Cascade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cascade{
		correlation: correlation,
		orb:         orb,
		akaze:       akaze,
		confidence:  confidence,
		marginal:    marginal,
		logger:      logger,
	}
}

func (c *Cascade) Algorithm() Algorithm { return AlgoTemplate }

// Match never returns an error; failures of individual methods are folded
// into NotFound.
func (c *Cascade) Match(tmpl Template, frame *Frame) (Result, error) {
	corr, corrOK := AsFound(attempt(c.correlation, tmpl, frame))
	if corrOK && corr.Confidence >= c.confidence {
		return corr, nil
	}
	if f, ok := AsFound(attempt(c.orb, tmpl, frame)); ok {
		return f, nil
	}
	if f, ok := AsFound(attempt(c.akaze, tmpl, frame)); ok {
		return f, nil
	}
	if corrOK && corr.Confidence >= c.marginal {
		corr.Marginal = true
		c.logger.Warn("marginal match",
			"template", tmpl.Name,
			"confidence", corr.Confidence,
			"threshold", c.confidence)
		return corr, nil
	}
	return NotFound{Algorithm: AlgoTemplate, Reason: "no method cleared its threshold"}, nil
}
