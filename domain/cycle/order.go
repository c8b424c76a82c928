package cycle

import (
	"math/rand/v2"

	"github.com/soocke/autodl-bot-go/domain/profile"
)

// StopThreshold is the fixed bar for stop templates regardless of
// configuration.
const StopThreshold = 0.85

// ThresholdFor returns the acceptance threshold for a template category.
func ThresholdFor(c profile.Category, marginal float64) float64 {
	if c == profile.Stop {
		return StopThreshold
	}
	return marginal
}

// ScanOrder arranges templates for one cycle: stop templates first, then
// secondary templates when a secondary step is expected, then the rest in
// load order. Confirmation templates are never scanned. When shuffle is
// non-nil everything after the stop templates is shuffled.
func ScanOrder(templates []profile.Template, expecting bool, shuffle *rand.Rand) []profile.Template {
	var stops, secondary, rest []profile.Template
	for _, t := range templates {
		switch {
		case t.Category == profile.Confirmation:
		case t.Category == profile.Stop:
			stops = append(stops, t)
		case expecting && t.Category == profile.Secondary:
			secondary = append(secondary, t)
		default:
			rest = append(rest, t)
		}
	}
	out := make([]profile.Template, 0, len(stops)+len(secondary)+len(rest))
	out = append(out, stops...)
	out = append(out, secondary...)
	out = append(out, rest...)
	if shuffle != nil {
		tail := out[len(stops):]
		shuffle.Shuffle(len(tail), func(i, j int) { tail[i], tail[j] = tail[j], tail[i] })
	}
	return out
}
