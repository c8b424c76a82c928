package presenter

import (
	"fmt"
	"strings"

	"github.com/soocke/autodl-bot-go/domain/cycle"
	"github.com/soocke/autodl-bot-go/domain/session"
	"github.com/soocke/autodl-bot-go/ui/model"
)

// StatusView renders the controller snapshot.
type StatusView interface {
	SetPhase(text string, paused bool)
	SetProfile(profile, strategy string)
	SetScan(text string)
	SetApproach(text string)
	SetCounters(text string)
	AppendLog(lines []string)
}

// TotalsSource reports persisted lifetime clicks and matches, excluding the
// running session.
type TotalsSource func() (clicks, matches int64)

// StatusPresenter pushes snapshot changes and new log lines to the view.
type StatusPresenter struct {
	model  *model.StatusModel
	view   StatusView
	totals TotalsSource
	seen   uint64
	latest cycle.Status
}

func NewStatusPresenter(m *model.StatusModel, view StatusView, totals TotalsSource) *StatusPresenter {
	return &StatusPresenter{model: m, view: view, totals: totals}
}

// Latest returns the most recently rendered snapshot.
func (p *StatusPresenter) Latest() cycle.Status {
	if p == nil {
		return cycle.Status{}
	}
	return p.latest
}

// Tick flushes pending log lines and, when the snapshot changed, relabels
// the view.
func (p *StatusPresenter) Tick() {
	if p == nil || p.model == nil || p.view == nil {
		return
	}
	if lines := p.model.Drain(); len(lines) > 0 {
		out := make([]string, len(lines))
		for i, l := range lines {
			out[i] = FormatLogLine(l)
		}
		p.view.AppendLog(out)
	}
	st, v := p.model.Status()
	if v == 0 || v == p.seen {
		return
	}
	p.seen = v
	p.latest = st

	p.view.SetPhase(PhaseText(st), st.Paused)
	p.view.SetProfile(st.Profile, strings.ToUpper(st.Strategy))
	scan := "Idle"
	if st.Template != "" {
		scan = fmt.Sprintf("Scanning: %s [%s]", st.Template, st.Algorithm)
	}
	p.view.SetScan(scan)
	p.view.SetApproach(st.Approach)

	var lifeClicks, lifeMatches int64
	if p.totals != nil {
		lifeClicks, lifeMatches = p.totals()
	}
	c := st.Counters
	p.view.SetCounters(fmt.Sprintf("Cycles %d | Matches %d | Clicks %d | Errors %d | Streak %d | Total clicks %d | Total matches %d",
		c.Cycles, c.Matches, c.Clicks, c.Errors, st.Streak, lifeClicks+c.Clicks, lifeMatches+c.Matches))
}

// PhaseText names the phase shown in the header.
func PhaseText(st cycle.Status) string {
	switch {
	case st.Phase == session.StateStopped:
		return "STOPPED"
	case st.Paused:
		return "PAUSED"
	default:
		return strings.ToUpper(st.Phase.String())
	}
}

// FormatLogLine renders "15:04:05 [SEV] text".
func FormatLogLine(l model.LogLine) string {
	return fmt.Sprintf("%s [%s] %s", l.At.Format("15:04:05"), l.Severity, l.Text)
}
