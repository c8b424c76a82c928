package presenter

import (
	"time"

	"github.com/soocke/autodl-bot-go/domain/session"
	"github.com/soocke/autodl-bot-go/ui/model"
)

// RunState reports whether the bot is working and whether it has finished.
type RunState interface {
	Paused() bool
	Stopped() bool
}

// SessionView displays active and paused durations.
type SessionView interface {
	SetSession(active, paused time.Duration)
}

// SessionPresenter advances the session clock from the run state and pushes
// durations to the view.
type SessionPresenter struct {
	sess  *model.SessionModel
	run   RunState
	phase func() session.State
	view  SessionView
}

// NewSessionPresenter returns a presenter. phase may be nil.
func NewSessionPresenter(sess *model.SessionModel, run RunState, phase func() session.State, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, run: run, phase: phase, view: view}
}

func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.run == nil || p.view == nil {
		return
	}
	finished := p.run.Stopped()
	if p.phase != nil && p.phase() == session.StateStopped {
		finished = true
	}
	p.sess.Observe(!p.run.Paused() && !finished, finished, now)
	active, paused := p.sess.Values()
	p.view.SetSession(active, paused)
}
