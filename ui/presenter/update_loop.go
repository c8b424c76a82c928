package presenter

import "time"

// Loop drives the presenters from the Tk timer. The zero value is usable
// (methods are nil-safe).
type Loop struct {
	Status   *StatusPresenter
	Session  *SessionPresenter
	Preview  *PreviewPresenter
	Theme    *ThemePresenter
	Schedule func()
	Now      func() time.Time
}

func NewLoop(status *StatusPresenter, sess *SessionPresenter, preview *PreviewPresenter, theme *ThemePresenter, schedule func()) *Loop {
	return &Loop{Status: status, Session: sess, Preview: preview, Theme: theme, Schedule: schedule, Now: time.Now}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	l.Theme.Tick(now)
	l.Status.Tick()
	l.Session.Tick(now)
	l.Preview.Tick()
	if l.Schedule != nil {
		l.Schedule()
	}
}
