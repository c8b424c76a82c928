package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/soocke/autodl-bot-go/app"
	"github.com/soocke/autodl-bot-go/config"
	"github.com/soocke/autodl-bot-go/domain/session"
	"github.com/soocke/autodl-bot-go/ui/model"
	"github.com/soocke/autodl-bot-go/ui/presenter"
	"github.com/soocke/autodl-bot-go/ui/theme"
	"github.com/soocke/autodl-bot-go/ui/view"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

const (
	windowWidth  = 760
	windowHeight = 640
	// The window stays open this long after the controller finishes so the
	// final status can be read.
	closeGrace = 3 * time.Second
)

// window is the Tk status frontend. All methods run on the main goroutine.
type window struct {
	c      *app.Container
	ui     config.UI
	logger *slog.Logger

	loop     *presenter.Loop
	tick     time.Duration
	afterID  string
	exitID   string
	closed   bool
	finished <-chan struct{}
}

var _ app.Frontend = (*window)(nil)

func newWindow(c *app.Container, ui config.UI, logger *slog.Logger) *window {
	tick := config.Millis(ui.RefreshRateMs)
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	return &window{c: c, ui: ui, logger: logger, tick: tick}
}

// Run builds the window and blocks in the Tk event loop until the window is
// closed or done is closed and the grace period has passed.
func (w *window) Run(done <-chan struct{}) error {
	w.finished = done
	App.WmTitle("AutoDL Bot")
	WmProtocol(App, "WM_DELETE_WINDOW", w.exit)
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", windowWidth, windowHeight))
	theme.Init()

	sig := w.c.Signals
	rv := view.NewRootView(w.logger)
	rv.Build(view.Handlers{
		TogglePause: func() {
			paused := sig.TogglePause()
			w.logger.Info("pause toggled from window", "paused", paused)
		},
		Reload:        sig.RequestReload,
		CycleStrategy: sig.RequestCycle,
		Stop:          sig.RequestStop,
		Exit:          w.exit,
	})

	status := presenter.NewStatusPresenter(w.c.Status, rv, w.c.LifetimeTotals)
	sess := presenter.NewSessionPresenter(model.NewSessionModel(), sig,
		func() session.State { return status.Latest().Phase }, rv)
	preview := presenter.NewPreviewPresenter(w.c.Preview, rv)
	themes := &presenter.ThemePresenter{NightHour: w.ui.NightModeHour, Theme: theme.Switcher{}}
	w.loop = presenter.NewLoop(status, sess, preview, themes, w.schedule)

	w.loop.Tick()
	App.Wait()
	w.closed = true
	return nil
}

func (w *window) schedule() {
	if w.closed {
		return
	}
	if w.exitID == "" {
		select {
		case <-w.finished:
			w.exitID = TclAfter(closeGrace, w.exit)
		default:
		}
	}
	w.afterID = TclAfter(w.tick, w.loop.Tick)
}

func (w *window) exit() {
	if w.closed {
		return
	}
	w.closed = true
	for _, id := range []string{w.afterID, w.exitID} {
		if id != "" {
			TclAfterCancel(id)
		}
	}
	Destroy(App)
}
