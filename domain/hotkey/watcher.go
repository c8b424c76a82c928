// Package hotkey polls global key state and raises session control signals.
package hotkey

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/soocke/autodl-bot-go/config"
	"github.com/soocke/autodl-bot-go/domain/action"
	"github.com/soocke/autodl-bot-go/domain/session"
)

const (
	pollInterval = 30 * time.Millisecond
	// A held or bouncing key fires at most once per debounce window.
	debounce = 300 * time.Millisecond
)

type binding struct {
	name    string
	vk      uint16
	fire    func()
	limiter *rate.Limiter
	down    bool
}

// Watcher fires a binding on the key's down edge. It only raises flags; the
// cycle worker consumes them.
type Watcher struct {
	Logger   *slog.Logger
	KeyDown  func(vk uint16) bool
	bindings []*binding
	interval time.Duration

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher binds the configured keys to ctl. keyDown defaults to the OS
// key-state query.
func NewWatcher(hk config.Hotkeys, ctl session.Control, logger *slog.Logger, keyDown func(uint16) bool) (*Watcher, error) {
	if keyDown == nil {
		keyDown = action.KeyDown
	}
	w := &Watcher{Logger: logger, KeyDown: keyDown, interval: pollInterval}
	specs := []struct {
		name, key string
		fire      func()
	}{
		{"pause", hk.PauseBot, func() {
			paused := ctl.TogglePause()
			w.log("pause toggled", "paused", paused)
		}},
		{"stop", hk.StopBot, ctl.RequestStop},
		{"reload", hk.ReloadBot, ctl.RequestReload},
		{"cycle_strategy", hk.CycleStrategy, ctl.RequestCycle},
	}
	for _, s := range specs {
		vk, err := action.ParseVK(s.key)
		if err != nil {
			return nil, fmt.Errorf("hotkey %s: %w", s.name, err)
		}
		w.bindings = append(w.bindings, &binding{
			name:    s.name,
			vk:      vk,
			fire:    s.fire,
			limiter: rate.NewLimiter(rate.Every(debounce), 1),
		})
	}
	return w, nil
}

// Start begins polling. Calling Start on a running watcher is a no-op.
func (w *Watcher) Start() {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	w.done = make(chan struct{})
	w.wg.Add(1)
	go w.loop(w.done)
}

// Stop ends polling and waits for the poll goroutine to exit.
func (w *Watcher) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	close(w.done)
	w.wg.Wait()
}

func (w *Watcher) loop(done <-chan struct{}) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.poll()
		case <-done:
			return
		}
	}
}

func (w *Watcher) poll() {
	for _, b := range w.bindings {
		down := w.KeyDown(b.vk)
		pressed := down && !b.down
		b.down = down
		if !pressed || !b.limiter.Allow() {
			continue
		}
		w.log("hotkey", "action", b.name)
		b.fire()
	}
}

func (w *Watcher) log(msg string, args ...any) {
	if w.Logger != nil {
		w.Logger.Debug(msg, args...)
	}
}
