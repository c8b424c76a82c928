// Package app wires configuration, capture, matching, actuation and the
// optional status window into one running bot.
package app

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soocke/autodl-bot-go/debug"
	"github.com/soocke/autodl-bot-go/domain/hotkey"
	"github.com/soocke/autodl-bot-go/domain/motion"
)

// ShutdownGrace is how long a failed run lingers before shutting down so the
// last messages stay visible.
var ShutdownGrace = 3 * time.Second

const runtimeLogInterval = 10 * time.Second

// Frontend is the optional status window. Run blocks the calling goroutine
// (the UI thread) until the window closes or done is closed.
type Frontend interface {
	Run(done <-chan struct{}) error
}

// Run drives the controller until it stops, ctx ends or the frontend
// closes. Shutdown order: hotkeys, frontend, stats store.
func Run(ctx context.Context, c *Container, front Frontend) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	logger := c.Logger
	cfg := c.Controller.Snapshot().Config

	keys, err := hotkey.NewWatcher(cfg.Hotkeys, c.Signals, logger, nil)
	if err != nil {
		logger.Warn("hotkeys disabled", "error", err)
		keys = nil
	} else {
		keys.Start()
	}
	stopKeys := func() {
		if keys != nil {
			keys.Stop()
		}
	}
	if cfg.Visual.DebugMode {
		debug.StartGoroutineLogger(ctx, runtimeLogInterval, logger)
		debug.StartMemLogger(ctx, runtimeLogInterval, logger)
	}
	logger.Info("bot ready", "profile", c.Controller.Snapshot().Profile,
		"strategy", cfg.Matching.Strategy, "paused", c.Signals.Paused(),
		"hotkey_pause", cfg.Hotkeys.PauseBot, "hotkey_stop", cfg.Hotkeys.StopBot)

	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		defer stopKeys()
		err := c.Controller.Run(gctx)
		if err == nil || errors.Is(err, context.Canceled) {
			return nil
		}
		logger.Error("run failed", "error", err)
		_ = motion.Sleep(context.Background(), ShutdownGrace)
		return err
	})

	if front != nil {
		if err := front.Run(done); err != nil {
			logger.Error("status window failed", "error", err)
		}
		c.Signals.RequestStop()
		cancel()
	}
	runErr := g.Wait()
	stopKeys()

	if err := c.Close(); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	counters := c.Session.Counters()
	logger.Info("session finished", "cycles", counters.Cycles, "matches", counters.Matches,
		"clicks", counters.Clicks, "errors", counters.Errors)
	return runErr
}
