// Package cycle runs the scan-decide-act loop: capture a frame, match
// templates in priority order, click the first acceptable hit and drive the
// session through its post-click wait.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"strings"
	"time"

	"github.com/soocke/autodl-bot-go/config"
	"github.com/soocke/autodl-bot-go/domain/motion"
	"github.com/soocke/autodl-bot-go/domain/profile"
	"github.com/soocke/autodl-bot-go/domain/session"
	"github.com/soocke/autodl-bot-go/domain/vision"
)

const (
	sleepSlice        = 50 * time.Millisecond
	pausePoll         = 100 * time.Millisecond
	verifyPoll        = 500 * time.Millisecond
	ScanVisualDelay   = 20 * time.Millisecond
	approachIndicator = "Approaching Target"
)

// Capturer grabs one display.
type Capturer interface {
	CaptureRegion(display int) (*image.RGBA, error)
}

// Matcher locates a template in a frame under a switchable strategy.
type Matcher interface {
	Match(tmpl vision.Template, frame *vision.Frame) vision.Result
	Strategy() string
	SetStrategy(string)
	Close() error
}

// Mover performs pointer and keyboard actions.
type Mover interface {
	MoveAndClick(ctx context.Context, x, y int, returnHome bool) (image.Point, error)
	Click(ctx context.Context) (image.Point, error)
	SendKeys(combo string) error
}

// Snapshot is everything a reload replaces at once. It is never mutated
// after being handed to the controller.
type Snapshot struct {
	Config    *config.Config
	Profile   string
	Templates []profile.Template
	Matcher   Matcher
	Mover     Mover
}

// Options wires a Controller.
type Options struct {
	Logger  *slog.Logger
	Sink    Sink
	Capture Capturer
	Display int
	Origin  image.Point // screen position of the display's top-left pixel
	Signals *session.Signals
	Session *session.Session
	Initial Snapshot
	Reload  func() (Snapshot, error)
	OnClick func(session.Counters)
	Recycle func(*image.RGBA)
	// Preview, when set, receives an annotated copy of every accepted match
	// together with the match box.
	Preview func(*image.RGBA, image.Rectangle)
	Rand    *rand.Rand
	Now     func() time.Time
	Sleep   func(context.Context, time.Duration) error
}

// Controller is the single worker driving capture, matching and actuation.
type Controller struct {
	logger  *slog.Logger
	sink    Sink
	capture Capturer
	display int
	origin  image.Point
	signals *session.Signals
	sess    *session.Session
	reload  func() (Snapshot, error)
	onClick func(session.Counters)
	recycle func(*image.RGBA)
	preview func(*image.RGBA, image.Rectangle)
	rng     *rand.Rand
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error

	snap       Snapshot
	lastPaused bool
	template   string
	algorithm  string
	approach   string
}

// New validates opts and returns a controller.
func New(opts Options) (*Controller, error) {
	if opts.Capture == nil || opts.Signals == nil || opts.Session == nil {
		return nil, errors.New("cycle: capture, signals and session are required")
	}
	if opts.Initial.Config == nil || opts.Initial.Matcher == nil || opts.Initial.Mover == nil {
		return nil, errors.New("cycle: initial snapshot is incomplete")
	}
	c := &Controller{
		logger:  opts.Logger,
		sink:    opts.Sink,
		capture: opts.Capture,
		display: opts.Display,
		origin:  opts.Origin,
		signals: opts.Signals,
		sess:    opts.Session,
		reload:  opts.Reload,
		onClick: opts.OnClick,
		recycle: opts.Recycle,
		preview: opts.Preview,
		rng:     opts.Rand,
		now:     opts.Now,
		sleep:   opts.Sleep,
		snap:    opts.Initial,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.sink == nil {
		c.sink = LogSink{Logger: c.logger}
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0xc1c1e))
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.sleep == nil {
		c.sleep = motion.Sleep
	}
	return c, nil
}

// Snapshot returns the active configuration snapshot.
func (c *Controller) Snapshot() Snapshot { return c.snap }

// Run loops until a stop template matches, a stop is requested or ctx ends.
// A panic in the loop is recovered and returned as an error.
func (c *Controller) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("controller panic", "error", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("cycle: panic: %v", r)
		}
	}()
	c.lastPaused = false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.signals.Stopped() {
			c.stop("Stop requested")
			return nil
		}
		c.handleRequests()

		if c.signals.Paused() {
			if !c.lastPaused {
				c.lastPaused = true
				c.sess.Transition(session.StateIdle)
				c.sink.Log("PAUSED", SeverityWarn)
				c.publish()
			}
			c.sink.Refresh()
			if err := c.sleep(ctx, pausePoll); err != nil {
				return ctx.Err()
			}
			continue
		}
		if c.lastPaused {
			c.lastPaused = false
			c.sink.Log("RESUMED", SeveritySuccess)
			c.publish()
		}

		stopped, err := c.Tick(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.sess.AddError()
			c.sink.Log(fmt.Sprintf("Cycle failed: %v", err), SeverityError)
			c.logger.Error("cycle failed", "error", err)
		}
		if stopped {
			return nil
		}
		c.SmartSleep(ctx, c.InterCycleDelay(), c.snap.Config.Timing.JitterPct)
	}
}

// Tick performs one scan-and-click cycle and reports whether the run
// reached STOPPED.
func (c *Controller) Tick(ctx context.Context) (bool, error) {
	cfg := c.snap.Config
	c.sess.AddCycle()
	c.sess.Transition(session.StateScanning)
	c.approach = ""
	c.publish()
	c.sink.Refresh()

	img, err := c.capture.CaptureRegion(c.display)
	if err != nil {
		c.sess.Transition(session.StateIdle)
		return false, fmt.Errorf("capture: %w", err)
	}
	frame := vision.NewFrame(img)
	defer c.release(frame)
	c.sink.Log("Scanning...", SeverityInfo)

	var shuffle *rand.Rand
	if streak := c.sess.Streak(); cfg.Timing.FallbackCycles > 0 && streak >= cfg.Timing.FallbackCycles {
		c.sink.Log(fmt.Sprintf("Fallback mode: full scan (streak %d)", streak), SeverityWarn)
		shuffle = c.rng
	}
	order := ScanOrder(c.snap.Templates, c.sess.Expecting(), shuffle)

	for _, t := range order {
		c.template, c.algorithm = t.Name, strings.ToUpper(c.snap.Matcher.Strategy())
		c.publish()
		c.sink.Refresh()
		if err := c.sleep(ctx, ScanVisualDelay); err != nil {
			return false, err
		}

		threshold := ThresholdFor(t.Category, cfg.Matching.MarginalThreshold)
		found, ok := vision.AsFound(c.snap.Matcher.Match(t.Template, frame))
		if !ok || found.Confidence < threshold {
			continue
		}
		c.template = ""
		if t.Category == profile.Stop {
			c.sink.Log("STOP SIGNAL: "+t.Name, SeveritySuccess)
			c.stop("Run complete. Exiting.")
			return true, nil
		}
		c.sess.Hit()
		if c.preview != nil {
			c.preview(vision.Annotate(frame.Image, found), found.Box)
		}
		err := c.handleMatch(ctx, t, found)
		c.sess.Transition(session.StateIdle)
		c.approach = ""
		c.publish()
		return false, err
	}
	c.template = ""
	c.sess.Miss()
	c.sess.Transition(session.StateIdle)
	c.publish()
	return false, nil
}

func (c *Controller) handleMatch(ctx context.Context, t profile.Template, f vision.Found) error {
	cfg := c.snap.Config
	label := fmt.Sprintf("Match: %s [%s] (%.2f)", t.Name, strings.ToUpper(f.Algorithm.String()), f.Confidence)
	if f.Marginal {
		label += " marginal"
	}
	c.sink.Log(label, SeveritySuccess)
	c.logger.Info("match", "template", t.Name, "algorithm", f.Algorithm.String(),
		"confidence", f.Confidence, "marginal", f.Marginal, "box", f.Box.String())

	c.sess.Transition(session.StateApproaching)
	c.approach = approachIndicator
	c.publish()
	c.sink.Refresh()

	pt := f.Center()
	if cfg.Mouse.ClickOffset.Enabled {
		pt = f.ClickPoint(c.rng, cfg.Mouse.ClickOffset.Ratio)
	}
	pt = pt.Add(c.origin)
	at, err := c.snap.Mover.MoveAndClick(ctx, pt.X, pt.Y, false)
	if err != nil {
		return fmt.Errorf("click %s: %w", t.Name, err)
	}
	c.sess.AddClick()
	if c.onClick != nil {
		c.onClick(c.sess.Counters())
	}
	c.sink.Log(fmt.Sprintf("Click executed @ %d,%d", at.X, at.Y), SeverityClick)
	c.approach = ""
	c.sess.Transition(session.StateAwaitingSecondary)
	c.publish()

	if t.Category != profile.Secondary {
		c.sess.SetExpecting(true)
		c.sink.Log("Primary action clicked. Expecting secondary step...", SeverityInfo)
		c.SmartSleep(ctx, config.Seconds(cfg.Timing.VortexLaunchDelay), cfg.Timing.JitterPct)
		return nil
	}

	c.sess.SetExpecting(false)
	c.sink.Log(fmt.Sprintf("Secondary action clicked. Waiting %.1fs", cfg.Timing.WebClickDelay), SeverityInfo)
	c.SmartSleep(ctx, config.Seconds(cfg.Timing.WebClickDelay), cfg.Timing.JitterPct)
	if c.interrupted(ctx) {
		return nil
	}
	c.verify(ctx)
	if c.interrupted(ctx) {
		return nil
	}

	c.sink.Log("Focusing window (click in place)", SeverityInfo)
	if _, err := c.snap.Mover.Click(ctx); err != nil {
		return fmt.Errorf("focus click: %w", err)
	}
	c.sink.Log(fmt.Sprintf("Closing tab (%s)", cfg.Hotkeys.CloseTab), SeverityInfo)
	if err := c.snap.Mover.SendKeys(cfg.Hotkeys.CloseTab); err != nil {
		return fmt.Errorf("close tab: %w", err)
	}
	return nil
}

// interrupted reports whether a stop, pause or cancellation arrived during a
// post-click wait. The remaining focus click and close-tab are then skipped;
// Run handles the signal on its next iteration.
func (c *Controller) interrupted(ctx context.Context) bool {
	if !c.signals.Stopped() && !c.signals.Paused() && ctx.Err() == nil {
		return false
	}
	c.sink.Log("Post-click steps skipped.", SeverityWarn)
	return true
}

// verify polls for the confirmation template until it clears StopThreshold
// or the timeout elapses. A timeout is logged and otherwise ignored.
func (c *Controller) verify(ctx context.Context) bool {
	var confirm *profile.Template
	for i := range c.snap.Templates {
		if c.snap.Templates[i].Category == profile.Confirmation {
			confirm = &c.snap.Templates[i]
			break
		}
	}
	if confirm == nil {
		return false
	}
	c.sink.Log("Verifying confirmation...", SeverityInfo)
	c.template, c.algorithm = "Verifying...", "TEXT_CHECK"
	c.publish()
	defer func() { c.template = "" }()

	timeout := config.Seconds(c.snap.Config.Timing.DownloadVerifyTimeout)
	started := c.now()
	for c.now().Sub(started) < timeout {
		img, err := c.capture.CaptureRegion(c.display)
		if err != nil {
			c.logger.Warn("verification capture failed", "error", err)
		} else {
			frame := vision.NewFrame(img)
			f, ok := vision.AsFound(c.snap.Matcher.Match(confirm.Template, frame))
			c.release(frame)
			if ok && f.Confidence >= StopThreshold {
				c.sink.Log("Confirmation detected.", SeveritySuccess)
				return true
			}
		}
		if !c.SmartSleep(ctx, verifyPoll, 0) {
			c.sink.Log("Verification interrupted.", SeverityWarn)
			return false
		}
	}
	c.sink.Log("Verification TIMEOUT. Closing anyway.", SeverityWarn)
	return false
}

// SmartSleep waits roughly d (scaled by a random ±jitter fraction) in short
// slices, handling reload and strategy requests and refreshing the sink.
// It returns false when cut short by pause, stop or ctx.
func (c *Controller) SmartSleep(ctx context.Context, d time.Duration, jitter float64) bool {
	if jitter > 0 {
		d += time.Duration(float64(d) * (c.rng.Float64()*2 - 1) * jitter)
	}
	if d <= 0 {
		return true
	}
	end := c.now().Add(d)
	for {
		remaining := end.Sub(c.now())
		if remaining <= 0 {
			return true
		}
		c.handleRequests()
		if c.signals.Stopped() || c.signals.Paused() || ctx.Err() != nil {
			return false
		}
		c.sink.Refresh()
		if err := c.sleep(ctx, min(sleepSlice, remaining)); err != nil {
			return false
		}
	}
}

// InterCycleDelay draws the pause between cycles.
func (c *Controller) InterCycleDelay() time.Duration {
	t := c.snap.Config.Timing
	lo, hi := t.MinSleepSeconds, t.MaxSleepSeconds
	return config.Seconds(lo + c.rng.Float64()*(hi-lo))
}

func (c *Controller) handleRequests() {
	if c.signals.TakeReload() {
		c.reloadSnapshot()
	}
	if c.signals.TakeCycle() {
		c.cycleStrategy()
	}
}

func (c *Controller) reloadSnapshot() {
	if c.reload == nil {
		c.sink.Log("Reload unavailable", SeverityWarn)
		return
	}
	next, err := c.reload()
	if err != nil {
		c.sink.Log(fmt.Sprintf("Reload failed: %v", err), SeverityError)
		c.logger.Error("reload failed", "error", err)
		return
	}
	if next.Matcher != c.snap.Matcher {
		if err := c.snap.Matcher.Close(); err != nil {
			c.logger.Warn("closing previous matcher", "error", err)
		}
	}
	if next.Profile != c.snap.Profile {
		c.sink.Log(fmt.Sprintf("Profile switched: %s -> %s", c.snap.Profile, next.Profile), SeveritySuccess)
	}
	c.snap = next
	c.sink.Log("System reloaded. Strategy: "+strings.ToUpper(next.Matcher.Strategy()), SeveritySuccess)
	c.sink.Log(fmt.Sprintf("Templates loaded: %d", len(next.Templates)), SeverityInfo)
	c.publish()
}

func (c *Controller) cycleStrategy() {
	next := vision.NextStrategy(c.snap.Matcher.Strategy())
	cfg := c.snap.Config.Clone()
	cfg.Matching.Strategy = next
	c.snap.Config = cfg
	c.snap.Matcher.SetStrategy(next)
	c.sink.Log("Strategy: "+strings.ToUpper(next), SeveritySuccess)
	c.publish()
}

func (c *Controller) stop(reason string) {
	c.sess.Transition(session.StateStopped)
	c.signals.RequestStop()
	c.sink.Log(reason, SeveritySuccess)
	c.publish()
}

func (c *Controller) release(f *vision.Frame) {
	if err := f.Close(); err != nil {
		c.logger.Warn("frame release", "error", err)
	}
	if c.recycle != nil && f.Image != nil {
		c.recycle(f.Image)
	}
}

func (c *Controller) publish() {
	c.sink.Status(Status{
		Phase:     c.sess.Current(),
		Paused:    c.signals.Paused(),
		Profile:   c.snap.Profile,
		Strategy:  c.snap.Matcher.Strategy(),
		Template:  c.template,
		Algorithm: c.algorithm,
		Approach:  c.approach,
		Streak:    c.sess.Streak(),
		Counters:  c.sess.Counters(),
	})
}
