package motion

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/soocke/autodl-bot-go/config"
	"github.com/soocke/autodl-bot-go/domain/action"
)

// ErrInterrupted is returned when the context ends during a motion pause.
var ErrInterrupted = errors.New("motion interrupted")

const (
	clickHoldMin  = 60 * time.Millisecond
	clickHoldMax  = 140 * time.Millisecond
	returnWaitMin = 40 * time.Millisecond
	returnWaitMax = 80 * time.Millisecond
)

// Engine drives an Actuator along generated paths. It is not safe for
// concurrent use; the cycle controller is its only caller.
type Engine struct {
	act    action.Actuator
	mouse  config.Mouse
	hesMin time.Duration
	hesMax time.Duration
	logger *slog.Logger

	rng   *rand.Rand
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRand sets the random source.
func WithRand(rng *rand.Rand) Option { return func(e *Engine) { e.rng = rng } }

// WithClock replaces wall-clock time and sleeping.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(e *Engine) {
		e.now = now
		e.sleep = sleep
	}
}

// NewEngine returns an engine for the given motion and timing settings.
func NewEngine(act action.Actuator, mouse config.Mouse, timing config.Timing, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		act:    act,
		mouse:  mouse,
		hesMin: config.Millis(timing.HesitationMinMs),
		hesMax: config.Millis(timing.HesitationMaxMs),
		logger: logger,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:    time.Now,
		sleep:  Sleep,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	case <-t.C:
		return nil
	}
}

func (e *Engine) pause(ctx context.Context, lo, hi time.Duration) error {
	return e.sleep(ctx, time.Duration(uniform(e.rng, float64(lo), float64(hi))))
}

// MoveTo glides the pointer from its current position to (x, y).
func (e *Engine) MoveTo(ctx context.Context, x, y int) error {
	sx, sy, err := e.act.Position()
	if err != nil {
		return fmt.Errorf("read pointer: %w", err)
	}
	start, end := Point{float64(sx), float64(sy)}, Point{float64(x), float64(y)}
	steps := max(e.mouse.CurveResolution, 1)
	path := Path(e.rng, start, end, steps)
	total := Duration(e.rng, start.dist(end), e.mouse.SpeedFactor)
	began := e.now()
	for i, p := range path {
		p = e.tremor(p)
		if err := e.act.MoveTo(int(math.Round(p.X)), int(math.Round(p.Y))); err != nil {
			return fmt.Errorf("move pointer: %w", err)
		}
		target := began.Add(total * time.Duration(i) / time.Duration(steps))
		if wait := target.Sub(e.now()); wait > 0 {
			if err := e.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) tremor(p Point) Point {
	j := e.mouse.Jitter
	if !j.Enabled || j.AmplitudePx <= 0 || e.rng.Float64() >= j.Frequency {
		return p
	}
	p.X += uniform(e.rng, -j.AmplitudePx, j.AmplitudePx)
	p.Y += uniform(e.rng, -j.AmplitudePx, j.AmplitudePx)
	return p
}

// Hesitate pauses for a random perception-to-action delay.
func (e *Engine) Hesitate(ctx context.Context) error {
	return e.pause(ctx, e.hesMin, e.hesMax)
}

// Click presses and releases the left button and returns the pointer
// position afterwards.
func (e *Engine) Click(ctx context.Context) (image.Point, error) {
	if err := e.act.Press(); err != nil {
		return image.Point{}, fmt.Errorf("press: %w", err)
	}
	holdErr := e.pause(ctx, clickHoldMin, clickHoldMax)
	if err := e.act.Release(); err != nil {
		return image.Point{}, fmt.Errorf("release: %w", err)
	}
	if holdErr != nil {
		return image.Point{}, holdErr
	}
	x, y, err := e.act.Position()
	if err != nil {
		return image.Point{}, fmt.Errorf("read pointer: %w", err)
	}
	return image.Pt(x, y), nil
}

// MoveAndClick moves to (x, y), possibly overshooting first, hesitates,
// clicks, and optionally returns to where the pointer started.
func (e *Engine) MoveAndClick(ctx context.Context, x, y int, returnHome bool) (image.Point, error) {
	hx, hy, err := e.act.Position()
	if err != nil {
		return image.Point{}, fmt.Errorf("read pointer: %w", err)
	}
	if o := e.mouse.Overshoot; o.Enabled && e.rng.Float64() < o.Probability {
		angle := e.rng.Float64() * 2 * math.Pi
		dist := uniform(e.rng, o.DistanceMinPx, o.DistanceMaxPx)
		ox := x + int(math.Cos(angle)*dist)
		oy := y + int(math.Sin(angle)*dist)
		e.logger.Debug("overshoot", "x", ox, "y", oy)
		if err := e.MoveTo(ctx, ox, oy); err != nil {
			return image.Point{}, err
		}
		if err := e.sleep(ctx, config.Millis(o.CorrectionDelayMs)); err != nil {
			return image.Point{}, err
		}
	}
	if err := e.MoveTo(ctx, x, y); err != nil {
		return image.Point{}, err
	}
	if err := e.Hesitate(ctx); err != nil {
		return image.Point{}, err
	}
	at, err := e.Click(ctx)
	if err != nil {
		return image.Point{}, err
	}
	if returnHome {
		if err := e.pause(ctx, returnWaitMin, returnWaitMax); err != nil {
			return at, err
		}
		if err := e.MoveTo(ctx, hx, hy); err != nil {
			return at, err
		}
	}
	return at, nil
}

// SendKeys forwards a key combination such as "ctrl+w".
func (e *Engine) SendKeys(combo string) error {
	return e.act.SendKeys(combo)
}
