package motion

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/soocke/autodl-bot-go/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// recorder is an Actuator that tracks the pointer and logs every call.
type recorder struct {
	x, y   int
	moves  []image.Point
	events []string
	keys   []string
}

func (r *recorder) MoveTo(x, y int) error {
	r.x, r.y = x, y
	r.moves = append(r.moves, image.Pt(x, y))
	return nil
}
func (r *recorder) Position() (int, int, error) { return r.x, r.y, nil }
func (r *recorder) Press() error                { r.events = append(r.events, "press"); return nil }
func (r *recorder) Release() error              { r.events = append(r.events, "release"); return nil }
func (r *recorder) SendKeys(c string) error     { r.keys = append(r.keys, c); return nil }

// fakeClock advances only when slept on.
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
	return nil
}

func quietMouse() config.Mouse {
	m := config.DefaultConfig().Mouse
	m.Overshoot.Enabled = false
	m.Jitter.Enabled = false
	return m
}

func newTestEngine(act *recorder, mouse config.Mouse, seed uint64) (*Engine, *fakeClock) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	e := NewEngine(act, mouse, config.DefaultConfig().Timing, discardLogger,
		WithRand(rand.New(rand.NewPCG(seed, seed))),
		WithClock(clk.now, clk.sleep))
	return e, clk
}

func TestEaseInOutQuad(t *testing.T) {
	assert.Equal(t, 0.0, EaseInOutQuad(0))
	assert.Equal(t, 0.5, EaseInOutQuad(0.5))
	assert.Equal(t, 1.0, EaseInOutQuad(1))
	assert.InDelta(t, 0.125, EaseInOutQuad(0.25), 1e-12)
	assert.InDelta(t, 0.875, EaseInOutQuad(0.75), 1e-12)
	prev := -1.0
	for i := 0; i <= 100; i++ {
		v := EaseInOutQuad(float64(i) / 100)
		require.GreaterOrEqual(t, v, prev)
		prev = v
	}
}

func TestPath_EndpointsAndLength(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	start, end := Point{10, 20}, Point{610, 420}
	p := Path(rng, start, end, 50)
	require.Len(t, p, 51)
	assert.InDelta(t, start.X, p[0].X, 1e-9)
	assert.InDelta(t, start.Y, p[0].Y, 1e-9)
	assert.InDelta(t, end.X, p[50].X, 1e-9)
	assert.InDelta(t, end.Y, p[50].Y, 1e-9)
}

func TestControlPoints_Bounded(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	cases := []struct {
		start, end Point
		limit      float64
	}{
		{Point{0, 0}, Point{100, 0}, 50},
		{Point{0, 0}, Point{3000, 0}, 400},
	}
	for _, tc := range cases {
		for i := 0; i < 1000; i++ {
			c1, c2 := ControlPoints(rng, tc.start, tc.end)
			require.LessOrEqual(t, math.Abs(c1.X-tc.start.X), tc.limit)
			require.LessOrEqual(t, math.Abs(c1.Y-tc.start.Y), tc.limit)
			require.LessOrEqual(t, math.Abs(c2.X-tc.end.X), tc.limit)
			require.LessOrEqual(t, math.Abs(c2.Y-tc.end.Y), tc.limit)
		}
	}
}

func TestDuration(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 200; i++ {
		d := Duration(rng, 1000, 1)
		require.GreaterOrEqual(t, d, 300*time.Millisecond)
		require.LessOrEqual(t, d, 600*time.Millisecond)
	}
	assert.Equal(t, 100*time.Millisecond, Duration(rng, 10, 1))
	assert.LessOrEqual(t, Duration(rng, 1000, 2), 300*time.Millisecond)
}

func TestMoveTo_EndsOnTargetWithoutJitter(t *testing.T) {
	act := &recorder{x: 100, y: 100}
	mouse := quietMouse()
	mouse.CurveResolution = 40
	e, clk := newTestEngine(act, mouse, 7)
	require.NoError(t, e.MoveTo(context.Background(), 900, 500))
	require.Len(t, act.moves, 41)
	assert.Equal(t, image.Pt(900, 500), act.moves[40])

	var total time.Duration
	for _, d := range clk.sleeps {
		total += d
	}
	// dist ~894px at 0.3..0.6 ms/px
	assert.GreaterOrEqual(t, total, 260*time.Millisecond)
	assert.LessOrEqual(t, total, 540*time.Millisecond)
}

func TestMoveTo_JitterStaysWithinAmplitude(t *testing.T) {
	act := &recorder{}
	mouse := quietMouse()
	mouse.Jitter = config.Jitter{Enabled: true, AmplitudePx: 2, Frequency: 1}
	mouse.CurveResolution = 10
	e, _ := newTestEngine(act, mouse, 8)
	require.NoError(t, e.MoveTo(context.Background(), 300, 0))
	last := act.moves[len(act.moves)-1]
	assert.LessOrEqual(t, math.Abs(float64(last.X-300)), 2.0)
	assert.LessOrEqual(t, math.Abs(float64(last.Y)), 2.0)
}

func TestClick_PressHoldRelease(t *testing.T) {
	act := &recorder{x: 5, y: 6}
	e, clk := newTestEngine(act, quietMouse(), 9)
	at, err := e.Click(context.Background())
	require.NoError(t, err)
	assert.Equal(t, image.Pt(5, 6), at)
	assert.Equal(t, []string{"press", "release"}, act.events)
	require.Len(t, clk.sleeps, 1)
	assert.GreaterOrEqual(t, clk.sleeps[0], 60*time.Millisecond)
	assert.LessOrEqual(t, clk.sleeps[0], 140*time.Millisecond)
}

func TestClick_ReleasesWhenInterrupted(t *testing.T) {
	act := &recorder{}
	e, _ := newTestEngine(act, quietMouse(), 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Click(ctx)
	require.Error(t, err)
	assert.Equal(t, []string{"press", "release"}, act.events)
}

func TestMoveAndClick_ReturnsHome(t *testing.T) {
	act := &recorder{x: 50, y: 60}
	e, _ := newTestEngine(act, quietMouse(), 11)
	at, err := e.MoveAndClick(context.Background(), 400, 300, true)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(400, 300), at)
	assert.Equal(t, image.Pt(50, 60), act.moves[len(act.moves)-1])
}

func TestMoveAndClick_OvershootVisitsNearbyPoint(t *testing.T) {
	act := &recorder{x: 0, y: 0}
	mouse := quietMouse()
	mouse.Overshoot = config.Overshoot{Enabled: true, Probability: 1, DistanceMinPx: 20, DistanceMaxPx: 30, CorrectionDelayMs: 60}
	mouse.CurveResolution = 10
	e, clk := newTestEngine(act, mouse, 12)
	at, err := e.MoveAndClick(context.Background(), 500, 500, false)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(500, 500), at)

	// end of the first glide is the overshoot point
	over := act.moves[10]
	d := math.Hypot(float64(over.X-500), float64(over.Y-500))
	assert.GreaterOrEqual(t, d, 18.0)
	assert.LessOrEqual(t, d, 32.0)
	assert.Contains(t, clk.sleeps, 60*time.Millisecond)
}

func TestSleep_Interrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Sleep(ctx, time.Second)
	assert.True(t, errors.Is(err, ErrInterrupted))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NoError(t, Sleep(context.Background(), 0))
}

func TestSendKeys_Forwards(t *testing.T) {
	act := &recorder{}
	e, _ := newTestEngine(act, quietMouse(), 13)
	require.NoError(t, e.SendKeys("ctrl+w"))
	assert.Equal(t, []string{"ctrl+w"}, act.keys)
}
