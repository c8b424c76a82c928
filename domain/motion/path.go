// Package motion synthesizes human-plausible pointer trajectories and clicks.
package motion

import (
	"math"
	"math/rand/v2"
	"time"
)

// Point is a sub-pixel screen position.
type Point struct{ X, Y float64 }

func (p Point) dist(q Point) float64 { return math.Hypot(q.X-p.X, q.Y-p.Y) }

const (
	maxControlOffset = 400.0
	minMoveDuration  = 100 * time.Millisecond
	minSecPerPx      = 0.0003
	maxSecPerPx      = 0.0006
)

// EaseInOutQuad accelerates over the first half of t and decelerates over
// the second.
func EaseInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

// Bezier evaluates the cubic curve p0..p3 at t.
func Bezier(p0, p1, p2, p3 Point, t float64) Point {
	u := 1 - t
	a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
	return Point{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}

// ControlPoints offsets start and end independently per axis by up to
// min(dist/2, 400) pixels.
func ControlPoints(rng *rand.Rand, start, end Point) (Point, Point) {
	off := math.Min(start.dist(end)*0.5, maxControlOffset)
	spread := func() float64 { return (rng.Float64()*2 - 1) * off }
	return Point{start.X + spread(), start.Y + spread()},
		Point{end.X + spread(), end.Y + spread()}
}

// Path samples a randomized Bézier from start to end at steps+1 eased
// parameters. The first sample is start and the last is end.
func Path(rng *rand.Rand, start, end Point, steps int) []Point {
	if steps < 1 {
		steps = 1
	}
	c1, c2 := ControlPoints(rng, start, end)
	out := make([]Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		out = append(out, Bezier(start, c1, c2, end, EaseInOutQuad(float64(i)/float64(steps))))
	}
	return out
}

// Duration returns the move time for a distance in pixels: 0.3 to 0.6 ms per
// pixel divided by speed, never below 100ms.
func Duration(rng *rand.Rand, dist, speed float64) time.Duration {
	if speed <= 0 {
		speed = 1
	}
	perPx := minSecPerPx + rng.Float64()*(maxSecPerPx-minSecPerPx)
	d := time.Duration(dist * perPx / speed * float64(time.Second))
	return max(d, minMoveDuration)
}

// uniform returns a value in [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}
