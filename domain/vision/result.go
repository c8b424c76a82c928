package vision

import (
	"image"
	"math"
	"math/rand/v2"
)

// Algorithm identifies the method that produced a match.
type Algorithm int

const (
	AlgoTemplate Algorithm = iota
	AlgoORB
	AlgoAKAZE
)

func (a Algorithm) String() string {
	switch a {
	case AlgoTemplate:
		return "template"
	case AlgoORB:
		return "orb"
	case AlgoAKAZE:
		return "akaze"
	default:
		return "unknown"
	}
}

// Result is the outcome of a match attempt. It is either NotFound or Found;
// geometry only exists on Found.
type Result interface{ isResult() }

// NotFound carries no geometry.
type NotFound struct {
	Algorithm Algorithm
	Reason    string
}

// Found is a located template. Box is in frame coordinates.
type Found struct {
	Box        image.Rectangle
	Confidence float64
	Algorithm  Algorithm
	// Marginal marks a correlation hit returned below the confidence
	// threshold because nothing better was found.
	Marginal bool
}

func (NotFound) isResult() {}
func (Found) isResult()    {}

// AsFound unwraps r when it is a Found.
func AsFound(r Result) (Found, bool) {
	f, ok := r.(Found)
	return f, ok
}

// Center returns the integer center of the box.
func (f Found) Center() image.Point {
	return image.Pt(f.Box.Min.X+f.Box.Dx()/2, f.Box.Min.Y+f.Box.Dy()/2)
}

// clickSpread bounds a sampled offset to this fraction of each dimension.
const clickSpread = 0.45

// ClickOffset samples a Gaussian offset from the box center. The standard
// deviation is dim*ratio/3 per axis and each axis is clamped to
// ±0.45*dim.
func (f Found) ClickOffset(rng *rand.Rand, ratio float64) (dx, dy float64) {
	w, h := float64(f.Box.Dx()), float64(f.Box.Dy())
	dx = clampAbs(rng.NormFloat64()*w*ratio/3, w*clickSpread)
	dy = clampAbs(rng.NormFloat64()*h*ratio/3, h*clickSpread)
	return dx, dy
}

// ClickPoint returns Center displaced by ClickOffset.
func (f Found) ClickPoint(rng *rand.Rand, ratio float64) image.Point {
	dx, dy := f.ClickOffset(rng, ratio)
	c := f.Center()
	return image.Pt(c.X+int(math.Round(dx)), c.Y+int(math.Round(dy)))
}

func clampAbs(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
