package vision

import (
	"image"
	"math"
)

const (
	// LoweRatio is the nearest/second-nearest distance ratio a descriptor
	// match must beat to be kept.
	LoweRatio = 0.75
	// MinGoodMatches is the smallest number of accepted pairs for which a
	// homography is attempted.
	MinGoodMatches = 8
)

// KnnPair holds the two nearest neighbours found for one query descriptor.
// Second is negative when only one neighbour exists.
type KnnPair struct {
	Query, Train int
	Best, Second float64
}

// RatioTest keeps pairs whose best distance is below ratio times the second
// best. Pairs without a second neighbour are rejected.
func RatioTest(pairs []KnnPair, ratio float64) []KnnPair {
	good := make([]KnnPair, 0, len(pairs))
	for _, p := range pairs {
		if p.Second < 0 {
			continue
		}
		if p.Best < ratio*p.Second {
			good = append(good, p)
		}
	}
	return good
}

// ProjectBox maps the template corners (0,0), (w,0), (w,h), (0,h) through
// the row-major 3x3 homography and returns the axis-aligned bounding box of
// the projections. It reports false when a corner projects to infinity or
// the box is empty.
func ProjectBox(hm [9]float64, w, h int) (image.Rectangle, bool) {
	corners := [4][2]float64{{0, 0}, {float64(w), 0}, {float64(w), float64(h)}, {0, float64(h)}}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		z := hm[6]*c[0] + hm[7]*c[1] + hm[8]
		if math.Abs(z) < 1e-12 {
			return image.Rectangle{}, false
		}
		x := (hm[0]*c[0] + hm[1]*c[1] + hm[2]) / z
		y := (hm[3]*c[0] + hm[4]*c[1] + hm[5]) / z
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			return image.Rectangle{}, false
		}
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	r := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
	if r.Empty() {
		return image.Rectangle{}, false
	}
	return r, true
}
