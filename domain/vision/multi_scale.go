package vision

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// maxScaleSteps caps generated scale lists.
const maxScaleSteps = 200

// earlyStopScore ends a multi-scale search once any scale correlates this
// well; further scales cannot meaningfully improve on it.
const earlyStopScore = 0.98

// ScaleRange expands min..max in step increments into explicit factors. A
// degenerate range yields the single factor 1.0.
func ScaleRange(minScale, maxScale, step float64) []float64 {
	if minScale <= 0 || maxScale <= 0 || step <= 0 || maxScale <= minScale {
		return []float64{1.0}
	}
	scales := make([]float64, 0, 16)
	for s := minScale; s <= maxScale+1e-9 && len(scales) < maxScaleSteps; s += step {
		scales = append(scales, s)
	}
	return scales
}

// multiScaleMatch evaluates the template at each scale in parallel and
// returns the best result. A single scale runs inline.
func multiScaleMatch(fs *planeSet, base *templatePlanes, scales []float64, stride int,
	scaled func(*templatePlanes, float64) *templatePlanes) nccResult {
	if len(scales) <= 1 {
		factor := 1.0
		if len(scales) == 1 && scales[0] > 0 {
			factor = scales[0]
		}
		pc := scaled(base, factor)
		if pc == nil {
			return nccResult{score: -1}
		}
		res := matchPlanes(fs, pc, stride)
		res.scale = factor
		return res
	}

	var (
		mu        sync.Mutex
		best      = nccResult{score: -1}
		earlyStop atomic.Bool
		g         errgroup.Group
	)
	g.SetLimit(runtime.NumCPU())
	for _, factor := range scales {
		if factor <= 0 {
			continue
		}
		g.Go(func() error {
			if earlyStop.Load() {
				return nil
			}
			pc := scaled(base, factor)
			if pc == nil {
				return nil
			}
			res := matchPlanes(fs, pc, stride)
			if !res.ok {
				return nil
			}
			res.scale = factor
			if res.score >= earlyStopScore {
				earlyStop.Store(true)
			}
			mu.Lock()
			if res.score > best.score {
				best = res
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return best
}
