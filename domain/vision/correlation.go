package vision

import (
	"errors"
	"image"
	"math"
	"runtime"
	"sync"

	"github.com/disintegration/gift"
	"golang.org/x/sync/errgroup"
)

var errTemplateTooLarge = errors.New("template larger than frame")

// planeSet stores per-channel intensity planes of a frame and their
// summed-area tables (integral images). The integrals allow O(1) window sum
// and variance queries.
type planeSet struct {
	planes     [][]float64
	integral   [][]float64
	integralSq [][]float64
	W, H       int
}

// templatePlanes caches channel planes and summary statistics for a template
// (or a scaled version of it).
type templatePlanes struct {
	planes [][]float32
	sum    []float64 // per channel
	varSum float64   // sum over channels of squared deviations from the channel mean
	W, H   int
}

// tmplKey identifies a cached template by image identity and size.
type tmplKey struct {
	img  *image.RGBA
	w, h int
}

// CorrelatorOptions configures the correlation method.
type CorrelatorOptions struct {
	Grayscale bool      // convert to luminance before correlating
	Stride    int       // coarse scan stride; 1 scans every position
	Scales    []float64 // template scale factors; empty means 1.0
}

// Correlator implements normalized cross-correlation with mean subtraction
// (the TM_CCOEFF_NORMED measure) over one plane in grayscale mode or three
// in color mode. It always reports the best location; thresholding is left
// to the caller.
type Correlator struct {
	opts CorrelatorOptions

	mu    sync.RWMutex
	cache map[tmplKey]*templatePlanes
}

// NewCorrelator returns a Correlator with its own template cache.
func NewCorrelator(opts CorrelatorOptions) *Correlator {
	if opts.Stride <= 0 {
		opts.Stride = 1
	}
	return &Correlator{opts: opts, cache: make(map[tmplKey]*templatePlanes)}
}

func (c *Correlator) Algorithm() Algorithm { return AlgoTemplate }

// Match correlates tmpl over frame and returns the best-scoring box.
func (c *Correlator) Match(tmpl Template, frame *Frame) (Result, error) {
	if tmpl.Image == nil || frame == nil || frame.Image == nil {
		return nil, errors.New("correlation: nil image")
	}
	v, err := frame.Memo(c.planeKey(), func() (any, error) {
		return buildPlaneSet(frame.Image, c.opts.Grayscale), nil
	})
	if err != nil {
		return nil, err
	}
	fs := v.(*planeSet)
	base := c.templatePrecomp(tmpl.Image)
	if base == nil {
		return nil, errors.New("correlation: empty template")
	}
	best := multiScaleMatch(fs, base, c.opts.Scales, c.opts.Stride, c.scaled(tmpl.Image))
	if !best.ok {
		return nil, errTemplateTooLarge
	}
	score := best.score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	fb := frame.Image.Bounds()
	minPt := image.Pt(fb.Min.X+best.x, fb.Min.Y+best.y)
	return Found{
		Box:        image.Rectangle{Min: minPt, Max: minPt.Add(image.Pt(best.w, best.h))},
		Confidence: score,
		Algorithm:  AlgoTemplate,
	}, nil
}

func (c *Correlator) planeKey() string {
	if c.opts.Grayscale {
		return "planes.gray"
	}
	return "planes.rgb"
}

// templatePrecomp returns the cached base planes for img, building them once.
func (c *Correlator) templatePrecomp(img *image.RGBA) *templatePlanes {
	b := img.Bounds()
	key := tmplKey{img: img, w: b.Dx(), h: b.Dy()}
	c.mu.RLock()
	pc := c.cache[key]
	c.mu.RUnlock()
	if pc != nil {
		return pc
	}
	pc = buildTemplatePlanes(img, c.opts.Grayscale)
	if pc == nil {
		return nil
	}
	return c.store(key, pc)
}

// scaled returns a lookup for scaled variants of img backed by the cache.
func (c *Correlator) scaled(img *image.RGBA) func(base *templatePlanes, factor float64) *templatePlanes {
	return func(base *templatePlanes, factor float64) *templatePlanes {
		if factor == 1.0 {
			return base
		}
		w := int(float64(base.W) * factor)
		h := int(float64(base.H) * factor)
		if w < 2 || h < 2 {
			return nil
		}
		key := tmplKey{img: img, w: w, h: h}
		c.mu.RLock()
		pc := c.cache[key]
		c.mu.RUnlock()
		if pc != nil {
			return pc
		}
		return c.store(key, scaleTemplatePlanes(base, w, h))
	}
}

func (c *Correlator) store(key tmplKey, pc *templatePlanes) *templatePlanes {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Keep the first insert if another goroutine raced us.
	if existing := c.cache[key]; existing != nil {
		return existing
	}
	c.cache[key] = pc
	return pc
}

// channelPlanes extracts intensity planes (0..255) from img. Grayscale mode
// runs the image through gift's luminance filter and yields one plane.
func channelPlanes(img *image.RGBA, gray bool) ([][]float64, int, int) {
	b := img.Bounds()
	W, H := b.Dx(), b.Dy()
	if gray {
		g := image.NewGray(image.Rect(0, 0, W, H))
		gift.New(gift.Grayscale()).Draw(g, img)
		p := make([]float64, W*H)
		for y := 0; y < H; y++ {
			row := g.Pix[y*g.Stride : y*g.Stride+W]
			for x, v := range row {
				p[y*W+x] = float64(v)
			}
		}
		return [][]float64{p}, W, H
	}
	out := [][]float64{make([]float64, W*H), make([]float64, W*H), make([]float64, W*H)}
	for y := 0; y < H; y++ {
		off := (y+b.Min.Y-img.Rect.Min.Y)*img.Stride + (b.Min.X-img.Rect.Min.X)*4
		for x := 0; x < W; x++ {
			i := off + x*4
			o := y*W + x
			out[0][o] = float64(img.Pix[i])
			out[1][o] = float64(img.Pix[i+1])
			out[2][o] = float64(img.Pix[i+2])
		}
	}
	return out, W, H
}

// buildPlaneSet computes channel planes and their summed-area tables.
func buildPlaneSet(img *image.RGBA, gray bool) *planeSet {
	planes, W, H := channelPlanes(img, gray)
	ps := &planeSet{planes: planes, W: W, H: H}
	for _, p := range planes {
		integral := make([]float64, W*H)
		integralSq := make([]float64, W*H)
		for y := 0; y < H; y++ {
			var rowSum, rowSum2 float64
			for x := 0; x < W; x++ {
				off := y*W + x
				v := p[off]
				rowSum += v
				rowSum2 += v * v
				if y == 0 {
					integral[off] = rowSum
					integralSq[off] = rowSum2
				} else {
					integral[off] = integral[off-W] + rowSum
					integralSq[off] = integralSq[off-W] + rowSum2
				}
			}
		}
		ps.integral = append(ps.integral, integral)
		ps.integralSq = append(ps.integralSq, integralSq)
	}
	return ps
}

func buildTemplatePlanes(img *image.RGBA, gray bool) *templatePlanes {
	planes, w, h := channelPlanes(img, gray)
	if w == 0 || h == 0 {
		return nil
	}
	narrow := make([][]float32, len(planes))
	for c, p := range planes {
		narrow[c] = make([]float32, len(p))
		for i, v := range p {
			narrow[c][i] = float32(v)
		}
	}
	return newTemplatePlanes(narrow, w, h)
}

func newTemplatePlanes(planes [][]float32, w, h int) *templatePlanes {
	n := float64(w * h)
	pc := &templatePlanes{planes: planes, sum: make([]float64, len(planes)), W: w, H: h}
	for c, p := range planes {
		var s, s2 float64
		for _, v := range p {
			fv := float64(v)
			s += fv
			s2 += fv * fv
		}
		pc.sum[c] = s
		pc.varSum += s2 - s*s/n
	}
	if pc.varSum < 0 {
		pc.varSum = 0
	}
	return pc
}

// scaleTemplatePlanes resamples base to w x h with bilinear interpolation on
// the already extracted planes to avoid repeated color conversions.
func scaleTemplatePlanes(base *templatePlanes, w, h int) *templatePlanes {
	fx := float64(base.W) / float64(w)
	fy := float64(base.H) / float64(h)
	bw, bh := base.W, base.H
	out := make([][]float32, len(base.planes))
	for c, src := range base.planes {
		dst := make([]float32, w*h)
		for y := 0; y < h; y++ {
			ys := math.Min(math.Max((float64(y)+0.5)*fy-0.5, 0), float64(bh-1))
			y0 := int(ys)
			y1 := min(y0+1, bh-1)
			dy := ys - float64(y0)
			for x := 0; x < w; x++ {
				xs := math.Min(math.Max((float64(x)+0.5)*fx-0.5, 0), float64(bw-1))
				x0 := int(xs)
				x1 := min(x0+1, bw-1)
				dx := xs - float64(x0)
				top := float64(src[y0*bw+x0])*(1-dx) + float64(src[y0*bw+x1])*dx
				bottom := float64(src[y1*bw+x0])*(1-dx) + float64(src[y1*bw+x1])*dx
				dst[y*w+x] = float32(top*(1-dy) + bottom*dy)
			}
		}
		out[c] = dst
	}
	return newTemplatePlanes(out, w, h)
}

// nccResult is the best window found for one template size.
type nccResult struct {
	x, y  int
	w, h  int
	score float64
	scale float64
	ok    bool
}

const flatEps = 1e-9

// matchPlanes scans every stride-th window of fs and returns the best score,
// then refines around it at stride 1. Rows are split into bands scanned in
// parallel.
func matchPlanes(fs *planeSet, pc *templatePlanes, stride int) nccResult {
	res := nccResult{score: -1}
	if fs == nil || pc == nil || len(fs.planes) != len(pc.planes) {
		return res
	}
	W, H := fs.W, fs.H
	w, h := pc.W, pc.H
	if w == 0 || h == 0 || W < w || H < h {
		return res
	}
	if stride <= 0 {
		stride = 1
	}
	if pc.varSum <= flatEps {
		return matchFlat(fs, pc)
	}

	rows := (H-h)/stride + 1
	bands := min(runtime.NumCPU(), rows)
	partial := make([]nccResult, bands)
	var g errgroup.Group
	for b := 0; b < bands; b++ {
		g.Go(func() error {
			best := nccResult{score: -1}
			for r := b; r < rows; r += bands {
				y := r * stride
				for x := 0; x <= W-w; x += stride {
					if s, ok := windowScore(fs, pc, x, y); ok && s > best.score {
						best = nccResult{x: x, y: y, score: s}
					}
				}
			}
			partial[b] = best
			return nil
		})
	}
	_ = g.Wait()
	best := nccResult{score: -1}
	for _, p := range partial {
		if p.score > best.score {
			best = p
		}
	}
	if best.score < -1+flatEps {
		// every window was flat; report the origin with zero correlation
		best = nccResult{score: 0}
	}
	if stride > 1 {
		minY, maxY := max(0, best.y-stride), min(H-h, best.y+stride)
		minX, maxX := max(0, best.x-stride), min(W-w, best.x+stride)
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				if s, ok := windowScore(fs, pc, x, y); ok && s > best.score {
					best = nccResult{x: x, y: y, score: s}
				}
			}
		}
	}
	best.w, best.h, best.ok = w, h, true
	return best
}

// windowScore computes the correlation coefficient for the window at (x,y).
func windowScore(fs *planeSet, pc *templatePlanes, x, y int) (float64, bool) {
	W := fs.W
	w, h := pc.W, pc.H
	n := float64(w * h)
	var numer, varF float64
	for c := range pc.planes {
		sumF := integralSum(fs.integral[c], W, x, y, x+w-1, y+h-1)
		sumF2 := integralSum(fs.integralSq[c], W, x, y, x+w-1, y+h-1)
		varF += sumF2 - sumF*sumF/n
		fp, tp := fs.planes[c], pc.planes[c]
		var sumFT float64
		for py := 0; py < h; py++ {
			row := (y+py)*W + x
			trow := py * w
			for px := 0; px < w; px++ {
				sumFT += fp[row+px] * float64(tp[trow+px])
			}
		}
		numer += sumFT - sumF*pc.sum[c]/n
	}
	if varF <= flatEps {
		return 0, false
	}
	return numer / math.Sqrt(varF*pc.varSum), true
}

// matchFlat handles a uniform template, whose correlation coefficient is
// undefined: the first uniform window with the same mean color scores 1.
func matchFlat(fs *planeSet, pc *templatePlanes) nccResult {
	W, H := fs.W, fs.H
	w, h := pc.W, pc.H
	n := float64(w * h)
	for y := 0; y <= H-h; y++ {
		for x := 0; x <= W-w; x++ {
			same := true
			for c := range pc.planes {
				sumF := integralSum(fs.integral[c], W, x, y, x+w-1, y+h-1)
				sumF2 := integralSum(fs.integralSq[c], W, x, y, x+w-1, y+h-1)
				if sumF2-sumF*sumF/n > flatEps || math.Abs(sumF/n-pc.sum[c]/n) > 0.5 {
					same = false
					break
				}
			}
			if same {
				return nccResult{x: x, y: y, w: w, h: h, score: 1, ok: true}
			}
		}
	}
	return nccResult{w: w, h: h, score: 0, ok: true}
}

// integralSum returns the inclusive sum over rectangle [x0..x1] x [y0..y1]
// from an integral image stored in row-major order with width W.
func integralSum(I []float64, W int, x0, y0, x1, y1 int) float64 {
	if x0 > x1 || y0 > y1 {
		return 0
	}
	A := func(x, y int) float64 {
		if x < 0 || y < 0 {
			return 0
		}
		return I[y*W+x]
	}
	return A(x1, y1) - A(x0-1, y1) - A(x1, y0-1) + A(x0-1, y0-1)
}
