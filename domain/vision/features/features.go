// Package features implements keypoint matching (ORB, AKAZE) on OpenCV.
package features

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/soocke/autodl-bot-go/domain/vision"
)

const (
	ransacThreshold  = 5.0
	ransacMaxIters   = 2000
	ransacConfidence = 0.995
	minKeypoints     = 2

	orbFeatures    = 800
	orbScaleFactor = 1.2
	orbLevels      = 8
)

type detector interface {
	DetectAndCompute(src gocv.Mat, mask gocv.Mat) ([]gocv.KeyPoint, gocv.Mat)
	Close() error
}

// keypoints is one side of a match: detected keypoints and their descriptors.
type keypoints struct {
	points []gocv.KeyPoint
	desc   gocv.Mat
}

func (k *keypoints) Close() error { return k.desc.Close() }

// Method is a feature matcher. It is safe for concurrent use; calls into
// OpenCV are serialized.
type Method struct {
	algo vision.Algorithm

	mu       sync.Mutex
	detector detector
	matcher  gocv.BFMatcher
	cache    map[*image.RGBA]*keypoints
}

// NewORB returns an ORB-based matcher with 800 features over an 8-level
// pyramid. The remaining parameters are OpenCV's defaults.
func NewORB() *Method {
	d := gocv.NewORBWithParams(orbFeatures, orbScaleFactor, orbLevels, 31, 0, 2, gocv.ORBScoreTypeHarris, 31, 20)
	return newMethod(vision.AlgoORB, &d)
}

// NewAKAZE returns an AKAZE-based matcher.
func NewAKAZE() *Method {
	d := gocv.NewAKAZE()
	return newMethod(vision.AlgoAKAZE, &d)
}

func newMethod(algo vision.Algorithm, d detector) *Method {
	return &Method{
		algo:     algo,
		detector: d,
		matcher:  gocv.NewBFMatcherWithParams(gocv.NormHamming, false),
		cache:    make(map[*image.RGBA]*keypoints),
	}
}

func (m *Method) Algorithm() vision.Algorithm { return m.algo }

// Match locates tmpl in frame through ratio-tested descriptor matches and a
// RANSAC homography. The box is the bounding box of the projected template
// corners; confidence is accepted pairs over candidate pairs.
func (m *Method) Match(tmpl vision.Template, frame *vision.Frame) (vision.Result, error) {
	if tmpl.Image == nil || frame == nil || frame.Image == nil {
		return nil, errors.New("features: nil image")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tk, err := m.templateKeypoints(tmpl.Image)
	if err != nil {
		return nil, err
	}
	v, err := frame.Memo("features."+m.algo.String(), func() (any, error) {
		return m.detect(frame.Image)
	})
	if err != nil {
		return nil, err
	}
	fk := v.(*keypoints)
	if len(tk.points) < minKeypoints || len(fk.points) < minKeypoints || tk.desc.Empty() || fk.desc.Empty() {
		return vision.NotFound{Algorithm: m.algo, Reason: "too few keypoints"}, nil
	}

	knn := m.matcher.KnnMatch(tk.desc, fk.desc, 2)
	pairs := make([]vision.KnnPair, 0, len(knn))
	for _, ms := range knn {
		if len(ms) == 0 {
			continue
		}
		p := vision.KnnPair{Query: ms[0].QueryIdx, Train: ms[0].TrainIdx, Best: ms[0].Distance, Second: -1}
		if len(ms) > 1 {
			p.Second = ms[1].Distance
		}
		pairs = append(pairs, p)
	}
	good := vision.RatioTest(pairs, vision.LoweRatio)
	if len(good) < vision.MinGoodMatches {
		return vision.NotFound{Algorithm: m.algo, Reason: fmt.Sprintf("%d good matches", len(good))}, nil
	}

	src := gocv.NewMatWithSize(len(good), 2, gocv.MatTypeCV32F)
	defer src.Close()
	dst := gocv.NewMatWithSize(len(good), 2, gocv.MatTypeCV32F)
	defer dst.Close()
	for i, p := range good {
		tp, fp := tk.points[p.Query], fk.points[p.Train]
		src.SetFloatAt(i, 0, float32(tp.X))
		src.SetFloatAt(i, 1, float32(tp.Y))
		dst.SetFloatAt(i, 0, float32(fp.X))
		dst.SetFloatAt(i, 1, float32(fp.Y))
	}
	mask := gocv.NewMat()
	defer mask.Close()
	h := gocv.FindHomography(src, &dst, gocv.HomograpyMethodRANSAC, ransacThreshold, &mask, ransacMaxIters, ransacConfidence)
	defer h.Close()
	if h.Empty() || h.Rows() != 3 || h.Cols() != 3 {
		return vision.NotFound{Algorithm: m.algo, Reason: "homography failed"}, nil
	}
	var hm [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			hm[r*3+c] = h.GetDoubleAt(r, c)
		}
	}
	tb := tmpl.Image.Bounds()
	box, ok := vision.ProjectBox(hm, tb.Dx(), tb.Dy())
	if !ok {
		return vision.NotFound{Algorithm: m.algo, Reason: "degenerate projection"}, nil
	}
	fb := frame.Image.Bounds()
	return vision.Found{
		Box:        box.Add(fb.Min),
		Confidence: float64(len(good)) / float64(len(knn)),
		Algorithm:  m.algo,
	}, nil
}

func (m *Method) templateKeypoints(img *image.RGBA) (*keypoints, error) {
	if k, ok := m.cache[img]; ok {
		return k, nil
	}
	k, err := m.detect(img)
	if err != nil {
		return nil, err
	}
	m.cache[img] = k
	return k, nil
}

func (m *Method) detect(img *image.RGBA) (*keypoints, error) {
	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("features: convert: %w", err)
	}
	defer rgb.Close()
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(rgb, &gray, gocv.ColorRGBToGray)
	mask := gocv.NewMat()
	defer mask.Close()
	kps, desc := m.detector.DetectAndCompute(gray, mask)
	return &keypoints{points: kps, desc: desc}, nil
}

// Close releases the detector, matcher and cached template descriptors.
func (m *Method) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	errs := []error{m.detector.Close(), m.matcher.Close()}
	for k, v := range m.cache {
		errs = append(errs, v.Close())
		delete(m.cache, k)
	}
	return errors.Join(errs...)
}

var _ vision.Method = (*Method)(nil)
