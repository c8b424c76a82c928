package images

import (
	"errors"
	"image"
	"image/draw"
)

// ExtractROI copies a square of side size centred on (cx, cy) out of frame.
// The window slides to stay inside the frame and shrinks only when the frame
// is smaller than size. The copy is rebased to (0,0); rect is the window in
// frame coordinates.
func ExtractROI(frame *image.RGBA, cx, cy, size int) (*image.RGBA, image.Rectangle, error) {
	if frame == nil {
		return nil, image.Rectangle{}, errors.New("nil frame")
	}
	b := frame.Bounds()
	if b.Empty() {
		return nil, image.Rectangle{}, errors.New("empty frame")
	}
	size = max(size, 1)
	w, h := min(size, b.Dx()), min(size, b.Dy())
	x0 := clampInt(cx-size/2, b.Min.X, b.Max.X-w)
	y0 := clampInt(cy-size/2, b.Min.Y, b.Max.Y-h)
	roi := image.Rect(x0, y0, x0+w, y0+h)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), frame, roi.Min, draw.Src)
	return out, roi, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
