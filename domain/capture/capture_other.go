//go:build !windows

package capture

import (
	"image"
	"image/draw"

	"github.com/vova616/screenshot"
)

// enumMonitors reports the screen known to the screenshot backend. Only the
// primary screen is visible through it, so the virtual desktop equals it.
func enumMonitors() ([]image.Rectangle, error) {
	r, err := screenshot.ScreenRect()
	if err != nil {
		return nil, err
	}
	return []image.Rectangle{r}, nil
}

// grabRect captures r and copies it into a pooled frame anchored at (0,0).
func grabRect(r image.Rectangle) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, err
	}
	dst := acquireFrame(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return dst, nil
}
