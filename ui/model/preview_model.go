package model

import (
	"image"
	"sync/atomic"
)

// Preview is one annotated match frame and the box that matched.
type Preview struct {
	Image *image.RGBA
	Box   image.Rectangle
}

// PreviewModel holds the most recent match preview. The zero value is empty
// and usable. Writers and the UI tick may race, hence the atomic.
type PreviewModel struct {
	latest  atomic.Pointer[Preview]
	version atomic.Uint64
}

// Set replaces the preview. A nil image is ignored.
func (m *PreviewModel) Set(img *image.RGBA, box image.Rectangle) {
	if m == nil || img == nil {
		return
	}
	m.latest.Store(&Preview{Image: img, Box: box})
	m.version.Add(1)
}

// Latest returns the current preview (nil when none) and its version.
func (m *PreviewModel) Latest() (*Preview, uint64) {
	if m == nil {
		return nil, 0
	}
	v := m.version.Load()
	return m.latest.Load(), v
}
