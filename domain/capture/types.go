package capture

import (
	"image"
	"time"
)

// Display describes one capturable region. Index 0 is always the virtual
// desktop spanning every monitor; index 1 is the primary monitor.
type Display struct {
	Index   int
	Bounds  image.Rectangle
	Primary bool
	Virtual bool
}

func (d Display) Width() int  { return d.Bounds.Dx() }
func (d Display) Height() int { return d.Bounds.Dy() }

// FrameSnapshot describes the latest capture. The pixels are not retained:
// frames go back to the pool once the caller is done with them.
type FrameSnapshot struct {
	Bounds     image.Rectangle
	Display    int
	CapturedAt time.Time
	Sequence   uint64
}

// CaptureStats summarises capture behaviour for instrumentation.
type CaptureStats struct {
	Captures         uint64
	Failures         uint64
	AvgCapture       time.Duration
	AvgCaptureMicros float64
	LastCapture      time.Time
	LatestFrameAge   time.Duration
	Sequence         uint64
}
