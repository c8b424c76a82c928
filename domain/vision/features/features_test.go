//go:build opencv

// Run with: go test -tags opencv ./domain/vision/features (needs OpenCV 4.x).
package features

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/autodl-bot-go/domain/vision"
)

// blocks returns a texture of random 8px tiles, which gives the detectors
// plenty of stable corners.
func blocks(w, h int, seed uint64) *image.RGBA {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 8 {
		for x := 0; x < w; x += 8 {
			c := image.NewUniform(rgb(rng))
			draw.Draw(img, image.Rect(x, y, x+8, y+8), c, image.Point{}, draw.Src)
		}
	}
	return img
}

func rgb(rng *rand.Rand) color.RGBA {
	return color.RGBA{uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256)), 255}
}

func cropRGBA(src *image.RGBA, r image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), src, r.Min, draw.Src)
	return out
}

func TestORB_LocatesCroppedRegion(t *testing.T) {
	frameImg := blocks(480, 360, 11)
	want := image.Rect(200, 120, 320, 210)
	m := NewORB()
	defer m.Close()
	assert.Equal(t, vision.AlgoORB, m.Algorithm())

	frame := vision.NewFrame(frameImg)
	defer frame.Close()
	res, err := m.Match(vision.Template{Name: "patch", Image: cropRGBA(frameImg, want)}, frame)
	require.NoError(t, err)
	f, ok := vision.AsFound(res)
	require.True(t, ok, "result: %#v", res)

	c, wc := f.Center(), image.Pt((want.Min.X+want.Max.X)/2, (want.Min.Y+want.Max.Y)/2)
	assert.InDelta(t, wc.X, c.X, 6)
	assert.InDelta(t, wc.Y, c.Y, 6)
}
