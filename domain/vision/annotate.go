package vision

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	boxColor      = color.RGBA{R: 0, G: 220, B: 0, A: 255}
	marginalColor = color.RGBA{R: 240, G: 160, B: 0, A: 255}
)

// Annotator writes copies of matched frames with the box and method overlaid.
type Annotator struct {
	dir string
	now func() time.Time
}

func NewAnnotator(dir string) *Annotator {
	return &Annotator{dir: dir, now: time.Now}
}

// Save draws f onto a copy of frame and writes match_<name>_<unixms>.png. The
// source frame is not modified.
func (a *Annotator) Save(name string, frame *image.RGBA, f Found) (string, error) {
	if frame == nil {
		return "", fmt.Errorf("annotate: nil frame")
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("annotate: create dir: %w", err)
	}
	img := Annotate(frame, f)
	path := filepath.Join(a.dir, fmt.Sprintf("match_%s_%d.png", sanitize(name), a.now().UnixMilli()))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("annotate: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return "", fmt.Errorf("annotate: encode: %w", err)
	}
	return path, out.Close()
}

// Annotate returns a copy of frame with a 2px box around f.Box and an
// "<algo> <conf>" label above it.
func Annotate(frame *image.RGBA, f Found) *image.RGBA {
	b := frame.Bounds()
	img := image.NewRGBA(b)
	draw.Draw(img, b, frame, b.Min, draw.Src)

	col := boxColor
	if f.Marginal {
		col = marginalColor
	}
	box := f.Box.Intersect(b)
	for i := 0; i < 2; i++ {
		r := box.Inset(i)
		if r.Empty() {
			break
		}
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, r.Min.Y, col)
			img.SetRGBA(x, r.Max.Y-1, col)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.SetRGBA(r.Min.X, y, col)
			img.SetRGBA(r.Max.X-1, y, col)
		}
	}

	label := fmt.Sprintf("%s %.3f", f.Algorithm, f.Confidence)
	face := basicfont.Face7x13
	y := f.Box.Min.Y - 4
	if y-face.Ascent < b.Min.Y {
		y = f.Box.Max.Y + face.Ascent + 2
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(f.Box.Min.X, y),
	}
	d.DrawString(label)
	return img
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}
