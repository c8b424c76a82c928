package vision

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
)

// Template is a named reference image. Images are never mutated after load,
// so the pointer doubles as a cache key.
type Template struct {
	Name  string
	Image *image.RGBA
}

// Frame wraps one captured image for the duration of a cycle and memoizes
// data derived from it (grayscale planes, integral images, detector output)
// so every template matched against the frame shares that work.
type Frame struct {
	Image *image.RGBA

	mu   sync.Mutex
	memo map[string]any
}

// NewFrame wraps img.
func NewFrame(img *image.RGBA) *Frame { return &Frame{Image: img} }

// Memo returns the value cached under key, building it on first use. Values
// implementing io.Closer are closed by Close.
func (f *Frame) Memo(key string, build func() (any, error)) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.memo[key]; ok {
		return v, nil
	}
	v, err := build()
	if err != nil {
		return nil, err
	}
	if f.memo == nil {
		f.memo = make(map[string]any)
	}
	f.memo[key] = v
	return v, nil
}

// Close releases memoized resources. The wrapped image is left untouched.
func (f *Frame) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for k, v := range f.memo {
		if c, ok := v.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", k, err))
			}
		}
	}
	f.memo = nil
	return errors.Join(errs...)
}

// Method is one matching technique.
type Method interface {
	Algorithm() Algorithm
	Match(tmpl Template, frame *Frame) (Result, error)
}

// attempt runs m and converts errors and panics into NotFound so a failing
// method never aborts the caller.
func attempt(m Method, tmpl Template, frame *Frame) (res Result) {
	if m == nil {
		return NotFound{Reason: "method unavailable"}
	}
	defer func() {
		if r := recover(); r != nil {
			res = NotFound{Algorithm: m.Algorithm(), Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()
	r, err := m.Match(tmpl, frame)
	if err != nil {
		return NotFound{Algorithm: m.Algorithm(), Reason: err.Error()}
	}
	if r == nil {
		return NotFound{Algorithm: m.Algorithm()}
	}
	return r
}
