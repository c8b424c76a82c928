package profile

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/corona10/goimagehash"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	cacheSize = 50
	// Templates whose difference hashes are this close are reported as
	// probable duplicates.
	duplicateDistance = 2
)

type cachedImage struct {
	modTime time.Time
	size    int64
	img     *image.RGBA
	hash    *goimagehash.ImageHash
}

// Store loads profile templates and keeps decoded images in an LRU cache
// keyed by path. An entry is reused only while the file's mtime and size are
// unchanged, so the returned *image.RGBA stays pointer-stable across reloads.
type Store struct {
	root   string
	naming Naming
	logger *slog.Logger

	cache  *lru.Cache[string, cachedImage]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewStore returns a store reading profiles under root.
func NewStore(root string, naming Naming, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New[string, cachedImage](cacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &Store{root: root, naming: naming, logger: logger, cache: cache}
}

// Root returns the profiles directory.
func (s *Store) Root() string { return s.root }

// Naming returns the category rules applied to template names.
func (s *Store) Naming() Naming { return s.naming }

// Load reads every PNG in the profile in natural name order. Files that fail
// to decode are skipped with a warning.
func (s *Store) Load(profile string) ([]Template, error) {
	if !validName(profile) {
		return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, profile)
	}
	dir := filepath.Join(s.root, profile)
	files, err := templateFiles(dir)
	if err != nil {
		return nil, err
	}
	out := make([]Template, 0, len(files))
	hashes := make([]*goimagehash.ImageHash, 0, len(files))
	for _, f := range files {
		ci, err := s.image(filepath.Join(dir, f))
		if err != nil {
			s.logger.Warn("template skipped", "profile", profile, "file", f, "error", err)
			continue
		}
		name := stem(f)
		t := Template{Category: s.naming.Classify(name)}
		t.Name = name
		t.Image = ci.img
		for i, h := range hashes {
			if h == nil || ci.hash == nil {
				continue
			}
			if d, err := h.Distance(ci.hash); err == nil && d <= duplicateDistance {
				s.logger.Warn("templates look alike", "a", out[i].Name, "b", name, "distance", d)
			}
		}
		out = append(out, t)
		hashes = append(hashes, ci.hash)
	}
	s.logger.Debug("profile loaded", "profile", profile, "templates", len(out),
		"cache_hits", s.hits.Load(), "cache_misses", s.misses.Load())
	return out, nil
}

// CacheStats reports cache hits, misses and current size.
func (s *Store) CacheStats() (hits, misses uint64, size int) {
	return s.hits.Load(), s.misses.Load(), s.cache.Len()
}

func (s *Store) image(path string) (cachedImage, error) {
	st, err := os.Stat(path)
	if err != nil {
		return cachedImage{}, err
	}
	if ci, ok := s.cache.Get(path); ok && ci.modTime.Equal(st.ModTime()) && ci.size == st.Size() {
		s.hits.Add(1)
		return ci, nil
	}
	s.misses.Add(1)
	img, err := decodePNG(path)
	if err != nil {
		return cachedImage{}, err
	}
	ci := cachedImage{modTime: st.ModTime(), size: st.Size(), img: img}
	if h, err := goimagehash.DifferenceHash(img); err == nil {
		ci.hash = h
	}
	s.cache.Add(path, ci)
	return ci, nil
}

func decodePNG(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("decode %s: empty image", filepath.Base(path))
	}
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	return rgba, nil
}
