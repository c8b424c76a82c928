package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/autodl-bot-go/config"
	"github.com/soocke/autodl-bot-go/domain/capture"
	"github.com/soocke/autodl-bot-go/domain/session"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// texture is a non-uniform patch the correlator can lock onto.
func texture(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 37 % 251), uint8(y * 53 % 241), uint8((x*y + 7) % 239), 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// fakeScreen serves a fixed frame with the template pasted at (60, 40).
type fakeScreen struct {
	mu     sync.Mutex
	frame  *image.RGBA
	bounds image.Rectangle
	grabs  int
}

func newFakeScreen(tmpl *image.RGBA) *fakeScreen {
	frame := image.NewRGBA(image.Rect(0, 0, 320, 200))
	for i := range frame.Pix {
		frame.Pix[i] = 30
	}
	tb := tmpl.Bounds()
	for y := 0; y < tb.Dy(); y++ {
		for x := 0; x < tb.Dx(); x++ {
			frame.SetRGBA(60+x, 40+y, tmpl.RGBAAt(x, y))
		}
	}
	return &fakeScreen{frame: frame, bounds: image.Rect(1920, 0, 2240, 200)}
}

func (s *fakeScreen) ListDisplays() ([]capture.Display, error) {
	return []capture.Display{
		{Index: 0, Bounds: image.Rect(0, 0, 2240, 1080), Virtual: true},
		{Index: 1, Bounds: image.Rect(0, 0, 1920, 1080), Primary: true},
		{Index: 2, Bounds: s.bounds},
	}, nil
}

func (s *fakeScreen) CaptureRegion(int) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grabs++
	out := image.NewRGBA(s.frame.Bounds())
	copy(out.Pix, s.frame.Pix)
	return out, nil
}

type nopActuator struct{}

func (nopActuator) MoveTo(int, int) error       { return nil }
func (nopActuator) Position() (int, int, error) { return 0, 0, nil }
func (nopActuator) Press() error                { return nil }
func (nopActuator) Release() error              { return nil }
func (nopActuator) SendKeys(string) error       { return nil }

type fixture struct {
	dir     string
	cfgPath string
	cfg     *config.Config
	screen  *fakeScreen
}

func newFixture(t *testing.T, templates map[string]*image.RGBA) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Profiles.ProfilesDir = filepath.Join(dir, "profiles")
	cfg.Profiles.ActiveProfile = "missing"
	cfg.Stats.Path = filepath.Join(dir, "stats.db")
	cfg.Display.Monitor = 2
	cfg.UI.Enabled = false
	cfg.Timing.MinSleepSeconds = 0.01
	cfg.Timing.MaxSleepSeconds = 0.02
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.Save(cfgPath))
	for name, img := range templates {
		writePNG(t, filepath.Join(cfg.Profiles.ProfilesDir, "alpha", name+".png"), img)
	}
	var first *image.RGBA
	for _, img := range templates {
		first = img
		break
	}
	return &fixture{dir: dir, cfgPath: cfgPath, cfg: cfg, screen: newFakeScreen(first)}
}

func (f *fixture) build(t *testing.T, startRunning bool) *Container {
	t.Helper()
	c, err := BuildContainer(Options{
		ConfigPath:   f.cfgPath,
		Headless:     true,
		StartRunning: startRunning,
		Capture:      f.screen,
		Actuator:     nopActuator{},
	}, discardLogger)
	require.NoError(t, err)
	return c
}

func TestBuildContainer_FallsBackAndPersistsProfile(t *testing.T) {
	f := newFixture(t, map[string]*image.RGBA{"stop_done": texture(24, 16)})
	c := f.build(t, false)
	defer c.Close()

	snap := c.Controller.Snapshot()
	assert.Equal(t, "alpha", snap.Profile)
	require.Len(t, snap.Templates, 1)
	assert.Equal(t, 2, c.Display.Index)
	assert.True(t, c.Signals.Paused())
	assert.NotEmpty(t, c.StatsID)

	saved, err := config.Load(f.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "alpha", saved.Profiles.ActiveProfile)
}

func TestBuildContainer_InvalidMonitor(t *testing.T) {
	f := newFixture(t, map[string]*image.RGBA{"stop_done": texture(24, 16)})
	f.cfg.Display.Monitor = 9
	require.NoError(t, f.cfg.Save(f.cfgPath))
	_, err := BuildContainer(Options{ConfigPath: f.cfgPath, Headless: true, Capture: f.screen, Actuator: nopActuator{}}, discardLogger)
	require.Error(t, err)
	assert.True(t, errors.Is(err, capture.ErrInvalidDisplay))
}

func TestBuildContainer_EmptyProfilesDir(t *testing.T) {
	f := newFixture(t, map[string]*image.RGBA{"stop_done": texture(24, 16)})
	f.cfg.Profiles.ProfilesDir = filepath.Join(f.dir, "nothing-here")
	require.NoError(t, f.cfg.Save(f.cfgPath))
	_, err := BuildContainer(Options{ConfigPath: f.cfgPath, Headless: true, Capture: f.screen, Actuator: nopActuator{}}, discardLogger)
	require.Error(t, err)
}

func TestReload_PicksUpNewTemplates(t *testing.T) {
	f := newFixture(t, map[string]*image.RGBA{"stop_done": texture(24, 16)})
	c := f.build(t, false)
	defer c.Close()

	writePNG(t, filepath.Join(f.cfg.Profiles.ProfilesDir, "alpha", "vortex_download.png"), texture(10, 10))
	snap, err := c.Reload()
	require.NoError(t, err)
	assert.Len(t, snap.Templates, 2)
}

func TestRun_StopTemplateEndsHeadlessRun(t *testing.T) {
	f := newFixture(t, map[string]*image.RGBA{"stop_done": texture(24, 16)})
	c := f.build(t, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, Run(ctx, c, nil))

	assert.Equal(t, session.StateStopped, c.Session.Current())
	assert.True(t, c.Signals.Stopped())
	assert.GreaterOrEqual(t, f.screen.grabs, 1)
}

type closingFrontend struct{ ran bool }

func (f *closingFrontend) Run(<-chan struct{}) error {
	f.ran = true
	return nil
}

func TestRun_FrontendCloseStopsController(t *testing.T) {
	f := newFixture(t, map[string]*image.RGBA{"vortex_download": texture(24, 16)})
	c := f.build(t, false)

	front := &closingFrontend{}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, Run(ctx, c, front))
	assert.True(t, front.ran)
	assert.True(t, c.Signals.Stopped())
}
