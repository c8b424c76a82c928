package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialDocumentKeepsDefaults(t *testing.T) {
	p := writeTemp(t, `
matching:
  strategy: ORB
  marginal_threshold: 0.5
mouse:
  jitter:
    amplitude_px: 3
timing:
  fallback_cycles: 7
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, StrategyORB, cfg.Matching.Strategy)
	assert.InDelta(t, 0.5, cfg.Matching.MarginalThreshold, 1e-9)
	assert.InDelta(t, 0.80, cfg.Matching.ConfidenceThreshold, 1e-9)
	assert.InDelta(t, 3.0, cfg.Mouse.Jitter.AmplitudePx, 1e-9)
	assert.True(t, cfg.Mouse.Jitter.Enabled, "sibling key should keep default")
	assert.InDelta(t, 0.25, cfg.Mouse.Jitter.Frequency, 1e-9)
	assert.Equal(t, 7, cfg.Timing.FallbackCycles)
	assert.Equal(t, "ctrl+w", cfg.Hotkeys.CloseTab)
}

func TestLoad_MalformedFallsBackToDefaults(t *testing.T) {
	p := writeTemp(t, "matching: [unterminated\n  strategy: orb")
	cfg, err := Load(p)
	require.Error(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_WrongTypeFallsBackToDefaults(t *testing.T) {
	p := writeTemp(t, "timing:\n  fallback_cycles: many\n")
	cfg, err := Load(p)
	require.Error(t, err)
	assert.Equal(t, 4, cfg.Timing.FallbackCycles)
}

func TestValidate_Clamps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Matching.ConfidenceThreshold = 1.5
	cfg.Matching.MarginalThreshold = 0.95
	cfg.Matching.Strategy = "surf"
	cfg.Timing.MinSleepSeconds = 3
	cfg.Timing.MaxSleepSeconds = 1
	cfg.Timing.HesitationMinMs = 200
	cfg.Timing.HesitationMaxMs = 100
	cfg.Mouse.SpeedFactor = 0
	cfg.Mouse.Overshoot.Probability = 2
	cfg.Mouse.ClickOffset.Ratio = -1
	cfg.Hotkeys.PauseBot = " F9 "
	cfg.Hotkeys.StopBot = ""
	require.NoError(t, cfg.Validate())

	assert.InDelta(t, 0.80, cfg.Matching.ConfidenceThreshold, 1e-9)
	assert.InDelta(t, 0.80, cfg.Matching.MarginalThreshold, 1e-9, "marginal never exceeds confidence")
	assert.Equal(t, StrategyCascade, cfg.Matching.Strategy)
	assert.Equal(t, 3.0, cfg.Timing.MaxSleepSeconds)
	assert.Equal(t, 200, cfg.Timing.HesitationMaxMs)
	assert.Equal(t, 1.0, cfg.Mouse.SpeedFactor)
	assert.Equal(t, 1.0, cfg.Mouse.Overshoot.Probability)
	assert.Equal(t, 0.0, cfg.Mouse.ClickOffset.Ratio)
	assert.Equal(t, "f9", cfg.Hotkeys.PauseBot)
	assert.Equal(t, "f10", cfg.Hotkeys.StopBot)
}

func TestSaveThenLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Profiles.ActiveProfile = "vortex"
	cfg.Display.Monitor = 2
	require.NoError(t, cfg.Save(p))

	got, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestWriteDefault_DoesNotOverwrite(t *testing.T) {
	p := writeTemp(t, "ui:\n  enabled: false\n")
	wrote, err := WriteDefault(p, []byte("ui:\n  enabled: true\n"))
	require.NoError(t, err)
	assert.False(t, wrote)
	body, _ := os.ReadFile(p)
	assert.Contains(t, string(body), "enabled: false")
}

func TestNormalizeStrategy(t *testing.T) {
	assert.Equal(t, StrategyAKAZE, NormalizeStrategy(" AKAZE "))
	assert.Equal(t, StrategyCascade, NormalizeStrategy(""))
}
