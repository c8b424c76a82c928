package config

import (
	"strings"
	"time"
)

// Config holds runtime configuration for matching, pointer motion, timing and
// presentation. Fields are loaded from a YAML document; any key missing from the
// document keeps its value from DefaultConfig.
type Config struct {
	Matching Matching `mapstructure:"matching" yaml:"matching"`
	Timing   Timing   `mapstructure:"timing" yaml:"timing"`
	Mouse    Mouse    `mapstructure:"mouse" yaml:"mouse"`
	Hotkeys  Hotkeys  `mapstructure:"hotkeys" yaml:"hotkeys"`
	Display  Display  `mapstructure:"display" yaml:"display"`
	Profiles Profiles `mapstructure:"profiles" yaml:"profiles"`
	Visual   Visual   `mapstructure:"visual" yaml:"visual"`
	UI       UI       `mapstructure:"ui" yaml:"ui"`
	Stats    Stats    `mapstructure:"stats" yaml:"stats"`
}

// Matching parameters.
type Matching struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	MarginalThreshold   float64 `mapstructure:"marginal_threshold" yaml:"marginal_threshold"`
	UseGrayscale        bool    `mapstructure:"use_grayscale" yaml:"use_grayscale"`
	Strategy            string  `mapstructure:"strategy" yaml:"strategy"`
	// Correlation scale sweep. ScaleMin == ScaleMax evaluates a single scale.
	ScaleMin  float64 `mapstructure:"scale_min" yaml:"scale_min"`
	ScaleMax  float64 `mapstructure:"scale_max" yaml:"scale_max"`
	ScaleStep float64 `mapstructure:"scale_step" yaml:"scale_step"`
	Stride    int     `mapstructure:"stride" yaml:"stride"`
}

// Timing parameters. Seconds unless the name says otherwise.
type Timing struct {
	MinSleepSeconds       float64 `mapstructure:"min_sleep_seconds" yaml:"min_sleep_seconds"`
	MaxSleepSeconds       float64 `mapstructure:"max_sleep_seconds" yaml:"max_sleep_seconds"`
	VortexLaunchDelay     float64 `mapstructure:"vortex_launch_delay" yaml:"vortex_launch_delay"`
	WebClickDelay         float64 `mapstructure:"web_click_delay" yaml:"web_click_delay"`
	JitterPct             float64 `mapstructure:"jitter_pct" yaml:"jitter_pct"`
	HesitationMinMs       int     `mapstructure:"hesitation_min_ms" yaml:"hesitation_min_ms"`
	HesitationMaxMs       int     `mapstructure:"hesitation_max_ms" yaml:"hesitation_max_ms"`
	FallbackCycles        int     `mapstructure:"fallback_cycles" yaml:"fallback_cycles"`
	DownloadVerifyTimeout float64 `mapstructure:"download_verify_timeout" yaml:"download_verify_timeout"`
}

// Mouse motion parameters.
type Mouse struct {
	SpeedFactor     float64     `mapstructure:"speed_factor" yaml:"speed_factor"`
	CurveResolution int         `mapstructure:"curve_resolution" yaml:"curve_resolution"`
	Overshoot       Overshoot   `mapstructure:"overshoot" yaml:"overshoot"`
	Jitter          Jitter      `mapstructure:"jitter" yaml:"jitter"`
	ClickOffset     ClickOffset `mapstructure:"click_offset" yaml:"click_offset"`
}

type Overshoot struct {
	Enabled           bool    `mapstructure:"enabled" yaml:"enabled"`
	Probability       float64 `mapstructure:"probability" yaml:"probability"`
	DistanceMinPx     float64 `mapstructure:"distance_min_px" yaml:"distance_min_px"`
	DistanceMaxPx     float64 `mapstructure:"distance_max_px" yaml:"distance_max_px"`
	CorrectionDelayMs int     `mapstructure:"correction_delay_ms" yaml:"correction_delay_ms"`
}

type Jitter struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	AmplitudePx float64 `mapstructure:"amplitude_px" yaml:"amplitude_px"`
	Frequency   float64 `mapstructure:"frequency" yaml:"frequency"`
}

type ClickOffset struct {
	Enabled bool    `mapstructure:"enabled" yaml:"enabled"`
	Ratio   float64 `mapstructure:"ratio" yaml:"ratio"`
}

// Hotkeys holds key tokens ("f9", "ctrl+w").
type Hotkeys struct {
	PauseBot      string `mapstructure:"pause_bot" yaml:"pause_bot"`
	StopBot       string `mapstructure:"stop_bot" yaml:"stop_bot"`
	ReloadBot     string `mapstructure:"reload_bot" yaml:"reload_bot"`
	CycleStrategy string `mapstructure:"cycle_strategy" yaml:"cycle_strategy"`
	CloseTab      string `mapstructure:"close_tab" yaml:"close_tab"`
}

// Display selects the capture region. Monitor 0 is the whole virtual desktop,
// 1 the primary monitor, 2+ further monitors.
type Display struct {
	ExpectedWidth  int `mapstructure:"expected_width" yaml:"expected_width"`
	ExpectedHeight int `mapstructure:"expected_height" yaml:"expected_height"`
	Monitor        int `mapstructure:"monitor" yaml:"monitor"`
}

type Profiles struct {
	ProfilesDir          string `mapstructure:"profiles_dir" yaml:"profiles_dir"`
	ActiveProfile        string `mapstructure:"active_profile" yaml:"active_profile"`
	SecondaryPrefix      string `mapstructure:"secondary_prefix" yaml:"secondary_prefix"`
	ConfirmationTemplate string `mapstructure:"confirmation_template" yaml:"confirmation_template"`
}

type Visual struct {
	DebugMode bool   `mapstructure:"debug_mode" yaml:"debug_mode"`
	DebugDir  string `mapstructure:"debug_dir" yaml:"debug_dir"`
}

type UI struct {
	Enabled       bool `mapstructure:"enabled" yaml:"enabled"`
	RefreshRateMs int  `mapstructure:"refresh_rate_ms" yaml:"refresh_rate_ms"`
	NightModeHour int  `mapstructure:"night_mode_hour" yaml:"night_mode_hour"`
}

type Stats struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Strategy names accepted by Matching.Strategy.
const (
	StrategyCascade  = "cascade"
	StrategyTemplate = "template"
	StrategyORB      = "orb"
	StrategyAKAZE    = "akaze"
)

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Matching: Matching{
			ConfidenceThreshold: 0.80,
			MarginalThreshold:   0.60,
			UseGrayscale:        true,
			Strategy:            StrategyCascade,
			ScaleMin:            1.0,
			ScaleMax:            1.0,
			ScaleStep:           0.05,
			Stride:              1,
		},
		Timing: Timing{
			MinSleepSeconds:       1.0,
			MaxSleepSeconds:       2.5,
			VortexLaunchDelay:     3.5,
			WebClickDelay:         1.0,
			JitterPct:             0.20,
			HesitationMinMs:       50,
			HesitationMaxMs:       180,
			FallbackCycles:        4,
			DownloadVerifyTimeout: 10.0,
		},
		Mouse: Mouse{
			SpeedFactor:     1.0,
			CurveResolution: 60,
			Overshoot: Overshoot{
				Enabled:           true,
				Probability:       0.20,
				DistanceMinPx:     4,
				DistanceMaxPx:     12,
				CorrectionDelayMs: 60,
			},
			Jitter:      Jitter{Enabled: true, AmplitudePx: 1.5, Frequency: 0.25},
			ClickOffset: ClickOffset{Enabled: true, Ratio: 0.35},
		},
		Hotkeys: Hotkeys{
			PauseBot:      "f9",
			StopBot:       "f10",
			ReloadBot:     "f5",
			CycleStrategy: "f8",
			CloseTab:      "ctrl+w",
		},
		Display:  Display{ExpectedWidth: 1920, ExpectedHeight: 1080, Monitor: 1},
		Profiles: Profiles{ProfilesDir: "profiles", SecondaryPrefix: "web_", ConfirmationTemplate: "web_download_started"},
		Visual:   Visual{DebugMode: false, DebugDir: "logs/debug"},
		UI:       UI{Enabled: true, RefreshRateMs: 100, NightModeHour: 19},
		Stats:    Stats{Path: "logs/stats.db"},
	}
}

// Clone returns a deep copy; all fields are values so a struct copy suffices.
func (c *Config) Clone() *Config {
	if c == nil {
		return DefaultConfig()
	}
	cp := *c
	return &cp
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	d := DefaultConfig()
	m := &c.Matching
	if m.ConfidenceThreshold <= 0 || m.ConfidenceThreshold > 1 {
		m.ConfidenceThreshold = d.Matching.ConfidenceThreshold
	}
	if m.MarginalThreshold <= 0 || m.MarginalThreshold > 1 {
		m.MarginalThreshold = d.Matching.MarginalThreshold
	}
	if m.MarginalThreshold > m.ConfidenceThreshold {
		m.MarginalThreshold = m.ConfidenceThreshold
	}
	m.Strategy = NormalizeStrategy(m.Strategy)
	if m.ScaleMin <= 0 {
		m.ScaleMin = 1.0
	}
	if m.ScaleMax < m.ScaleMin {
		m.ScaleMax = m.ScaleMin
	}
	if m.ScaleStep <= 0 {
		m.ScaleStep = d.Matching.ScaleStep
	}
	if m.Stride <= 0 {
		m.Stride = 1
	}

	t := &c.Timing
	if t.MinSleepSeconds < 0 {
		t.MinSleepSeconds = 0
	}
	if t.MaxSleepSeconds < t.MinSleepSeconds {
		t.MaxSleepSeconds = t.MinSleepSeconds
	}
	if t.VortexLaunchDelay < 0 {
		t.VortexLaunchDelay = 0
	}
	if t.WebClickDelay < 0 {
		t.WebClickDelay = 0
	}
	t.JitterPct = clamp(t.JitterPct, 0, 0.95)
	if t.HesitationMinMs < 0 {
		t.HesitationMinMs = 0
	}
	if t.HesitationMaxMs < t.HesitationMinMs {
		t.HesitationMaxMs = t.HesitationMinMs
	}
	if t.FallbackCycles < 0 {
		t.FallbackCycles = 0
	}
	if t.DownloadVerifyTimeout < 0 {
		t.DownloadVerifyTimeout = 0
	}

	ms := &c.Mouse
	if ms.SpeedFactor <= 0 {
		ms.SpeedFactor = 1.0
	}
	if ms.CurveResolution < 2 {
		ms.CurveResolution = d.Mouse.CurveResolution
	}
	ms.Overshoot.Probability = clamp(ms.Overshoot.Probability, 0, 1)
	if ms.Overshoot.DistanceMinPx < 0 {
		ms.Overshoot.DistanceMinPx = 0
	}
	if ms.Overshoot.DistanceMaxPx < ms.Overshoot.DistanceMinPx {
		ms.Overshoot.DistanceMaxPx = ms.Overshoot.DistanceMinPx
	}
	if ms.Overshoot.CorrectionDelayMs < 0 {
		ms.Overshoot.CorrectionDelayMs = 0
	}
	if ms.Jitter.AmplitudePx < 0 {
		ms.Jitter.AmplitudePx = 0
	}
	ms.Jitter.Frequency = clamp(ms.Jitter.Frequency, 0, 1)
	ms.ClickOffset.Ratio = clamp(ms.ClickOffset.Ratio, 0, 1)

	h := &c.Hotkeys
	fill := func(s *string, def string) {
		if strings.TrimSpace(*s) == "" {
			*s = def
		}
		*s = strings.ToLower(strings.TrimSpace(*s))
	}
	fill(&h.PauseBot, d.Hotkeys.PauseBot)
	fill(&h.StopBot, d.Hotkeys.StopBot)
	fill(&h.ReloadBot, d.Hotkeys.ReloadBot)
	fill(&h.CycleStrategy, d.Hotkeys.CycleStrategy)
	fill(&h.CloseTab, d.Hotkeys.CloseTab)

	if c.Display.Monitor < 0 {
		c.Display.Monitor = 1
	}
	if c.Profiles.ProfilesDir == "" {
		c.Profiles.ProfilesDir = d.Profiles.ProfilesDir
	}
	if c.Profiles.SecondaryPrefix == "" {
		c.Profiles.SecondaryPrefix = d.Profiles.SecondaryPrefix
	}
	if c.Profiles.ConfirmationTemplate == "" {
		c.Profiles.ConfirmationTemplate = d.Profiles.ConfirmationTemplate
	}
	if c.Visual.DebugDir == "" {
		c.Visual.DebugDir = d.Visual.DebugDir
	}
	if c.UI.RefreshRateMs <= 0 {
		c.UI.RefreshRateMs = d.UI.RefreshRateMs
	}
	if c.UI.NightModeHour < 0 || c.UI.NightModeHour > 23 {
		c.UI.NightModeHour = 0
	}
	if c.Stats.Path == "" {
		c.Stats.Path = d.Stats.Path
	}
	return nil
}

// NormalizeStrategy lowercases s and maps unknown names to cascade.
func NormalizeStrategy(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case StrategyCascade, StrategyTemplate, StrategyORB, StrategyAKAZE:
		return s
	default:
		return StrategyCascade
	}
}

// Seconds converts fractional seconds into a Duration.
func Seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

// Millis converts integer milliseconds into a Duration.
func Millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
