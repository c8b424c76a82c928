// Package theme holds the status window palettes and the light/dark switch.
package theme

import (
	"github.com/soocke/autodl-bot-go/domain/cycle"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// PaletteSnapshot is the resolved colour set for one mode.
type PaletteSnapshot struct {
	AppBg     string
	Surface   string
	Border    string
	Text      string
	TextMuted string
	Running   string
	Paused    string
	Stopped   string
	Approach  string
}

var (
	light = PaletteSnapshot{
		AppBg:     "#f7f9fb",
		Surface:   "#ffffff",
		Border:    "#d0d7de",
		Text:      "#1e293b",
		TextMuted: "#64748b",
		Running:   "#10b981",
		Paused:    "#d97706",
		Stopped:   "#dc2626",
		Approach:  "#2563eb",
	}
	dark = PaletteSnapshot{
		AppBg:     "#0f172a",
		Surface:   "#1e293b",
		Border:    "#334155",
		Text:      "#f1f5f9",
		TextMuted: "#94a3b8",
		Running:   "#34d399",
		Paused:    "#fbbf24",
		Stopped:   "#ef4444",
		Approach:  "#60a5fa",
	}
)

// Current returns the palette for the active mode.
func Current() PaletteSnapshot {
	if darkMode {
		return dark
	}
	return light
}

// SeverityColor picks the log colour for a severity.
func (p PaletteSnapshot) SeverityColor(s cycle.Severity) string {
	switch s {
	case cycle.SeveritySuccess:
		return p.Running
	case cycle.SeverityClick:
		return p.Approach
	case cycle.SeverityWarn:
		return p.Paused
	case cycle.SeverityError:
		return p.Stopped
	case cycle.SeverityDebug:
		return p.TextMuted
	default:
		return p.Text
	}
}

var (
	darkMode  bool
	listeners []func(PaletteSnapshot)
)

// OnChange registers fn to run after every palette switch.
func OnChange(fn func(PaletteSnapshot)) { listeners = append(listeners, fn) }

// Init applies the palette for the current mode.
func Init() { apply() }

// Switcher adapts the package-level mode to the presenter interface.
type Switcher struct{}

func (Switcher) SetDark(d bool) bool { return SetDark(d) }
func (Switcher) IsDark() bool        { return darkMode }

// SetDark selects the mode and reapplies the palette.
func SetDark(d bool) bool {
	darkMode = d
	apply()
	return darkMode
}

// IsDark reports the current mode.
func IsDark() bool { return darkMode }

func apply() {
	name := "azure light"
	if darkMode {
		name = "azure dark"
	}
	_ = ActivateTheme(name)
	p := Current()
	App.Configure(Background(p.AppBg))
	for _, fn := range listeners {
		fn(p)
	}
}
