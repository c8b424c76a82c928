package presenter

import "time"

// ThemeSwitcher applies the light or dark palette.
type ThemeSwitcher interface {
	SetDark(dark bool) bool
	IsDark() bool
}

// ThemePresenter switches to the dark palette from NightHour until
// midnight. A NightHour of 0 disables switching.
type ThemePresenter struct {
	NightHour int
	Theme     ThemeSwitcher
}

// Night reports whether hour falls in the dark window.
func Night(hour, nightHour int) bool {
	return nightHour > 0 && hour >= nightHour
}

func (p *ThemePresenter) Tick(now time.Time) {
	if p == nil || p.Theme == nil || p.NightHour <= 0 {
		return
	}
	want := Night(now.Hour(), p.NightHour)
	if want != p.Theme.IsDark() {
		p.Theme.SetDark(want)
	}
}
