package view

import (
	"image"
	"log/slog"
	"time"

	"github.com/soocke/autodl-bot-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Handlers are the button callbacks. Each runs on the Tk thread and should
// only raise a signal.
type Handlers struct {
	TogglePause   func()
	Reload        func()
	CycleStrategy func()
	Stop          func()
	Exit          func()
}

// RootView composes the status window: header, counters, session clock,
// event log and match preview.
type RootView struct {
	logger *slog.Logger

	Session SessionStats
	Log     LogPanel
	Preview MatchPreview

	phaseLbl    *LabelWidget
	profileLbl  *LabelWidget
	scanLbl     *LabelWidget
	approachLbl *LabelWidget
	countersLbl *LabelWidget

	paused bool
	phase  string
}

func NewRootView(logger *slog.Logger) *RootView {
	return &RootView{logger: logger}
}

// Build lays out the widgets on the App root.
func (rv *RootView) Build(h Handlers) {
	if rv == nil {
		return
	}
	p := theme.Current()
	rv.phaseLbl = Label(Txt("IDLE"), Width(22), Borderwidth(1), Relief("ridge"), Foreground("white"), Background(p.Paused))
	Grid(rv.phaseLbl, Row(0), Column(0), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	rv.profileLbl = Label(Txt("Profile: -"), Anchor("w"))
	Grid(rv.profileLbl, Row(0), Column(1), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))

	btnFrame := Frame()
	Grid(btnFrame, Row(0), Column(3), Sticky("ne"), Padx("0.3m"), Pady("0.3m"))
	for i, b := range []struct {
		label string
		fn    func()
	}{
		{"Pause / Resume", h.TogglePause},
		{"Reload", h.Reload},
		{"Cycle Strategy", h.CycleStrategy},
		{"Stop", h.Stop},
		{"Exit", h.Exit},
	} {
		if b.fn == nil {
			continue
		}
		Grid(Button(Txt(b.label), Command(b.fn)), In(btnFrame), Row(i), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	}

	rv.scanLbl = Label(Txt("Idle"), Anchor("w"))
	Grid(rv.scanLbl, Row(1), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"))
	rv.approachLbl = Label(Txt(""), Anchor("w"), Foreground(p.Approach))
	Grid(rv.approachLbl, Row(2), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"))
	rv.countersLbl = Label(Txt(""), Anchor("w"))
	Grid(rv.countersLbl, Row(3), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"))

	rv.Session = NewSessionStats(nil, 4, 0)
	rv.Log = NewLogPanel(5, 300)
	rv.Preview = NewMatchPreview(6)

	theme.OnChange(rv.applyPalette)
}

func (rv *RootView) applyPalette(p theme.PaletteSnapshot) {
	if rv.approachLbl != nil {
		rv.approachLbl.Configure(Foreground(p.Approach))
	}
	rv.colorPhase(p)
}

func (rv *RootView) colorPhase(p theme.PaletteSnapshot) {
	if rv.phaseLbl == nil {
		return
	}
	bg := p.Running
	switch {
	case rv.phase == "STOPPED":
		bg = p.Stopped
	case rv.paused:
		bg = p.Paused
	}
	rv.phaseLbl.Configure(Background(bg))
}

func (rv *RootView) SetPhase(text string, paused bool) {
	if rv == nil || rv.phaseLbl == nil {
		return
	}
	rv.phase, rv.paused = text, paused
	rv.phaseLbl.Configure(Txt(text))
	rv.colorPhase(theme.Current())
}

func (rv *RootView) SetProfile(profile, strategy string) {
	if rv != nil && rv.profileLbl != nil {
		rv.profileLbl.Configure(Txt("Profile: " + profile + "   Strategy: " + strategy))
	}
}

func (rv *RootView) SetScan(text string) {
	if rv != nil && rv.scanLbl != nil {
		rv.scanLbl.Configure(Txt(text))
	}
}

func (rv *RootView) SetApproach(text string) {
	if rv != nil && rv.approachLbl != nil {
		rv.approachLbl.Configure(Txt(text))
	}
}

func (rv *RootView) SetCounters(text string) {
	if rv != nil && rv.countersLbl != nil {
		rv.countersLbl.Configure(Txt(text))
	}
}

func (rv *RootView) AppendLog(lines []string) {
	if rv != nil && rv.Log != nil {
		rv.Log.Append(lines)
	}
}

func (rv *RootView) SetSession(active, paused time.Duration) {
	if rv == nil || rv.Session == nil {
		return
	}
	rv.Session.SetActive(active)
	rv.Session.SetPaused(paused)
}

func (rv *RootView) UpdatePreview(img image.Image) {
	if rv != nil && rv.Preview != nil {
		rv.Preview.UpdateFrame(img)
	}
}

func (rv *RootView) UpdateDetail(img image.Image) {
	if rv != nil && rv.Preview != nil {
		rv.Preview.UpdateDetail(img)
	}
}
