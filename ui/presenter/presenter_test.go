package presenter

import (
	"image"
	"strings"
	"testing"
	"time"

	"github.com/soocke/autodl-bot-go/domain/cycle"
	"github.com/soocke/autodl-bot-go/domain/session"
	"github.com/soocke/autodl-bot-go/ui/model"
)

type mockStatusView struct {
	phase    string
	paused   bool
	profile  string
	strategy string
	scan     string
	approach string
	counters string
	logs     []string
	renders  int
}

func (v *mockStatusView) SetPhase(text string, paused bool) {
	v.phase, v.paused = text, paused
	v.renders++
}
func (v *mockStatusView) SetProfile(p, s string)   { v.profile, v.strategy = p, s }
func (v *mockStatusView) SetScan(text string)      { v.scan = text }
func (v *mockStatusView) SetApproach(text string)  { v.approach = text }
func (v *mockStatusView) SetCounters(text string)  { v.counters = text }
func (v *mockStatusView) AppendLog(lines []string) { v.logs = append(v.logs, lines...) }

func TestDashboard_FeedsStatusPresenter(t *testing.T) {
	sm := model.NewStatusModel(50)
	d := NewDashboard(sm, nil)
	d.now = func() time.Time { return time.Date(2025, 1, 1, 9, 30, 5, 0, time.Local) }
	view := &mockStatusView{}
	p := NewStatusPresenter(sm, view, func() (int64, int64) { return 10, 20 })

	// nothing published yet
	p.Tick()
	if view.renders != 0 {
		t.Fatalf("rendered before any status")
	}

	d.Log("Scanning...", cycle.SeverityInfo)
	d.Status(cycle.Status{
		Phase:     session.StateScanning,
		Profile:   "nexus",
		Strategy:  "cascade",
		Template:  "vortex_download",
		Algorithm: "CASCADE",
		Streak:    2,
		Counters:  session.Counters{Cycles: 3, Matches: 1, Clicks: 1},
	})
	p.Tick()

	if view.phase != "SCANNING" || view.paused {
		t.Fatalf("unexpected phase %q paused=%v", view.phase, view.paused)
	}
	if view.profile != "nexus" || view.strategy != "CASCADE" {
		t.Fatalf("unexpected profile/strategy %q %q", view.profile, view.strategy)
	}
	if view.scan != "Scanning: vortex_download [CASCADE]" {
		t.Fatalf("unexpected scan label %q", view.scan)
	}
	if !strings.Contains(view.counters, "Total clicks 11") || !strings.Contains(view.counters, "Total matches 21") {
		t.Fatalf("lifetime totals missing from %q", view.counters)
	}
	if len(view.logs) != 1 || view.logs[0] != "09:30:05 [INFO] Scanning..." {
		t.Fatalf("unexpected logs %v", view.logs)
	}

	// unchanged version does not re-render
	p.Tick()
	if view.renders != 1 {
		t.Fatalf("expected one render, got %d", view.renders)
	}
	if p.Latest().Profile != "nexus" {
		t.Fatalf("latest not retained")
	}
}

func TestPhaseText(t *testing.T) {
	cases := []struct {
		st   cycle.Status
		want string
	}{
		{cycle.Status{Phase: session.StateIdle}, "IDLE"},
		{cycle.Status{Phase: session.StateIdle, Paused: true}, "PAUSED"},
		{cycle.Status{Phase: session.StateStopped, Paused: true}, "STOPPED"},
		{cycle.Status{Phase: session.StateAwaitingSecondary}, "AWAITING_SECONDARY"},
	}
	for _, c := range cases {
		if got := PhaseText(c.st); got != c.want {
			t.Errorf("PhaseText(%+v)=%q want %q", c.st, got, c.want)
		}
	}
}

type fakeRun struct{ paused, stopped bool }

func (r *fakeRun) Paused() bool  { return r.paused }
func (r *fakeRun) Stopped() bool { return r.stopped }

type mockSessionView struct{ active, paused time.Duration }

func (v *mockSessionView) SetSession(a, p time.Duration) { v.active, v.paused = a, p }

func TestSessionPresenter_ExcludesPausedTime(t *testing.T) {
	run := &fakeRun{paused: true}
	view := &mockSessionView{}
	p := NewSessionPresenter(model.NewSessionModel(), run, nil, view)
	base := time.Unix(100, 0)

	p.Tick(base)
	p.Tick(base.Add(2 * time.Second))
	run.paused = false
	p.Tick(base.Add(2 * time.Second))
	p.Tick(base.Add(7 * time.Second))
	if view.active != 5*time.Second || view.paused != 2*time.Second {
		t.Fatalf("active=%v paused=%v", view.active, view.paused)
	}

	run.stopped = true
	p.Tick(base.Add(8 * time.Second))
	p.Tick(base.Add(30 * time.Second))
	if view.active != 6*time.Second {
		t.Fatalf("clock kept running after stop: %v", view.active)
	}
}

type mockPreviewView struct {
	updates []image.Image
	details []image.Image
}

func (v *mockPreviewView) UpdatePreview(img image.Image) { v.updates = append(v.updates, img) }
func (v *mockPreviewView) UpdateDetail(img image.Image)  { v.details = append(v.details, img) }

func TestPreviewPresenter_ForwardsOncePerImage(t *testing.T) {
	pm := &model.PreviewModel{}
	view := &mockPreviewView{}
	p := NewPreviewPresenter(pm, view)

	p.Tick()
	if len(view.updates) != 0 {
		t.Fatalf("forwarded empty preview")
	}
	d := NewDashboard(nil, pm)
	d.Preview(image.NewRGBA(image.Rect(0, 0, 400, 300)), image.Rect(100, 100, 140, 120))
	p.Tick()
	p.Tick()
	if len(view.updates) != 1 || len(view.details) != 1 {
		t.Fatalf("expected 1 update got %d/%d", len(view.updates), len(view.details))
	}
	if b := view.details[0].Bounds(); b.Dx() != DetailSize || b.Dy() != DetailSize {
		t.Fatalf("unexpected detail bounds %v", b)
	}
}

type fakeTheme struct {
	dark     bool
	switches int
}

func (f *fakeTheme) SetDark(d bool) bool { f.dark = d; f.switches++; return d }
func (f *fakeTheme) IsDark() bool        { return f.dark }

func TestThemePresenter_NightWindow(t *testing.T) {
	th := &fakeTheme{}
	p := &ThemePresenter{NightHour: 19, Theme: th}
	day := time.Date(2025, 6, 1, 18, 59, 0, 0, time.Local)

	p.Tick(day)
	if th.dark || th.switches != 0 {
		t.Fatalf("switched during day")
	}
	p.Tick(day.Add(time.Minute))
	if !th.dark {
		t.Fatalf("expected dark at 19:00")
	}
	p.Tick(day.Add(2 * time.Minute))
	if th.switches != 1 {
		t.Fatalf("expected single switch got %d", th.switches)
	}
	p.Tick(day.Add(6 * time.Hour)) // 00:59 next day
	if th.dark {
		t.Fatalf("expected light after midnight")
	}

	off := &ThemePresenter{NightHour: 0, Theme: &fakeTheme{}}
	off.Tick(day.Add(3 * time.Hour))
	if off.Theme.IsDark() {
		t.Fatalf("night mode disabled but switched")
	}
}

func TestLoop_NilSafeAndSchedules(t *testing.T) {
	var nilLoop *Loop
	nilLoop.Tick()

	scheduled := 0
	l := NewLoop(nil, nil, nil, nil, func() { scheduled++ })
	l.Tick()
	if scheduled != 1 {
		t.Fatalf("schedule not invoked")
	}
}
