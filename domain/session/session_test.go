package session

import (
	"io"
	"log/slog"
	"sync"
	"testing"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type transitionRecorder struct {
	mu  sync.Mutex
	seq []State
}

// listener records transitions.
func (r *transitionRecorder) listener(prev, next State) {
	r.mu.Lock()
	r.seq = append(r.seq, next)
	r.mu.Unlock()
}

func TestSession_TransitionsNotifyListeners(t *testing.T) {
	s := New(discardLogger)
	r := &transitionRecorder{}
	s.AddListener(r.listener)

	s.Transition(StateScanning)
	s.Transition(StateScanning) // repeated, ignored
	s.Transition(StateApproaching)
	s.Transition(StateAwaitingSecondary)
	s.Transition(StateIdle)

	want := []State{StateScanning, StateApproaching, StateAwaitingSecondary, StateIdle}
	if len(r.seq) != len(want) {
		t.Fatalf("expected %v, got %v", want, r.seq)
	}
	for i := range want {
		if r.seq[i] != want[i] {
			t.Fatalf("transition %d: expected %v, got %v", i, want[i], r.seq[i])
		}
	}
}

func TestSession_StoppedIsTerminal(t *testing.T) {
	s := New(discardLogger)
	if !s.Transition(StateStopped) {
		t.Fatal("expected transition to stopped")
	}
	if s.Transition(StateScanning) {
		t.Fatal("stopped must be terminal")
	}
	if st := s.Current(); st != StateStopped {
		t.Fatalf("expected stopped, got %v", st)
	}
}

func TestSession_StreakAndCounters(t *testing.T) {
	s := New(nil)
	for i := 1; i <= 3; i++ {
		if got := s.Miss(); got != i {
			t.Fatalf("expected streak %d, got %d", i, got)
		}
	}
	s.Hit()
	if s.Streak() != 0 {
		t.Fatalf("expected streak reset, got %d", s.Streak())
	}
	s.AddCycle()
	s.AddClick()
	s.AddClick()
	s.AddError()
	c := s.Counters()
	if c != (Counters{Cycles: 1, Matches: 1, Clicks: 2, Errors: 1}) {
		t.Fatalf("unexpected counters %+v", c)
	}
	s.SetExpecting(true)
	if !s.Expecting() {
		t.Fatal("expected expecting flag")
	}
}

func TestSignals_TakeClearsOnce(t *testing.T) {
	sig := NewSignals(true)
	if !sig.Paused() {
		t.Fatal("expected paused at start")
	}
	if sig.TakeReload() || sig.TakeCycle() {
		t.Fatal("no requests pending")
	}
	sig.RequestReload()
	sig.RequestCycle()
	if !sig.TakeReload() || sig.TakeReload() {
		t.Fatal("reload must be consumed exactly once")
	}
	if !sig.TakeCycle() || sig.TakeCycle() {
		t.Fatal("cycle must be consumed exactly once")
	}
	if sig.TogglePause() {
		t.Fatal("toggle from paused must resume")
	}
	if !sig.TogglePause() {
		t.Fatal("toggle from running must pause")
	}
	sig.RequestStop()
	if !sig.Stopped() {
		t.Fatal("expected stopped")
	}
}

func TestSignals_ConcurrentRequestsConsumedOnce(t *testing.T) {
	sig := NewSignals(false)
	sig.RequestReload()
	var wg sync.WaitGroup
	var mu sync.Mutex
	taken := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sig.TakeReload() {
				mu.Lock()
				taken++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if taken != 1 {
		t.Fatalf("expected one consumer, got %d", taken)
	}
}

func TestStateString(t *testing.T) {
	names := map[State]string{
		StateIdle: "idle", StateScanning: "scanning", StateApproaching: "approaching",
		StateAwaitingSecondary: "awaiting_secondary", StateStopped: "stopped", State(42): "unknown",
	}
	for st, want := range names {
		if st.String() != want {
			t.Fatalf("expected %q, got %q", want, st.String())
		}
	}
}
