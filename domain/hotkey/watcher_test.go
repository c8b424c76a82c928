package hotkey

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/soocke/autodl-bot-go/config"
	"github.com/soocke/autodl-bot-go/domain/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeKeys is a controllable key-state table.
type fakeKeys struct {
	mu   sync.Mutex
	down map[uint16]bool
}

func (k *fakeKeys) set(vk uint16, v bool) {
	k.mu.Lock()
	k.down[vk] = v
	k.mu.Unlock()
}

func (k *fakeKeys) keyDown(vk uint16) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.down[vk]
}

const (
	vkF5  = 0x74
	vkF8  = 0x77
	vkF9  = 0x78
	vkF10 = 0x79
)

func newTestWatcher(t *testing.T) (*Watcher, *fakeKeys, *session.Signals) {
	t.Helper()
	keys := &fakeKeys{down: map[uint16]bool{}}
	sig := session.NewSignals(true)
	w, err := NewWatcher(config.DefaultConfig().Hotkeys, sig, nil, keys.keyDown)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.interval = 5 * time.Millisecond
	return w, keys, sig
}

func waitFor(t *testing.T, cond func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWatcher_PauseFiresOncePerPress(t *testing.T) {
	w, keys, sig := newTestWatcher(t)
	w.Start()
	defer w.Stop()

	keys.set(vkF9, true)
	waitFor(t, func() bool { return !sig.Paused() }, 500*time.Millisecond)
	// holding the key must not toggle again
	time.Sleep(50 * time.Millisecond)
	if sig.Paused() {
		t.Fatal("held key toggled pause twice")
	}
	keys.set(vkF9, false)
	time.Sleep(debounce + 20*time.Millisecond)
	keys.set(vkF9, true)
	waitFor(t, sig.Paused, 500*time.Millisecond)
}

func TestWatcher_RaisesRequests(t *testing.T) {
	w, keys, sig := newTestWatcher(t)
	w.Start()
	defer w.Stop()

	keys.set(vkF5, true)
	keys.set(vkF8, true)
	keys.set(vkF10, true)
	waitFor(t, sig.Stopped, 500*time.Millisecond)
	waitFor(t, func() bool { return sig.TakeReload() }, 500*time.Millisecond)
	waitFor(t, func() bool { return sig.TakeCycle() }, 500*time.Millisecond)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, _, _ := newTestWatcher(t)
	w.Start()
	w.Start()
	w.Stop()
	w.Stop()
}

func TestNewWatcher_RejectsUnknownKey(t *testing.T) {
	hk := config.DefaultConfig().Hotkeys
	hk.ReloadBot = "hyper"
	if _, err := NewWatcher(hk, session.NewSignals(false), nil, func(uint16) bool { return false }); err == nil {
		t.Fatal("expected error for unknown key")
	}
}
