package exhibit

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"chromatic/cmd/chromatic/config"
	"chromatic/internal/insight"
	"chromatic/internal/store"
)

// fakeClock makes timing deterministic in tests. Ticks are still injected
// as msgs; the clock only controls what "now" reads.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// newTestModel builds a model against an in-memory store, no cloud, and an
// unconfigured insight requester, with a controllable clock.
func newTestModel(t *testing.T) (Model, *fakeClock, *store.DataStore) {
	t.Helper()

	local, err := store.NewLocalStore(":memory:")
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	t.Cleanup(func() { _ = local.Close() })
	data := store.NewDataStore(local, store.NewSheetClient(""), nil)

	req, err := insight.NewRequester(context.Background(), "", "", nil)
	if err != nil {
		t.Fatalf("requester: %v", err)
	}

	m := New(config.DefaultConfig(), data, req, nil)
	clk := &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	m.now = clk.Now
	return m, clk, data
}

// press feeds one key to the model and returns the updated model.
func press(m Model, k string) (Model, tea.Cmd) {
	msg := keyMsg(k)
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// tickOnce injects one countdown tick with the model's live epoch.
func tickOnce(m Model) (Model, tea.Cmd) {
	next, cmd := m.Update(countdownTickMsg{epoch: m.timerEpoch})
	return next.(Model), cmd
}

// intoStaring walks a fresh model to the Staring phase with the given stare
// duration.
func intoStaring(t *testing.T, m Model, stareSeconds int) Model {
	t.Helper()
	m, _ = press(m, "enter") // Idle -> Configuring
	if m.phase != PhaseConfiguring {
		t.Fatalf("expected CONFIGURING, got %v", m.phase)
	}
	for m.stareSeconds > stareSeconds {
		m, _ = press(m, "down")
	}
	for m.stareSeconds < stareSeconds {
		m, _ = press(m, "up")
	}
	m, _ = press(m, "enter") // begin trial
	if m.phase != PhaseStaring {
		t.Fatalf("expected STARING, got %v", m.phase)
	}
	return m
}

// intoPersisting runs the countdown to expiry.
func intoPersisting(t *testing.T, m Model, stareSeconds int) Model {
	t.Helper()
	m = intoStaring(t, m, stareSeconds)
	for i := 0; i < stareSeconds; i++ {
		m, _ = tickOnce(m)
	}
	if m.phase != PhasePersisting {
		t.Fatalf("expected PERSISTENCE after %d ticks, got %v", stareSeconds, m.phase)
	}
	return m
}
