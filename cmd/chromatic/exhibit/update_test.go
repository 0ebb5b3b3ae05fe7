// Tests for the trial phase machine: countdown expiry, abort safety,
// stopwatch capture, and the background amendment flow.
package exhibit

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"chromatic/internal/insight"
	"chromatic/internal/stimulus"
)

// =============================================================================
// PHASE TRANSITIONS
// =============================================================================

func TestIdle_StartConfig(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestModel(t)

	m, _ = press(m, "enter")
	if m.phase != PhaseConfiguring {
		t.Errorf("phase = %v, want CONFIGURING", m.phase)
	}
}

func TestConfiguring_Defaults(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestModel(t)
	m, _ = press(m, "enter")

	if m.stareSeconds != stimulus.DefaultStareSeconds {
		t.Errorf("default stare = %d, want %d", m.stareSeconds, stimulus.DefaultStareSeconds)
	}
	if m.selectedStimulus().ID != stimulus.Library()[0].ID {
		t.Errorf("default stimulus = %q, want first catalog entry", m.selectedStimulus().ID)
	}
}

func TestConfiguring_DurationClamps(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestModel(t)
	m, _ = press(m, "enter")

	for i := 0; i < 50; i++ {
		m, _ = press(m, "down")
	}
	if m.stareSeconds != stimulus.MinStareSeconds {
		t.Errorf("stare floor = %d, want %d", m.stareSeconds, stimulus.MinStareSeconds)
	}

	for i := 0; i < 50; i++ {
		m, _ = press(m, "up")
	}
	if m.stareSeconds != stimulus.MaxStareSeconds {
		t.Errorf("stare ceiling = %d, want %d", m.stareSeconds, stimulus.MaxStareSeconds)
	}
}

func TestConfiguring_CancelKeepsPendingParameters(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestModel(t)
	m, _ = press(m, "enter")
	m, _ = press(m, "up")    // 50s
	m, _ = press(m, "right") // second stimulus

	m, _ = press(m, "esc")
	if m.phase != PhaseIdle {
		t.Fatalf("cancel should return to IDLE, got %v", m.phase)
	}

	m, _ = press(m, "enter")
	if m.stareSeconds != stimulus.DefaultStareSeconds+stimulus.StareStepSeconds {
		t.Errorf("pending duration lost on cancel: %d", m.stareSeconds)
	}
	if m.stimulusIdx != 1 {
		t.Errorf("pending stimulus lost on cancel: %d", m.stimulusIdx)
	}
}

// =============================================================================
// COUNTDOWN
// =============================================================================

func TestStaring_CountdownExpiresToPersistenceExactlyOnce(t *testing.T) {
	t.Parallel()
	for _, d := range []int{5, 45, 120} {
		m, _, _ := newTestModel(t)
		m = intoStaring(t, m, d)

		if m.remaining != d {
			t.Fatalf("d=%d: initial remaining = %d", d, m.remaining)
		}

		// d-1 ticks leave the machine staring with a positive display.
		for i := 0; i < d-1; i++ {
			m, _ = tickOnce(m)
			if m.phase != PhaseStaring {
				t.Fatalf("d=%d: left STARING after %d ticks", d, i+1)
			}
			if m.remaining < 0 {
				t.Fatalf("d=%d: negative remaining %d", d, m.remaining)
			}
		}

		// The d-th tick fires the auto-transition.
		expiryEpoch := m.timerEpoch
		m, _ = tickOnce(m)
		if m.phase != PhasePersisting {
			t.Fatalf("d=%d: expected PERSISTENCE at expiry, got %v", d, m.phase)
		}

		// The countdown is dead after the transition: a stale tick from the
		// staring epoch must not re-fire.
		next, _ := m.Update(countdownTickMsg{epoch: expiryEpoch})
		m = next.(Model)
		if m.phase != PhasePersisting {
			t.Errorf("d=%d: stale countdown tick fired a second transition to %v", d, m.phase)
		}
	}
}

func TestStaring_AbortCancelsCountdown(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestModel(t)
	m = intoStaring(t, m, 10)

	m, _ = tickOnce(m)
	m, _ = tickOnce(m)
	staringEpoch := m.timerEpoch

	m, _ = press(m, "esc")
	if m.phase != PhaseIdle {
		t.Fatalf("abort should land in IDLE, got %v", m.phase)
	}

	// The in-flight tick arrives after the abort; it must be dropped. Drain
	// several to be sure nothing ever advances the machine.
	for i := 0; i < 10; i++ {
		next, _ := m.Update(countdownTickMsg{epoch: staringEpoch})
		m = next.(Model)
	}
	if m.phase != PhaseIdle {
		t.Errorf("stale countdown moved an aborted machine to %v", m.phase)
	}
}

func TestStaring_DisplayNeverNegative(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestModel(t)
	m = intoPersisting(t, m, 5)
	if m.remaining != 0 {
		t.Errorf("remaining after expiry = %d, want 0", m.remaining)
	}
}

// =============================================================================
// STOPWATCH AND RESULT COMPOSITION
// =============================================================================

func TestPersisting_StopwatchTracksWallClock(t *testing.T) {
	t.Parallel()
	m, clk, _ := newTestModel(t)
	m = intoPersisting(t, m, 5)

	// Tick count and wall clock deliberately disagree: one tick after 370ms.
	clk.Advance(370 * time.Millisecond)
	next, _ := m.Update(stopwatchTickMsg{epoch: m.timerEpoch})
	m = next.(Model)

	if m.elapsed != 370*time.Millisecond {
		t.Errorf("elapsed = %v, want 370ms (wall clock, not tick count)", m.elapsed)
	}
}

func TestPersisting_ConfirmCapturesRoundedElapsed(t *testing.T) {
	t.Parallel()
	m, clk, _ := newTestModel(t)
	m = intoPersisting(t, m, 5)

	clk.Advance(2345 * time.Millisecond)
	m, _ = press(m, "enter")

	if m.phase != PhaseResults {
		t.Fatalf("confirm should land in RESULTS, got %v", m.phase)
	}
	if m.current == nil {
		t.Fatal("no visible record after confirm")
	}
	if m.current.PersistenceDuration != 2.35 {
		t.Errorf("persistence = %v, want 2.35", m.current.PersistenceDuration)
	}
	if m.current.PersistenceDuration < 0 {
		t.Error("persistence must be non-negative")
	}
	if m.current.AIInsight != "" {
		t.Error("insight must be absent on the fresh record")
	}
	// The stopwatch dies with the transition.
	stale, _ := m.Update(stopwatchTickMsg{epoch: m.timerEpoch - 1})
	if stale.(Model).elapsed != m.elapsed {
		t.Error("stale stopwatch tick advanced the elapsed time")
	}
}

func TestResults_AmendmentFlow(t *testing.T) {
	t.Parallel()
	m, clk, data := newTestModel(t)
	m = intoPersisting(t, m, 5)
	clk.Advance(1230 * time.Millisecond)
	m, _ = press(m, "enter")
	recID := m.current.ID

	// Sync resolves first, then the insight.
	next, _ := m.Update(syncDoneMsg{recordID: recID, ok: true})
	m = next.(Model)
	if len(m.history) != 0 {
		t.Fatal("history must not gain the record before the insight resolves")
	}

	next, _ = m.Update(insightMsg{recordID: recID, text: "cones at work"})
	m = next.(Model)

	if m.current.AIInsight != "cones at work" {
		t.Errorf("visible record not amended: %q", m.current.AIInsight)
	}
	if len(m.history) != 1 || m.history[0].ID != recID {
		t.Fatalf("amended record not prepended to history: %+v", m.history)
	}
	if !m.history[0].IsSynced {
		t.Error("sync outcome flag lost in amendment")
	}

	// Amendment is persisted.
	saved := data.LocalHistory()
	if len(saved) != 1 || saved[0].AIInsight != "cones at work" {
		t.Errorf("amended history not persisted: %+v", saved)
	}

	// Double delivery amends in place, never duplicates.
	next, _ = m.Update(insightMsg{recordID: recID, text: "duplicate"})
	m = next.(Model)
	if len(m.history) != 1 {
		t.Errorf("duplicate insight grew history to %d", len(m.history))
	}
}

func TestResults_AmendmentAfterNavigatingAway(t *testing.T) {
	t.Parallel()
	m, clk, data := newTestModel(t)
	m = intoPersisting(t, m, 5)
	clk.Advance(500 * time.Millisecond)
	m, _ = press(m, "enter")
	recID := m.current.ID

	// Participant leaves Results before either call resolves.
	m, _ = press(m, "esc")
	if m.phase != PhaseIdle {
		t.Fatalf("expected IDLE, got %v", m.phase)
	}

	next, _ := m.Update(syncDoneMsg{recordID: recID, ok: false})
	m = next.(Model)
	next, _ = m.Update(insightMsg{recordID: recID, text: insight.FallbackFailure})
	m = next.(Model)

	saved := data.LocalHistory()
	if len(saved) != 1 || saved[0].ID != recID {
		t.Fatalf("late amendment lost after navigation: %+v", saved)
	}
	if saved[0].IsSynced {
		t.Error("failed sync recorded as synced")
	}
}

func TestResults_OverlappingTrialsBothReachHistory(t *testing.T) {
	t.Parallel()
	m, clk, data := newTestModel(t)

	// First trial confirmed; its background calls have not resolved yet.
	m = intoPersisting(t, m, 5)
	clk.Advance(1500 * time.Millisecond)
	m, _ = press(m, "enter")
	first := m.current.ID

	// Participant immediately runs a second trial to completion.
	m, _ = press(m, "n")
	m, _ = press(m, "enter")
	for i := 0; i < 5; i++ {
		m, _ = tickOnce(m)
	}
	if m.phase != PhasePersisting {
		t.Fatalf("second trial not in PERSISTENCE, got %v", m.phase)
	}
	clk.Advance(800 * time.Millisecond)
	m, _ = press(m, "enter")
	second := m.current.ID
	if second == first {
		t.Fatal("second trial reused the first record id")
	}

	// Completions land interleaved, the first trial's last.
	for _, msg := range []tea.Msg{
		syncDoneMsg{recordID: second, ok: true},
		syncDoneMsg{recordID: first, ok: true},
		insightMsg{recordID: second, text: "second insight"},
		insightMsg{recordID: first, text: "first insight"},
	} {
		next, _ := m.Update(msg)
		m = next.(Model)
	}

	saved := data.LocalHistory()
	if len(saved) != 2 {
		t.Fatalf("expected both trials in history, got %d records", len(saved))
	}
	byID := map[string]string{}
	for _, r := range saved {
		if !r.IsSynced {
			t.Errorf("record %s lost its sync outcome", r.ID)
		}
		byID[r.ID] = r.AIInsight
	}
	if byID[first] != "first insight" {
		t.Errorf("first trial insight = %q", byID[first])
	}
	if byID[second] != "second insight" {
		t.Errorf("second trial insight = %q", byID[second])
	}
}

func TestResults_NewTrialReturnsToConfiguring(t *testing.T) {
	t.Parallel()
	m, clk, _ := newTestModel(t)
	m = intoPersisting(t, m, 5)
	clk.Advance(100 * time.Millisecond)
	m, _ = press(m, "enter")

	m, _ = press(m, "n")
	if m.phase != PhaseConfiguring {
		t.Errorf("phase = %v, want CONFIGURING", m.phase)
	}
}

// =============================================================================
// END TO END
// =============================================================================

func TestEndToEnd_VibrantRedTrial(t *testing.T) {
	t.Parallel()
	m, clk, _ := newTestModel(t)

	// Configure: Vibrant Red (first entry), 5 second stare.
	m = intoStaring(t, m, 5)
	if m.runStimulus.Name != "Vibrant Red" || m.runStimulus.Hex != "#FF0000" {
		t.Fatalf("captured stimulus = %+v", m.runStimulus)
	}

	for i := 0; i < 5; i++ {
		m, _ = tickOnce(m)
	}
	if m.phase != PhasePersisting {
		t.Fatalf("expected PERSISTENCE after 5 ticks, got %v", m.phase)
	}

	clk.Advance(2345 * time.Millisecond)
	m, _ = press(m, "enter")

	rec := m.current
	if rec.StareDuration != 5 {
		t.Errorf("stareDuration = %d, want 5", rec.StareDuration)
	}
	if rec.PersistenceDuration != 2.35 {
		t.Errorf("persistenceDuration = %v, want 2.35", rec.PersistenceDuration)
	}
	if rec.ColorName != "Vibrant Red" {
		t.Errorf("colorName = %q", rec.ColorName)
	}
	if rec.AIInsight != "" {
		t.Errorf("insight should be absent initially, got %q", rec.AIInsight)
	}

	// The insight arrives later: either generated text or a fixed fallback.
	next, _ := m.Update(syncDoneMsg{recordID: rec.ID, ok: true})
	m = next.(Model)
	next, _ = m.Update(insightMsg{recordID: rec.ID, text: insight.FallbackEmpty})
	m = next.(Model)

	got := m.current.AIInsight
	if got != insight.FallbackEmpty && got != insight.FallbackFailure && got == "" {
		t.Errorf("amended insight = %q", got)
	}
}
