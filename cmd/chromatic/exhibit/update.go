package exhibit

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"chromatic/internal/stimulus"
	"chromatic/internal/trial"
)

// Update implements tea.Model. All trial logic runs on this single message
// loop; timers and network completions arrive as msgs, never as callbacks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case countdownTickMsg:
		return m.handleCountdownTick(msg)

	case stopwatchTickMsg:
		return m.handleStopwatchTick(msg)

	case syncDoneMsg:
		return m.handleSyncDone(msg)

	case insightMsg:
		return m.handleInsight(msg)

	case vaultFetchedMsg:
		return m.handleVaultFetched(msg)

	case exportDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Export failed: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("Exported to %s", msg.path)
		}
		return m, nil

	case spinner.TickMsg:
		if m.insightPending() || m.vaultLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.enteringPIN {
		return m.handlePINKey(msg)
	}

	switch m.phase {
	case PhaseIdle:
		return m.handleIdleKey(msg)
	case PhaseConfiguring:
		return m.handleConfiguringKey(msg)
	case PhaseStaring:
		return m.handleStaringKey(msg)
	case PhasePersisting:
		return m.handlePersistingKey(msg)
	case PhaseResults:
		return m.handleResultsKey(msg)
	case PhaseAdminVault:
		return m.handleVaultKey(msg)
	}
	return m, nil
}

func (m Model) handleIdleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "s":
		m.transition(PhaseConfiguring)
		return m, nil
	case "t":
		m.showTheory = !m.showTheory
		return m, nil
	case "q":
		return m, tea.Quit
	case logoKey:
		return m.handleLogoPress()
	}
	return m, nil
}

// handleLogoPress counts rapid activations of the logo key. Five presses
// inside the window open the PIN prompt; a pause resets the count.
func (m Model) handleLogoPress() (tea.Model, tea.Cmd) {
	now := m.now()
	if now.After(m.logoDeadline) {
		m.logoPresses = 0
	}
	m.logoPresses++
	m.logoDeadline = now.Add(logoPressWindow)

	if m.logoPresses < logoPressesToPIN {
		return m, nil
	}

	m.logoPresses = 0
	m.enteringPIN = true
	m.pinInput.SetValue("")
	m.pinInput.Focus()
	return m, textinput.Blink
}

func (m Model) handlePINKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.enteringPIN = false
		return m, nil
	case tea.KeyEnter:
		entered := m.pinInput.Value()
		m.enteringPIN = false
		if entered != m.cfg.AdminPIN {
			m.status = "Incorrect PIN."
			return m, nil
		}
		m.log.Info("vault unlocked")
		m.transition(PhaseAdminVault)
		m.vault = m.data.GlobalResults()
		m.status = "Admin Mode: Global Vault Unlocked."
		return m, nil
	}

	var cmd tea.Cmd
	m.pinInput, cmd = m.pinInput.Update(msg)
	return m, cmd
}

func (m Model) handleConfiguringKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	lib := stimulus.Library()
	switch msg.String() {
	case "left", "h":
		m.stimulusIdx = (m.stimulusIdx + len(lib) - 1) % len(lib)
	case "right", "l":
		m.stimulusIdx = (m.stimulusIdx + 1) % len(lib)
	case "up", "+", "=":
		m.stareSeconds = min(m.stareSeconds+stimulus.StareStepSeconds, stimulus.MaxStareSeconds)
	case "down", "-":
		m.stareSeconds = max(m.stareSeconds-stimulus.StareStepSeconds, stimulus.MinStareSeconds)
	case "enter":
		return m.beginTrial()
	case "esc":
		// Cancel keeps the pending parameters as the next starting point.
		m.transition(PhaseIdle)
	}
	return m, nil
}

// beginTrial captures the pending parameters as the run's fixed parameters
// and starts the stare countdown.
func (m Model) beginTrial() (tea.Model, tea.Cmd) {
	m.runStimulus = m.selectedStimulus()
	m.runStare = m.stareSeconds
	m.transition(PhaseStaring)
	m.remaining = m.runStare
	m.log.Info("trial started",
		zap.String("stimulus", m.runStimulus.ID),
		zap.Int("stare_seconds", m.runStare))
	return m, m.tickCountdown()
}

func (m Model) handleStaringKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		// Abort. The transition bumps the timer epoch, so the countdown
		// tick already in flight cannot fire a late auto-transition.
		m.log.Info("trial aborted", zap.Int("remaining", m.remaining))
		m.transition(PhaseIdle)
	}
	return m, nil
}

func (m Model) handlePersistingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", " ":
		return m.confirmPersistence()
	case "esc":
		m.transition(PhaseIdle)
	}
	return m, nil
}

// confirmPersistence is the terminal transition of a trial: the elapsed
// stopwatch value at this instant is captured, rounded, and composed into a
// fresh record. The record is visible immediately; sync and insight are
// kicked off in the background, sync first.
func (m Model) confirmPersistence() (tea.Model, tea.Cmd) {
	elapsed := m.now().Sub(m.stopwatchStart)
	rec := trial.NewRecord(m.data.ParticipantID(), m.runStimulus, m.runStare, elapsed, m.now())

	m.current = &rec
	m.inflight[rec.ID] = &amendment{rec: rec}
	m.transition(PhaseResults)

	m.log.Info("trial completed",
		zap.String("record", rec.ID),
		zap.String("stimulus", rec.ColorName),
		zap.Float64("persistence_seconds", rec.PersistenceDuration))

	return m, tea.Batch(m.syncTrial(rec), m.requestInsight(rec), m.spinner.Tick)
}

func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "n":
		m.transition(PhaseConfiguring)
	case "h", "esc":
		m.transition(PhaseIdle)
	}
	return m, nil
}

func (m Model) handleVaultKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmClear {
		switch msg.String() {
		case "y":
			m.data.NukeGlobalData()
			m.vault = nil
			m.history = nil
			m.confirmClear = false
			m.status = "Local view cleared. The remote sheet is untouched."
		default:
			m.confirmClear = false
			m.status = "Clear cancelled."
		}
		return m, nil
	}

	switch msg.String() {
	case "r":
		if !m.data.CloudConnected() {
			m.status = "Cloud sync is not configured."
			return m, nil
		}
		m.vaultLoading = true
		m.status = ""
		return m, tea.Batch(m.fetchVault(), m.spinner.Tick)
	case "e":
		return m, m.exportVault(m.vault)
	case "x":
		m.confirmClear = true
		return m, nil
	case "esc", "q":
		m.transition(PhaseIdle)
	}
	return m, nil
}

// =============================================================================
// TIMERS
// =============================================================================

func (m Model) handleCountdownTick(msg countdownTickMsg) (tea.Model, tea.Cmd) {
	if msg.epoch != m.timerEpoch || m.phase != PhaseStaring {
		// Stale tick from an exited state.
		return m, nil
	}

	m.remaining--
	if m.remaining <= 0 {
		m.remaining = 0
		m.transition(PhasePersisting)
		m.stopwatchStart = m.now()
		m.elapsed = 0
		return m, m.tickStopwatch()
	}
	return m, m.tickCountdown()
}

func (m Model) handleStopwatchTick(msg stopwatchTickMsg) (tea.Model, tea.Cmd) {
	if msg.epoch != m.timerEpoch || m.phase != PhasePersisting {
		return m, nil
	}

	m.elapsed = m.now().Sub(m.stopwatchStart)
	return m, m.tickStopwatch()
}

// =============================================================================
// ASYNC COMPLETIONS
// =============================================================================

func (m Model) handleSyncDone(msg syncDoneMsg) (tea.Model, tea.Cmd) {
	a, ok := m.inflight[msg.recordID]
	if !ok || a.syncResolved {
		return m, nil
	}
	a.syncResolved = true
	a.syncOK = msg.ok
	m.maybeFinalize(msg.recordID)
	return m, nil
}

func (m Model) handleInsight(msg insightMsg) (tea.Model, tea.Cmd) {
	a, ok := m.inflight[msg.recordID]
	if !ok || a.insightDone {
		return m, nil
	}
	a.insightDone = true
	a.insight = msg.text
	// Make the text visible right away if the record is still on screen.
	if m.current != nil && m.current.ID == msg.recordID {
		amended := *m.current
		amended.AIInsight = msg.text
		m.current = &amended
	}
	m.maybeFinalize(msg.recordID)
	return m, nil
}

// maybeFinalize applies the one-time amendment once both of a trial's
// background operations have resolved: the record gains its insight text
// and sync outcome, is prepended to the local history, and the history is
// persisted. Keyed by record identity, so it stays correct after the
// participant has moved on from the Results view or even started another
// trial; the finished entry is dropped from inflight, so double delivery
// cannot duplicate a history row.
func (m *Model) maybeFinalize(id string) {
	a, ok := m.inflight[id]
	if !ok || !a.syncResolved || !a.insightDone {
		return
	}

	rec := a.rec
	rec.AIInsight = a.insight
	rec.IsSynced = a.syncOK

	if historyContains(m.history, rec.ID) {
		m.history = trial.Amend(m.history, rec.ID, rec.AIInsight, rec.IsSynced)
	} else {
		m.history = trial.Prepend(m.history, rec)
	}
	m.data.SaveLocalHistory(m.history)

	if m.current != nil && m.current.ID == rec.ID {
		m.current = &rec
	}
	delete(m.inflight, id)
	m.log.Debug("record amended", zap.String("record", rec.ID), zap.Bool("synced", rec.IsSynced))
}

func (m Model) handleVaultFetched(msg vaultFetchedMsg) (tea.Model, tea.Cmd) {
	m.vaultLoading = false
	// The status line only belongs to the vault view; a fetch completing
	// after the vault was closed must not write over the Idle screen.
	if len(msg.records) == 0 {
		// Failed or empty fetch: keep the current snapshot.
		if m.phase == PhaseAdminVault {
			m.status = "No data found in the cloud yet. Have you completed any experiments?"
		}
		return m, nil
	}
	m.vault = msg.records
	m.data.SaveGlobalSnapshot(msg.records)
	if m.phase == PhaseAdminVault {
		m.status = fmt.Sprintf("Synced %d trials from the cloud.", len(msg.records))
	}
	return m, nil
}

func historyContains(history []trial.Record, id string) bool {
	for _, r := range history {
		if r.ID == id {
			return true
		}
	}
	return false
}
