package exhibit

import (
	"context"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"chromatic/internal/export"
	"chromatic/internal/trial"
)

// countdownTickMsg is one second elapsed in the stare phase.
type countdownTickMsg struct {
	epoch int
}

// stopwatchTickMsg is one sampling interval elapsed in the persistence
// phase. The displayed value is computed from wall clock, not tick count,
// so sampling jitter cannot skew the measurement.
type stopwatchTickMsg struct {
	epoch int
}

// syncDoneMsg reports the remote sync outcome for one record.
type syncDoneMsg struct {
	recordID string
	ok       bool
}

// insightMsg delivers the generated (or fallback) insight for one record.
type insightMsg struct {
	recordID string
	text     string
}

// vaultFetchedMsg delivers the refreshed global snapshot. A nil slice means
// the fetch failed or returned nothing; the current snapshot is kept.
type vaultFetchedMsg struct {
	records []trial.Record
}

// exportDoneMsg reports where the CSV artifact landed, or an error.
type exportDoneMsg struct {
	path string
	err  error
}

func (m Model) tickCountdown() tea.Cmd {
	epoch := m.timerEpoch
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return countdownTickMsg{epoch: epoch}
	})
}

func (m Model) tickStopwatch() tea.Cmd {
	epoch := m.timerEpoch
	return tea.Tick(stopwatchInterval, func(time.Time) tea.Msg {
		return stopwatchTickMsg{epoch: epoch}
	})
}

// syncTrial pushes the record to the cloud in the background. The outcome
// is folded back into the model as a msg; failure never reaches the user as
// anything but a flag.
func (m Model) syncTrial(rec trial.Record) tea.Cmd {
	data := m.data
	return func() tea.Msg {
		ok := data.SyncToCloud(context.Background(), rec)
		return syncDoneMsg{recordID: rec.ID, ok: ok}
	}
}

// requestInsight asks the generative collaborator for the trial explanation.
// The requester always resolves with usable text.
func (m Model) requestInsight(rec trial.Record) tea.Cmd {
	req := m.insights
	return func() tea.Msg {
		text := req.Generate(context.Background(), rec)
		return insightMsg{recordID: rec.ID, text: text}
	}
}

// fetchVault refreshes the global snapshot from the remote store.
func (m Model) fetchVault() tea.Cmd {
	data := m.data
	return func() tea.Msg {
		return vaultFetchedMsg{records: data.FetchFromCloud(context.Background())}
	}
}

// exportVault writes the current snapshot as a CSV artifact next to the
// working directory.
func (m Model) exportVault(records []trial.Record) tea.Cmd {
	log := m.log
	name := export.Filename(m.now())
	return func() tea.Msg {
		path, err := filepath.Abs(name)
		if err != nil {
			path = name
		}
		f, err := os.Create(path)
		if err != nil {
			return exportDoneMsg{err: err}
		}
		defer f.Close()
		if err := export.WriteCSV(f, records); err != nil {
			return exportDoneMsg{err: err}
		}
		log.Info("vault exported", zap.String("path", path), zap.Int("rows", len(records)))
		return exportDoneMsg{path: path}
	}
}
