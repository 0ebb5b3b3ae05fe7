// Package exhibit implements the interactive afterimage experiment as a
// Bubble Tea application. The Update loop is the trial state machine:
// configuration, the stare countdown, the afterimage persistence stopwatch,
// result composition, and the hidden vault view all live here.
package exhibit

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"chromatic/cmd/chromatic/config"
	"chromatic/cmd/chromatic/ui"
	"chromatic/internal/insight"
	"chromatic/internal/stimulus"
	"chromatic/internal/store"
	"chromatic/internal/trial"
)

// Unlock gesture: repeated presses of the logo key within a short window,
// confirmed by PIN equality. A cosmetic gate, not access control.
const (
	logoKey          = "v"
	logoPressesToPIN = 5
	logoPressWindow  = 2 * time.Second
)

const stopwatchInterval = 10 * time.Millisecond

// amendment accumulates the background outcomes for one completed trial
// until both have resolved and the record can be finalized into history.
type amendment struct {
	rec          trial.Record
	syncResolved bool
	syncOK       bool
	insightDone  bool
	insight      string
}

// Model is the exhibit's Bubble Tea model.
type Model struct {
	cfg      config.Config
	styles   ui.Styles
	data     *store.DataStore
	insights *insight.Requester
	log      *zap.Logger

	width  int
	height int

	phase Phase

	// Pending configuration. Survives a cancel: the next entry to
	// Configuring starts from these values, not from the defaults.
	stimulusIdx  int
	stareSeconds int

	// Parameters captured at trial start; fixed for the run.
	runStimulus stimulus.Stimulus
	runStare    int

	// timerEpoch invalidates scheduled ticks. Every phase transition bumps
	// it, so a countdown or stopwatch tick scheduled in an exited state
	// arrives with a stale epoch and is dropped. This is what guarantees at
	// most one live timer and no stale auto-transitions after an abort.
	timerEpoch int

	// Staring
	remaining int

	// Persisting
	stopwatchStart time.Time
	elapsed        time.Duration

	// Results. The record is visible immediately; insight and sync resolve
	// in the background and are folded in by identity when they land.
	// inflight carries every trial whose background calls have not both
	// resolved yet, so a completion landing after the participant has
	// started another trial still reaches the history.
	current  *trial.Record
	inflight map[string]*amendment

	history []trial.Record // per-device, most recent first

	// Admin unlock
	logoPresses  int
	logoDeadline time.Time
	enteringPIN  bool
	pinInput     textinput.Model

	// Vault
	vault        []trial.Record
	vaultLoading bool
	confirmClear bool
	status       string

	showTheory bool
	theoryView string

	spinner spinner.Model

	now func() time.Time
}

// New builds the exhibit model. The local history is loaded eagerly so the
// idle view can show recent trials before any network is touched.
func New(cfg config.Config, data *store.DataStore, req *insight.Requester, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}
	styles := ui.NewStyles(ui.ThemeByName(cfg.Theme))

	pin := textinput.New()
	pin.Placeholder = "PIN"
	pin.EchoMode = textinput.EchoPassword
	pin.CharLimit = 16
	pin.Width = 20

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		cfg:          cfg,
		styles:       styles,
		data:         data,
		insights:     req,
		log:          log,
		phase:        PhaseIdle,
		stimulusIdx:  0,
		stareSeconds: stimulus.DefaultStareSeconds,
		history:      data.LocalHistory(),
		inflight:     make(map[string]*amendment),
		pinInput:     pin,
		spinner:      sp,
		theoryView:   renderTheory(),
		now:          time.Now,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Phase exposes the current phase, for the root command's exit logging.
func (m Model) Phase() Phase {
	return m.phase
}

// transition moves the machine to a new phase and bumps the timer epoch so
// any tick scheduled by the old phase is dead on arrival. All phase changes
// must go through here.
func (m *Model) transition(p Phase) {
	m.timerEpoch++
	m.phase = p
	m.status = ""
}

// insightPending reports whether the visible record is still waiting for
// its generated insight.
func (m Model) insightPending() bool {
	if m.current == nil {
		return false
	}
	a, ok := m.inflight[m.current.ID]
	return ok && !a.insightDone
}

// selectedStimulus returns the pending stimulus choice.
func (m Model) selectedStimulus() stimulus.Stimulus {
	lib := stimulus.Library()
	if m.stimulusIdx < 0 || m.stimulusIdx >= len(lib) {
		return lib[0]
	}
	return lib[m.stimulusIdx]
}
