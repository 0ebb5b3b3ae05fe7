package exhibit

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"chromatic/cmd/chromatic/ui"
	"chromatic/internal/stimulus"
)

const theoryMarkdown = `# The Opponent Process Theory

In 1892, German physiologist **Ewald Hering** challenged the dominant theory
of color vision. He noticed that some colors are mutually exclusive — there
is no "reddish-green" and no "yellowish-blue".

Hering proposed that color is processed in mutually exclusive pairs. This
experiment effectively jams one side of those neural circuits: staring at
red exhausts the red-detecting pathway, and when you switch to a white
field the opposing cyan signal spikes, creating the ghost of the
complementary color.

## Photoreceptors

The retina carries three cone types, each housing a specific *photopsin*
protein. The stare phase bleaches the cones tuned to the stimulus; the
persistence phase measures how long the rebound lasts.
`

// renderTheory pre-renders the briefing page once at startup.
func renderTheory() string {
	out, err := glamour.Render(theoryMarkdown, "dark")
	if err != nil {
		return theoryMarkdown
	}
	return out
}

// View implements tea.Model.
func (m Model) View() string {
	var body string
	switch m.phase {
	case PhaseIdle, PhaseConfiguring:
		body = m.viewHome()
	case PhaseStaring:
		body = m.viewStaring()
	case PhasePersisting:
		body = m.viewPersisting()
	case PhaseResults:
		body = m.viewResults()
	case PhaseAdminVault:
		body = m.viewVault()
	}

	if m.enteringPIN {
		body += "\n" + m.styles.Panel.Render(
			m.styles.Bold.Render("Admin Access Required")+"\n"+m.pinInput.View())
	}
	if m.status != "" {
		body += "\n" + m.styles.StatusBar.Render(m.status)
	}
	return body
}

func (m Model) viewHome() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Title.Render("Chromatic Adaptation"))
	sb.WriteString("  ")
	sb.WriteString(m.styles.Subtitle.Render("Vision Science Exhibit"))
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.Body.Render(
		"Observe the biological phenomenon of retinal fatigue: stare at a color,\n" +
			"then time how long its phantom complement lingers."))
	sb.WriteString("\n\n")

	if m.phase == PhaseConfiguring {
		sb.WriteString(m.viewConfigPanel())
		sb.WriteString("\n")
	} else {
		sb.WriteString(m.styles.Keycap.Render("[enter]"))
		sb.WriteString(m.styles.Muted.Render(" start experiment   "))
		sb.WriteString(m.styles.Keycap.Render("[t]"))
		sb.WriteString(m.styles.Muted.Render(" theory   "))
		sb.WriteString(m.styles.Keycap.Render("[q]"))
		sb.WriteString(m.styles.Muted.Render(" quit"))
		sb.WriteString("\n")
	}

	if m.showTheory && m.phase == PhaseIdle {
		sb.WriteString("\n")
		sb.WriteString(m.theoryView)
	}

	sb.WriteString("\n")
	sb.WriteString(m.viewRecentHistory())
	return sb.String()
}

func (m Model) viewConfigPanel() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Bold.Render("Configure Trial Parameters"))
	sb.WriteString("\n\n")

	sb.WriteString(m.styles.Muted.Render("I. Stimulus Selection  "))
	sb.WriteString(m.styles.Keycap.Render("←/→"))
	sb.WriteString("\n")
	for i, s := range stimulus.Library() {
		marker := "  "
		if i == m.stimulusIdx {
			marker = m.styles.Accent.Render("▸ ")
		}
		line := fmt.Sprintf("%s%s %-15s %s", marker, ui.Swatch(s.Hex), s.Name,
			m.styles.Muted.Render(s.Description))
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("II. Adaptation Period  "))
	sb.WriteString(m.styles.Keycap.Render("↑/↓"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("   %s  (%d–%d s, recommended %d)\n",
		m.styles.Bold.Render(fmt.Sprintf("%ds", m.stareSeconds)),
		stimulus.MinStareSeconds, stimulus.MaxStareSeconds, stimulus.DefaultStareSeconds))

	sb.WriteString("\n")
	sb.WriteString(m.styles.Keycap.Render("[enter]"))
	sb.WriteString(m.styles.Muted.Render(" begin trial   "))
	sb.WriteString(m.styles.Keycap.Render("[esc]"))
	sb.WriteString(m.styles.Muted.Render(" cancel"))

	return m.styles.Panel.Render(sb.String())
}

func (m Model) viewRecentHistory() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Muted.Render("Recent Trial History"))
	sb.WriteString("\n")

	if len(m.history) == 0 {
		sb.WriteString(m.styles.Subtitle.Render("Complete a trial to see data history."))
		sb.WriteString("\n")
		return sb.String()
	}

	shown := m.history
	if len(shown) > 5 {
		shown = shown[:5]
	}
	for _, r := range shown {
		sb.WriteString(fmt.Sprintf("%s %-15s %s  %s\n",
			ui.Swatch(r.ColorHex),
			r.ColorName,
			m.styles.Accent.Render(fmt.Sprintf("%.2fs", r.PersistenceDuration)),
			m.styles.Muted.Render(time.UnixMilli(r.Timestamp).Format("15:04:05"))))
	}
	return sb.String()
}

// viewStaring fills the screen with the stimulus color around a fixation
// point. The countdown reads from the model; it is always a non-negative
// integer.
func (m Model) viewStaring() string {
	bg := lipgloss.NewStyle().Background(lipgloss.Color(m.runStimulus.Hex))
	width := max(m.width, 20)

	var sb strings.Builder
	sb.WriteString(m.styles.Muted.Render("PHASE 1: CONCENTRATION"))
	sb.WriteString("\n\n")

	block := strings.Repeat(" ", width)
	for i := 0; i < 7; i++ {
		if i == 3 {
			half := (width - 1) / 2
			sb.WriteString(bg.Render(strings.Repeat(" ", half)))
			sb.WriteString(bg.Bold(true).Foreground(lipgloss.Color("#000000")).Render("●"))
			sb.WriteString(bg.Render(strings.Repeat(" ", width-half-1)))
		} else {
			sb.WriteString(bg.Render(block))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.styles.BigTimer.Render(fmt.Sprintf("%ds", m.remaining)))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("Gaze at the central dot. Keep your eyes steady to maximize retinal fatigue."))
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.Keycap.Render("[esc]"))
	sb.WriteString(m.styles.Muted.Render(" cancel trial"))
	return sb.String()
}

func (m Model) viewPersisting() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Muted.Render("PHASE 2: OBSERVATION"))
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.Muted.Render("Persistence Duration"))
	sb.WriteString("\n")
	sb.WriteString(m.styles.BigTimer.Render(fmt.Sprintf("%.2fs", m.elapsed.Seconds())))
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.Keycap.Render("[enter]"))
	sb.WriteString(m.styles.Bold.Render(" I CAN NO LONGER SEE IT"))
	return sb.String()
}

func (m Model) viewResults() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Experiment Complete."))
	sb.WriteString("\n\n")

	if m.current != nil {
		sb.WriteString(fmt.Sprintf("Your visual system adapted to %s for %ds, yielding an\nafterimage persistence of %s.\n\n",
			m.styles.Bold.Render(m.current.ColorName),
			m.current.StareDuration,
			m.styles.Accent.Render(fmt.Sprintf("%.2fs", m.current.PersistenceDuration))))

		sb.WriteString(m.styles.Muted.Render("Neural-AI Insight"))
		sb.WriteString("\n")
		if m.insightPending() {
			sb.WriteString(m.spinner.View())
			sb.WriteString(m.styles.Subtitle.Render(" consulting the curious neuroscientist..."))
		} else {
			sb.WriteString(m.styles.Body.Render("“" + m.current.AIInsight + "”"))
		}
		sb.WriteString("\n\n")
	}

	sb.WriteString(m.styles.Keycap.Render("[n]"))
	sb.WriteString(m.styles.Muted.Render(" new trial   "))
	sb.WriteString(m.styles.Keycap.Render("[esc]"))
	sb.WriteString(m.styles.Muted.Render(" back to home"))
	return sb.String()
}

func (m Model) viewVault() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Research Command Center"))
	sb.WriteString("  ")
	if m.data.CloudConnected() {
		sb.WriteString(m.styles.Accent.Render("● cloud link active"))
	} else {
		sb.WriteString(m.styles.Muted.Render("○ local only"))
	}
	sb.WriteString("\n\n")

	total := len(m.vault)
	avg := 0.0
	for _, r := range m.vault {
		avg += r.PersistenceDuration
	}
	if total > 0 {
		avg /= float64(total)
	}
	sb.WriteString(fmt.Sprintf("Total Trials: %s   Avg. Persistence: %s\n\n",
		m.styles.Bold.Render(fmt.Sprintf("%d", total)),
		m.styles.Bold.Render(fmt.Sprintf("%.1fs", avg))))

	if m.vaultLoading {
		sb.WriteString(m.spinner.View())
		sb.WriteString(m.styles.Subtitle.Render(" syncing live data..."))
		sb.WriteString("\n")
	} else if total == 0 {
		sb.WriteString(m.styles.Subtitle.Render("No recorded trials in the local view."))
		sb.WriteString("\n")
	} else {
		table := ui.NewTable("", []string{"Participant", "Time", "Stimulus", "Stare", "Persistence"})
		shown := m.vault
		if len(shown) > 15 {
			shown = shown[:15]
		}
		for _, r := range shown {
			table.AddRow(
				r.ParticipantID,
				time.UnixMilli(r.Timestamp).Format("01-02 15:04"),
				r.ColorName,
				fmt.Sprintf("%ds", r.StareDuration),
				fmt.Sprintf("%.2fs", r.PersistenceDuration),
			)
		}
		sb.WriteString(table.View(m.styles))
	}

	sb.WriteString("\n")
	if m.confirmClear {
		sb.WriteString(m.styles.Danger.Render(
			"DANGER: this clears your local VIEW only; the remote sheet keeps its data. Proceed? [y/n]"))
	} else {
		sb.WriteString(m.styles.Keycap.Render("[r]"))
		sb.WriteString(m.styles.Muted.Render(" sync live data   "))
		sb.WriteString(m.styles.Keycap.Render("[e]"))
		sb.WriteString(m.styles.Muted.Render(" export csv   "))
		sb.WriteString(m.styles.Keycap.Render("[x]"))
		sb.WriteString(m.styles.Muted.Render(" clear local view   "))
		sb.WriteString(m.styles.Keycap.Render("[esc]"))
		sb.WriteString(m.styles.Muted.Render(" close"))
	}
	return sb.String()
}
