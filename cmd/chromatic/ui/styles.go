// Package ui provides the visual styling for the chromatic exhibit.
// The palette follows the exhibit's indigo-on-near-black look with a light
// variant for pale terminals.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Dark Mode Colors (default; the exhibit runs in a darkened room)
	DarkBackground = lipgloss.Color("#0a0a0a")
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#6366f1") // Indigo
	DarkAccent     = lipgloss.Color("#a855f7") // Purple
	DarkMuted      = lipgloss.Color("#5c5c66")
	DarkBorder     = lipgloss.Color("#26262e")

	// Light Mode Colors
	LightBackground = lipgloss.Color("#f4f5f6")
	LightForeground = lipgloss.Color("#18181b")
	LightPrimary    = lipgloss.Color("#4338ca")
	LightAccent     = lipgloss.Color("#7e22ce")
	LightMuted      = lipgloss.Color("#9494a1")
	LightBorder     = lipgloss.Color("#d4d4d8")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#22c55e")
	Warning     = lipgloss.Color("#FFC107")
)

// Theme holds the current color scheme.
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
		IsDark:     false,
	}
}

// ThemeByName maps a config value to a theme, defaulting to dark.
func ThemeByName(name string) Theme {
	if name == "light" {
		return LightTheme()
	}
	return DarkTheme()
}

// Styles bundles the lipgloss styles the exhibit views share.
type Styles struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Body      lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Accent    lipgloss.Style
	Danger    lipgloss.Style
	StatusBar lipgloss.Style
	Panel     lipgloss.Style
	BigTimer  lipgloss.Style
	Keycap    lipgloss.Style
}

// NewStyles builds the shared style set for a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Subtitle:  lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Body:      lipgloss.NewStyle().Foreground(t.Foreground),
		Bold:      lipgloss.NewStyle().Bold(true).Foreground(t.Foreground),
		Muted:     lipgloss.NewStyle().Foreground(t.Muted),
		Accent:    lipgloss.NewStyle().Foreground(t.Accent),
		Danger:    lipgloss.NewStyle().Foreground(Destructive).Bold(true),
		StatusBar: lipgloss.NewStyle().Foreground(t.Muted).Padding(0, 1),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(1, 2),
		BigTimer: lipgloss.NewStyle().Bold(true).Foreground(t.Foreground),
		Keycap:   lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
	}
}

// Swatch renders a small colored block for a hex color.
func Swatch(hex string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("  ")
}
