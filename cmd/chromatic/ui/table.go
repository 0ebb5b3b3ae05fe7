package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders static tabular data, used by the vault view to show the
// global snapshot.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// NewTable creates a table with the given title and headers.
func NewTable(title string, headers []string) *Table {
	return &Table{
		Title:   title,
		Headers: headers,
	}
}

// AddRow appends a data row.
func (t *Table) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
}

// View renders the table using the provided styles.
func (t *Table) View(styles Styles) string {
	var sb strings.Builder

	if t.Title != "" {
		sb.WriteString(styles.Title.Render(t.Title))
		sb.WriteString("\n")
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}
	for i := range widths {
		widths[i] += 2
	}

	headerStyle := styles.Bold.Padding(0, 1)
	rowStyle := styles.Body.Padding(0, 1)

	for i, h := range t.Headers {
		sb.WriteString(headerStyle.Width(widths[i]).Render(h))
	}
	sb.WriteString("\n")

	total := 0
	for _, w := range widths {
		total += w
	}
	sb.WriteString(styles.Muted.Render(strings.Repeat("─", total)))
	sb.WriteString("\n")

	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				sb.WriteString(rowStyle.Width(widths[i]).Render(cell))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
