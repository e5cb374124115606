package ui

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows in aligned columns for terminal listings.
type Table struct {
	Headers []string
	Rows    [][]string
	// MaxWidth caps every column; longer cells are cut with "…". Zero means no cap.
	MaxWidth int
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// ColumnWidths returns the display width of each column.
func (t *Table) ColumnWidths() []int {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	if t.MaxWidth > 0 {
		for i := range widths {
			widths[i] = min(widths[i], t.MaxWidth)
		}
	}
	return widths
}

// Render returns the table as a string.
func (t *Table) Render() string {
	if len(t.Headers) == 0 {
		return ""
	}
	widths := t.ColumnWidths()
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	var sb strings.Builder
	cells := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		cells[i] = headerStyle.Render(padRight(h, widths[i]))
	}
	writeLine(&sb, cells)

	for i, w := range widths {
		cells[i] = StyleSubtle.Render(strings.Repeat("─", w))
	}
	writeLine(&sb, cells)

	for _, row := range t.Rows {
		for i := range t.Headers {
			val := ""
			if i < len(row) {
				val = truncate(row[i], widths[i])
			}
			cells[i] = padRight(val, widths[i])
		}
		writeLine(&sb, cells)
	}
	return sb.String()
}

// Write renders the table to w.
func (t *Table) Write(w io.Writer) error {
	_, err := io.WriteString(w, t.Render())
	return err
}

func writeLine(sb *strings.Builder, cells []string) {
	sb.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
	sb.WriteString("\n")
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 1 {
		return "…"
	}
	r := []rune(s)
	if len(r) > width-1 {
		r = r[:width-1]
	}
	return string(r) + "…"
}

func padRight(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
