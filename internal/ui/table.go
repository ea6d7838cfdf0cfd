package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const maxCellWidth = 50

// Column describes one table column.
type Column struct {
	Header string
	// AlignRight right-aligns the cells, for numbers.
	AlignRight bool
	// Style applies to the column's cells. Nil uses Theme.Value.
	Style *lipgloss.Style
}

// Table renders a monospaced table. Cells longer than maxCellWidth are
// truncated with an ellipsis. Widths are measured before styling so
// colored output stays aligned.
func Table(t *Theme, columns []Column, rows [][]string) string {
	w := make([]int, len(columns))
	for i, c := range columns {
		w[i] = lipgloss.Width(c.Header)
	}
	for _, r := range rows {
		for i := range columns {
			if i < len(r) {
				w[i] = max(w[i], lipgloss.Width(truncate(r[i], maxCellWidth)))
			}
		}
	}

	var b strings.Builder
	for i, c := range columns {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(t.Label.Render(pad(c.Header, w[i], c.AlignRight)))
	}
	b.WriteString("\n")

	sep := 0
	for _, n := range w {
		sep += n
	}
	sep += 2 * (len(w) - 1)
	b.WriteString(t.Muted.Render(strings.Repeat("─", max(sep, 0))))
	b.WriteString("\n")

	for _, r := range rows {
		for i, c := range columns {
			if i > 0 {
				b.WriteString("  ")
			}
			cell := ""
			if i < len(r) {
				cell = truncate(r[i], maxCellWidth)
			}
			style := t.Value
			if c.Style != nil {
				style = *c.Style
			}
			b.WriteString(style.Render(pad(cell, w[i], c.AlignRight)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func pad(s string, width int, right bool) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Thousands groups the digits of a decimal integer string with commas.
func Thousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}
