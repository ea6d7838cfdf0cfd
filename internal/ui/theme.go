// Package ui renders reports as terminal tables.
package ui

import "github.com/charmbracelet/lipgloss"

// Theme holds the styles used for text output.
type Theme struct {
	Header lipgloss.Style
	Title  lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Muted  lipgloss.Style
	Amount lipgloss.Style
}

// NewTheme returns the colored theme, or an unstyled one when color is false.
func NewTheme(color bool) *Theme {
	if !color {
		plain := lipgloss.NewStyle()
		return &Theme{Header: plain, Title: plain, Label: plain, Value: plain, Muted: plain, Amount: plain}
	}
	return &Theme{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("63")).
			Padding(0, 1),
		Label:  lipgloss.NewStyle().Bold(true),
		Value:  lipgloss.NewStyle(),
		Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Amount: lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
	}
}
