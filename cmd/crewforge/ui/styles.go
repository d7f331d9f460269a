// Package ui provides the terminal styling for crewforge command output.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Semantic colors, shared across commands.
var (
	ColorSuccess = lipgloss.Color("#8BC34A") // Lime Green
	ColorFailure = lipgloss.Color("#e53935") // Red
	ColorWarning = lipgloss.Color("#FFC107") // Yellow
	ColorInfo    = lipgloss.Color("#2196F3") // Blue
	ColorMuted   = lipgloss.Color("#7a828e")
)

// Styles holds the rendered style set for command output.
type Styles struct {
	Title   lipgloss.Style
	Body    lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
}

// DefaultStyles returns the standard crewforge output styling.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorInfo),
		Body:    lipgloss.NewStyle(),
		Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
		Bold:    lipgloss.NewStyle().Bold(true),
		Success: lipgloss.NewStyle().Foreground(ColorSuccess),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(ColorFailure),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning),
		Info:    lipgloss.NewStyle().Foreground(ColorInfo),
	}
}
