package browser

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// ModalWidth is the outer width of the form dialog.
const ModalWidth = 56

var (
	accent   = lipgloss.AdaptiveColor{Light: "4", Dark: "12"}
	dim      = lipgloss.AdaptiveColor{Light: "240", Dark: "245"}
	failure  = lipgloss.AdaptiveColor{Light: "1", Dark: "9"}
	positive = lipgloss.AdaptiveColor{Light: "2", Dark: "10"}
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle   = lipgloss.NewStyle().Foreground(dim)
	errorStyle   = lipgloss.NewStyle().Foreground(failure)
	labelStyle   = lipgloss.NewStyle().Width(12)
	invalidStyle = lipgloss.NewStyle().Width(12).Bold(true).Foreground(failure)
	buttonStyle  = lipgloss.NewStyle().Padding(0, 1).Foreground(accent)
	dangerStyle  = lipgloss.NewStyle().Padding(0, 1).Foreground(failure)
)

// ModalBorder returns the rounded, accent-colored frame of the form dialog.
func ModalBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Width(ModalWidth)
}

// NoticeStyle returns the style for transient notices. Failures are red.
func NoticeStyle(isErr bool) lipgloss.Style {
	if isErr {
		return lipgloss.NewStyle().Bold(true).Foreground(failure)
	}
	return lipgloss.NewStyle().Foreground(positive)
}

// TableStyles returns the contact table styles.
func TableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dim).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.AdaptiveColor{Light: "15", Dark: "229"}).
		Background(accent).
		Bold(false)
	return s
}
