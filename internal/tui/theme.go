package tui

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Palette. Teal carries the source language, amber the target.
var (
	ColorPrimary   = lipgloss.Color("#14B8A6")
	ColorSecondary = lipgloss.Color("#FBBF24")

	ColorSuccess = lipgloss.Color("#4ADE80")
	ColorError   = lipgloss.Color("#F87171")
	ColorWarning = lipgloss.Color("#FB923C")

	ColorText   = lipgloss.Color("#E2E8F0")
	ColorMuted  = lipgloss.Color("#A1A1AA")
	ColorSubtle = lipgloss.Color("#52525B")
)

// getTheme builds the huh theme shared by every form in the wizard.
func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	focused := &t.Focused
	focused.Base = focused.Base.BorderForeground(ColorPrimary)
	focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	focused.SelectSelector = lipgloss.NewStyle().Foreground(ColorSecondary).SetString("› ")
	focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)
	focused.FocusedButton = focused.FocusedButton.Background(ColorPrimary)
	focused.ErrorMessage = StyleError
	focused.ErrorIndicator = StyleError

	blurred := &t.Blurred
	blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
