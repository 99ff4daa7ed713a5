package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	StyleHeader = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	// StyleLabel pads summary keys so values line up.
	StyleLabel = lipgloss.NewStyle().Foreground(ColorText).Bold(true).Width(16)

	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Italic(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)

	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSecondary).
			Padding(0, 2)
)

const logoASCII = `
 _                      _ _
| |__  _   _ _ __  _ __| (_)_ __   __ _  ___
| '_ \| | | | '_ \| '__| | | '_ \ / _' |/ _ \
| | | | |_| | |_) | |  | | | | | | (_| | (_) |
|_| |_|\__, | .__/|_|  |_|_|_| |_|\__, |\___/
       |___/|_|                   |___/      `

// Logo renders the banner with a subtitle naming the translation pipeline.
func Logo() string {
	banner := StyleHeader.Render(strings.Trim(logoASCII, "\n"))
	sub := StyleMuted.Render("live transcription · translation · polishing")
	return lipgloss.JoinVertical(lipgloss.Left, banner, sub)
}
