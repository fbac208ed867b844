package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Go gopher cyan for the banner.
const accentColor = "#00ADD8"

// CURATOR ASCII art (filled block style).
var curatorArt = []string{
	" ██████╗██╗   ██╗██████╗  █████╗ ████████╗ ██████╗ ██████╗ ",
	"██╔════╝██║   ██║██╔══██╗██╔══██╗╚══██╔══╝██╔═══██╗██╔══██╗",
	"██║     ██║   ██║██████╔╝███████║   ██║   ██║   ██║██████╔╝",
	"██║     ██║   ██║██╔══██╗██╔══██║   ██║   ██║   ██║██╔══██╗",
	"╚██████╗╚██████╔╝██║  ██║██║  ██║   ██║   ╚██████╔╝██║  ██║",
	" ╚═════╝ ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝    ╚═════╝ ╚═╝  ╚═╝",
}

// Styles contains all lipgloss styles for the browser.
type Styles struct {
	Banner    lipgloss.Style
	Header    lipgloss.Style
	ID        lipgloss.Style
	Score     lipgloss.Style
	Cursor    lipgloss.Style
	System    lipgloss.Style
	Error     lipgloss.Style
	Tips      lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentColor)),
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentColor)),
		ID:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Score:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Cursor:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Tips:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// RenderBanner returns the CURATOR ASCII art banner as a styled string.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range curatorArt {
		_, _ = b.WriteString(s.Banner.Render(line))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// RenderWelcomeTips returns the getting-started tips shown before the
// first search.
func (s Styles) RenderWelcomeTips(collection string) string {
	tips := []string{
		"Searching collection: " + collection,
		"",
		"  • Type a query and press Enter to search",
		"  • ↑/↓ move through results, Enter opens one",
		"  • Esc goes back, / starts a new search",
		"  • Ctrl+C cancels, Ctrl+D exits",
	}
	var b strings.Builder
	for _, tip := range tips {
		_, _ = b.WriteString(s.Tips.Render(tip))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}
