// SPDX-License-Identifier: AGPL-3.0-or-later

// Package style provides semantic terminal styling for prompts and notices.
//
// Styling is off until Init enables it; disabled helpers return their input
// unchanged, which keeps captured output in tests free of escape codes.
package style

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	enabled bool

	promptStyle  lipgloss.Style
	choiceStyle  lipgloss.Style
	warningStyle lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
	mutedStyle   lipgloss.Style
)

// Init enables styling when enable is set, the output supports colour and
// neither NO_COLOR nor ASK_NO_COLOR is set.
func Init(enable bool) {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("ASK_NO_COLOR") != "" {
		enabled = false
		return
	}
	if termenv.EnvColorProfile() == termenv.Ascii {
		enabled = false
		return
	}
	enabled = enable
	if !enabled {
		return
	}
	promptStyle = lipgloss.NewStyle().Bold(true)
	choiceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	mutedStyle = lipgloss.NewStyle().Faint(true)
}

// Enabled reports whether styling is active.
func Enabled() bool { return enabled }

func Prompt(s string) string  { return render(promptStyle, s) }
func Choice(s string) string  { return render(choiceStyle, s) }
func Warning(s string) string { return render(warningStyle, s) }
func Error(s string) string   { return render(errorStyle, s) }
func Success(s string) string { return render(successStyle, s) }
func Muted(s string) string   { return render(mutedStyle, s) }

func render(st lipgloss.Style, s string) string {
	if !enabled {
		return s
	}
	return st.Render(s)
}
