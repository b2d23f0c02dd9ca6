// Package tui holds terminal setup shared by proctrack's interactive views.
package tui

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/proctrack/logging"
	"github.com/muesli/termenv"
)

// InitializeTUI picks the lipgloss color profile from the environment.
// CLICOLOR_FORCE=1 or COLORTERM=truecolor force true color, which keeps
// output stable when tests drive the binary without a terminal. NO_COLOR
// disables color entirely.
func InitializeTUI() {
	switch {
	case os.Getenv("NO_COLOR") != "":
		lipgloss.SetColorProfile(termenv.Ascii)
	case os.Getenv("CLICOLOR_FORCE") == "1" || os.Getenv("COLORTERM") == "truecolor":
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}

// Run initializes the terminal and runs model full-screen until it quits.
// Terminal log output is discarded while the program owns the screen.
func Run(model tea.Model) error {
	InitializeTUI()
	restore := logging.RedirectOutput(io.Discard)
	defer restore()
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
