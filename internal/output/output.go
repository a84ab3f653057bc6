// Package output handles formatting CLI output as table, JSON, or compact.
package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// EnvFormat names the environment variable that selects a default format.
const EnvFormat = "CADENCE_OUTPUT"

// Format represents an output format.
type Format int

const (
	// FormatAuto uses the default format (table).
	FormatAuto Format = iota
	// FormatJSON outputs JSON.
	FormatJSON
	// FormatTable outputs a human-readable table.
	FormatTable
	// FormatCompact outputs one-line-per-record compact format.
	FormatCompact
)

// Detect returns the appropriate format based on flags and environment.
// Default is table when no explicit format is set.
func Detect(jsonFlag, tableFlag, compactFlag bool) Format {
	if jsonFlag {
		return FormatJSON
	}
	if compactFlag {
		return FormatCompact
	}
	if tableFlag {
		return FormatTable
	}

	switch os.Getenv(EnvFormat) {
	case "json":
		return FormatJSON
	case "compact", "oneline":
		return FormatCompact
	case "table":
		return FormatTable
	}

	return FormatTable
}

// darkBackground records the terminal background for markdown rendering.
var darkBackground = true

// ConfigureTerminal inspects w and the environment (NO_COLOR, CLICOLOR_FORCE)
// and disables styling when the terminal cannot show color.
func ConfigureTerminal(w io.Writer) {
	out := termenv.NewOutput(w)
	profile := out.EnvColorProfile()
	lipgloss.SetColorProfile(profile)
	if profile == termenv.Ascii {
		DisableColor()
		return
	}
	darkBackground = out.HasDarkBackground()
}
