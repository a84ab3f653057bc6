package output

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const remarksWrap = 80

// plainMarkdown is set by DisableColor.
var plainMarkdown bool

// Markdown renders remarks for the terminal. Rendering failures fall back
// to the raw text.
func Markdown(text string) string {
	style := "dark"
	switch {
	case plainMarkdown:
		style = "notty"
	case !darkBackground:
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(remarksWrap),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
