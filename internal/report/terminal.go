package report

import (
	"github.com/charmbracelet/glamour"
)

// Render formats markdown for the terminal. An empty style picks one from
// the terminal background; "notty" gives plain output.
func Render(markdown string, width int, style string) (string, error) {
	if width <= 0 {
		width = 100
	}

	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStylePath(style)
	}

	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}
