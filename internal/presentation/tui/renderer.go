package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// When styled is false, or the renderer cannot be built, markdown is returned unchanged.
func NewRenderer(styled bool, width int) func(string) (string, error) {
	if !styled {
		return plain
	}
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return plain
	}
	return r.Render
}

func plain(markdown string) (string, error) { return markdown, nil }
