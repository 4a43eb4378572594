package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the HELIX banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	lines := []struct{ text, color string }{
		{` _   _ _____ _     _____  __`, "#818cf8"},
		{`| | | | ____| |   |_ _\ \/ /`, "#a78bfa"},
		{`| |_| |  _| | |    | | \  / `, "#c084fc"},
		{`|  _  | |___| |___ | | /  \ `, "#e879f9"},
		{`|_| |_|_____|_____|___/_/\_\`, "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  voice orchestrator "+version).Faint())
	fmt.Fprintln(w)
}
