package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/helix/internal/presentation/tui"
	"github.com/aretw0/helix/pkg/domain"
)

// Printer writes user-facing CLI output. Colour and markdown styling are used only on a terminal.
type Printer struct {
	w      io.Writer
	out    *termenv.Output
	styled bool
	render func(string) (string, error)
}

// NewPrinter creates a Printer for w, detecting whether w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	styled, width := false, 0
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		styled = true
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = cols
		}
	}
	return newPrinter(w, styled, width)
}

func newPrinter(w io.Writer, styled bool, width int) *Printer {
	opts := []termenv.OutputOption{}
	if !styled {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	return &Printer{
		w:      w,
		out:    termenv.NewOutput(w, opts...),
		styled: styled,
		render: tui.NewRenderer(styled, width),
	}
}

// Styled reports whether output goes to a terminal.
func (p *Printer) Styled() bool { return p.styled }

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer { return p.w }

// Banner prints the startup banner on terminals only.
func (p *Printer) Banner(version string) {
	if p.styled {
		tui.PrintBanner(p.w, version)
	}
}

// System prints a standardized system message.
func (p *Printer) System(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.out.String(">>>").Faint(), fmt.Sprintf(format, args...))
}

// Errorf prints a highlighted error message.
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.out.String("!!!").Foreground(p.out.Color("#fb7185")).Bold(), fmt.Sprintf(format, args...))
}

// State prints a session transition.
func (p *Printer) State(e domain.StateEvent) {
	to := p.out.String(string(e.To)).Foreground(p.out.Color(stateColor(e.To)))
	if e.Err != nil {
		fmt.Fprintf(p.w, "[%s -> %s] %v\n", e.From, to, e.Err)
		return
	}
	fmt.Fprintf(p.w, "[%s -> %s]\n", e.From, to)
}

// Transcript prints one conversation item.
func (p *Printer) Transcript(item domain.ConversationItem) {
	who := p.out.String(string(item.Role) + ":").Bold()
	fmt.Fprintf(p.w, "%s %s\n", who, item.Text)
}

// Markdown renders markdown, styled on terminals.
func (p *Printer) Markdown(md string) error {
	out, err := p.render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(p.w, out)
	return err
}

func stateColor(s domain.SessionState) string {
	switch s {
	case domain.StateConnected:
		return "#4ade80"
	case domain.StateError:
		return "#fb7185"
	case domain.StateConnecting, domain.StateDisconnecting:
		return "#facc15"
	default:
		return "#a78bfa"
	}
}
