package cli

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/helix"
	"github.com/aretw0/helix/pkg/domain"
)

const hangupTimeout = 10 * time.Second

// Controller is the part of the session controller a talk session drives.
type Controller interface {
	State() domain.SessionState
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// Talk runs one interactive session, printing state changes and transcripts until
// the user interrupts or the runtime ends the session.
type Talk struct {
	printer *Printer
	ended   chan struct{}
	once    sync.Once
}

// NewTalk creates a Talk that prints through p.
func NewTalk(p *Printer) *Talk {
	return &Talk{printer: p, ended: make(chan struct{})}
}

// Options returns the observers a Helix instance needs to feed this Talk.
func (t *Talk) Options() []helix.Option {
	return []helix.Option{
		helix.WithStateObserver(t.observe),
		helix.WithTranscriptHandler(t.printer.Transcript),
	}
}

func (t *Talk) observe(e domain.StateEvent) {
	t.printer.State(e)
	if e.From == domain.StateConnected && e.To == domain.StateIdle {
		t.once.Do(func() { close(t.ended) })
	}
}

// Run connects, then blocks until ctx is cancelled or the session ends remotely.
func (t *Talk) Run(ctx context.Context, ctrl Controller) error {
	if err := ctrl.Connect(ctx); err != nil {
		if IsInterrupted(err) {
			return nil
		}
		t.printer.Errorf("connect failed: %v", err)
		return err
	}
	t.printer.System("Session open. Press Ctrl+C to hang up.")

	select {
	case <-t.ended:
		t.printer.System("Session ended by the runtime.")
		return nil
	case <-ctx.Done():
	}

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hangupTimeout)
	defer cancel()
	if err := ctrl.Disconnect(hctx); err != nil {
		t.printer.Errorf("hang up: %v", err)
		return err
	}
	t.printer.System("Hung up.")
	return nil
}
