// Package realtime connects to the realtime conversation runtime over WebSocket.
//
// A Dialer performs the handshake (session.created, session.update with the tool
// catalogue and instructions, session.updated) and returns a Session that reports
// tool invocation requests and assistant transcripts, and accepts tool outputs.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aretw0/helix/internal/logging"
	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/ports"
)

// Defaults for the runtime endpoint.
const (
	DefaultURL              = "wss://api.openai.com/v1/realtime"
	DefaultModel            = "gpt-realtime"
	DefaultHandshakeTimeout = 15 * time.Second
)

// Dialer opens realtime sessions. It implements ports.Runtime.
type Dialer struct {
	url              string
	model            string
	handshakeTimeout time.Duration
	dialer           *websocket.Dialer
	logger           *slog.Logger
	metrics          Recorder
}

// Option configures a Dialer.
type Option func(*Dialer)

// WithURL sets the runtime WebSocket endpoint.
func WithURL(u string) Option {
	return func(d *Dialer) {
		if u != "" {
			d.url = u
		}
	}
}

// WithModel sets the model query parameter.
func WithModel(m string) Option {
	return func(d *Dialer) {
		if m != "" {
			d.model = m
		}
	}
}

// WithHandshakeTimeout bounds the dial plus session setup.
func WithHandshakeTimeout(t time.Duration) Option {
	return func(d *Dialer) {
		if t > 0 {
			d.handshakeTimeout = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dialer) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics records protocol counters into r.
func WithMetrics(r Recorder) Option {
	return func(d *Dialer) { d.metrics = r }
}

// NewDialer creates a Dialer.
func NewDialer(opts ...Option) *Dialer {
	d := &Dialer{
		url:              DefaultURL,
		model:            DefaultModel,
		handshakeTimeout: DefaultHandshakeTimeout,
		dialer:           websocket.DefaultDialer,
		logger:           logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dialer) endpoint() (string, error) {
	u, err := url.Parse(d.url)
	if err != nil {
		return "", fmt.Errorf("parse runtime url: %w", err)
	}
	q := u.Query()
	if d.model != "" {
		q.Set("model", d.model)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open dials the runtime and performs the handshake. Every failure is a handshake_failure.
// Cancelling ctx aborts an in-flight handshake.
func (d *Dialer) Open(ctx context.Context, cfg ports.RuntimeConfig, h ports.RuntimeHandler) (ports.RuntimeSession, error) {
	const op = "realtime handshake"
	fail := func(err error) (ports.RuntimeSession, error) {
		if d.metrics != nil {
			d.metrics.Handshake(false)
		}
		return nil, domain.NewError(domain.KindHandshake, op, err)
	}

	if cfg.Credential.Value == "" {
		return fail(errors.New("empty credential"))
	}
	endpoint, err := d.endpoint()
	if err != nil {
		return fail(err)
	}

	hsCtx, cancel := context.WithTimeout(ctx, d.handshakeTimeout)
	defer cancel()

	headers := make(http.Header)
	headers.Set("Authorization", "Bearer "+cfg.Credential.Value)

	conn, resp, err := d.dialer.DialContext(hsCtx, endpoint, headers)
	if err != nil {
		if resp != nil {
			return fail(fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err))
		}
		return fail(err)
	}

	// Unblock reads if the caller cancels or the handshake times out.
	stop := context.AfterFunc(hsCtx, func() { _ = conn.Close() })

	if err := d.handshake(hsCtx, conn, cfg); err != nil {
		stop()
		_ = conn.Close()
		if ctxErr := hsCtx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return fail(err)
	}
	if !stop() {
		// The context fired after the handshake completed; the connection is already closed.
		return fail(hsCtx.Err())
	}
	_ = conn.SetReadDeadline(time.Time{})

	s := newSession(conn, h, d.logger, d.metrics)
	go s.readLoop()
	if d.metrics != nil {
		d.metrics.Handshake(true)
	}
	d.logger.Info("realtime session open", "model", d.model, "tools", len(cfg.Tools))
	return s, nil
}

func (d *Dialer) handshake(ctx context.Context, conn *websocket.Conn, cfg ports.RuntimeConfig) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	if err := awaitEvent(conn, EventSessionCreated); err != nil {
		return err
	}
	if err := conn.WriteJSON(sessionUpdate(cfg.Instructions, cfg.Voice, cfg.Tools)); err != nil {
		return fmt.Errorf("send %s: %w", EventSessionUpdate, err)
	}
	return awaitEvent(conn, EventSessionUpdated)
}

// awaitEvent reads until an event of type want arrives. An error event aborts.
func awaitEvent(conn *websocket.Conn, want string) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("waiting for %s: %w", want, err)
		}
		ev, err := decodeEvent(data)
		if err != nil {
			return fmt.Errorf("waiting for %s: %w", want, err)
		}
		switch ev.Type {
		case want:
			return nil
		case EventError:
			return fmt.Errorf("runtime rejected session: %s", ev.Error.String())
		}
	}
}
