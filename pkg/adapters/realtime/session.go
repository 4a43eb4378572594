package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/ports"
)

// Session is an open realtime conversation. It implements ports.RuntimeSession.
type Session struct {
	conn    *websocket.Conn
	handler ports.RuntimeHandler
	logger  *slog.Logger
	metrics Recorder

	done chan struct{}

	// Assistant items already forwarded; owned by the read loop.
	delivered map[string]struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

func newSession(conn *websocket.Conn, h ports.RuntimeHandler, logger *slog.Logger, m Recorder) *Session {
	return &Session{
		conn:    conn,
		handler: h,
		logger:  logger,
		metrics: m,
		done:    make(chan struct{}),

		delivered: make(map[string]struct{}),
	}
}

// SendToolResult delivers a tool output and asks the runtime to continue the response.
func (s *Session) SendToolResult(ctx context.Context, res domain.ToolResult) error {
	if s.closed.Load() {
		return domain.ErrSessionClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
		defer s.conn.SetWriteDeadline(time.Time{})
	}
	if err := s.conn.WriteJSON(functionOutput(res)); err != nil {
		return s.writeErr(err)
	}
	if err := s.conn.WriteJSON(newEvent(EventResponseCreate)); err != nil {
		return s.writeErr(err)
	}
	record(s.metrics, "out", EventItemCreate)
	return nil
}

func (s *Session) writeErr(err error) error {
	if s.closed.Load() || errors.Is(err, websocket.ErrCloseSent) {
		return domain.ErrSessionClosed
	}
	return fmt.Errorf("write tool result: %w", err)
}

// Done is closed when the read loop exits.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the terminal session error, or nil for a normal close.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Close sends a normal closure and waits for the read loop to finish or ctx to expire.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		werr := s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		cerr := s.conn.Close()

		select {
		case <-s.done:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
		// A peer that already hung up is not a teardown failure.
		if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) && s.Err() == nil {
			err = werr
		} else if cerr != nil && s.Err() == nil {
			err = cerr
		}
	})
	return err
}

func (s *Session) readLoop() {
	defer close(s.done)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("realtime session closed")
				return
			}
			s.logger.Warn("realtime session dropped", "error", err)
			s.setErr(err)
			return
		}

		ev, err := decodeEvent(data)
		if err != nil {
			s.logger.Warn("undecodable realtime event", "error", err)
			continue
		}
		record(s.metrics, "in", ev.Type)
		s.handle(ev)
	}
}

func (s *Session) handle(ev serverEvent) {
	switch ev.Type {
	case EventFunctionCallArgsDone:
		if s.handler.OnToolCall != nil {
			s.handler.OnToolCall(domain.ToolCall{ID: ev.CallID, Name: ev.Name, RawArgs: ev.Args})
		}
	case EventItemDone, EventItemCreated:
		if ev.Item == nil || ev.Item.Type != "message" || ev.Item.Role != string(domain.RoleAssistant) {
			return
		}
		text := ev.Item.text()
		if text == "" || s.handler.OnItem == nil {
			return
		}
		if ev.Item.ID != "" {
			if _, seen := s.delivered[ev.Item.ID]; seen {
				return
			}
			s.delivered[ev.Item.ID] = struct{}{}
		}
		s.handler.OnItem(domain.ConversationItem{ID: ev.Item.ID, Role: domain.RoleAssistant, Text: text})
	case EventError:
		// Errors after the handshake concern a single response; the session stays usable.
		s.logger.Warn("realtime runtime reported an error", "error", ev.Error.String())
	}
}
