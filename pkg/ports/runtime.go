package ports

import (
	"context"

	"github.com/aretw0/helix/pkg/domain"
)

// RuntimeConfig is everything the runtime receives at connect time.
type RuntimeConfig struct {
	Credential   domain.SessionCredential
	Instructions string
	Tools        []domain.Tool
	Voice        string
}

// RuntimeHandler receives the runtime events the orchestrator consumes.
// Callbacks run on the session's read goroutine and must not block.
type RuntimeHandler struct {
	// OnToolCall is invoked once per tool invocation request.
	OnToolCall func(call domain.ToolCall)
	// OnItem is invoked for every appended conversation item that carries text.
	OnItem func(item domain.ConversationItem)
}

// Runtime opens realtime conversation sessions.
type Runtime interface {
	// Open performs the handshake. It returns only once the session is ready to use,
	// or with a handshake_failure error.
	Open(ctx context.Context, cfg RuntimeConfig, h RuntimeHandler) (RuntimeSession, error)
}

// RuntimeSession is an open realtime session.
type RuntimeSession interface {
	// SendToolResult delivers the output of a tool call.
	// Returns domain.ErrSessionClosed once the session is closed.
	SendToolResult(ctx context.Context, res domain.ToolResult) error

	// Done is closed when the session ends, locally or remotely.
	Done() <-chan struct{}

	// Err reports why the session ended, or nil for a clean close.
	Err() error

	// Close tears the session down. It is safe to call more than once.
	Close(ctx context.Context) error
}
