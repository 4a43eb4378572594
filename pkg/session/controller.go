package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/helix/internal/logging"
	"github.com/aretw0/helix/pkg/credential"
	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/ports"
	"github.com/aretw0/helix/pkg/registry"
)

// ErrConnectAborted is returned by Connect when Disconnect cancels the attempt.
var ErrConnectAborted = errors.New("connect aborted")

// CatalogueBuilder builds the tool catalogue for one session.
// It runs on every connect so tools bind to the current backend client and reconciler.
type CatalogueBuilder func() (*registry.Registry, error)

// Controller drives one realtime session at a time.
type Controller struct {
	credentials credential.Source
	runtime     ports.Runtime
	build       CatalogueBuilder

	instructions string
	voice        string
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	observers    []func(domain.StateEvent)
	onTranscript func(domain.ConversationItem)

	mu        sync.Mutex
	state     domain.SessionState
	lastErr   error
	attempt   uint64
	cancel    context.CancelFunc
	session   ports.RuntimeSession
	catalogue *registry.Registry

	inflight sync.WaitGroup
	pending  atomic.Int32
}

// Option configures a Controller.
type Option func(*Controller)

// WithInstructions sets the behavioural instructions sent to the runtime.
func WithInstructions(s string) Option {
	return func(c *Controller) { c.instructions = s }
}

// WithVoice selects the runtime output voice.
func WithVoice(v string) Option {
	return func(c *Controller) { c.voice = v }
}

// WithLogger configures a logger for the Controller.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHooks registers lifecycle hooks. Only OnStateChange is fired by the controller;
// tool hooks belong to the catalogue.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(c *Controller) { c.hooks = h }
}

// WithStateObserver adds a callback fired after every transition.
// Observers run with the controller unlocked and may call State.
func WithStateObserver(fn func(domain.StateEvent)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.observers = append(c.observers, fn)
		}
	}
}

// WithTranscriptHandler receives assistant transcript items while connected.
// It is called from the runtime read goroutine and must not block.
func WithTranscriptHandler(fn func(domain.ConversationItem)) Option {
	return func(c *Controller) { c.onTranscript = fn }
}

// New creates an idle Controller.
func New(creds credential.Source, rt ports.Runtime, build CatalogueBuilder, opts ...Option) *Controller {
	c := &Controller{
		credentials: creds,
		runtime:     rt,
		build:       build,
		logger:      logging.NewNop(),
		state:       domain.StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current session state.
func (c *Controller) State() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the failure that moved the controller to error, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Catalogue returns the catalogue of the current or most recent session.
func (c *Controller) Catalogue() *registry.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalogue
}

// Wait blocks until every in-flight tool invocation has finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// WaitContext is Wait bounded by ctx. On expiry it returns ctx's error and the
// calls still running are left to finish on their own.
func (c *Controller) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports the number of tool invocations still running.
func (c *Controller) Pending() int { return int(c.pending.Load()) }

// Connect starts a session. It is rejected with domain.ErrInvalidTransition unless the
// controller is idle (or in error, which is idle-equivalent). Credential and handshake
// failures leave the controller in error; the returned error reports the cause.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if !c.state.CanConnect() {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: connect while %s", domain.ErrInvalidTransition, st)
	}
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.attempt++
	gen := c.attempt
	c.cancel = cancel
	c.lastErr = nil
	events := c.transitionLocked(domain.StateConnecting, nil)
	c.mu.Unlock()
	c.notify(ctx, events)

	cred, err := c.credentials.Fetch(attemptCtx)
	if err != nil {
		return c.fail(ctx, gen, err)
	}

	cat, err := c.build()
	if err != nil {
		return c.fail(ctx, gen, fmt.Errorf("build catalogue: %w", err))
	}

	l := newLink()
	sess, err := c.runtime.Open(attemptCtx, ports.RuntimeConfig{
		Credential:   cred,
		Instructions: c.instructions,
		Tools:        cat.Tools(),
		Voice:        c.voice,
	}, ports.RuntimeHandler{
		OnToolCall: func(call domain.ToolCall) { c.dispatch(cat, l, call) },
		OnItem:     c.transcript,
	})
	if err != nil {
		l.resolve(nil)
		return c.fail(ctx, gen, err)
	}

	c.mu.Lock()
	if c.attempt != gen || c.state != domain.StateConnecting {
		c.mu.Unlock()
		l.resolve(nil)
		c.release(sess)
		return ErrConnectAborted
	}
	c.session = sess
	c.catalogue = cat
	c.cancel = nil
	events = c.transitionLocked(domain.StateConnected, nil)
	c.mu.Unlock()

	l.resolve(sess)
	c.notify(ctx, events)
	c.logger.Info("session connected", "credential", cred, "tools", len(cat.Names()))

	go c.watch(sess)
	return nil
}

// fail moves a still-current attempt to error.
func (c *Controller) fail(ctx context.Context, gen uint64, err error) error {
	c.mu.Lock()
	if c.attempt != gen || c.state != domain.StateConnecting {
		c.mu.Unlock()
		c.logger.Debug("aborted connect attempt finished", "err", err)
		return ErrConnectAborted
	}
	c.cancel = nil
	c.lastErr = err
	events := c.transitionLocked(domain.StateError, err)
	c.mu.Unlock()

	c.logger.Error("connect failed", "kind", domain.KindOf(err), "err", err)
	c.notify(ctx, events)
	return err
}

// Disconnect ends the session. It is idempotent: without an active session it only
// acknowledges an error state back to idle. A connect in progress is cancelled.
// The controller always ends idle; a teardown failure is not returned, it is logged
// and carried on the final state event.
func (c *Controller) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case domain.StateIdle, domain.StateDisconnecting:
		c.mu.Unlock()
		return nil
	case domain.StateError:
		c.lastErr = nil
		events := c.transitionLocked(domain.StateIdle, nil)
		c.mu.Unlock()
		c.notify(ctx, events)
		return nil
	case domain.StateConnecting:
		c.attempt++
		cancel := c.cancel
		c.cancel = nil
		events := c.transitionLocked(domain.StateIdle, nil)
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		c.logger.Info("connect cancelled")
		c.notify(ctx, events)
		return nil
	}

	sess := c.session
	c.session = nil
	events := c.transitionLocked(domain.StateDisconnecting, nil)
	c.mu.Unlock()
	c.notify(ctx, events)

	var teardownErr error
	if err := sess.Close(ctx); err != nil {
		teardownErr = domain.NewError(domain.KindTeardown, "disconnect", err)
		c.logger.Warn("session teardown failed", "kind", domain.KindTeardown, "err", err)
	}

	c.mu.Lock()
	events = c.transitionLocked(domain.StateIdle, teardownErr)
	c.mu.Unlock()
	c.notify(ctx, events)
	c.logger.Info("session disconnected")
	return nil
}

// watch returns the controller to idle when the runtime ends the session on its own.
func (c *Controller) watch(sess ports.RuntimeSession) {
	<-sess.Done()

	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}
	c.session = nil
	events := c.transitionLocked(domain.StateIdle, nil)
	c.mu.Unlock()

	c.logger.Info("session ended by runtime", "reason", sess.Err())
	c.release(sess)
	c.notify(context.Background(), events)
}

func (c *Controller) release(sess ports.RuntimeSession) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.Close(ctx); err != nil {
		c.logger.Debug("releasing session", "err", err)
	}
}

// dispatch runs one tool call on its own goroutine. The call outlives Disconnect;
// delivering to a closed session is expected and only logged.
func (c *Controller) dispatch(cat *registry.Registry, l *link, call domain.ToolCall) {
	c.inflight.Add(1)
	c.pending.Add(1)
	go func() {
		defer c.inflight.Done()
		defer c.pending.Add(-1)
		ctx := context.Background()

		res := cat.Dispatch(ctx, call)

		sess := l.wait()
		if sess == nil {
			c.logger.Debug("tool result dropped, session never opened", "tool", call.Name, "call_id", call.ID)
			return
		}
		if err := sess.SendToolResult(ctx, res); err != nil {
			if errors.Is(err, domain.ErrSessionClosed) {
				c.logger.Debug("tool result after session close", "tool", call.Name, "call_id", call.ID)
				return
			}
			c.logger.Warn("tool result delivery failed", "tool", call.Name, "call_id", call.ID, "err", err)
		}
	}()
}

func (c *Controller) transcript(item domain.ConversationItem) {
	c.logger.Debug("assistant transcript", "item", item.ID)
	if c.onTranscript != nil {
		c.onTranscript(item)
	}
}

// transitionLocked assigns the new state and returns the event to publish once unlocked.
func (c *Controller) transitionLocked(to domain.SessionState, err error) []domain.StateEvent {
	from := c.state
	c.state = to
	if from == to {
		return nil
	}
	c.logger.Debug("session state", "from", from, "to", to)
	return []domain.StateEvent{{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStateChange},
		From:      from,
		To:        to,
		Err:       err,
	}}
}

func (c *Controller) notify(ctx context.Context, events []domain.StateEvent) {
	for i := range events {
		ev := events[i]
		if c.hooks.OnStateChange != nil {
			c.hooks.OnStateChange(ctx, &ev)
		}
		for _, fn := range c.observers {
			fn(ev)
		}
	}
}

// link hands the session to tool calls that arrive before Open returns.
type link struct {
	once  sync.Once
	ready chan struct{}
	sess  ports.RuntimeSession
}

func newLink() *link {
	return &link{ready: make(chan struct{})}
}

func (l *link) resolve(sess ports.RuntimeSession) {
	l.once.Do(func() {
		l.sess = sess
		close(l.ready)
	})
}

func (l *link) wait() ports.RuntimeSession {
	<-l.ready
	return l.sess
}
