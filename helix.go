package helix

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/helix/internal/logging"
	httpadapter "github.com/aretw0/helix/pkg/adapters/http"
	"github.com/aretw0/helix/pkg/adapters/mcp"
	"github.com/aretw0/helix/pkg/adapters/memory"
	"github.com/aretw0/helix/pkg/adapters/realtime"
	"github.com/aretw0/helix/pkg/backend"
	"github.com/aretw0/helix/pkg/credential"
	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/observability"
	"github.com/aretw0/helix/pkg/ports"
	"github.com/aretw0/helix/pkg/reconciler"
	"github.com/aretw0/helix/pkg/registry"
	"github.com/aretw0/helix/pkg/session"
	"github.com/aretw0/helix/pkg/tools"
)

// Version is the release version, overridable at link time.
var Version = "0.1.0"

// Helix is the high-level entry point: one backend, one cache, one session controller.
type Helix struct {
	coreURL          string
	realtimeURL      string
	model            string
	voice            string
	instructions     string
	httpTimeout      time.Duration
	handshakeTimeout time.Duration
	allowedOrigin    string

	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	store       ports.CacheStore
	locker      ports.Locker
	runtime     ports.Runtime
	credentials credential.Source
	observers   []func(domain.StateEvent)
	transcripts []func(domain.ConversationItem)

	backend    *backend.Client
	reconciler *reconciler.Reconciler
	metrics    *observability.Metrics
	streams    *httpadapter.StreamManager
	controller *session.Controller
}

// Option defines a functional option for configuring Helix.
type Option func(*Helix)

// WithCoreURL sets the base URL of the core backend.
func WithCoreURL(u string) Option { return func(h *Helix) { h.coreURL = u } }

// WithRealtimeURL sets the realtime runtime endpoint.
func WithRealtimeURL(u string) Option { return func(h *Helix) { h.realtimeURL = u } }

// WithModel selects the realtime model.
func WithModel(m string) Option { return func(h *Helix) { h.model = m } }

// WithVoice selects the output voice.
func WithVoice(v string) Option { return func(h *Helix) { h.voice = v } }

// WithInstructions overrides the default behavioural instructions.
func WithInstructions(s string) Option { return func(h *Helix) { h.instructions = s } }

// WithHTTPTimeout bounds every backend call. Zero keeps the transport default.
func WithHTTPTimeout(d time.Duration) Option { return func(h *Helix) { h.httpTimeout = d } }

// WithHandshakeTimeout bounds the realtime handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(h *Helix) { h.handshakeTimeout = d }
}

// WithAllowedOrigin sets the CORS origin of the HTTP handler.
func WithAllowedOrigin(origin string) Option { return func(h *Helix) { h.allowedOrigin = origin } }

// WithLogger sets a custom structured logger.
func WithLogger(l *slog.Logger) Option { return func(h *Helix) { h.logger = l } }

// WithLifecycleHooks registers observability hooks next to the built-in metrics.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(h *Helix) { h.hooks = hooks }
}

// WithCacheStore replaces the in-memory collection cache.
func WithCacheStore(s ports.CacheStore) Option { return func(h *Helix) { h.store = s } }

// WithRefreshLocker serializes collection refreshes across processes sharing a cache.
func WithRefreshLocker(l ports.Locker) Option { return func(h *Helix) { h.locker = l } }

// WithRuntime replaces the websocket realtime runtime.
func WithRuntime(rt ports.Runtime) Option { return func(h *Helix) { h.runtime = rt } }

// WithCredentialSource replaces the backend credential exchange.
func WithCredentialSource(src credential.Source) Option {
	return func(h *Helix) { h.credentials = src }
}

// WithStateObserver adds a session state observer.
func WithStateObserver(fn func(domain.StateEvent)) Option {
	return func(h *Helix) { h.observers = append(h.observers, fn) }
}

// WithTranscriptHandler adds an assistant transcript handler.
func WithTranscriptHandler(fn func(domain.ConversationItem)) Option {
	return func(h *Helix) { h.transcripts = append(h.transcripts, fn) }
}

// New wires every component. Nothing touches the network until Connect or a tool call.
func New(opts ...Option) (*Helix, error) {
	h := &Helix{
		realtimeURL:      realtime.DefaultURL,
		model:            realtime.DefaultModel,
		voice:            "marin",
		instructions:     tools.DefaultInstructions,
		handshakeTimeout: realtime.DefaultHandshakeTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.coreURL == "" {
		return nil, errors.New("helix: core URL is required")
	}
	if h.logger == nil {
		h.logger = logging.NewNop()
	}
	if h.store == nil {
		h.store = memory.NewStore()
	}

	h.metrics = observability.NewMetrics(observability.DefaultNamespace)
	h.streams = httpadapter.NewStreamManager(h.logger)
	hooks := observability.ComposeHooks(
		h.metrics.Hooks(),
		domain.LifecycleHooks{OnRefresh: func(_ context.Context, e *domain.RefreshEvent) { h.streams.PublishRefresh(e) }},
		h.hooks,
	)

	backendOpts := []backend.Option{backend.WithLogger(h.logger)}
	if h.httpTimeout > 0 {
		backendOpts = append(backendOpts, backend.WithTimeout(h.httpTimeout))
	}
	h.backend = backend.New(h.coreURL, backendOpts...)

	recOpts := []reconciler.Option{
		reconciler.WithStore(h.store),
		reconciler.WithLogger(h.logger),
		reconciler.WithRefreshHook(hooks.OnRefresh),
	}
	if h.locker != nil {
		recOpts = append(recOpts, reconciler.WithLocker(h.locker, reconciler.DefaultLockTTL))
	}
	h.reconciler = reconciler.New(h.backend, recOpts...)

	if h.credentials == nil {
		h.credentials = credential.NewExchanger(h.backend, credential.WithLogger(h.logger))
	}
	if h.runtime == nil {
		h.runtime = realtime.NewDialer(
			realtime.WithURL(h.realtimeURL),
			realtime.WithModel(h.model),
			realtime.WithHandshakeTimeout(h.handshakeTimeout),
			realtime.WithLogger(h.logger),
			realtime.WithMetrics(h.metrics),
		)
	}

	ctrlOpts := []session.Option{
		session.WithInstructions(h.instructions),
		session.WithVoice(h.voice),
		session.WithLogger(h.logger),
		session.WithHooks(hooks),
		session.WithStateObserver(h.streams.PublishState),
		session.WithTranscriptHandler(h.fanOutTranscript),
	}
	for _, fn := range h.observers {
		ctrlOpts = append(ctrlOpts, session.WithStateObserver(fn))
	}
	catalogueHooks := hooks
	h.controller = session.New(h.credentials, h.runtime, func() (*registry.Registry, error) {
		return tools.Build(h.backend, h.reconciler, registry.WithLogger(h.logger), registry.WithHooks(catalogueHooks))
	}, ctrlOpts...)

	return h, nil
}

func (h *Helix) fanOutTranscript(item domain.ConversationItem) {
	h.streams.PublishTranscript(item)
	for _, fn := range h.transcripts {
		fn(item)
	}
}

// Controller returns the session controller.
func (h *Helix) Controller() *session.Controller { return h.controller }

// Backend returns the core backend client.
func (h *Helix) Backend() *backend.Client { return h.backend }

// Reconciler returns the collection cache.
func (h *Helix) Reconciler() *reconciler.Reconciler { return h.reconciler }

// Metrics returns the Prometheus metrics.
func (h *Helix) Metrics() *observability.Metrics { return h.metrics }

// Credentials returns the credential source used by Connect.
func (h *Helix) Credentials() credential.Source { return h.credentials }

// Catalogue builds a fresh catalogue bound to the backend and reconciler,
// the same one a session receives.
func (h *Helix) Catalogue() (*registry.Registry, error) {
	return tools.Build(h.backend, h.reconciler,
		registry.WithLogger(h.logger),
		registry.WithHooks(observability.ComposeHooks(h.metrics.Hooks(), h.hooks)),
	)
}

// Handler returns the local HTTP surface: signaling proxy, control API, SSE events and metrics.
func (h *Helix) Handler() (http.Handler, error) {
	cat, err := h.Catalogue()
	if err != nil {
		return nil, err
	}
	return httpadapter.NewHandler(h.backend,
		httpadapter.WithController(h.controller),
		httpadapter.WithCache(h.reconciler),
		httpadapter.WithDispatcher(cat),
		httpadapter.WithMetrics(h.metrics),
		httpadapter.WithStreams(h.streams),
		httpadapter.WithAllowedOrigin(h.allowedOrigin),
		httpadapter.WithLogger(h.logger),
	), nil
}

// MCPServer exposes the catalogue and cache over MCP.
func (h *Helix) MCPServer() (*mcp.Server, error) {
	cat, err := h.Catalogue()
	if err != nil {
		return nil, err
	}
	return mcp.NewServer(cat,
		mcp.WithCache(h.reconciler),
		mcp.WithVersion(Version),
		mcp.WithLogger(h.logger),
	), nil
}

// Close disconnects any active session, waits up to 10s for in-flight tool calls and releases the cache store.
// Calls still running after that are abandoned with a warning.
func (h *Helix) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := h.controller.Disconnect(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := h.controller.WaitContext(ctx); err != nil {
		h.logger.Warn("abandoning in-flight tool calls", "pending", h.controller.Pending(), "error", err)
	}
	if c, ok := h.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
