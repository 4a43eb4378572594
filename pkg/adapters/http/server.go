// Package http serves the orchestrator's local HTTP surface: the signaling proxy used
// by browser clients, a control API over the session controller and cache, and an SSE
// stream of session events.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/aretw0/helix/internal/logging"
	"github.com/aretw0/helix/pkg/backend"
	"github.com/aretw0/helix/pkg/domain"
)

// MaxBodyBytes caps proxied and tool request bodies.
const MaxBodyBytes = 1 << 20

// Backend forwards raw requests to the core backend.
type Backend interface {
	Raw(ctx context.Context, method, path, contentType string, body []byte) (backend.RawResponse, error)
}

// Controller is the session lifecycle exposed by the control API.
type Controller interface {
	State() domain.SessionState
	LastError() error
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// Cache is the reconciled collection cache.
type Cache interface {
	Refresh(ctx context.Context, c domain.Collection) error
	Current(ctx context.Context, c domain.Collection) (domain.Snapshot, error)
}

// Dispatcher runs tool calls through the catalogue.
type Dispatcher interface {
	Dispatch(ctx context.Context, call domain.ToolCall) domain.ToolResult
}

// Metrics records served requests and exposes the scrape endpoint.
type Metrics interface {
	RecordHTTP(route, method string, status int)
	Handler() http.Handler
}

// Server holds the dependencies of the handlers. Optional parts left nil are not routed.
type Server struct {
	backend       Backend
	controller    Controller
	cache         Cache
	dispatcher    Dispatcher
	metrics       Metrics
	streams       *StreamManager
	allowedOrigin string
	logger        *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithController mounts /session routes.
func WithController(c Controller) Option { return func(s *Server) { s.controller = c } }

// WithCache mounts /cache routes.
func WithCache(c Cache) Option { return func(s *Server) { s.cache = c } }

// WithDispatcher mounts /tools routes.
func WithDispatcher(d Dispatcher) Option { return func(s *Server) { s.dispatcher = d } }

// WithMetrics mounts /metrics and counts every request.
func WithMetrics(m Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithStreams mounts the /events SSE stream.
func WithStreams(sm *StreamManager) Option { return func(s *Server) { s.streams = sm } }

// WithAllowedOrigin sets the CORS origin. Empty means any origin.
func WithAllowedOrigin(origin string) Option { return func(s *Server) { s.allowedOrigin = origin } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewHandler creates the HTTP handler.
func NewHandler(b Backend, opts ...Option) http.Handler {
	s := &Server{backend: b, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.enableCORS)
	if s.metrics != nil {
		r.Use(s.countRequests)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Post("/api/helix/client-secret", s.proxy(http.MethodPost, "/realtime/client_secret"))
	r.Post("/api/helix/session", s.proxy(http.MethodPost, "/realtime/session"))
	r.Get("/health", s.proxy(http.MethodGet, "/health"))

	if s.controller != nil {
		r.Get("/session", s.getSession)
		r.Post("/session/connect", s.connect)
		r.Post("/session/disconnect", s.disconnect)
	}
	if s.cache != nil {
		r.Get("/cache/{collection}", s.getCache)
		r.Post("/cache/{collection}/refresh", s.refreshCache)
	}
	if s.dispatcher != nil {
		r.Post("/tools/{name}", s.dispatchTool)
	}
	if s.streams != nil {
		r.Get("/events", s.subscribeEvents)
	}
	return r
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	origin := s.allowedOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordHTTP(route, r.Method, status)
	})
}

// proxy forwards the request body to the backend and copies status and content type verbatim.
func (s *Server) proxy(method, path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil && r.ContentLength != 0 {
			var err error
			body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
			if err != nil {
				writeError(w, http.StatusRequestEntityTooLarge, "", err)
				return
			}
		}

		resp, err := s.backend.Raw(r.Context(), method, path, r.Header.Get("Content-Type"), body)
		if err != nil {
			s.logger.Warn("proxy request failed", "path", path, "err", err)
			writeError(w, http.StatusBadGateway, domain.KindOf(err), err)
			return
		}

		if resp.ContentType != "" {
			w.Header().Set("Content-Type", resp.ContentType)
		}
		w.WriteHeader(resp.Status)
		if _, err := w.Write(resp.Body); err != nil {
			s.logger.Debug("proxy response write failed", "path", path, "err", err)
		}
	}
}

type sessionResponse struct {
	State domain.SessionState `json:"state"`
	Error string              `json:"error,omitempty"`
	Kind  domain.Kind         `json:"kind,omitempty"`
}

func (s *Server) sessionStatus() sessionResponse {
	resp := sessionResponse{State: s.controller.State()}
	if err := s.controller.LastError(); err != nil && resp.State == domain.StateError {
		resp.Error = err.Error()
		resp.Kind = domain.KindOf(err)
	}
	return resp
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionStatus())
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	// The session outlives this request; only the connect attempt is bound to it.
	err := s.controller.Connect(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.sessionStatus())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "", err)
	default:
		writeJSON(w, http.StatusBadGateway, s.sessionStatus())
	}
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 10*time.Second)
	defer cancel()
	if err := s.controller.Disconnect(ctx); err != nil {
		s.logger.Warn("disconnect failed", "err", err)
	}
	writeJSON(w, http.StatusOK, s.sessionStatus())
}

func collectionParam(w http.ResponseWriter, r *http.Request) (domain.Collection, bool) {
	c := domain.Collection(chi.URLParam(r, "collection"))
	if !c.Valid() {
		writeError(w, http.StatusNotFound, "", fmt.Errorf("%w: %q", domain.ErrUnknownCollection, c))
		return "", false
	}
	return c, true
}

func (s *Server) getCache(w http.ResponseWriter, r *http.Request) {
	c, ok := collectionParam(w, r)
	if !ok {
		return
	}
	snap, err := s.cache.Current(r.Context(), c)
	if errors.Is(err, domain.ErrNotCached) {
		writeError(w, http.StatusNotFound, "", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, domain.KindOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) refreshCache(w http.ResponseWriter, r *http.Request) {
	c, ok := collectionParam(w, r)
	if !ok {
		return
	}
	if err := s.cache.Refresh(r.Context(), c); err != nil {
		writeError(w, http.StatusBadGateway, domain.KindOf(err), err)
		return
	}
	s.getCache(w, r)
}

func (s *Server) dispatchTool(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "", err)
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	call := domain.ToolCall{
		ID:      "http_" + uuid.NewString(),
		Name:    chi.URLParam(r, "name"),
		RawArgs: string(body),
	}
	res := s.dispatcher.Dispatch(r.Context(), call)

	status := http.StatusOK
	if res.Kind == domain.KindToolNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, res)
}

// subscribeEvents streams session events until the client goes away.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			flusher.Flush()
		}
	}
}

type errorResponse struct {
	Error string      `json:"error"`
	Kind  domain.Kind `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, status int, kind domain.Kind, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
