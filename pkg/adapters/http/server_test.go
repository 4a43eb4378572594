package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/helix/pkg/backend"
	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/observability"
	"github.com/aretw0/helix/pkg/reconciler"
	"github.com/aretw0/helix/pkg/tools"
)

type captured struct {
	mu          sync.Mutex
	contentType string
	body        string
}

// newCore fakes the core backend routes the proxy and cache touch.
func newCore(t *testing.T, c *captured) *backend.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /realtime/client_secret", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"value":"ek_abc","expires_at":1700000000}`)
	})
	mux.HandleFunc("POST /realtime/session", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.contentType, c.body = r.Header.Get("Content-Type"), string(body)
		c.mu.Unlock()
		w.Header().Set("Content-Type", "application/sdp")
		_, _ = io.WriteString(w, "v=0\r\no=answer")
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"ok":false,"db":"down"}`)
	})
	mux.HandleFunc("GET /tensions/active", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"title":"Write report","status":"held","charge":3,"vector":"action"}]`)
	})
	mux.HandleFunc("GET /calendar/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return backend.New(srv.URL)
}

type fakeController struct {
	mu      sync.Mutex
	state   domain.SessionState
	err     error
	connect error
}

func (f *fakeController) State() domain.SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeController) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeController) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.state == domain.StateConnected:
		return domain.ErrInvalidTransition
	case f.connect != nil:
		f.state, f.err = domain.StateError, f.connect
		return f.connect
	}
	f.state = domain.StateConnected
	return nil
}

func (f *fakeController) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state, f.err = domain.StateIdle, nil
	return nil
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestProxy_CopiesStatusAndContentType(t *testing.T) {
	c := &captured{}
	h := NewHandler(newCore(t, c))

	w := do(t, h, http.MethodPost, "/api/helix/client-secret", "", "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"value":"ek_abc","expires_at":1700000000}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/api/helix/session", "application/sdp", "v=0\r\no=offer")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/sdp", w.Header().Get("Content-Type"))
	assert.Equal(t, "v=0\r\no=answer", w.Body.String())
	c.mu.Lock()
	assert.Equal(t, "application/sdp", c.contentType)
	assert.Equal(t, "v=0\r\no=offer", c.body)
	c.mu.Unlock()

	w = do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"ok":false,"db":"down"}`, w.Body.String())
}

func TestProxy_NetworkFailure(t *testing.T) {
	h := NewHandler(backend.New("http://127.0.0.1:1"))

	w := do(t, h, http.MethodPost, "/api/helix/client-secret", "", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.KindBackendNetwork, resp.Kind)
}

func TestCORS(t *testing.T) {
	h := NewHandler(backend.New("http://127.0.0.1:1"), WithAllowedOrigin("http://localhost:3000"))

	w := do(t, h, http.MethodOptions, "/api/helix/session", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSessionRoutes(t *testing.T) {
	ctrl := &fakeController{state: domain.StateIdle}
	h := NewHandler(backend.New("http://127.0.0.1:1"), WithController(ctrl))

	w := do(t, h, http.MethodGet, "/session", "", "")
	assert.JSONEq(t, `{"state":"idle"}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/session/connect", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"connected"}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/session/connect", "", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPost, "/session/disconnect", "", "")
	assert.JSONEq(t, `{"state":"idle"}`, w.Body.String())

	ctrl.connect = domain.HTTPError(domain.KindCredentialHTTP, "POST /realtime/client_secret", 500, "boom")
	w = do(t, h, http.MethodPost, "/session/connect", "", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.StateError, resp.State)
	assert.Equal(t, domain.KindCredentialHTTP, resp.Kind)
}

func TestCacheRoutes(t *testing.T) {
	rec := reconciler.New(newCore(t, &captured{}))
	h := NewHandler(backend.New("http://127.0.0.1:1"), WithCache(rec))

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/cache/users", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/cache/tensions", "", "").Code, "not cached yet")

	w := do(t, h, http.MethodPost, "/cache/tensions/refresh", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, domain.CollectionTensions, snap.Collection)
	assert.Equal(t, 1, snap.Count)

	w = do(t, h, http.MethodPost, "/cache/calendar_status/refresh", "", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), string(domain.KindBackendHTTP))
}

func TestToolRoutes(t *testing.T) {
	core := newCore(t, &captured{})
	reg, err := tools.Build(core, nil)
	require.NoError(t, err)
	h := NewHandler(core, WithDispatcher(reg))

	w := do(t, h, http.MethodPost, "/tools/tensions_list_active", "application/json", `{"limit":5}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res domain.ToolResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.IsError)
	assert.True(t, strings.HasPrefix(res.ID, "http_"))

	w = do(t, h, http.MethodPost, "/tools/tensions_update", "application/json", `{"id":0,"charge":2}`)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, domain.KindInvalidID, res.Kind)

	w = do(t, h, http.MethodPost, "/tools/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsMiddleware(t *testing.T) {
	m := observability.NewMetrics("")
	h := NewHandler(newCore(t, &captured{}), WithMetrics(m))

	do(t, h, http.MethodGet, "/health", "", "")
	w := do(t, h, http.MethodGet, "/metrics", "", "")

	assert.Contains(t, w.Body.String(), `helix_http_requests_total{method="GET",route="/health",status="503"} 1`)
}

func TestSubscribeEvents(t *testing.T) {
	streams := NewStreamManager(nil)
	h := NewHandler(backend.New("http://127.0.0.1:1"), WithStreams(streams))

	ctx, cancel := context.WithCancel(context.Background())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(w, req)
	}()

	require.Eventually(t, func() bool { return streams.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	streams.PublishState(domain.StateEvent{From: domain.StateConnecting, To: domain.StateError, Err: errors.New("boom")})
	streams.PublishTranscript(domain.ConversationItem{ID: "i1", Role: domain.RoleAssistant, Text: "hello"})
	require.Eventually(t, func() bool { return len(streams.subscriberBacklog()) == 0 }, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	out := w.Body.String()
	assert.Contains(t, out, "event: ping\ndata: connected")
	assert.Contains(t, out, `event: state_change`+"\n"+`data: {"from":"connecting","to":"error","error":"boom"}`)
	assert.Contains(t, out, `event: transcript`+"\n"+`data: {"id":"i1","role":"assistant","text":"hello"}`)
	assert.Zero(t, streams.Subscribers())
}

// subscriberBacklog returns the undelivered message counts of subscribers that have any.
func (sm *StreamManager) subscriberBacklog() []int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	var out []int
	for ch := range sm.subscribers {
		if n := len(ch); n > 0 {
			out = append(out, n)
		}
	}
	return out
}
