package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/ports"
)

func newRuntimeServer(t *testing.T, handler func(r *http.Request, conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(r, conn)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// acceptSession plays the runtime side of a successful handshake and returns the session.update it received.
func acceptSession(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": EventSessionCreated}))
	var update map[string]any
	require.NoError(t, conn.ReadJSON(&update))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": EventSessionUpdated}))
	return update
}

var testConfig = ports.RuntimeConfig{
	Credential:   domain.SessionCredential{Value: "ek_test"},
	Instructions: "be brief",
	Voice:        "marin",
	Tools: []domain.Tool{{
		Name:        "tensions_list_active",
		Description: "List active tensions",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	}},
}

type recorder struct {
	mu         sync.Mutex
	events     []string
	handshakes []bool
}

func (r *recorder) RealtimeEvent(direction, eventType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, direction+":"+eventType)
}

func (r *recorder) Handshake(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handshakes = append(r.handshakes, ok)
}

func TestOpen_HandshakeAndToolRoundTrip(t *testing.T) {
	updateCh := make(chan map[string]any, 1)
	outputCh := make(chan map[string]any, 2)
	var authHeader, model string

	url := newRuntimeServer(t, func(r *http.Request, conn *websocket.Conn) {
		defer conn.Close()
		authHeader = r.Header.Get("Authorization")
		model = r.URL.Query().Get("model")

		updateCh <- acceptSession(t, conn)

		_ = conn.WriteJSON(map[string]any{
			"type":      EventFunctionCallArgsDone,
			"call_id":   "call_1",
			"name":      "tensions_list_active",
			"arguments": `{"limit":5}`,
		})
		for i := 0; i < 2; i++ {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			outputCh <- msg
		}
		_ = conn.WriteJSON(map[string]any{
			"type": EventItemDone,
			"item": map[string]any{
				"id": "item_1", "type": "message", "role": "assistant",
				"content": []any{map[string]any{"type": "output_audio", "transcript": "You have one tension."}},
			},
		})
		_, _, _ = conn.ReadMessage()
	})

	calls := make(chan domain.ToolCall, 1)
	items := make(chan domain.ConversationItem, 1)
	rec := &recorder{}
	d := NewDialer(WithURL(url), WithModel("gpt-realtime-mini"), WithMetrics(rec))

	sess, err := d.Open(context.Background(), testConfig, ports.RuntimeHandler{
		OnToolCall: func(c domain.ToolCall) { calls <- c },
		OnItem:     func(it domain.ConversationItem) { items <- it },
	})
	require.NoError(t, err)
	defer sess.Close(context.Background())

	assert.Equal(t, "Bearer ek_test", authHeader)
	assert.Equal(t, "gpt-realtime-mini", model)

	update := <-updateCh
	assert.Equal(t, EventSessionUpdate, update["type"])
	session := update["session"].(map[string]any)
	assert.Equal(t, "realtime", session["type"])
	assert.Equal(t, "be brief", session["instructions"])
	assert.Equal(t, "auto", session["tool_choice"])
	tools := session["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, "function", tools[0].(map[string]any)["type"])
	assert.Equal(t, "tensions_list_active", tools[0].(map[string]any)["name"])
	assert.Equal(t, "marin", session["audio"].(map[string]any)["output"].(map[string]any)["voice"])

	call := <-calls
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, `{"limit":5}`, call.RawArgs)

	require.NoError(t, sess.SendToolResult(context.Background(), domain.Success(call, []any{})))
	item := <-outputCh
	assert.Equal(t, EventItemCreate, item["type"])
	output := item["item"].(map[string]any)
	assert.Equal(t, "function_call_output", output["type"])
	assert.Equal(t, "call_1", output["call_id"])
	assert.Equal(t, "[]", output["output"])
	assert.Equal(t, EventResponseCreate, (<-outputCh)["type"])

	select {
	case it := <-items:
		assert.Equal(t, "You have one tension.", it.Text)
		assert.Equal(t, domain.RoleAssistant, it.Role)
	case <-time.After(2 * time.Second):
		t.Fatal("no transcript delivered")
	}

	rec.mu.Lock()
	assert.Equal(t, []bool{true}, rec.handshakes)
	assert.Contains(t, rec.events, "in:"+EventFunctionCallArgsDone)
	assert.Contains(t, rec.events, "out:"+EventItemCreate)
	rec.mu.Unlock()
}

func TestOpen_ErrorEventFailsHandshake(t *testing.T) {
	url := newRuntimeServer(t, func(_ *http.Request, conn *websocket.Conn) {
		defer conn.Close()
		_ = conn.WriteJSON(map[string]any{
			"type":  EventError,
			"error": map[string]any{"type": "invalid_request_error", "code": "invalid_api_key", "message": "expired"},
		})
		_, _, _ = conn.ReadMessage()
	})

	_, err := NewDialer(WithURL(url)).Open(context.Background(), testConfig, ports.RuntimeHandler{})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindHandshake))
	assert.Contains(t, err.Error(), "expired")
}

func TestOpen_HandshakeTimeout(t *testing.T) {
	url := newRuntimeServer(t, func(_ *http.Request, conn *websocket.Conn) {
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	})

	start := time.Now()
	_, err := NewDialer(WithURL(url), WithHandshakeTimeout(100*time.Millisecond)).
		Open(context.Background(), testConfig, ports.RuntimeHandler{})
	assert.True(t, domain.IsKind(err, domain.KindHandshake), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestOpen_CancelAbortsHandshake(t *testing.T) {
	url := newRuntimeServer(t, func(_ *http.Request, conn *websocket.Conn) {
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := NewDialer(WithURL(url)).Open(ctx, testConfig, ports.RuntimeHandler{})
	assert.True(t, domain.IsKind(err, domain.KindHandshake))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_DialFailure(t *testing.T) {
	_, err := NewDialer(WithURL("ws://127.0.0.1:1")).Open(context.Background(), testConfig, ports.RuntimeHandler{})
	assert.True(t, domain.IsKind(err, domain.KindHandshake))

	_, err = NewDialer().Open(context.Background(), ports.RuntimeConfig{}, ports.RuntimeHandler{})
	assert.True(t, domain.IsKind(err, domain.KindHandshake), "empty credential")
}

func TestSession_RemoteCloseEndsSession(t *testing.T) {
	url := newRuntimeServer(t, func(_ *http.Request, conn *websocket.Conn) {
		defer conn.Close()
		acceptSession(t, conn)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	})

	sess, err := NewDialer(WithURL(url)).Open(context.Background(), testConfig, ports.RuntimeHandler{})
	require.NoError(t, err)

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after remote close")
	}
	assert.NoError(t, sess.Err())
}

func TestSession_ItemDeliveredOnce(t *testing.T) {
	assistantItem := func(eventType, id, text string) map[string]any {
		return map[string]any{
			"type": eventType,
			"item": map[string]any{
				"id": id, "type": "message", "role": "assistant",
				"content": []any{map[string]any{"type": "output_text", "text": text}},
			},
		}
	}
	url := newRuntimeServer(t, func(_ *http.Request, conn *websocket.Conn) {
		defer conn.Close()
		acceptSession(t, conn)
		_ = conn.WriteJSON(assistantItem(EventItemCreated, "item_1", "hello"))
		_ = conn.WriteJSON(assistantItem(EventItemDone, "item_1", "hello"))
		_ = conn.WriteJSON(assistantItem(EventItemDone, "item_2", "bye"))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	})

	var mu sync.Mutex
	var got []domain.ConversationItem
	sess, err := NewDialer(WithURL(url)).Open(context.Background(), testConfig, ports.RuntimeHandler{
		OnItem: func(it domain.ConversationItem) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, it)
		},
	})
	require.NoError(t, err)

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after remote close")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, "item_1", got[0].ID)
	assert.Equal(t, "hello", got[0].Text)
	assert.Equal(t, "item_2", got[1].ID)
}

func TestSession_SendAfterCloseIsTolerated(t *testing.T) {
	url := newRuntimeServer(t, func(_ *http.Request, conn *websocket.Conn) {
		defer conn.Close()
		acceptSession(t, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	sess, err := NewDialer(WithURL(url)).Open(context.Background(), testConfig, ports.RuntimeHandler{})
	require.NoError(t, err)

	require.NoError(t, sess.Close(context.Background()))
	assert.NoError(t, sess.Close(context.Background()), "second close is a no-op")

	err = sess.SendToolResult(context.Background(), domain.ToolResult{ID: "late"})
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestConversationItemText(t *testing.T) {
	tests := []struct {
		name string
		item conversationItem
		want string
	}{
		{"audio transcript wins", conversationItem{Content: []contentPart{
			{Type: "output_text", Text: "typed"},
			{Type: "output_audio", Transcript: "spoken"},
		}}, "spoken"},
		{"text fallback", conversationItem{Content: []contentPart{
			{Type: "output_audio"},
			{Type: "output_text", Text: "typed"},
		}}, "typed"},
		{"empty", conversationItem{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.text())
		})
	}
}
