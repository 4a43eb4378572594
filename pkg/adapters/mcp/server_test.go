package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/registry"
	"github.com/aretw0/helix/pkg/schema"
)

func newCatalogue(t *testing.T, calls *int) *registry.Registry {
	t.Helper()
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register(registry.Definition{
		Name:        "tensions_list_active",
		Description: "List active tensions",
		Schema:      schema.Declare(schema.Key("limit", schema.Int()).Range(1, 200).Default(50)),
		Fn: func(_ context.Context, args map[string]any) (any, error) {
			*calls++
			return map[string]any{"limit": args["limit"]}, nil
		},
	}))
	return reg
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleCall(t *testing.T) {
	var calls int
	s := NewServer(newCatalogue(t, &calls))

	res, err := s.handleCall(context.Background(), callTool("tensions_list_active", map[string]any{"limit": 5}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"limit":5}`, textOf(t, res))

	res, err = s.handleCall(context.Background(), callTool("tensions_list_active", map[string]any{"limit": 500}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), `"kind":"validation_error"`)
	assert.Equal(t, 1, calls)

	res, err = s.handleCall(context.Background(), callTool("tensions_list_active", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"limit":50}`, textOf(t, res), "defaults apply")
}

func TestToolsList(t *testing.T) {
	var calls int
	s := NewServer(newCatalogue(t, &calls))

	msg := s.MCPServer().HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Tools []struct {
				Name        string         `json:"name"`
				InputSchema map[string]any `json:"inputSchema"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &resp))
	require.Len(t, resp.Result.Tools, 1)
	assert.Equal(t, "tensions_list_active", resp.Result.Tools[0].Name)
	assert.Equal(t, "object", resp.Result.Tools[0].InputSchema["type"])
}

type fakeCache struct{}

func (fakeCache) Current(_ context.Context, c domain.Collection) (domain.Snapshot, error) {
	if c != domain.CollectionTensions {
		return domain.Snapshot{}, domain.ErrNotCached
	}
	return domain.Snapshot{Collection: c, Rows: json.RawMessage(`[]`)}, nil
}

func TestResources(t *testing.T) {
	var calls int
	s := NewServer(newCatalogue(t, &calls), WithCache(fakeCache{}))

	msg := s.MCPServer().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"helix://cache/tensions"}}`))
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `\"collection\":\"tensions\"`)
}
