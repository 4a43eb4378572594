package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestError_TruncatesBodyOnRuneBoundary(t *testing.T) {
	// 511 ASCII bytes put the 2-byte rune across the 512-byte cut.
	body := strings.Repeat("a", 511) + "é" + strings.Repeat("b", 10)
	err := HTTPError(KindBackendHTTP, "GET /tensions/active", 502, body)

	msg := err.Error()
	assert.True(t, utf8.ValidString(msg))
	assert.True(t, strings.HasSuffix(msg, strings.Repeat("a", 511)+"..."))
}

func TestError_ShortBodyKeptWhole(t *testing.T) {
	err := HTTPError(KindBackendHTTP, "POST /tensions", 422, `{"detail":"título inválido"}`)

	assert.Equal(t, `backend_http_error: POST /tensions: status 422: {"detail":"título inválido"}`, err.Error())
	assert.Equal(t, KindBackendHTTP, KindOf(err))
	assert.True(t, IsKind(err, KindBackendHTTP))
}

func TestFailure_CarriesKindAndDetails(t *testing.T) {
	call := ToolCall{ID: "call_1", Name: "tensions_update"}
	res := Failure(call, HTTPError(KindBackendHTTP, "PATCH /tensions/9", 404, "not found"))

	assert.True(t, res.IsError)
	assert.Equal(t, KindBackendHTTP, res.Kind)
	assert.Equal(t, map[string]any{"status": 404, "body": "not found"}, res.Details)
	assert.JSONEq(t, `{"ok":false,"kind":"backend_http_error","error":"backend_http_error: PATCH /tensions/9: status 404: not found","details":{"status":404,"body":"not found"}}`, res.Output())
}
