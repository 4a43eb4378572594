package credential

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/helix/pkg/backend"
	"github.com/aretw0/helix/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *Exchanger {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, Path, r.URL.Path)
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewExchanger(backend.New(srv.URL))
}

func TestFetch(t *testing.T) {
	cred, err := serve(t, http.StatusOK, `{"value":"ek_abc123","expires_at":1767225600}`).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ek_abc123", cred.Value)
	assert.Equal(t, int64(1767225600), cred.ExpiresAt.Unix())
	assert.NotContains(t, cred.String(), "abc123")
}

func TestFetch_Envelope(t *testing.T) {
	cred, err := serve(t, http.StatusOK, `{"client_secret":{"value":"ek_wrapped"}}`).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ek_wrapped", cred.Value)
	assert.True(t, cred.ExpiresAt.IsZero())
}

func TestFetch_HTTPError(t *testing.T) {
	_, err := serve(t, http.StatusInternalServerError, "upstream exploded").Fetch(context.Background())

	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindCredentialHTTP, de.Kind)
	assert.Equal(t, 500, de.Status)
	assert.Equal(t, "upstream exploded", de.Body)
}

func TestFetch_Malformed(t *testing.T) {
	for _, body := range []string{`{"value":""}`, `{"token":"x"}`, `not json`} {
		_, err := serve(t, http.StatusOK, body).Fetch(context.Background())
		assert.True(t, domain.IsKind(err, domain.KindCredentialMalformed), "body %q: %v", body, err)
	}
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewExchanger(backend.New(srv.URL)).Fetch(context.Background())
	assert.True(t, domain.IsKind(err, domain.KindCredentialNetwork), "got %v", err)
}
