// Package credential obtains the short-lived session credential from the core backend.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/helix/internal/logging"
	"github.com/aretw0/helix/pkg/backend"
	"github.com/aretw0/helix/pkg/domain"
)

// Path is the backend endpoint that mints session credentials.
const Path = "/realtime/client_secret"

// Source produces a fresh credential for each connect attempt.
type Source interface {
	Fetch(ctx context.Context) (domain.SessionCredential, error)
}

// Exchanger fetches credentials with a single POST per call. It neither retries nor caches.
type Exchanger struct {
	client *backend.Client
	logger *slog.Logger
}

// Option configures an Exchanger.
type Option func(*Exchanger)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exchanger) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExchanger creates an Exchanger that talks to the backend through client.
func NewExchanger(client *backend.Client, opts ...Option) *Exchanger {
	e := &Exchanger{client: client, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type secret struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

type secretEnvelope struct {
	secret
	ClientSecret *secret `json:"client_secret"`
}

// Fetch requests a new credential.
// Failures carry credential_http_error, credential_malformed or credential_network_error.
func (e *Exchanger) Fetch(ctx context.Context) (domain.SessionCredential, error) {
	op := http.MethodPost + " " + Path

	resp, err := e.client.Raw(ctx, http.MethodPost, Path, "", nil)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			err = de.Err
		}
		e.logger.Error("credential exchange failed", "error", err)
		return domain.SessionCredential{}, domain.NewError(domain.KindCredentialNetwork, op, err)
	}
	if !resp.OK() {
		e.logger.Error("credential exchange rejected", "status", resp.Status)
		return domain.SessionCredential{}, domain.HTTPError(domain.KindCredentialHTTP, op, resp.Status, string(resp.Body))
	}

	cred, err := parse(resp.Body)
	if err != nil {
		e.logger.Error("credential exchange returned an unusable body", "error", err)
		return domain.SessionCredential{}, &domain.Error{Kind: domain.KindCredentialMalformed, Op: op, Status: resp.Status, Err: err}
	}
	e.logger.Debug("credential issued", "credential", cred)
	return cred, nil
}

func parse(body []byte) (domain.SessionCredential, error) {
	var env secretEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.SessionCredential{}, fmt.Errorf("decode body: %w", err)
	}
	s := env.secret
	if s.Value == "" && env.ClientSecret != nil {
		s = *env.ClientSecret
	}
	if s.Value == "" {
		return domain.SessionCredential{}, errors.New("response has no value")
	}

	cred := domain.SessionCredential{Value: s.Value}
	if s.ExpiresAt > 0 {
		cred.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	}
	return cred, nil
}
