// Package backend is a stateless client for the core HTTP backend: calendar, tensions and baseline fields.
//
// Every call follows the same rules: serialize the request, issue it, map a non-2xx status to
// backend_http_error (status and raw body kept), a transport failure to backend_network_error,
// an undecodable 2xx body to backend_malformed_response, and decode success into a typed result.
// Nothing is retried.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/helix/internal/logging"
	"github.com/aretw0/helix/pkg/domain"
)

// Client calls the core backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every request. Zero keeps the transport defaults.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// RawResponse is an undecoded backend response.
type RawResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// OK reports a 2xx status.
func (r RawResponse) OK() bool {
	return r.Status >= http.StatusOK && r.Status < http.StatusMultipleChoices
}

// Raw issues a request and returns the response as-is, whatever its status.
// Only a transport failure is an error (backend_network_error).
func (c *Client) Raw(ctx context.Context, method, path, contentType string, body []byte) (RawResponse, error) {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return RawResponse{}, domain.NewError(domain.KindBackendNetwork, op, fmt.Errorf("build request: %w", err))
	}
	if contentType != "" && body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	accept := "application/json"
	if contentType != "" {
		accept = contentType
	}
	req.Header.Set("Accept", accept)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "op", op, "error", err)
		return RawResponse{}, domain.NewError(domain.KindBackendNetwork, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawResponse{}, domain.NewError(domain.KindBackendNetwork, op, fmt.Errorf("read response: %w", err))
	}
	c.logger.Debug("backend request", "op", op, "status", resp.StatusCode, "duration", time.Since(start))

	return RawResponse{Status: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"), Body: data}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return domain.NewError(domain.KindExecutor, op, fmt.Errorf("encode request: %w", err))
		}
	}

	resp, err := c.Raw(ctx, method, path, "application/json", payload)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return domain.HTTPError(domain.KindBackendHTTP, op, resp.Status, string(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &domain.Error{Kind: domain.KindBackendMalformed, Op: op, Status: resp.Status, Body: string(resp.Body), Err: err}
	}
	return nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (domain.Health, error) {
	var out domain.Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

// CalendarStatus calls GET /calendar/status.
func (c *Client) CalendarStatus(ctx context.Context) (domain.CalendarStatus, error) {
	var out domain.CalendarStatus
	err := c.do(ctx, http.MethodGet, "/calendar/status", nil, &out)
	return out, err
}

// FreeSlots calls POST /calendar/free-slots.
func (c *Client) FreeSlots(ctx context.Context, req domain.FreeSlotsRequest) (domain.FreeSlots, error) {
	var out domain.FreeSlots
	err := c.do(ctx, http.MethodPost, "/calendar/free-slots", req, &out)
	return out, err
}

// CalendarDay calls GET /calendar/day. An empty date means today in the backend's timezone.
func (c *Client) CalendarDay(ctx context.Context, date string) (domain.CalendarDay, error) {
	path := "/calendar/day"
	if date != "" {
		path += "?" + url.Values{"date": {date}}.Encode()
	}
	var out domain.CalendarDay
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// CreateEvent calls POST /calendar/create.
func (c *Client) CreateEvent(ctx context.Context, req domain.CreateEventRequest) (domain.CreatedEvent, error) {
	var out domain.CreatedEvent
	err := c.do(ctx, http.MethodPost, "/calendar/create", req, &out)
	return out, err
}

// CreateTension calls POST /tensions.
// TODO: send an idempotency key once the backend accepts one; a retried create can insert twice.
func (c *Client) CreateTension(ctx context.Context, req domain.CreateTensionRequest) (domain.Tension, error) {
	var out domain.Tension
	err := c.do(ctx, http.MethodPost, "/tensions", req, &out)
	return out, err
}

// ActiveTensions calls GET /tensions/active.
func (c *Client) ActiveTensions(ctx context.Context, limit int) ([]domain.Tension, error) {
	path := "/tensions/active?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	out := []domain.Tension{}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// UpdateTension calls PATCH /tensions/{id}.
func (c *Client) UpdateTension(ctx context.Context, id int64, req domain.UpdateTensionRequest) (domain.Tension, error) {
	var out domain.Tension
	err := c.do(ctx, http.MethodPatch, "/tensions/"+strconv.FormatInt(id, 10), req, &out)
	return out, err
}

// BaselineFields calls GET /baseline-fields.
func (c *Client) BaselineFields(ctx context.Context, limit int, includeInactive bool) ([]domain.BaselineField, error) {
	q := url.Values{
		"limit":            {strconv.Itoa(limit)},
		"include_inactive": {strconv.FormatBool(includeInactive)},
	}
	out := []domain.BaselineField{}
	err := c.do(ctx, http.MethodGet, "/baseline-fields?"+q.Encode(), nil, &out)
	return out, err
}

// CreateBaselineField calls POST /baseline-fields.
func (c *Client) CreateBaselineField(ctx context.Context, req domain.CreateBaselineFieldRequest) (domain.BaselineField, error) {
	var out domain.BaselineField
	err := c.do(ctx, http.MethodPost, "/baseline-fields", req, &out)
	return out, err
}

// UpdateBaselineField calls PATCH /baseline-fields/{id}.
func (c *Client) UpdateBaselineField(ctx context.Context, id int64, req domain.UpdateBaselineFieldRequest) (domain.BaselineField, error) {
	var out domain.BaselineField
	err := c.do(ctx, http.MethodPatch, "/baseline-fields/"+strconv.FormatInt(id, 10), req, &out)
	return out, err
}

// DeleteBaselineField calls DELETE /baseline-fields/{id}.
func (c *Client) DeleteBaselineField(ctx context.Context, id int64) (domain.DeleteResult, error) {
	var out domain.DeleteResult
	err := c.do(ctx, http.MethodDelete, "/baseline-fields/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var de *domain.Error
	return errors.As(err, &de) && de.Kind == domain.KindBackendHTTP && de.Status == http.StatusNotFound
}
