package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidTransition is returned when a session operation is not allowed in the current state.
var ErrInvalidTransition = errors.New("invalid session state transition")

// ErrToolNotFound is returned when the runtime asks for a tool the catalogue does not declare.
var ErrToolNotFound = errors.New("tool not found")

// ErrSessionClosed is returned when writing to a runtime session that has already been released.
var ErrSessionClosed = errors.New("session closed")

// ErrUnknownCollection is returned for a cache collection name that is not declared.
var ErrUnknownCollection = errors.New("unknown collection")

// ErrNotCached is returned by cache stores when a collection was never refreshed.
var ErrNotCached = errors.New("collection not cached")

// Kind classifies a failure according to the orchestrator's error taxonomy.
type Kind string

const (
	KindCredentialHTTP      Kind = "credential_http_error"
	KindCredentialMalformed Kind = "credential_malformed"
	KindCredentialNetwork   Kind = "credential_network_error"
	KindValidation          Kind = "validation_error"
	KindInvalidID           Kind = "invalid_id"
	KindBackendHTTP         Kind = "backend_http_error"
	KindBackendNetwork      Kind = "backend_network_error"
	KindBackendMalformed    Kind = "backend_malformed_response"
	KindHandshake           Kind = "handshake_failure"
	KindTeardown            Kind = "teardown_failure"
	KindToolNotFound        Kind = "tool_not_found"
	KindExecutor            Kind = "executor_error"
)

// Error is a failure tagged with its Kind.
// Status and Body are set for HTTP failures; Fields lists offending arguments for validation failures.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Body   string
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(truncate(e.Body, 512))
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, ": fields %s", strings.Join(e.Fields, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error of the given kind wrapping err.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// HTTPError builds an Error carrying a non-success status and the raw response body.
func HTTPError(kind Kind, op string, status int, body string) *Error {
	return &Error{Kind: kind, Op: op, Status: status, Body: body}
}

// KindOf extracts the Kind of err, or "" if err does not carry one.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
