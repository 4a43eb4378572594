package domain

import (
	"log/slog"
	"time"
)

// SessionCredential is an opaque short-lived token authorizing one realtime session.
// It is consumed by exactly one connect attempt and never persisted.
type SessionCredential struct {
	Value     string
	ExpiresAt time.Time // zero when the backend did not report an expiry
}

// String redacts the token so credentials never leak into logs.
func (c SessionCredential) String() string {
	if c.Value == "" {
		return "<empty>"
	}
	if len(c.Value) <= 6 {
		return "***"
	}
	return c.Value[:3] + "***"
}

// Expired reports whether the backend-declared expiry has passed.
func (c SessionCredential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// LogValue keeps the token redacted in structured logs.
func (c SessionCredential) LogValue() slog.Value {
	return slog.StringValue(c.String())
}
