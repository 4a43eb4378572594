package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.CacheStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks row fields whose key matches one of the patterns.
// Masking happens on Save, so the persisted copy never holds the original values.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.CacheStore) ports.CacheStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, snap domain.Snapshot) error {
	if len(m.patterns) == 0 || len(snap.Rows) == 0 {
		return m.next.Save(ctx, snap)
	}
	// Decoding yields a fresh tree, so the caller's rows are left untouched.
	var rows any
	if err := json.Unmarshal(snap.Rows, &rows); err != nil {
		return fmt.Errorf("decode %s rows: %w", snap.Collection, err)
	}
	masked, err := json.Marshal(mask(rows, m.patterns))
	if err != nil {
		return err
	}
	out := snap
	out.Rows = masked
	return m.next.Save(ctx, out)
}

func (m *piiMiddleware) Load(ctx context.Context, c domain.Collection) (domain.Snapshot, error) {
	return m.next.Load(ctx, c)
}

func (m *piiMiddleware) Delete(ctx context.Context, c domain.Collection) error {
	return m.next.Delete(ctx, c)
}

func (m *piiMiddleware) List(ctx context.Context) ([]domain.Collection, error) {
	return m.next.List(ctx)
}

func mask(v any, patterns []*regexp.Regexp) any {
	switch t := v.(type) {
	case map[string]any:
		for k, sub := range t {
			if matches(k, patterns) {
				t[k] = Mask
				continue
			}
			t[k] = mask(sub, patterns)
		}
	case []any:
		for i, sub := range t {
			t[i] = mask(sub, patterns)
		}
	}
	return v
}

func matches(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
