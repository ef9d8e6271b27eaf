package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/aretw0/storewizard/pkg/ports"
)

type redactionMiddleware struct {
	next     ports.KVStore
	patterns []*regexp.Regexp
	mask     *string
}

// RedactionOption configures the redaction middleware.
type RedactionOption func(*redactionMiddleware)

// WithMask replaces sensitive values with mask instead of dropping the keys.
func WithMask(mask string) RedactionOption {
	return func(m *redactionMiddleware) {
		m.mask = &mask
	}
}

// NewRedactionMiddleware creates a middleware that strips values of keys
// matching any pattern from JSON blobs before they are stored. Blobs that
// are not JSON objects are stored untouched.
func NewRedactionMiddleware(patternStrings []string, opts ...RedactionOption) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.KVStore) ports.KVStore {
		m := &redactionMiddleware{next: next, patterns: patterns}
		for _, opt := range opts {
			opt(m)
		}
		return m
	}, nil
}

func (m *redactionMiddleware) Set(ctx context.Context, key string, blob []byte) error {
	var doc map[string]any
	if len(m.patterns) == 0 || decodeObject(blob, &doc) != nil || !m.redact(doc) {
		return m.next.Set(ctx, key, blob)
	}
	clean, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal redacted blob: %w", err)
	}
	return m.next.Set(ctx, key, clean)
}

func (m *redactionMiddleware) Get(ctx context.Context, key string) ([]byte, error) {
	return m.next.Get(ctx, key)
}

func (m *redactionMiddleware) Remove(ctx context.Context, key string) error {
	return m.next.Remove(ctx, key)
}

func (m *redactionMiddleware) List(ctx context.Context, prefix string) ([]string, error) {
	return listKeys(ctx, m.next, prefix)
}

// redact works in place and reports whether anything was removed or masked.
func (m *redactionMiddleware) redact(doc map[string]any) bool {
	changed := false
	for k, v := range doc {
		if m.sensitive(k) {
			if m.mask != nil {
				doc[k] = *m.mask
			} else {
				delete(doc, k)
			}
			changed = true
			continue
		}
		switch t := v.(type) {
		case map[string]any:
			changed = m.redact(t) || changed
		case []any:
			for _, item := range t {
				if sub, ok := item.(map[string]any); ok {
					changed = m.redact(sub) || changed
				}
			}
		}
	}
	return changed
}

// decodeObject keeps numbers as json.Number so untouched values round-trip exactly.
func decodeObject(blob []byte, out *map[string]any) error {
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()
	return dec.Decode(out)
}

func (m *redactionMiddleware) sensitive(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
