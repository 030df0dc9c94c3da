package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/ports"
)

// Mask replaces every redacted value.
const Mask = "***"

// DefaultRedactionPatterns match the credential-bearing properties of
// payment and API nodes.
var DefaultRedactionPatterns = []string{
	`(?i)passkey`,
	`(?i)secret`,
	`(?i)token`,
	`(?i)password`,
	`(?i)^authorization$`,
}

type redactionMiddleware struct {
	next     ports.ProjectStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks node properties
// whose key matches one of the patterns before the project reaches the
// store. Header lists in {key, value} form are masked by their key. With
// no patterns, DefaultRedactionPatterns apply.
func NewRedactionMiddleware(patternStrings ...string) (Middleware, error) {
	if len(patternStrings) == 0 {
		patternStrings = DefaultRedactionPatterns
	}
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.ProjectStore) ports.ProjectStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactionMiddleware) Save(ctx context.Context, p *domain.Project) error {
	// Clone so the caller's project is left untouched.
	cloned := p.Clone()
	if cloned.Flow != nil {
		for i := range cloned.Flow.Nodes {
			m.maskMap(cloned.Flow.Nodes[i].Data.Properties)
		}
	}
	return m.next.Save(ctx, cloned)
}

func (m *redactionMiddleware) Load(ctx context.Context, id string) (*domain.Project, error) {
	return m.next.Load(ctx, id)
}

func (m *redactionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]*domain.Project, error) {
	return m.next.List(ctx)
}

func (m *redactionMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func (m *redactionMiddleware) maskMap(props map[string]any) {
	if key, ok := props["key"].(string); ok && m.matches(key) {
		if _, has := props["value"]; has {
			props["value"] = Mask
		}
	}
	for k, v := range props {
		if m.matches(k) {
			props[k] = Mask
			continue
		}
		m.maskValue(v)
	}
}

func (m *redactionMiddleware) maskValue(v any) {
	switch t := v.(type) {
	case map[string]any:
		m.maskMap(t)
	case []any:
		for _, item := range t {
			m.maskValue(item)
		}
	}
}
