// Package llm wires configured chat providers behind the neutral
// whisker.ChatProvider contract and resolves them by provider name.
package llm

import (
	"fmt"
	"sort"
	"strings"

	"whisker/pkg/whisker"
)

// Registry resolves configured chat providers by name. Names are
// case-insensitive and the set is fixed at construction, so Resolve is
// concurrency-safe for parallel callers.
type Registry struct {
	providers map[string]whisker.ChatProvider
	names     []string
}

// NewRegistry builds a registry from the providers that have credentials
// configured. Names are normalized to lower case; an empty set, an empty
// name, a nil provider, or two names colliding after normalization all fail.
func NewRegistry(providers map[string]whisker.ChatProvider) (*Registry, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("llm registry: no providers configured")
	}

	byName := make(map[string]whisker.ChatProvider, len(providers))
	for name, provider := range providers {
		normalized := normalizeName(name)
		if normalized == "" {
			return nil, fmt.Errorf("llm registry: empty provider name")
		}
		if provider == nil {
			return nil, fmt.Errorf("llm registry: provider %q is nil", normalized)
		}
		if _, exists := byName[normalized]; exists {
			return nil, fmt.Errorf("llm registry: duplicate provider name %q", normalized)
		}
		byName[normalized] = provider
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{providers: byName, names: names}, nil
}

// Names returns the configured provider names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}

	return append([]string(nil), r.names...)
}

// Resolve returns the provider registered under name, matching
// case-insensitively.
func (r *Registry) Resolve(name string) (whisker.ChatProvider, error) {
	if r == nil {
		return nil, fmt.Errorf("llm registry: nil registry")
	}

	normalized := normalizeName(name)
	if normalized == "" {
		return nil, fmt.Errorf("llm registry: empty provider name")
	}

	provider, exists := r.providers[normalized]
	if !exists {
		return nil, fmt.Errorf("llm registry: provider %q is not configured (have %s)",
			normalized, strings.Join(r.names, ", "))
	}

	return provider, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
