package llm

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"whisker/pkg/whisker"
)

type providerStub struct {
	name string
}

func (s *providerStub) Generate(context.Context, whisker.GenerateRequest) (string, error) {
	return s.name, nil
}

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name      string
		providers map[string]whisker.ChatProvider
		wantErr   bool
	}{
		{
			name:    "empty providers fails",
			wantErr: true,
		},
		{
			name: "empty name fails",
			providers: map[string]whisker.ChatProvider{
				"  ": &providerStub{},
			},
			wantErr: true,
		},
		{
			name: "nil provider fails",
			providers: map[string]whisker.ChatProvider{
				"openai": nil,
			},
			wantErr: true,
		},
		{
			name: "names colliding after normalization fail",
			providers: map[string]whisker.ChatProvider{
				"openai": &providerStub{},
				"OpenAI": &providerStub{},
			},
			wantErr: true,
		},
		{
			name: "valid providers succeed",
			providers: map[string]whisker.ChatProvider{
				"openai": &providerStub{name: "openai"},
				"gemini": &providerStub{name: "gemini"},
			},
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewRegistry(testCase.providers)
			if testCase.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !testCase.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	openaiProvider := &providerStub{name: "openai"}
	registry, err := NewRegistry(map[string]whisker.ChatProvider{
		"openai": openaiProvider,
	})
	if err != nil {
		t.Fatalf("new registry failed: %v", err)
	}

	// Resolution trims and ignores case.
	for _, name := range []string{"openai", " openai ", "OpenAI"} {
		resolved, err := registry.Resolve(name)
		if err != nil {
			t.Fatalf("resolve %q failed: %v", name, err)
		}
		if resolved != openaiProvider {
			t.Fatalf("resolve %q is not the registered instance", name)
		}
	}

	if _, err := registry.Resolve("  "); err == nil {
		t.Fatal("expected error for empty name")
	}

	_, err = registry.Resolve("gemini")
	if err == nil {
		t.Fatal("expected error for unconfigured provider")
	}
	if !strings.Contains(err.Error(), "openai") {
		t.Fatalf("error %q does not list the configured providers", err)
	}
}

func TestRegistryNames(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(map[string]whisker.ChatProvider{
		"OpenAI": &providerStub{name: "openai"},
		"gemini": &providerStub{name: "gemini"},
	})
	if err != nil {
		t.Fatalf("new registry failed: %v", err)
	}

	want := []string{"gemini", "openai"}
	if got := registry.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}

func TestRegistryIsImmutable(t *testing.T) {
	t.Parallel()

	providers := map[string]whisker.ChatProvider{
		"openai": &providerStub{name: "openai"},
	}
	registry, err := NewRegistry(providers)
	if err != nil {
		t.Fatalf("new registry failed: %v", err)
	}

	delete(providers, "openai")

	if _, err := registry.Resolve("openai"); err != nil {
		t.Fatalf("resolve after caller map mutation failed: %v", err)
	}
}
