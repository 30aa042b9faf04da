package catapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchGIF(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		apiKey  string
		wantURL string
		wantKey string
	}{
		{
			name:    "returns the first image url",
			status:  http.StatusOK,
			body:    `[{"url": "https://cdn.example/cat.gif"}]`,
			wantURL: "https://cdn.example/cat.gif",
		},
		{
			name:    "sends the api key header when configured",
			status:  http.StatusOK,
			body:    `[{"url": "https://cdn.example/cat.gif"}]`,
			apiKey:  "secret",
			wantURL: "https://cdn.example/cat.gif",
			wantKey: "secret",
		},
		{
			name:    "empty result falls back",
			status:  http.StatusOK,
			body:    `[]`,
			wantURL: fallbackGIF,
		},
		{
			name:    "error status falls back",
			status:  http.StatusTooManyRequests,
			body:    `{"message": "rate limited"}`,
			wantURL: fallbackGIF,
		},
		{
			name:    "malformed body falls back",
			status:  http.StatusOK,
			body:    `{not json`,
			wantURL: fallbackGIF,
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			var gotKey string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotKey = r.Header.Get("x-api-key")
				if r.URL.Query().Get("mime_types") != "gif" {
					t.Errorf("mime_types = %q, want gif", r.URL.Query().Get("mime_types"))
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(testCase.status)
				_, _ = w.Write([]byte(testCase.body))
			}))
			defer server.Close()

			client := NewClient(WithGIFURL(server.URL), WithAPIKey(testCase.apiKey))
			got := client.FetchGIF(context.Background())
			if got != testCase.wantURL {
				t.Fatalf("FetchGIF = %q, want %q", got, testCase.wantURL)
			}
			if gotKey != testCase.wantKey {
				t.Fatalf("x-api-key = %q, want %q", gotKey, testCase.wantKey)
			}
		})
	}
}

func TestFetchFact(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "returns the fact",
			status: http.StatusOK,
			body:   `{"fact": "Cats have five toes on their front paws."}`,
			want:   "Cats have five toes on their front paws.",
		},
		{
			name:   "empty fact falls back",
			status: http.StatusOK,
			body:   `{"fact": "  "}`,
			want:   fallbackFact,
		},
		{
			name:   "error status falls back",
			status: http.StatusInternalServerError,
			body:   `{}`,
			want:   fallbackFact,
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(testCase.status)
				_, _ = w.Write([]byte(testCase.body))
			}))
			defer server.Close()

			client := NewClient(WithFactURL(server.URL))
			got := client.FetchFact(context.Background())
			if got != testCase.want {
				t.Fatalf("FetchFact = %q, want %q", got, testCase.want)
			}
		})
	}
}

func TestFetchUnreachableServerFallsBack(t *testing.T) {
	t.Parallel()

	// A closed server is a connection error, not an HTTP error.
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(WithGIFURL(url), WithFactURL(url))
	if got := client.FetchGIF(context.Background()); got != fallbackGIF {
		t.Fatalf("FetchGIF = %q, want fallback", got)
	}
	if got := client.FetchFact(context.Background()); got != fallbackFact {
		t.Fatalf("FetchFact = %q, want fallback", got)
	}
}
