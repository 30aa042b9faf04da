// Package catapi fetches cat GIFs and cat facts from public cat APIs, with
// canned fallbacks so the bot never goes silent when an API is down.
package catapi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultGIFURL  = "https://api.thecatapi.com/v1/images/search"
	defaultFactURL = "https://catfact.ninja/fact"

	defaultRequestTimeout = 10 * time.Second

	// fallbackGIF is served whenever the GIF API fails.
	fallbackGIF = "https://media.giphy.com/media/JIX9t2j0ZTN9S/giphy.gif"
	// fallbackFact is served whenever the fact API fails.
	fallbackFact = "Cats sleep for around 13 to 16 hours a day."
)

// ClientOption mutates cat API client configuration.
type ClientOption func(*Client)

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// WithAPIKey sets the x-api-key header sent to the GIF API. The API works
// without a key at a reduced rate limit.
func WithAPIKey(key string) ClientOption {
	return func(client *Client) {
		client.apiKey = strings.TrimSpace(key)
	}
}

// WithGIFURL overrides the GIF search endpoint.
func WithGIFURL(url string) ClientOption {
	return func(client *Client) {
		if trimmed := strings.TrimSpace(url); trimmed != "" {
			client.gifURL = trimmed
		}
	}
}

// WithFactURL overrides the fact endpoint.
func WithFactURL(url string) ClientOption {
	return func(client *Client) {
		if trimmed := strings.TrimSpace(url); trimmed != "" {
			client.factURL = trimmed
		}
	}
}

// WithTimeout bounds one API request.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(client *Client) {
		if timeout > 0 {
			client.http.SetTimeout(timeout)
		}
	}
}

// Client is an HTTP client for the cat image and cat fact APIs.
type Client struct {
	http    *resty.Client
	logger  *slog.Logger
	apiKey  string
	gifURL  string
	factURL string
}

// NewClient creates a cat API client.
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		http: resty.New().
			SetTimeout(defaultRequestTimeout).
			SetHeader("User-Agent", "whisker-bot"),
		logger:  slog.Default(),
		gifURL:  defaultGIFURL,
		factURL: defaultFactURL,
	}
	for _, option := range options {
		option(client)
	}

	return client
}

type imageResult struct {
	URL string `json:"url"`
}

// FetchGIF returns the URL of one random cat GIF. API failures fall back to a
// canned GIF and are logged, never surfaced.
func (c *Client) FetchGIF(ctx context.Context) string {
	var results []imageResult
	req := c.http.R().SetContext(ctx).
		SetQueryParam("mime_types", "gif").
		SetQueryParam("limit", "1").
		SetResult(&results)
	if c.apiKey != "" {
		req.SetHeader("x-api-key", c.apiKey)
	}

	resp, err := req.Get(c.gifURL)
	if err := classifyResponse(resp, err); err != nil {
		c.logger.WarnContext(ctx, "cat gif fetch failed, using fallback", "error", err)
		return fallbackGIF
	}
	if len(results) == 0 || strings.TrimSpace(results[0].URL) == "" {
		c.logger.WarnContext(ctx, "cat gif response empty, using fallback")
		return fallbackGIF
	}

	return results[0].URL
}

type factResult struct {
	Fact string `json:"fact"`
}

// FetchFact returns one random cat fact. API failures fall back to a canned
// fact and are logged, never surfaced.
func (c *Client) FetchFact(ctx context.Context) string {
	var result factResult
	resp, err := c.http.R().SetContext(ctx).
		SetResult(&result).
		Get(c.factURL)
	if err := classifyResponse(resp, err); err != nil {
		c.logger.WarnContext(ctx, "cat fact fetch failed, using fallback", "error", err)
		return fallbackFact
	}
	if strings.TrimSpace(result.Fact) == "" {
		c.logger.WarnContext(ctx, "cat fact response empty, using fallback")
		return fallbackFact
	}

	return result.Fact
}

func classifyResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	return nil
}
