// Package gemini adapts the Google Gemini API to the whisker.ChatProvider
// contract.
package gemini

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"

	"whisker/pkg/whisker"

	"google.golang.org/genai"
)

const defaultAPIVersion = "v1beta"

// ProviderConfig configures one Gemini-backed provider instance.
type ProviderConfig struct {
	// APIKey is the credential used to authenticate requests.
	APIKey string
	// BaseURL optionally overrides the Gemini endpoint.
	BaseURL string
	// APIVersion optionally overrides Gemini API version.
	//
	// Zero defaults to v1beta.
	APIVersion string
}

// Provider is a whisker chat provider backed by Google Gemini.
type Provider struct {
	models geminiModelsClient
}

type geminiModelsClient interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

type normalizedProviderConfig struct {
	apiKey     string
	baseURL    string
	apiVersion string
}

// New builds one Gemini API provider instance.
func New(cfg ProviderConfig) (*Provider, error) {
	normalized, err := normalizeProviderConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("new gemini provider: %w", err)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  normalized.apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    normalized.baseURL,
			APIVersion: normalized.apiVersion,
		},
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("new gemini client: %w", err)
	}
	if client == nil || client.Models == nil {
		return nil, fmt.Errorf("new gemini client: models client is nil")
	}

	return &Provider{models: client.Models}, nil
}

// Generate runs one blocking Gemini generation request.
func (p *Provider) Generate(ctx context.Context, req whisker.GenerateRequest) (string, error) {
	if p == nil {
		return "", fmt.Errorf("gemini generate: nil provider")
	}
	if ctx == nil {
		return "", fmt.Errorf("gemini generate: nil context")
	}
	if p.models == nil {
		return "", fmt.Errorf("gemini generate: models client is nil")
	}
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("gemini generate validate request: %w", err)
	}

	contents, config, err := mapGenerateRequest(req)
	if err != nil {
		return "", fmt.Errorf("gemini generate map request: %w", err)
	}

	response, err := p.models.GenerateContent(ctx, strings.TrimSpace(req.Model), contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if response == nil {
		return "", fmt.Errorf("gemini generate: nil response")
	}

	text := strings.TrimSpace(response.Text())
	if text == "" {
		return "", fmt.Errorf("gemini generate: empty response text")
	}

	return text, nil
}

func mapGenerateRequest(
	req whisker.GenerateRequest,
) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	systemParts := make([]string, 0, len(req.Messages))
	contents := make([]*genai.Content, 0, len(req.Messages))
	for index, message := range req.Messages {
		switch message.Role {
		case whisker.RoleSystem:
			systemParts = append(systemParts, message.Content)
		case whisker.RoleUser, whisker.RoleAssistant:
			role, roleErr := mapMessageRole(message.Role)
			if roleErr != nil {
				return nil, nil, fmt.Errorf("messages[%d] role: %w", index, roleErr)
			}
			contents = append(contents, &genai.Content{
				Role: role,
				Parts: []*genai.Part{
					{Text: message.Content},
				},
			})
		default:
			return nil, nil, fmt.Errorf("messages[%d] role: unsupported role %q", index, message.Role)
		}
	}
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("missing non-system messages")
	}

	config := &genai.GenerateContentConfig{}
	if len(systemParts) > 0 {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{
				{Text: strings.Join(systemParts, "\n\n")},
			},
		}
	}
	if req.Temperature > 0 {
		temperature := float32(req.Temperature)
		config.Temperature = &temperature
	}
	if req.MaxOutputTokens > 0 {
		if req.MaxOutputTokens > math.MaxInt32 {
			return nil, nil, fmt.Errorf("max_output_tokens exceeds int32 range")
		}
		config.MaxOutputTokens = int32(req.MaxOutputTokens)
	}

	return contents, config, nil
}

func mapMessageRole(role whisker.Role) (string, error) {
	switch role {
	case whisker.RoleUser:
		return string(genai.RoleUser), nil
	case whisker.RoleAssistant:
		return string(genai.RoleModel), nil
	default:
		return "", fmt.Errorf("unsupported role %q", role)
	}
}

func normalizeProviderConfig(cfg ProviderConfig) (normalizedProviderConfig, error) {
	trimmedAPIKey := strings.TrimSpace(cfg.APIKey)
	if trimmedAPIKey == "" {
		return normalizedProviderConfig{}, fmt.Errorf("missing api_key")
	}

	trimmedBaseURL := strings.TrimSpace(cfg.BaseURL)
	if trimmedBaseURL != "" {
		parsed, err := url.Parse(trimmedBaseURL)
		if err != nil {
			return normalizedProviderConfig{}, fmt.Errorf("parse base_url: %w", err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return normalizedProviderConfig{}, fmt.Errorf("parse base_url: must include scheme and host")
		}
	}

	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	return normalizedProviderConfig{
		apiKey:     trimmedAPIKey,
		baseURL:    trimmedBaseURL,
		apiVersion: apiVersion,
	}, nil
}

var _ whisker.ChatProvider = (*Provider)(nil)
