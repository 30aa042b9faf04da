package chat

import (
	"context"
	"fmt"
	"strings"

	"whisker/pkg/whisker"
)

const (
	defaultChatMaxOutputTokens = 700
	defaultChatTemperature     = 0.8

	defaultExtractMaxOutputTokens = 200
	defaultExtractTemperature     = 0.3

	// extractClampRunes bounds how much of each side of the exchange is fed
	// to the extraction model.
	extractClampRunes = 500
)

// CompleterConfig configures one LLM-backed completer.
type CompleterConfig struct {
	// Provider is the chat provider used for completions.
	Provider whisker.ChatProvider
	// Model identifies which provider model to call.
	Model string
	// Persona optionally overrides the persona system prompt.
	Persona string
	// MaxOutputTokens optionally bounds the generated reply.
	MaxOutputTokens int
	// Temperature optionally controls output randomness.
	Temperature float64
}

// Completer produces persona replies grounded in per-user memory context.
type Completer struct {
	provider        whisker.ChatProvider
	model           string
	persona         string
	maxOutputTokens int
	temperature     float64
}

// NewCompleter creates an LLM-backed reply completer.
func NewCompleter(cfg CompleterConfig) (*Completer, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("new completer: nil provider")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("new completer: missing model")
	}
	if cfg.MaxOutputTokens < 0 {
		return nil, fmt.Errorf("new completer: max_output_tokens must be >= 0")
	}
	if cfg.Temperature < 0 {
		return nil, fmt.Errorf("new completer: temperature must be >= 0")
	}

	persona := strings.TrimSpace(cfg.Persona)
	if persona == "" {
		persona = defaultPersonaPrompt
	}
	maxOutputTokens := cfg.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultChatMaxOutputTokens
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultChatTemperature
	}

	return &Completer{
		provider:        cfg.Provider,
		model:           model,
		persona:         persona,
		maxOutputTokens: maxOutputTokens,
		temperature:     temperature,
	}, nil
}

// Complete builds one generation request from the memory context and the new
// user message and returns the persona reply.
func (c *Completer) Complete(
	ctx context.Context,
	systemContext string,
	recent []whisker.Turn,
	newMessage string,
) (string, error) {
	if c == nil {
		return "", fmt.Errorf("complete: nil completer")
	}
	trimmedMessage := strings.TrimSpace(newMessage)
	if trimmedMessage == "" {
		return "", fmt.Errorf("complete: empty message")
	}

	messages := make([]whisker.Message, 0, len(recent)+3)
	messages = append(messages, whisker.Message{
		Role:    whisker.RoleSystem,
		Content: c.persona,
	})
	if trimmedContext := strings.TrimSpace(systemContext); trimmedContext != "" {
		messages = append(messages, whisker.Message{
			Role:    whisker.RoleSystem,
			Content: trimmedContext,
		})
	}
	for _, turn := range recent {
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		messages = append(messages, whisker.Message{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	messages = append(messages, whisker.Message{
		Role:    whisker.RoleUser,
		Content: trimmedMessage,
	})

	reply, err := c.provider.Generate(ctx, whisker.GenerateRequest{
		Model:           c.model,
		Messages:        messages,
		MaxOutputTokens: c.maxOutputTokens,
		Temperature:     c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}

	return reply, nil
}

// ExtractorConfig configures one LLM-backed fact extractor.
type ExtractorConfig struct {
	// Provider is the chat provider used for extraction calls.
	Provider whisker.ChatProvider
	// Model identifies which provider model to call. Extraction is simple,
	// so a cheap model is the expected choice.
	Model string
	// MaxOutputTokens optionally bounds the extracted bullet list.
	MaxOutputTokens int
	// Temperature optionally controls extraction randomness.
	Temperature float64
}

// Extractor proposes new durable user facts from one completed exchange.
type Extractor struct {
	provider        whisker.ChatProvider
	model           string
	maxOutputTokens int
	temperature     float64
}

// NewExtractor creates an LLM-backed fact extractor.
func NewExtractor(cfg ExtractorConfig) (*Extractor, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("new extractor: nil provider")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("new extractor: missing model")
	}
	if cfg.MaxOutputTokens < 0 {
		return nil, fmt.Errorf("new extractor: max_output_tokens must be >= 0")
	}
	if cfg.Temperature < 0 {
		return nil, fmt.Errorf("new extractor: temperature must be >= 0")
	}

	maxOutputTokens := cfg.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultExtractMaxOutputTokens
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultExtractTemperature
	}

	return &Extractor{
		provider:        cfg.Provider,
		model:           model,
		maxOutputTokens: maxOutputTokens,
		temperature:     temperature,
	}, nil
}

// Extract asks the model for new facts about the user, returning either a
// short bullet list or the no-new-facts marker.
func (e *Extractor) Extract(
	ctx context.Context,
	existingNotes, userMessage, assistantMessage string,
) (string, error) {
	if e == nil {
		return "", fmt.Errorf("extract: nil extractor")
	}

	facts, err := e.provider.Generate(ctx, whisker.GenerateRequest{
		Model: e.model,
		Messages: []whisker.Message{
			{Role: whisker.RoleSystem, Content: extractPrompt},
			{Role: whisker.RoleUser, Content: buildExtractInput(existingNotes, userMessage, assistantMessage)},
		},
		MaxOutputTokens: e.maxOutputTokens,
		Temperature:     e.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}

	return strings.TrimSpace(facts), nil
}

func buildExtractInput(existingNotes, userMessage, assistantMessage string) string {
	notes := strings.TrimSpace(existingNotes)
	if notes == "" {
		notes = "(none)"
	}

	return "Existing memory:\n" + notes + "\n\n" +
		"Latest exchange:\n" +
		"User: " + clampRunes(userMessage, extractClampRunes) + "\n" +
		"Assistant: " + clampRunes(assistantMessage, extractClampRunes)
}

func clampRunes(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}

	return string(runes[:max])
}

var (
	_ whisker.Completer = (*Completer)(nil)
	_ whisker.Extractor = (*Extractor)(nil)
)
