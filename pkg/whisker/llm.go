package whisker

import (
	"context"
	"fmt"
	"strings"
)

// ChatProvider exposes one blocking LLM text generation operation.
//
// Implementations must keep provider-specific transport details hidden
// behind this neutral interface and must be safe for concurrent use, since
// the reply path and the extraction worker can call the same provider at
// the same time.
type ChatProvider interface {
	// Generate runs one generation request and returns the full reply text.
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Message is one ordered message entry in one generation request.
type Message struct {
	// Role identifies which side of the conversation this message belongs to.
	Role Role
	// Content is one plain text message body.
	Content string
}

// Validate checks one message contract.
func (m Message) Validate() error {
	if err := m.Role.Validate(); err != nil {
		return fmt.Errorf("validate message: %w", err)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("validate message: missing content")
	}

	return nil
}

// GenerateRequest describes one provider generation call.
type GenerateRequest struct {
	// Model identifies which provider model should be used.
	Model string
	// Messages is the ordered conversation context sent to the provider.
	Messages []Message
	// MaxOutputTokens optionally bounds generated output token count.
	MaxOutputTokens int
	// Temperature optionally controls output randomness.
	Temperature float64
}

// Validate checks one generation request contract.
func (r GenerateRequest) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return fmt.Errorf("validate generate request: missing model")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("validate generate request: missing messages")
	}
	for index, message := range r.Messages {
		if err := message.Validate(); err != nil {
			return fmt.Errorf("validate generate request messages[%d]: %w", index, err)
		}
	}
	if r.MaxOutputTokens < 0 {
		return fmt.Errorf("validate generate request: max_output_tokens must be >= 0")
	}
	if r.Temperature < 0 {
		return fmt.Errorf("validate generate request: temperature must be >= 0")
	}

	return nil
}
