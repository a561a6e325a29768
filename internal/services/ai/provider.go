package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/ai-task-manager-go/internal/models"
)

// Provider names
const (
	ProviderOpenAI   = "openai"
	ProviderWenxin   = "wenxin"
	ProviderDeepSeek = "deepseek"
	ProviderNone     = "none"
)

// Provider translates a provider-agnostic chat request into one upstream call
type Provider interface {
	Name() string
	Send(ctx context.Context, messages []models.ChatMessage, params Params) (string, error)
}

// Params are the sampling parameters applied to a single call
type Params struct {
	Temperature float64
	MaxTokens   int
}

var (
	// ErrGatewayDisabled is returned when no provider is configured
	ErrGatewayDisabled = errors.New("ai gateway disabled: no provider configured")
	// ErrEmptyMessages is returned when Complete is called without messages
	ErrEmptyMessages = errors.New("ai gateway: no messages to send")
)

// ProviderError wraps any transport, auth or protocol failure of an adapter call
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// toOpenAIMessages converts messages to the OpenAI wire format
func toOpenAIMessages(messages []models.ChatMessage) []map[string]string {
	out := make([]map[string]string, len(messages))
	for i, msg := range messages {
		out[i] = map[string]string{
			"role":    msg.Role,
			"content": msg.Content,
		}
	}
	return out
}
