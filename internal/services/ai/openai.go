package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ai-task-manager-go/internal/config"
	"github.com/ai-task-manager-go/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/sirupsen/logrus"
)

// OpenAI implements the SDK-client adapter using the official client
type OpenAI struct {
	client openai.Client
	model  string
	logger *logrus.Logger
}

// NewOpenAI creates an SDK-client adapter. Retries are disabled; a failed call fails its request.
func NewOpenAI(cfg config.OpenAIConfig, httpClient *http.Client, logger *logrus.Logger) (*OpenAI, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}

	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid openai base url %q", cfg.BaseURL)
		}
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

func (o *OpenAI) Name() string {
	return ProviderOpenAI
}

// Send performs one chat completion and returns the first choice's content
func (o *OpenAI) Send(ctx context.Context, messages []models.ChatMessage, params Params) (string, error) {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			converted = append(converted, openai.SystemMessage(msg.Content))
		case models.RoleAssistant:
			converted = append(converted, openai.AssistantMessage(msg.Content))
		default:
			converted = append(converted, openai.UserMessage(msg.Content))
		}
	}

	o.logger.WithFields(logrus.Fields{
		"model":    o.model,
		"messages": len(converted),
	}).Debug("Sending OpenAI request")

	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.model),
		Messages:    converted,
		Temperature: openai.Float(params.Temperature),
		MaxTokens:   openai.Int(int64(params.MaxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return completion.Choices[0].Message.Content, nil
}
