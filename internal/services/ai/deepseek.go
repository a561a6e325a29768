package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ai-task-manager-go/internal/config"
	"github.com/ai-task-manager-go/internal/models"
	"github.com/sirupsen/logrus"
)

// DeepSeek implements the bearer-key adapter against an OpenAI-compatible endpoint
type DeepSeek struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewDeepSeek creates a bearer-key adapter
func NewDeepSeek(cfg config.DeepSeekConfig, httpClient *http.Client, logger *logrus.Logger) (*DeepSeek, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid deepseek base url %q", cfg.BaseURL)
	}

	return &DeepSeek{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    base,
		model:      cfg.Model,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (d *DeepSeek) Name() string {
	return ProviderDeepSeek
}

// Send performs a single chat completion request
func (d *DeepSeek) Send(ctx context.Context, messages []models.ChatMessage, params Params) (string, error) {
	reqBody := map[string]interface{}{
		"model":       d.model,
		"messages":    toOpenAIMessages(messages),
		"temperature": params.Temperature,
		"max_tokens":  params.MaxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := d.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	d.logger.WithFields(logrus.Fields{
		"model":    d.model,
		"url":      endpoint,
		"messages": len(messages),
	}).Debug("Sending DeepSeek request")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
		}
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	// The upstream error text is surfaced verbatim regardless of status code
	if result.Error != nil {
		return "", fmt.Errorf("DeepSeek API error: %s", result.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return result.Choices[0].Message.Content, nil
}
