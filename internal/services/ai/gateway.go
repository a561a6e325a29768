package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ai-task-manager-go/internal/config"
	"github.com/ai-task-manager-go/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultTemperature = 0.7
	defaultMaxTokens   = 500
)

// knownPlaceholders are template values shipped in example env files
var knownPlaceholders = []string{
	"your_openai_api_key_here",
	"your_wenxin_api_key_here",
	"your_wenxin_secret_key_here",
	"your_deepseek_api_key_here",
}

// Recorder receives per-call metrics
type Recorder interface {
	RecordAIRequest(provider, status string, duration time.Duration)
}

// CallOption overrides the default sampling parameters for one call
type CallOption func(*Params)

// WithTemperature overrides the sampling temperature
func WithTemperature(t float64) CallOption {
	return func(p *Params) {
		p.Temperature = t
	}
}

// WithMaxTokens overrides the completion token limit
func WithMaxTokens(n int) CallOption {
	return func(p *Params) {
		if n > 0 {
			p.MaxTokens = n
		}
	}
}

// Gateway exposes one completion operation over the provider selected at startup.
// The selection is immutable; a nil provider means the gateway is disabled.
type Gateway struct {
	provider Provider
	timeout  time.Duration
	params   Params
	logger   *logrus.Logger
	recorder Recorder
}

// New evaluates the initialization policy once and never fails: any adapter setup
// error leaves the gateway disabled so the rest of the service keeps running.
func New(cfg config.AIConfig, logger *logrus.Logger, recorder Recorder) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	provider, err := selectProvider(cfg, httpClient, logger)
	if err != nil {
		logger.WithError(err).WithField("type", cfg.Type).Error("Failed to initialize AI provider, AI features disabled")
		provider = nil
	}

	return NewWithProvider(provider, cfg, logger, recorder)
}

// NewWithProvider builds a gateway around an already constructed provider (nil disables it)
func NewWithProvider(provider Provider, cfg config.AIConfig, logger *logrus.Logger, recorder Recorder) *Gateway {
	g := &Gateway{
		provider: provider,
		timeout:  cfg.Timeout,
		params: Params{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
		logger:   logger,
		recorder: recorder,
	}
	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}
	if g.params.Temperature <= 0 {
		g.params.Temperature = defaultTemperature
	}
	if g.params.MaxTokens <= 0 {
		g.params.MaxTokens = defaultMaxTokens
	}

	if provider != nil {
		logger.WithField("provider", provider.Name()).Info("AI gateway enabled")
	} else {
		logger.WithField("type", cfg.Type).Info("AI gateway disabled, using fallback mode")
	}
	return g
}

func selectProvider(cfg config.AIConfig, httpClient *http.Client, logger *logrus.Logger) (Provider, error) {
	placeholders := append(append([]string{}, knownPlaceholders...), cfg.Placeholders...)
	configured := func(values ...string) bool {
		for _, v := range values {
			if !isConfigured(v, placeholders) {
				return false
			}
		}
		return true
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case ProviderOpenAI:
		if configured(cfg.OpenAI.APIKey) {
			return NewOpenAI(cfg.OpenAI, httpClient, logger)
		}
	case ProviderWenxin:
		if configured(cfg.Wenxin.APIKey, cfg.Wenxin.SecretKey) {
			return NewWenxin(cfg.Wenxin, httpClient, logger)
		}
	case ProviderDeepSeek:
		if configured(cfg.DeepSeek.APIKey) {
			return NewDeepSeek(cfg.DeepSeek, httpClient, logger)
		}
	}
	return nil, nil
}

func isConfigured(value string, placeholders []string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	for _, p := range placeholders {
		if strings.EqualFold(value, p) {
			return false
		}
	}
	return true
}

// Enabled reports whether a provider was configured at startup
func (g *Gateway) Enabled() bool {
	return g.provider != nil
}

// Provider returns the active provider name, or "none"
func (g *Gateway) Provider() string {
	if g.provider == nil {
		return ProviderNone
	}
	return g.provider.Name()
}

// Complete sends messages to the active provider and returns the reply text.
// It fails with ErrGatewayDisabled without any network call when no provider is configured,
// and with *ProviderError when the adapter call fails or times out.
func (g *Gateway) Complete(ctx context.Context, messages []models.ChatMessage, opts ...CallOption) (string, error) {
	if g.provider == nil {
		return "", ErrGatewayDisabled
	}
	if len(messages) == 0 {
		return "", ErrEmptyMessages
	}

	params := g.params
	for _, opt := range opts {
		opt(&params)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	name := g.provider.Name()
	start := time.Now()
	reply, err := g.provider.Send(callCtx, messages, params)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("request timed out after %s: %w", g.timeout, err)
		}
		g.record(name, "error", duration)
		g.logger.WithError(err).WithFields(logrus.Fields{
			"provider": name,
			"duration": duration,
		}).Error("AI request failed")
		return "", &ProviderError{Provider: name, Err: err}
	}

	g.record(name, "success", duration)
	g.logger.WithFields(logrus.Fields{
		"provider":    name,
		"duration":    duration,
		"temperature": params.Temperature,
	}).Debug("AI request completed")

	return reply, nil
}

func (g *Gateway) record(provider, status string, duration time.Duration) {
	if g.recorder != nil {
		g.recorder.RecordAIRequest(provider, status, duration)
	}
}
