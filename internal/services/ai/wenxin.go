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
	"sync"

	"github.com/ai-task-manager-go/internal/config"
	"github.com/ai-task-manager-go/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Wenxin implements the token-exchange adapter for Baidu ERNIE (wenxin workshop).
// Long-lived client credentials are exchanged for a short-lived access token which is then
// sent as a bearer credential on the completion call.
type Wenxin struct {
	oauth      *clientcredentials.Config
	chatURL    string
	cacheToken bool
	httpClient *http.Client
	logger     *logrus.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// NewWenxin creates a token-exchange adapter
func NewWenxin(cfg config.WenxinConfig, httpClient *http.Client, logger *logrus.Logger) (*Wenxin, error) {
	for _, endpoint := range []struct{ name, raw string }{
		{"token", cfg.TokenURL},
		{"chat", cfg.ChatURL},
	} {
		u, err := url.Parse(endpoint.raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid wenxin %s url %q", endpoint.name, endpoint.raw)
		}
	}

	return &Wenxin{
		oauth: &clientcredentials.Config{
			ClientID:     strings.TrimSpace(cfg.APIKey),
			ClientSecret: strings.TrimSpace(cfg.SecretKey),
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		chatURL:    cfg.ChatURL,
		cacheToken: cfg.CacheToken,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (w *Wenxin) Name() string {
	return ProviderWenxin
}

// accessToken returns a usable token. With caching disabled every call re-fetches.
func (w *Wenxin) accessToken(ctx context.Context) (string, error) {
	if w.cacheToken {
		w.mu.Lock()
		tok := w.token
		w.mu.Unlock()
		if tok.Valid() {
			return tok.AccessToken, nil
		}
	}

	tok, err := w.oauth.Token(context.WithValue(ctx, oauth2.HTTPClient, w.httpClient))
	if err != nil {
		return "", fmt.Errorf("failed to obtain access token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}

	w.logger.WithField("expiry", tok.Expiry).Debug("Obtained wenxin access token")

	if w.cacheToken {
		w.mu.Lock()
		w.token = tok
		w.mu.Unlock()
	}
	return tok.AccessToken, nil
}

// Send exchanges credentials for a token and performs one completion call
func (w *Wenxin) Send(ctx context.Context, messages []models.ChatMessage, params Params) (string, error) {
	token, err := w.accessToken(ctx)
	if err != nil {
		return "", err
	}

	// ERNIE takes the persona in a dedicated field; a system role inside messages is rejected
	var system []string
	turns := make([]models.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == models.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		turns = append(turns, msg)
	}

	reqBody := map[string]interface{}{
		"messages":    toOpenAIMessages(turns),
		"temperature": params.Temperature,
		"max_tokens":  params.MaxTokens,
	}
	if len(system) > 0 {
		reqBody["system"] = strings.Join(system, "\n\n")
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint, err := url.Parse(w.chatURL)
	if err != nil {
		return "", fmt.Errorf("invalid chat url: %w", err)
	}
	query := endpoint.Query()
	query.Set("access_token", token)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result struct {
		Result    string `json:"result"`
		ErrorCode int    `json:"error_code"`
		ErrorMsg  string `json:"error_msg"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
		}
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if result.ErrorCode != 0 || result.ErrorMsg != "" {
		return "", fmt.Errorf("Wenxin API error %d: %s", result.ErrorCode, result.ErrorMsg)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
	if result.Result == "" {
		return "", fmt.Errorf("empty result in response")
	}

	return result.Result, nil
}
