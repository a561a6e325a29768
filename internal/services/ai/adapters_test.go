package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ai-task-manager-go/internal/config"
	"github.com/ai-task-manager-go/internal/models"
	"github.com/ai-task-manager-go/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var conversation = []models.ChatMessage{
	{Role: models.RoleSystem, Content: "persona"},
	{Role: models.RoleUser, Content: "明天下午3点开会"},
}

type chatRequest struct {
	Model       string              `json:"model"`
	System      string              `json:"system"`
	Messages    []map[string]string `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

func TestDeepSeek_Send(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer ds-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"好的"}}]}`)
	}))
	defer srv.Close()

	cfg := baseAIConfig(srv.URL + "/")
	cfg.Type = ProviderDeepSeek
	cfg.DeepSeek.APIKey = "ds-key"
	g := New(cfg, logger.NewNop(), nil)
	require.True(t, g.Enabled())

	reply, err := g.Complete(context.Background(), conversation, WithTemperature(0.3))
	require.NoError(t, err)

	assert.Equal(t, "好的", reply)
	assert.Equal(t, "deepseek-chat", got.Model)
	assert.Equal(t, 0.3, got.Temperature)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0]["role"])
	assert.Equal(t, "明天下午3点开会", got.Messages[1]["content"])
}

func TestDeepSeek_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantInErr string
	}{
		{
			name:      "error field surfaced verbatim",
			status:    http.StatusUnauthorized,
			body:      `{"error":{"message":"Authentication Fails (no such user)","type":"authentication_error"}}`,
			wantInErr: "DeepSeek API error: Authentication Fails (no such user)",
		},
		{
			name:      "error field on 200",
			status:    http.StatusOK,
			body:      `{"error":{"message":"Insufficient Balance"}}`,
			wantInErr: "Insufficient Balance",
		},
		{
			name:      "non json failure",
			status:    http.StatusBadGateway,
			body:      `upstream down`,
			wantInErr: "status 502",
		},
		{
			name:      "no choices",
			status:    http.StatusOK,
			body:      `{"choices":[]}`,
			wantInErr: "no choices",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			cfg := baseAIConfig(srv.URL)
			cfg.Type = ProviderDeepSeek
			cfg.DeepSeek.APIKey = "ds-key"
			g := New(cfg, logger.NewNop(), nil)

			_, err := g.Complete(context.Background(), conversation)

			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, ProviderDeepSeek, perr.Provider)
			assert.Contains(t, err.Error(), tt.wantInErr)
		})
	}
}

func newWenxinServer(t *testing.T, tokenHits *int32, tokenBody string, chat func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/2.0/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenHits, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "ak", r.PostForm.Get("client_id"))
		assert.Equal(t, "sk", r.PostForm.Get("client_secret"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, tokenBody)
	})
	mux.HandleFunc("/chat", chat)
	return httptest.NewServer(mux)
}

func wenxinGateway(srvURL string, cacheToken bool) *Gateway {
	cfg := baseAIConfig(srvURL)
	cfg.Type = ProviderWenxin
	cfg.Wenxin.APIKey = "ak"
	cfg.Wenxin.SecretKey = "sk"
	cfg.Wenxin.CacheToken = cacheToken
	return New(cfg, logger.NewNop(), nil)
}

func TestWenxin_TokenExchangeAndCompletion(t *testing.T) {
	var tokenHits int32
	var got chatRequest
	srv := newWenxinServer(t, &tokenHits, `{"access_token":"tok-1","expires_in":2592000}`,
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			assert.Equal(t, "tok-1", r.URL.Query().Get("access_token"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			fmt.Fprint(w, `{"id":"as-1","result":"已为你安排会议"}`)
		})
	defer srv.Close()

	g := wenxinGateway(srv.URL, false)
	require.True(t, g.Enabled())

	for i := 0; i < 2; i++ {
		reply, err := g.Complete(context.Background(), conversation)
		require.NoError(t, err)
		assert.Equal(t, "已为你安排会议", reply)
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&tokenHits), "without caching every call re-fetches a token")
	assert.Equal(t, "persona", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0]["role"])
	assert.Equal(t, 0.7, got.Temperature)
	assert.Equal(t, 500, got.MaxTokens)
}

func TestNewWenxin_InvalidURLs(t *testing.T) {
	tests := []struct {
		name     string
		tokenURL string
		chatURL  string
		want     string
	}{
		{"both invalid reports token first", "not a url", "also bad", `invalid wenxin token url "not a url"`},
		{"token missing host", "https://", "https://chat.example.com", `invalid wenxin token url "https://"`},
		{"chat missing scheme", "https://token.example.com", "chat.example.com/v1", `invalid wenxin chat url "chat.example.com/v1"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				_, err := NewWenxin(config.WenxinConfig{APIKey: "ak", SecretKey: "sk", TokenURL: tt.tokenURL, ChatURL: tt.chatURL}, http.DefaultClient, logger.NewNop())
				require.Error(t, err)
				assert.Equal(t, tt.want, err.Error())
			}
		})
	}

	w, err := NewWenxin(config.WenxinConfig{TokenURL: "https://token.example.com", ChatURL: "https://chat.example.com"}, http.DefaultClient, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, ProviderWenxin, w.Name())
}

func TestWenxin_TokenCaching(t *testing.T) {
	var tokenHits int32
	srv := newWenxinServer(t, &tokenHits, `{"access_token":"tok-1","expires_in":2592000}`,
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"result":"ok"}`)
		})
	defer srv.Close()

	g := wenxinGateway(srv.URL, true)
	for i := 0; i < 3; i++ {
		_, err := g.Complete(context.Background(), conversation)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenHits))
}

func TestWenxin_MissingToken(t *testing.T) {
	var tokenHits int32
	var chatHits int32
	srv := newWenxinServer(t, &tokenHits, `{"expires_in":2592000}`,
		func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&chatHits, 1)
		})
	defer srv.Close()

	g := wenxinGateway(srv.URL, true)
	_, err := g.Complete(context.Background(), conversation)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ProviderWenxin, perr.Provider)
	assert.Contains(t, err.Error(), "access token")
	assert.Zero(t, atomic.LoadInt32(&chatHits))
}

func TestWenxin_UpstreamError(t *testing.T) {
	var tokenHits int32
	srv := newWenxinServer(t, &tokenHits, `{"access_token":"tok-1","expires_in":2592000}`,
		func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"error_code":110,"error_msg":"Access token invalid or no longer valid"}`)
		})
	defer srv.Close()

	g := wenxinGateway(srv.URL, true)
	_, err := g.Complete(context.Background(), conversation)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "Access token invalid or no longer valid")
}

func TestOpenAI_Send(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": %d,
			"model": "gpt-3.5-turbo",
			"choices": [
				{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "first"}},
				{"index": 1, "finish_reason": "stop", "message": {"role": "assistant", "content": "second"}}
			]
		}`, time.Now().Unix())
	}))
	defer srv.Close()

	cfg := baseAIConfig(srv.URL)
	cfg.Type = ProviderOpenAI
	cfg.OpenAI.APIKey = "sk-test"
	g := New(cfg, logger.NewNop(), nil)
	require.True(t, g.Enabled())

	reply, err := g.Complete(context.Background(), conversation, WithTemperature(0.3))
	require.NoError(t, err)

	assert.Equal(t, "first", reply)
	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 0.3, got.Temperature)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0]["role"])
}

func TestOpenAI_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)
	}))
	defer srv.Close()

	cfg := baseAIConfig(srv.URL)
	cfg.Type = ProviderOpenAI
	cfg.OpenAI.APIKey = "sk-test"
	g := New(cfg, logger.NewNop(), nil)

	_, err := g.Complete(context.Background(), conversation)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ProviderOpenAI, perr.Provider)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
}
