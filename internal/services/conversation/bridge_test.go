package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ai-task-manager-go/internal/config"
	"github.com/ai-task-manager-go/internal/i18n"
	"github.com/ai-task-manager-go/internal/models"
	"github.com/ai-task-manager-go/internal/services/ai"
	"github.com/ai-task-manager-go/internal/services/assistant"
	"github.com/ai-task-manager-go/internal/services/storage"
	"github.com/ai-task-manager-go/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	enabled bool
	reply   string
	err     error
	sent    [][]models.ChatMessage
}

func (f *fakeGateway) Enabled() bool { return f.enabled }

func (f *fakeGateway) Provider() string { return "fake" }

func (f *fakeGateway) Complete(ctx context.Context, messages []models.ChatMessage, opts ...ai.CallOption) (string, error) {
	if !f.enabled {
		return "", ai.ErrGatewayDisabled
	}
	f.sent = append(f.sent, messages)
	return f.reply, f.err
}

func newBridge(t *testing.T, gw *fakeGateway, maxMessages int) (*Bridge, *storage.Manager) {
	t.Helper()
	store := storage.NewManagerWithStorage(storage.NewMemoryStorage(logger.NewNop()), "memory", logger.NewNop(), nil)
	localizer, err := i18n.NewLocalizer(config.I18nConfig{DefaultLanguage: "zh-CN"})
	require.NoError(t, err)
	return NewBridge(store, gw, localizer, maxMessages, logger.NewNop()), store
}

func TestChat_DisabledPersistsFallback(t *testing.T) {
	gw := &fakeGateway{}
	bridge, store := newBridge(t, gw, 0)
	ctx := context.Background()

	reply, err := bridge.Chat(ctx, "帮我安排明天的会议", "")
	require.NoError(t, err)

	localizer, err := i18n.NewLocalizer(config.I18nConfig{DefaultLanguage: "zh-CN"})
	require.NoError(t, err)
	want := localizer.Get("zh-CN", i18n.MsgAINotConfigured, nil)

	assert.Equal(t, models.RoleAssistant, reply.Role)
	assert.Equal(t, want, reply.Content)
	assert.Empty(t, gw.sent)

	messages, err := store.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, "帮我安排明天的会议", messages[0].Content)
	assert.Equal(t, models.RoleAssistant, messages[1].Role)
	assert.Equal(t, want, messages[1].Content)
}

func TestChat_SendsPersonaAndHistory(t *testing.T) {
	gw := &fakeGateway{enabled: true, reply: "好的，已记录"}
	bridge, _ := newBridge(t, gw, 0)
	ctx := context.Background()

	_, err := bridge.Chat(ctx, "你好", "zh-CN")
	require.NoError(t, err)
	reply, err := bridge.Chat(ctx, "明天下午3点开会", "zh-CN")
	require.NoError(t, err)
	assert.Equal(t, "好的，已记录", reply.Content)
	assert.NotEmpty(t, reply.ID)

	require.Len(t, gw.sent, 2)
	second := gw.sent[1]
	require.Len(t, second, 4)
	assert.Equal(t, models.ChatMessage{Role: models.RoleSystem, Content: assistant.PersonaPrompt}, second[0])
	assert.Equal(t, models.ChatMessage{Role: models.RoleUser, Content: "你好"}, second[1])
	assert.Equal(t, models.ChatMessage{Role: models.RoleAssistant, Content: "好的，已记录"}, second[2])
	assert.Equal(t, models.ChatMessage{Role: models.RoleUser, Content: "明天下午3点开会"}, second[3])

	history, err := bridge.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestChat_MaxMessagesTrimsHistory(t *testing.T) {
	gw := &fakeGateway{enabled: true, reply: "ok"}
	bridge, _ := newBridge(t, gw, 2)
	ctx := context.Background()

	for _, msg := range []string{"one", "two", "three"} {
		_, err := bridge.Chat(ctx, msg, "")
		require.NoError(t, err)
	}

	last := gw.sent[len(gw.sent)-1]
	require.Len(t, last, 3)
	assert.Equal(t, models.RoleSystem, last[0].Role)
	assert.Equal(t, models.ChatMessage{Role: models.RoleAssistant, Content: "ok"}, last[1])
	assert.Equal(t, models.ChatMessage{Role: models.RoleUser, Content: "three"}, last[2])
}

func TestChat_ProviderFailurePersistsNotice(t *testing.T) {
	perr := &ai.ProviderError{Provider: "deepseek", Err: errors.New("DeepSeek API error: Insufficient Balance")}
	gw := &fakeGateway{enabled: true, err: perr}
	bridge, store := newBridge(t, gw, 0)
	ctx := context.Background()

	reply, err := bridge.Chat(ctx, "你好", "zh-CN")

	var got *ai.ProviderError
	require.ErrorAs(t, err, &got)
	require.NotNil(t, reply)
	assert.Equal(t, "AI助手回复失败: deepseek: DeepSeek API error: Insufficient Balance", reply.Content)

	messages, err := store.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "你好", messages[0].Content)
	assert.Equal(t, reply.Content, messages[1].Content)
}

func TestChat_StoreFailureIsNotAGatewayError(t *testing.T) {
	gw := &fakeGateway{enabled: true, reply: "ok"}
	store := storage.NewManagerWithStorage(storage.NewUnavailableStorage(errors.New("dial tcp: refused")), "redis", logger.NewNop(), nil)
	localizer, err := i18n.NewLocalizer(config.I18nConfig{})
	require.NoError(t, err)
	bridge := NewBridge(store, gw, localizer, 0, logger.NewNop())

	reply, err := bridge.Chat(context.Background(), "你好", "")
	assert.Nil(t, reply)
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	var perr *ai.ProviderError
	assert.False(t, errors.As(err, &perr))
	assert.Empty(t, gw.sent, "the gateway is not called when the user turn cannot be stored")
}

func TestClearHistory(t *testing.T) {
	bridge, _ := newBridge(t, &fakeGateway{}, 0)
	ctx := context.Background()

	require.NoError(t, bridge.ClearHistory(ctx))

	_, err := bridge.AppendTurn(ctx, models.RoleUser, "hi")
	require.NoError(t, err)
	require.NoError(t, bridge.ClearHistory(ctx))
	require.NoError(t, bridge.ClearHistory(ctx))

	messages, err := bridge.Messages(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

// abortingGateway simulates a client that disconnects while the provider call is in flight
type abortingGateway struct {
	cancel context.CancelFunc
}

func (g *abortingGateway) Enabled() bool { return true }

func (g *abortingGateway) Provider() string { return "deepseek" }

func (g *abortingGateway) Complete(ctx context.Context, messages []models.ChatMessage, opts ...ai.CallOption) (string, error) {
	g.cancel()
	return "", &ai.ProviderError{Provider: "deepseek", Err: ctx.Err()}
}

func TestChat_ClientAbortStillPersistsAssistantTurn(t *testing.T) {
	log := logger.NewNop()
	backend, err := storage.NewSQLiteStorage(context.Background(), filepath.Join(t.TempDir(), "chat.db"), log)
	require.NoError(t, err)
	store := storage.NewManagerWithStorage(backend, "sqlite", log, nil)
	t.Cleanup(func() { _ = store.Close() })

	localizer, err := i18n.NewLocalizer(config.I18nConfig{DefaultLanguage: "zh-CN"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bridge := NewBridge(store, &abortingGateway{cancel: cancel}, localizer, 0, log)

	reply, err := bridge.Chat(ctx, "你好", "zh-CN")

	var perr *ai.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.False(t, errors.Is(err, storage.ErrUnavailable))
	require.NotNil(t, reply)
	assert.Equal(t, models.RoleAssistant, reply.Role)
	assert.Contains(t, reply.Content, "AI助手回复失败")

	messages, err := store.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, models.RoleAssistant, messages[1].Role)
}
