package conversation

import (
	"context"
	"errors"

	"github.com/ai-task-manager-go/internal/i18n"
	"github.com/ai-task-manager-go/internal/models"
	"github.com/ai-task-manager-go/internal/services/ai"
	"github.com/ai-task-manager-go/internal/services/assistant"
	"github.com/sirupsen/logrus"
)

// Store persists conversation turns
type Store interface {
	InsertMessage(ctx context.Context, role, content string) (*models.StoredMessage, error)
	ListMessages(ctx context.Context) ([]models.StoredMessage, error)
	DeleteMessages(ctx context.Context) error
}

// Translator renders localized text
type Translator interface {
	Get(lang, messageID string, data map[string]interface{}) string
}

// Bridge connects the persisted conversation history to the AI gateway
type Bridge struct {
	store       Store
	gateway     assistant.Completer
	translator  Translator
	maxMessages int
	logger      *logrus.Logger
}

// NewBridge creates a bridge. maxMessages bounds the history sent to the model; 0 sends all of it.
func NewBridge(store Store, gateway assistant.Completer, translator Translator, maxMessages int, logger *logrus.Logger) *Bridge {
	return &Bridge{
		store:       store,
		gateway:     gateway,
		translator:  translator,
		maxMessages: maxMessages,
		logger:      logger,
	}
}

// AppendTurn persists one turn with a server-assigned id and timestamp
func (b *Bridge) AppendTurn(ctx context.Context, role, content string) (*models.StoredMessage, error) {
	return b.store.InsertMessage(ctx, role, content)
}

// Messages returns the stored history, oldest first
func (b *Bridge) Messages(ctx context.Context) ([]models.StoredMessage, error) {
	return b.store.ListMessages(ctx)
}

// LoadHistory returns the history as chat messages, oldest first
func (b *Bridge) LoadHistory(ctx context.Context) ([]models.ChatMessage, error) {
	stored, err := b.store.ListMessages(ctx)
	if err != nil {
		return nil, err
	}
	history := make([]models.ChatMessage, len(stored))
	for i, msg := range stored {
		history[i] = msg.ChatMessage()
	}
	return history, nil
}

// ClearHistory removes every stored turn; clearing an empty history succeeds
func (b *Bridge) ClearHistory(ctx context.Context) error {
	return b.store.DeleteMessages(ctx)
}

// Chat runs one conversation turn. The user turn is always persisted first. When the gateway
// is disabled the configuration instructions are stored as the reply. When the gateway call
// fails a failure notice is stored as the reply and returned together with the gateway error.
// Store failures are returned as-is and take precedence.
func (b *Bridge) Chat(ctx context.Context, content, lang string) (*models.StoredMessage, error) {
	if _, err := b.AppendTurn(ctx, models.RoleUser, content); err != nil {
		return nil, err
	}

	if !b.gateway.Enabled() {
		return b.AppendTurn(ctx, models.RoleAssistant, b.translator.Get(lang, i18n.MsgAINotConfigured, nil))
	}

	history, err := b.LoadHistory(ctx)
	if err != nil {
		return nil, err
	}
	if b.maxMessages > 0 && len(history) > b.maxMessages {
		history = history[len(history)-b.maxMessages:]
	}

	messages := make([]models.ChatMessage, 0, len(history)+1)
	messages = append(messages, models.ChatMessage{Role: models.RoleSystem, Content: assistant.PersonaPrompt})
	messages = append(messages, history...)

	reply, err := b.gateway.Complete(ctx, messages)

	// The reply turn must land even if the caller went away during the call
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		if errors.Is(err, ai.ErrGatewayDisabled) {
			return b.AppendTurn(ctx, models.RoleAssistant, b.translator.Get(lang, i18n.MsgAINotConfigured, nil))
		}

		b.logger.WithError(err).WithField("provider", b.gateway.Provider()).Warn("Chat turn failed")
		notice := b.translator.Get(lang, i18n.MsgAIReplyFailed, map[string]interface{}{"Detail": err.Error()})
		stored, storeErr := b.AppendTurn(ctx, models.RoleAssistant, notice)
		if storeErr != nil {
			return nil, storeErr
		}
		return stored, err
	}

	return b.AppendTurn(ctx, models.RoleAssistant, reply)
}
