package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"

	"github.com/ai-task-manager-go/internal/config"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
}

// NewLocalizer creates a new localizer from the embedded message files
func NewLocalizer(cfg config.I18nConfig) (*Localizer, error) {
	defaultLanguage := cfg.DefaultLanguage
	if defaultLanguage == "" {
		defaultLanguage = "zh-CN"
	}
	tag, err := language.Parse(defaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", defaultLanguage, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := fs.Glob(localeFS, "locales/*.json")
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", path.Base(file), err)
		}
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: defaultLanguage,
	}, nil
}

// DefaultLanguage returns the configured fallback language
func (l *Localizer) DefaultLanguage() string {
	return l.defaultLanguage
}

// Get returns localized message. lang may be a language tag or an Accept-Language header value.
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer := i18n.NewLocalizer(l.bundle, lang, l.defaultLanguage)

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Message IDs
const (
	MsgHealthOK             = "health_ok"
	MsgAINotConfigured      = "ai_not_configured"
	MsgAnalyzeNotConfigured = "analyze_not_configured"
	MsgAIReplyFailed        = "ai_reply_failed"
	MsgAnalyzeFailed        = "analyze_failed"
	MsgParseFailed          = "parse_failed"
	MsgClassifyFailed       = "classify_failed"
	MsgRateLimitExceeded    = "rate_limit_exceeded"
	MsgInvalidRequest       = "invalid_request"
	MsgTitleRequired        = "title_required"
	MsgInvalidPriority      = "invalid_priority"
	MsgInvalidStatus        = "invalid_status"
	MsgTaskNotFound         = "task_not_found"
	MsgTaskDeleted          = "task_deleted"
	MsgHistoryCleared       = "history_cleared"
	MsgStorageUnavailable   = "storage_unavailable"
	MsgListTasksFailed      = "list_tasks_failed"
	MsgCreateTaskFailed     = "create_task_failed"
	MsgUpdateTaskFailed     = "update_task_failed"
	MsgDeleteTaskFailed     = "delete_task_failed"
	MsgCompleteTaskFailed   = "complete_task_failed"
	MsgQuadrantFailed       = "quadrant_failed"
	MsgListMessagesFailed   = "list_messages_failed"
	MsgClearMessagesFailed  = "clear_messages_failed"
	MsgSendMessageFailed    = "send_message_failed"
)
