package i18n

import (
	"strings"
	"testing"

	"github.com/ai-task-manager-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalizer_Get(t *testing.T) {
	l, err := NewLocalizer(config.I18nConfig{DefaultLanguage: "zh-CN"})
	require.NoError(t, err)

	zh := l.Get("zh-CN", MsgAINotConfigured, nil)
	assert.True(t, strings.HasPrefix(zh, "AI功能尚未配置。"))
	assert.Contains(t, zh, "DEEPSEEK_API_KEY")

	assert.Equal(t, "AI助手回复失败: timeout", l.Get("zh-CN", MsgAIReplyFailed, map[string]interface{}{"Detail": "timeout"}))
	assert.Equal(t, "AI assistant failed to reply: timeout", l.Get("en", MsgAIReplyFailed, map[string]interface{}{"Detail": "timeout"}))
}

func TestLocalizer_FallsBackToDefaultLanguage(t *testing.T) {
	l, err := NewLocalizer(config.I18nConfig{})
	require.NoError(t, err)
	assert.Equal(t, "zh-CN", l.DefaultLanguage())

	assert.Equal(t, "任务不存在", l.Get("", MsgTaskNotFound, nil))
	assert.Equal(t, "任务不存在", l.Get("fr-FR", MsgTaskNotFound, nil))
	assert.Equal(t, "Task not found", l.Get("en-US,en;q=0.9", MsgTaskNotFound, nil))
}

func TestLocalizer_UnknownMessageID(t *testing.T) {
	l, err := NewLocalizer(config.I18nConfig{DefaultLanguage: "en"})
	require.NoError(t, err)
	assert.Equal(t, "no_such_message", l.Get("en", "no_such_message", nil))
}

func TestNewLocalizer_InvalidLanguage(t *testing.T) {
	_, err := NewLocalizer(config.I18nConfig{DefaultLanguage: "not a language!"})
	assert.Error(t, err)
}

func TestLocaleFilesDefineSameMessages(t *testing.T) {
	l, err := NewLocalizer(config.I18nConfig{DefaultLanguage: "zh-CN"})
	require.NoError(t, err)

	ids := []string{
		MsgHealthOK, MsgAINotConfigured, MsgAnalyzeNotConfigured, MsgAIReplyFailed, MsgAnalyzeFailed,
		MsgParseFailed, MsgClassifyFailed, MsgRateLimitExceeded, MsgInvalidRequest, MsgTitleRequired,
		MsgInvalidPriority, MsgInvalidStatus, MsgTaskNotFound, MsgTaskDeleted, MsgHistoryCleared,
		MsgStorageUnavailable, MsgListTasksFailed, MsgCreateTaskFailed, MsgUpdateTaskFailed,
		MsgDeleteTaskFailed, MsgCompleteTaskFailed, MsgQuadrantFailed, MsgListMessagesFailed,
		MsgClearMessagesFailed, MsgSendMessageFailed,
	}
	data := map[string]interface{}{"Detail": "d", "Value": "v"}
	for _, id := range ids {
		for _, lang := range []string{"zh-CN", "en"} {
			assert.NotEqual(t, id, l.Get(lang, id, data), "%s missing in %s", id, lang)
		}
	}
}
