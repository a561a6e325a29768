package handlers

import (
	"errors"
	"net/http"

	"github.com/ai-task-manager-go/internal/i18n"
	"github.com/ai-task-manager-go/internal/middleware"
	"github.com/ai-task-manager-go/internal/models"
	"github.com/ai-task-manager-go/internal/services/conversation"
	"github.com/ai-task-manager-go/internal/services/storage"
	"github.com/ai-task-manager-go/pkg/markdown"
)

// MessageHandler serves the conversation endpoints
type MessageHandler struct {
	base
	bridge   *conversation.Bridge
	security *middleware.SecurityMiddleware
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(bridge *conversation.Bridge, security *middleware.SecurityMiddleware, b base) *MessageHandler {
	return &MessageHandler{
		base:     b,
		bridge:   bridge,
		security: security,
	}
}

type chatRequest struct {
	Content string `json:"content"`
}

// renderedMessage adds sanitized HTML to assistant turns
type renderedMessage struct {
	models.StoredMessage
	ContentHTML string `json:"contentHtml,omitempty"`
}

// chatFailure is returned when the provider failed but the notice was stored
type chatFailure struct {
	Error   string                `json:"error"`
	Message *models.StoredMessage `json:"message"`
}

// List returns the history, oldest first
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	messages, err := h.bridge.Messages(r.Context())
	if err != nil {
		h.storageError(w, r, err, i18n.MsgListMessagesFailed)
		return
	}

	if r.URL.Query().Get("format") != "html" {
		writeJSON(w, http.StatusOK, messages)
		return
	}

	rendered := make([]renderedMessage, len(messages))
	for i, msg := range messages {
		rendered[i] = renderedMessage{StoredMessage: msg}
		if msg.Role == models.RoleAssistant {
			rendered[i].ContentHTML = markdown.ToSafeHTML(msg.Content)
		}
	}
	writeJSON(w, http.StatusOK, rendered)
}

// Send runs one chat turn and returns the stored assistant reply
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.security.ValidateInput(req.Content); err != nil {
		h.badRequest(w, r, err)
		return
	}

	reply, err := h.bridge.Chat(r.Context(), req.Content, language(r))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, reply)
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrUnavailable), reply == nil:
		h.storageError(w, r, err, i18n.MsgSendMessageFailed)
	default:
		writeJSON(w, http.StatusBadGateway, chatFailure{Error: reply.Content, Message: reply})
	}
}

// Clear removes the whole history
func (h *MessageHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.bridge.ClearHistory(r.Context()); err != nil {
		h.storageError(w, r, err, i18n.MsgClearMessagesFailed)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: h.text(r, i18n.MsgHistoryCleared, nil)})
}
