package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ai-task-manager-go/internal/i18n"
	"github.com/ai-task-manager-go/internal/models"
	"github.com/ai-task-manager-go/internal/services/ai"
	"github.com/ai-task-manager-go/internal/services/assistant"
	"github.com/ai-task-manager-go/internal/services/storage"
)

// GatewayStatus reports which provider, if any, answers AI requests
type GatewayStatus interface {
	Enabled() bool
	Provider() string
}

// AssistantHandler serves the /api/ai endpoints
type AssistantHandler struct {
	base
	gateway   GatewayStatus
	assistant *assistant.Service
	storage   *storage.Manager
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(gateway GatewayStatus, assistant *assistant.Service, storage *storage.Manager, b base) *AssistantHandler {
	return &AssistantHandler{
		base:      b,
		gateway:   gateway,
		assistant: assistant,
		storage:   storage,
	}
}

type aiStatus struct {
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider"`
}

type parseTaskRequest struct {
	Input  string `json:"input"`
	Create bool   `json:"create"`
}

// tasksRequest carries an optional task list; absent means "all stored tasks"
type tasksRequest struct {
	Tasks *[]models.Task `json:"tasks"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type statsRequest struct {
	Stats interface{} `json:"stats"`
}

// Status reports whether AI features are available
func (h *AssistantHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, aiStatus{Enabled: h.gateway.Enabled(), Provider: h.gateway.Provider()})
}

// aiFailure maps a failed model call to 403, 502 or 500
func (h *AssistantHandler) aiFailure(w http.ResponseWriter, r *http.Request, err error, failedID string) {
	var providerErr *ai.ProviderError
	switch {
	case errors.Is(err, ai.ErrGatewayDisabled):
		writeError(w, http.StatusForbidden, h.text(r, i18n.MsgAINotConfigured, nil))
	case errors.As(err, &providerErr):
		writeError(w, http.StatusBadGateway, h.text(r, failedID, map[string]interface{}{"Detail": err.Error()}))
	default:
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("AI request failed")
		writeError(w, http.StatusInternalServerError, h.text(r, failedID, map[string]interface{}{"Detail": err.Error()}))
	}
}

// ParseTask turns free text into a task draft, optionally storing it
func (h *AssistantHandler) ParseTask(w http.ResponseWriter, r *http.Request) {
	var req parseTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		h.badRequest(w, r, errors.New("input is required"))
		return
	}
	if !h.assistant.Enabled() {
		writeError(w, http.StatusForbidden, h.text(r, i18n.MsgAINotConfigured, nil))
		return
	}

	draft, err := h.assistant.ParseTask(r.Context(), req.Input)
	if err != nil {
		var extractErr *assistant.ExtractionError
		if errors.As(err, &extractErr) {
			writeError(w, http.StatusUnprocessableEntity, h.text(r, i18n.MsgParseFailed, map[string]interface{}{"Detail": extractErr.Reason}))
			return
		}
		h.aiFailure(w, r, err, i18n.MsgParseFailed)
		return
	}

	if !req.Create {
		writeJSON(w, http.StatusOK, draft)
		return
	}

	task, err := h.storage.CreateTask(r.Context(), draft.ToTask())
	if err != nil {
		h.storageError(w, r, err, i18n.MsgCreateTaskFailed)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// tasks returns the tasks named in the body, or every stored task when none were sent
func (h *AssistantHandler) tasks(w http.ResponseWriter, r *http.Request, failedID string) ([]models.Task, bool) {
	var req tasksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return nil, false
	}
	if req.Tasks != nil {
		return *req.Tasks, true
	}

	tasks, err := h.storage.ListTasks(r.Context())
	if err != nil {
		h.storageError(w, r, err, failedID)
		return nil, false
	}
	return tasks, true
}

// Classify buckets tasks into the four quadrants using the model
func (h *AssistantHandler) Classify(w http.ResponseWriter, r *http.Request) {
	if !h.assistant.Enabled() {
		writeError(w, http.StatusForbidden, h.text(r, i18n.MsgAINotConfigured, nil))
		return
	}
	tasks, ok := h.tasks(w, r, i18n.MsgQuadrantFailed)
	if !ok {
		return
	}

	partition, err := h.assistant.Classify(r.Context(), tasks)
	if err != nil {
		var classifyErr *assistant.ClassificationError
		if errors.As(err, &classifyErr) {
			writeError(w, http.StatusUnprocessableEntity, h.text(r, i18n.MsgClassifyFailed, map[string]interface{}{"Detail": classifyErr.Reason}))
			return
		}
		h.aiFailure(w, r, err, i18n.MsgClassifyFailed)
		return
	}
	writeJSON(w, http.StatusOK, partition)
}

// AnalyzeTasks returns a free-text analysis of the tasks
func (h *AssistantHandler) AnalyzeTasks(w http.ResponseWriter, r *http.Request) {
	if !h.assistant.Enabled() {
		writeError(w, http.StatusForbidden, h.text(r, i18n.MsgAnalyzeNotConfigured, nil))
		return
	}
	tasks, ok := h.tasks(w, r, i18n.MsgListTasksFailed)
	if !ok {
		return
	}

	analysis, err := h.assistant.AnalyzeTasks(r.Context(), tasks)
	if err != nil {
		h.aiFailure(w, r, err, i18n.MsgAnalyzeFailed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"analysis": analysis})
}

// FocusPrompt returns a motivational line for one task
func (h *AssistantHandler) FocusPrompt(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, h.text(r, i18n.MsgTitleRequired, nil))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": h.assistant.FocusPrompt(r.Context(), req.Title)})
}

// StatsSummary turns task statistics into a short summary
func (h *AssistantHandler) StatsSummary(w http.ResponseWriter, r *http.Request) {
	var req statsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": h.assistant.StatsSummary(r.Context(), req.Stats)})
}
