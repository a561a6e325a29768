package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ai-task-manager-go/internal/i18n"
	"github.com/ai-task-manager-go/internal/models"
	"github.com/ai-task-manager-go/internal/services/assistant"
	"github.com/ai-task-manager-go/internal/services/storage"
	"github.com/gorilla/mux"
)

// TaskHandler serves task CRUD and the quadrant view
type TaskHandler struct {
	base
	storage   *storage.Manager
	assistant *assistant.Service
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(storage *storage.Manager, assistant *assistant.Service, b base) *TaskHandler {
	return &TaskHandler{
		base:      b,
		storage:   storage,
		assistant: assistant,
	}
}

// taskRequest is the body of create and update calls. Pointer fields distinguish
// "absent" from "zero" for partial updates; dueDate is kept raw so null clears it.
type taskRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	DueDate     json.RawMessage  `json:"dueDate"`
	Priority    *models.Priority `json:"priority"`
	Status      *models.Status   `json:"status"`
	Tags        []string         `json:"tags"`
	Category    *string          `json:"category"`
	IsImportant *bool            `json:"isImportant"`
	IsUrgent    *bool            `json:"isUrgent"`
}

// validationError carries a localized message id and its template data
type validationError struct {
	id   string
	data map[string]interface{}
}

func (e *validationError) Error() string {
	return e.id
}

// patch validates the request and converts it to a TaskPatch
func (req taskRequest) patch() (models.TaskPatch, error) {
	p := models.TaskPatch{
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		Tags:        req.Tags,
		Category:    req.Category,
		IsImportant: req.IsImportant,
		IsUrgent:    req.IsUrgent,
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return p, &validationError{id: i18n.MsgTitleRequired}
		}
		p.Title = &title
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return p, &validationError{id: i18n.MsgInvalidPriority, data: map[string]interface{}{"Value": *req.Priority}}
	}
	if req.Status != nil && !req.Status.Valid() {
		return p, &validationError{id: i18n.MsgInvalidStatus, data: map[string]interface{}{"Value": *req.Status}}
	}

	if len(req.DueDate) > 0 {
		var raw *string
		if err := json.Unmarshal(req.DueDate, &raw); err != nil {
			return p, &validationError{id: i18n.MsgInvalidRequest, data: map[string]interface{}{"Detail": "dueDate must be a string or null"}}
		}
		switch {
		case raw == nil || strings.TrimSpace(*raw) == "":
			p.ClearDue = true
		default:
			due := models.ParseDueDate(*raw)
			if due == nil {
				return p, &validationError{id: i18n.MsgInvalidRequest, data: map[string]interface{}{"Detail": fmt.Sprintf("unrecognized dueDate %q", *raw)}}
			}
			p.DueDate = due
		}
	}

	return p, nil
}

func (h *TaskHandler) decode(w http.ResponseWriter, r *http.Request) (models.TaskPatch, bool) {
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return models.TaskPatch{}, false
	}
	p, err := req.patch()
	if verr, ok := err.(*validationError); ok {
		writeError(w, http.StatusBadRequest, h.text(r, verr.id, verr.data))
		return p, false
	}
	if req.Title == nil && r.Method == http.MethodPost {
		writeError(w, http.StatusBadRequest, h.text(r, i18n.MsgTitleRequired, nil))
		return p, false
	}
	return p, true
}

// List returns every task, newest first
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.storage.ListTasks(r.Context())
	if err != nil {
		h.storageError(w, r, err, i18n.MsgListTasksFailed)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Create stores a new task
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decode(w, r)
	if !ok {
		return
	}

	task := &models.Task{}
	p.Apply(task, time.Time{})

	created, err := h.storage.CreateTask(r.Context(), task)
	if err != nil {
		h.storageError(w, r, err, i18n.MsgCreateTaskFailed)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get returns one task
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.storage.GetTask(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.storageError(w, r, err, i18n.MsgListTasksFailed)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Update applies a partial update
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decode(w, r)
	if !ok {
		return
	}

	task, err := h.storage.UpdateTask(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		h.storageError(w, r, err, i18n.MsgUpdateTaskFailed)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete removes a task
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.DeleteTask(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.storageError(w, r, err, i18n.MsgDeleteTaskFailed)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: h.text(r, i18n.MsgTaskDeleted, nil)})
}

// Complete marks a task completed
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	task, err := h.storage.CompleteTask(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.storageError(w, r, err, i18n.MsgCompleteTaskFailed)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Quadrant partitions every task by its flags. With mode=ai and a configured gateway the
// classifier decides instead; a classifier failure falls back to the flags.
func (h *TaskHandler) Quadrant(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.storage.ListTasks(r.Context())
	if err != nil {
		h.storageError(w, r, err, i18n.MsgQuadrantFailed)
		return
	}

	if r.URL.Query().Get("mode") == "ai" && h.assistant.Enabled() {
		partition, err := h.assistant.Classify(r.Context(), tasks)
		if err == nil {
			writeJSON(w, http.StatusOK, partition)
			return
		}
		h.logger.WithError(err).Warn("AI classification failed, partitioning by flags")
	}

	writeJSON(w, http.StatusOK, assistant.PartitionByFlags(tasks))
}
