package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ai-task-manager-go/internal/config"
	"github.com/ai-task-manager-go/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotFound is returned when a task id does not exist
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned when the backend cannot be reached
	ErrUnavailable = errors.New("storage unavailable")
)

// Error wraps a backend failure with the operation that caused it
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Storage interface defines backend operations
type Storage interface {
	// Task operations
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	// ListTasks returns tasks newest first
	ListTasks(ctx context.Context) ([]models.Task, error)
	// SaveTask replaces an existing task, ErrNotFound if it does not exist
	SaveTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id string) error
	CountTasks(ctx context.Context) (int, error)

	// Message operations
	InsertMessage(ctx context.Context, msg *models.StoredMessage) error
	// ListMessages returns messages by ascending creation time, insertion order on ties
	ListMessages(ctx context.Context) ([]models.StoredMessage, error)
	DeleteMessages(ctx context.Context) error
	CountMessages(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

// Recorder receives per-operation metrics
type Recorder interface {
	RecordStorageOperation(operation, status string, duration time.Duration)
}

// Manager owns the selected backend and assigns ids and timestamps
type Manager struct {
	storage  Storage
	kind     string
	logger   *logrus.Logger
	recorder Recorder
	now      func() time.Time
}

// NewManager creates a new storage manager. A backend that cannot be reached is replaced by a
// degraded one that fails every operation with ErrUnavailable; only an unknown type is an error.
func NewManager(ctx context.Context, cfg config.StorageConfig, logger *logrus.Logger, recorder Recorder) (*Manager, error) {
	var (
		storage Storage
		err     error
	)

	kind := strings.ToLower(cfg.Type)
	switch kind {
	case "memory":
		storage = NewMemoryStorage(logger)
	case "redis":
		storage, err = NewRedisStorage(ctx, cfg.Redis, logger)
	case "sqlite":
		storage, err = NewSQLiteStorage(ctx, cfg.SQLite.Path, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	if err != nil {
		logger.WithError(err).WithField("type", kind).Error("Storage backend unreachable, running degraded")
		storage = NewUnavailableStorage(err)
	}

	m := NewManagerWithStorage(storage, kind, logger, recorder)
	return m, nil
}

// NewManagerWithStorage wraps an already constructed backend
func NewManagerWithStorage(storage Storage, kind string, logger *logrus.Logger, recorder Recorder) *Manager {
	return &Manager{
		storage:  storage,
		kind:     kind,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
	}
}

// Type returns the configured backend type
func (m *Manager) Type() string {
	return m.kind
}

// Status returns "ok" when the backend answers a ping, otherwise "unavailable"
func (m *Manager) Status(ctx context.Context) string {
	if err := m.storage.Ping(ctx); err != nil {
		return "unavailable"
	}
	return "ok"
}

// Close releases the backend
func (m *Manager) Close() error {
	return m.storage.Close()
}

func (m *Manager) observe(op string, start time.Time, err error) error {
	status := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	if m.recorder != nil {
		m.recorder.RecordStorageOperation(op, status, time.Since(start))
	}
	if err == nil {
		return nil
	}
	if status == "error" {
		m.logger.WithError(err).WithField("op", op).Error("Storage operation failed")
	}
	return &Error{Op: op, Err: err}
}

// CreateTask assigns id and timestamps, applies defaults and stores the task
func (m *Manager) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	start := time.Now()
	now := m.now().UTC()

	stored := *task
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.ApplyDefaults()

	if err := m.observe("create_task", start, m.storage.CreateTask(ctx, &stored)); err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetTask fetches a task by id
func (m *Manager) GetTask(ctx context.Context, id string) (*models.Task, error) {
	start := time.Now()
	task, err := m.storage.GetTask(ctx, id)
	if err := m.observe("get_task", start, err); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns all tasks, newest first
func (m *Manager) ListTasks(ctx context.Context) ([]models.Task, error) {
	start := time.Now()
	tasks, err := m.storage.ListTasks(ctx)
	if err := m.observe("list_tasks", start, err); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// UpdateTask applies a partial update and returns the stored result
func (m *Manager) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	start := time.Now()
	task, err := m.storage.GetTask(ctx, id)
	if err == nil {
		patch.Apply(task, m.now().UTC())
		err = m.storage.SaveTask(ctx, task)
	}
	if err := m.observe("update_task", start, err); err != nil {
		return nil, err
	}
	return task, nil
}

// CompleteTask marks a task completed
func (m *Manager) CompleteTask(ctx context.Context, id string) (*models.Task, error) {
	status := models.StatusCompleted
	return m.UpdateTask(ctx, id, models.TaskPatch{Status: &status})
}

// DeleteTask removes a task
func (m *Manager) DeleteTask(ctx context.Context, id string) error {
	start := time.Now()
	return m.observe("delete_task", start, m.storage.DeleteTask(ctx, id))
}

// InsertMessage assigns id and timestamp and stores a conversation turn
func (m *Manager) InsertMessage(ctx context.Context, role, content string) (*models.StoredMessage, error) {
	start := time.Now()
	msg := &models.StoredMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: m.now().UTC(),
	}
	if err := m.observe("insert_message", start, m.storage.InsertMessage(ctx, msg)); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns the conversation history, oldest first
func (m *Manager) ListMessages(ctx context.Context) ([]models.StoredMessage, error) {
	start := time.Now()
	messages, err := m.storage.ListMessages(ctx)
	if err := m.observe("list_messages", start, err); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.StoredMessage{}
	}
	return messages, nil
}

// DeleteMessages clears the conversation history
func (m *Manager) DeleteMessages(ctx context.Context) error {
	start := time.Now()
	return m.observe("delete_messages", start, m.storage.DeleteMessages(ctx))
}

// Counts returns the number of stored tasks and messages
func (m *Manager) Counts(ctx context.Context) (tasks, messages int, err error) {
	if tasks, err = m.storage.CountTasks(ctx); err != nil {
		return 0, 0, &Error{Op: "count_tasks", Err: err}
	}
	if messages, err = m.storage.CountMessages(ctx); err != nil {
		return 0, 0, &Error{Op: "count_messages", Err: err}
	}
	return tasks, messages, nil
}
