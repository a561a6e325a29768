package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ai-task-manager-go/internal/config"
	"github.com/ai-task-manager-go/internal/models"
	"github.com/ai-task-manager-go/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type opRecorder struct {
	ops []string
}

func (r *opRecorder) RecordStorageOperation(operation, status string, duration time.Duration) {
	r.ops = append(r.ops, operation+":"+status)
}

type backendFactory func(t *testing.T) Storage

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		"memory": func(t *testing.T) Storage {
			return NewMemoryStorage(logger.NewNop())
		},
		"redis": func(t *testing.T) Storage {
			mr := miniredis.RunT(t)
			s, err := NewRedisStorage(context.Background(), config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "test"}, logger.NewNop())
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"sqlite": func(t *testing.T) Storage {
			s, err := NewSQLiteStorage(context.Background(), filepath.Join(t.TempDir(), "db", "tasks.db"), logger.NewNop())
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

// fixedClock returns a clock that advances by step on every call
func fixedClock(start time.Time, step time.Duration) func() time.Time {
	current := start.Add(-step)
	return func() time.Time {
		current = current.Add(step)
		return current
	}
}

func TestStorageContract(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Run("task lifecycle", func(t *testing.T) { testTaskLifecycle(t, factory(t)) })
			t.Run("tasks newest first", func(t *testing.T) { testTaskOrdering(t, factory(t)) })
			t.Run("missing tasks", func(t *testing.T) { testMissingTasks(t, factory(t)) })
			t.Run("messages ascending", func(t *testing.T) { testMessageOrdering(t, factory(t)) })
			t.Run("message ties keep insertion order", func(t *testing.T) { testMessageTies(t, factory(t)) })
			t.Run("clear history idempotent", func(t *testing.T) { testClearMessages(t, factory(t)) })
		})
	}
}

func testTaskLifecycle(t *testing.T, backend Storage) {
	ctx := context.Background()
	rec := &opRecorder{}
	m := NewManagerWithStorage(backend, "test", logger.NewNop(), rec)
	m.now = fixedClock(time.Date(2024, 1, 19, 8, 0, 0, 0, time.UTC), time.Second)

	due := time.Date(2024, 1, 20, 15, 0, 0, 0, time.UTC)
	created, err := m.CreateTask(ctx, &models.Task{
		Title:       "客户会议",
		DueDate:     &due,
		Tags:        []string{"工作"},
		IsImportant: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.PriorityMedium, created.Priority)
	assert.Equal(t, models.StatusTodo, created.Status)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := m.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "客户会议", got.Title)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))
	assert.Equal(t, []string{"工作"}, got.Tags)
	assert.True(t, got.IsImportant)
	assert.False(t, got.IsUrgent)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	title := "客户会议（改期）"
	urgent := true
	updated, err := m.UpdateTask(ctx, created.ID, models.TaskPatch{Title: &title, IsUrgent: &urgent, ClearDue: true})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.True(t, updated.IsUrgent)
	assert.True(t, updated.IsImportant, "untouched fields are kept")
	assert.Nil(t, updated.DueDate)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	completed, err := m.CompleteTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)

	got, err = m.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Nil(t, got.DueDate)

	tasks, messages, err := m.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tasks)
	assert.Equal(t, 0, messages)

	require.NoError(t, m.DeleteTask(ctx, created.ID))
	_, err = m.GetTask(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Contains(t, rec.ops, "create_task:success")
	assert.Contains(t, rec.ops, "get_task:success")
}

func testTaskOrdering(t *testing.T, backend Storage) {
	ctx := context.Background()
	m := NewManagerWithStorage(backend, "test", logger.NewNop(), nil)
	m.now = fixedClock(time.Date(2024, 1, 19, 8, 0, 0, 0, time.UTC), time.Millisecond)

	for _, title := range []string{"first", "second", "third"} {
		_, err := m.CreateTask(ctx, &models.Task{Title: title})
		require.NoError(t, err)
	}

	tasks, err := m.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "third", tasks[0].Title)
	assert.Equal(t, "second", tasks[1].Title)
	assert.Equal(t, "first", tasks[2].Title)
}

func testMissingTasks(t *testing.T, backend Storage) {
	ctx := context.Background()
	rec := &opRecorder{}
	m := NewManagerWithStorage(backend, "test", logger.NewNop(), rec)

	tasks, err := m.ListTasks(ctx)
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)

	_, err = m.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	title := "x"
	_, err = m.UpdateTask(ctx, "missing", models.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)

	err = m.DeleteTask(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "delete_task", serr.Op)
	assert.Contains(t, rec.ops, "delete_task:not_found")
}

func testMessageOrdering(t *testing.T, backend Storage) {
	ctx := context.Background()
	m := NewManagerWithStorage(backend, "test", logger.NewNop(), nil)
	m.now = fixedClock(time.Date(2024, 1, 19, 8, 0, 0, 0, time.UTC), time.Microsecond)

	_, err := m.InsertMessage(ctx, models.RoleUser, "你好")
	require.NoError(t, err)
	_, err = m.InsertMessage(ctx, models.RoleAssistant, "你好，有什么可以帮你？")
	require.NoError(t, err)
	_, err = m.InsertMessage(ctx, models.RoleUser, "明天下午3点开会")
	require.NoError(t, err)

	messages, err := m.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "你好", messages[0].Content)
	assert.Equal(t, models.RoleAssistant, messages[1].Role)
	assert.Equal(t, "明天下午3点开会", messages[2].Content)
	assert.NotEmpty(t, messages[0].ID)
	assert.True(t, messages[0].CreatedAt.Before(messages[2].CreatedAt))
}

func testMessageTies(t *testing.T, backend Storage) {
	ctx := context.Background()
	m := NewManagerWithStorage(backend, "test", logger.NewNop(), nil)
	frozen := time.Date(2024, 1, 19, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return frozen }

	contents := []string{"a", "b", "c", "d", "e"}
	for _, c := range contents {
		_, err := m.InsertMessage(ctx, models.RoleUser, c)
		require.NoError(t, err)
	}

	messages, err := m.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, len(contents))
	for i, c := range contents {
		assert.Equal(t, c, messages[i].Content)
	}
}

func testClearMessages(t *testing.T, backend Storage) {
	ctx := context.Background()
	m := NewManagerWithStorage(backend, "test", logger.NewNop(), nil)

	require.NoError(t, m.DeleteMessages(ctx))

	_, err := m.InsertMessage(ctx, models.RoleUser, "hi")
	require.NoError(t, err)
	require.NoError(t, m.DeleteMessages(ctx))
	require.NoError(t, m.DeleteMessages(ctx))

	messages, err := m.ListMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestNewManager_UnknownType(t *testing.T) {
	_, err := NewManager(context.Background(), config.StorageConfig{Type: "mongodb"}, logger.NewNop(), nil)
	assert.Error(t, err)
}

func TestNewManager_UnreachableRedisDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	m, err := NewManager(context.Background(), config.StorageConfig{
		Type:  "redis",
		Redis: config.RedisConfig{Addr: addr},
	}, logger.NewNop(), nil)
	require.NoError(t, err)

	ctx := context.Background()
	assert.Equal(t, "unavailable", m.Status(ctx))
	assert.Equal(t, "redis", m.Type())

	_, err = m.ListTasks(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = m.InsertMessage(ctx, models.RoleUser, "hi")
	assert.ErrorIs(t, err, ErrUnavailable)

	var serr *Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "insert_message", serr.Op)
}

func TestNewManager_Memory(t *testing.T) {
	m, err := NewManager(context.Background(), config.StorageConfig{Type: "memory"}, logger.NewNop(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", m.Status(context.Background()))
	assert.NoError(t, m.Close())
}

func TestRedisStorage_UsesKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStorage(context.Background(), config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "tm"}, logger.NewNop())
	require.NoError(t, err)
	defer s.Close()

	m := NewManagerWithStorage(s, "redis", logger.NewNop(), nil)
	_, err = m.CreateTask(context.Background(), &models.Task{Title: "x"})
	require.NoError(t, err)
	_, err = m.InsertMessage(context.Background(), models.RoleUser, "hi")
	require.NoError(t, err)

	assert.True(t, mr.Exists("tm:tasks"))
	assert.True(t, mr.Exists("tm:messages"))
}
