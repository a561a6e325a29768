package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ai-task-manager-go/internal/models"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

type memoryTask struct {
	seq  uint64
	task models.Task
}

type memoryMessage struct {
	seq uint64
	msg models.StoredMessage
}

// MemoryStorage implements storage using in-memory cache
type MemoryStorage struct {
	mu       sync.Mutex
	seq      uint64
	tasks    *cache.Cache
	messages *cache.Cache
	logger   *logrus.Logger
}

func NewMemoryStorage(logger *logrus.Logger) *MemoryStorage {
	return &MemoryStorage{
		tasks:    cache.New(cache.NoExpiration, cache.NoExpiration),
		messages: cache.New(cache.NoExpiration, cache.NoExpiration),
		logger:   logger,
	}
}

func (m *MemoryStorage) nextSeq() uint64 {
	m.seq++
	return m.seq
}

func copyTask(t models.Task) *models.Task {
	out := t
	out.Tags = append([]string{}, t.Tags...)
	if t.DueDate != nil {
		due := *t.DueDate
		out.DueDate = &due
	}
	return &out
}

func (m *MemoryStorage) CreateTask(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, found := m.tasks.Get(task.ID); found {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	m.tasks.Set(task.ID, &memoryTask{seq: m.nextSeq(), task: *copyTask(*task)}, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) GetTask(ctx context.Context, id string) (*models.Task, error) {
	if val, found := m.tasks.Get(id); found {
		return copyTask(val.(*memoryTask).task), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) ListTasks(ctx context.Context) ([]models.Task, error) {
	items := m.tasks.Items()
	records := make([]*memoryTask, 0, len(items))
	for _, item := range items {
		records = append(records, item.Object.(*memoryTask))
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.task.CreatedAt.Equal(b.task.CreatedAt) {
			return a.task.CreatedAt.After(b.task.CreatedAt)
		}
		return a.seq > b.seq
	})

	tasks := make([]models.Task, len(records))
	for i, r := range records {
		tasks[i] = *copyTask(r.task)
	}
	return tasks, nil
}

func (m *MemoryStorage) SaveTask(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	val, found := m.tasks.Get(task.ID)
	if !found {
		return ErrNotFound
	}
	m.tasks.Set(task.ID, &memoryTask{seq: val.(*memoryTask).seq, task: *copyTask(*task)}, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) DeleteTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, found := m.tasks.Get(id); !found {
		return ErrNotFound
	}
	m.tasks.Delete(id)
	return nil
}

func (m *MemoryStorage) CountTasks(ctx context.Context) (int, error) {
	return m.tasks.ItemCount(), nil
}

func (m *MemoryStorage) InsertMessage(ctx context.Context, msg *models.StoredMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seq := m.nextSeq()
	m.messages.Set(fmt.Sprintf("%020d", seq), &memoryMessage{seq: seq, msg: *msg}, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) ListMessages(ctx context.Context) ([]models.StoredMessage, error) {
	items := m.messages.Items()
	records := make([]*memoryMessage, 0, len(items))
	for _, item := range items {
		records = append(records, item.Object.(*memoryMessage))
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.msg.CreatedAt.Equal(b.msg.CreatedAt) {
			return a.msg.CreatedAt.Before(b.msg.CreatedAt)
		}
		return a.seq < b.seq
	})

	messages := make([]models.StoredMessage, len(records))
	for i, r := range records {
		messages[i] = r.msg
	}
	return messages, nil
}

func (m *MemoryStorage) DeleteMessages(ctx context.Context) error {
	m.messages.Flush()
	return nil
}

func (m *MemoryStorage) CountMessages(ctx context.Context) (int, error) {
	return m.messages.ItemCount(), nil
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
