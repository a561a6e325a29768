package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ai-task-manager-go/internal/config"
	"github.com/ai-task-manager-go/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// redisTask is the JSON value stored per hash field
type redisTask struct {
	Seq  int64       `json:"seq"`
	Task models.Task `json:"task"`
}

// RedisStorage implements storage using Redis.
// Tasks live in one hash keyed by id, messages in one list in insertion order.
type RedisStorage struct {
	client *redis.Client
	prefix string
	logger *logrus.Logger
}

func NewRedisStorage(ctx context.Context, cfg config.RedisConfig, logger *logrus.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "taskmanager"
	}

	return &RedisStorage{
		client: client,
		prefix: prefix,
		logger: logger,
	}, nil
}

func (r *RedisStorage) key(name string) string {
	return fmt.Sprintf("%s:%s", r.prefix, name)
}

func (r *RedisStorage) CreateTask(ctx context.Context, task *models.Task) error {
	seq, err := r.client.Incr(ctx, r.key("task_seq")).Result()
	if err != nil {
		return err
	}
	data, err := json.Marshal(redisTask{Seq: seq, Task: *task})
	if err != nil {
		return err
	}

	created, err := r.client.HSetNX(ctx, r.key("tasks"), task.ID, data).Result()
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	return nil
}

func (r *RedisStorage) getRecord(ctx context.Context, id string) (*redisTask, error) {
	data, err := r.client.HGet(ctx, r.key("tasks"), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var record redisTask
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *RedisStorage) GetTask(ctx context.Context, id string) (*models.Task, error) {
	record, err := r.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return &record.Task, nil
}

func (r *RedisStorage) ListTasks(ctx context.Context) ([]models.Task, error) {
	values, err := r.client.HGetAll(ctx, r.key("tasks")).Result()
	if err != nil {
		return nil, err
	}

	records := make([]redisTask, 0, len(values))
	for id, data := range values {
		var record redisTask
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			r.logger.WithError(err).WithField("task_id", id).Warn("Skipping undecodable task")
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Task.CreatedAt.Equal(b.Task.CreatedAt) {
			return a.Task.CreatedAt.After(b.Task.CreatedAt)
		}
		return a.Seq > b.Seq
	})

	tasks := make([]models.Task, len(records))
	for i, record := range records {
		tasks[i] = record.Task
	}
	return tasks, nil
}

func (r *RedisStorage) SaveTask(ctx context.Context, task *models.Task) error {
	record, err := r.getRecord(ctx, task.ID)
	if err != nil {
		return err
	}
	record.Task = *task

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, r.key("tasks"), task.ID, data).Err()
}

func (r *RedisStorage) DeleteTask(ctx context.Context, id string) error {
	removed, err := r.client.HDel(ctx, r.key("tasks"), id).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisStorage) CountTasks(ctx context.Context) (int, error) {
	n, err := r.client.HLen(ctx, r.key("tasks")).Result()
	return int(n), err
}

func (r *RedisStorage) InsertMessage(ctx context.Context, msg *models.StoredMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, r.key("messages"), data).Err()
}

func (r *RedisStorage) ListMessages(ctx context.Context) ([]models.StoredMessage, error) {
	values, err := r.client.LRange(ctx, r.key("messages"), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.StoredMessage, 0, len(values))
	for _, data := range values {
		var msg models.StoredMessage
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			r.logger.WithError(err).Warn("Skipping undecodable message")
			continue
		}
		messages = append(messages, msg)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

func (r *RedisStorage) DeleteMessages(ctx context.Context) error {
	return r.client.Del(ctx, r.key("messages")).Err()
}

func (r *RedisStorage) CountMessages(ctx context.Context) (int, error) {
	n, err := r.client.LLen(ctx, r.key("messages")).Result()
	return int(n), err
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
