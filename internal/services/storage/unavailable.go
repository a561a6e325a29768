package storage

import (
	"context"
	"fmt"

	"github.com/ai-task-manager-go/internal/models"
)

// UnavailableStorage stands in for a backend that could not be reached at startup.
// Every operation fails with ErrUnavailable so requests degrade instead of the process exiting.
type UnavailableStorage struct {
	err error
}

func NewUnavailableStorage(cause error) *UnavailableStorage {
	return &UnavailableStorage{err: fmt.Errorf("%w: %v", ErrUnavailable, cause)}
}

func (u *UnavailableStorage) CreateTask(ctx context.Context, task *models.Task) error {
	return u.err
}

func (u *UnavailableStorage) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return nil, u.err
}

func (u *UnavailableStorage) ListTasks(ctx context.Context) ([]models.Task, error) {
	return nil, u.err
}

func (u *UnavailableStorage) SaveTask(ctx context.Context, task *models.Task) error {
	return u.err
}

func (u *UnavailableStorage) DeleteTask(ctx context.Context, id string) error {
	return u.err
}

func (u *UnavailableStorage) CountTasks(ctx context.Context) (int, error) {
	return 0, u.err
}

func (u *UnavailableStorage) InsertMessage(ctx context.Context, msg *models.StoredMessage) error {
	return u.err
}

func (u *UnavailableStorage) ListMessages(ctx context.Context) ([]models.StoredMessage, error) {
	return nil, u.err
}

func (u *UnavailableStorage) DeleteMessages(ctx context.Context) error {
	return u.err
}

func (u *UnavailableStorage) CountMessages(ctx context.Context) (int, error) {
	return 0, u.err
}

func (u *UnavailableStorage) Ping(ctx context.Context) error {
	return u.err
}

func (u *UnavailableStorage) Close() error {
	return nil
}
