package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ai-task-manager-go/internal/models"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLiteStorage implements storage on a local SQLite file
type SQLiteStorage struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewSQLiteStorage(ctx context.Context, dbPath string, logger *logrus.Logger) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrate(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStorage{db: db, logger: logger}, nil
}

func migrate(db *sql.DB, logger *logrus.Logger) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(logger)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

const taskColumns = `id, title, description, due_date, priority, status, tags, category, is_important, is_urgent, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		task              models.Task
		due               sql.NullInt64
		tags              string
		created, updated  int64
		important, urgent bool
	)
	err := row.Scan(&task.ID, &task.Title, &task.Description, &due, &task.Priority, &task.Status,
		&tags, &task.Category, &important, &urgent, &created, &updated)
	if err != nil {
		return nil, err
	}

	if due.Valid {
		t := time.Unix(0, due.Int64).UTC()
		task.DueDate = &t
	}
	if err := json.Unmarshal([]byte(tags), &task.Tags); err != nil || task.Tags == nil {
		task.Tags = []string{}
	}
	task.IsImportant = important
	task.IsUrgent = urgent
	task.CreatedAt = time.Unix(0, created).UTC()
	task.UpdatedAt = time.Unix(0, updated).UTC()
	return &task, nil
}

func taskArgs(task *models.Task) ([]any, error) {
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	var due sql.NullInt64
	if task.DueDate != nil {
		due = sql.NullInt64{Int64: task.DueDate.UnixNano(), Valid: true}
	}

	return []any{
		task.ID, task.Title, task.Description, due, string(task.Priority), string(task.Status),
		string(tagsJSON), task.Category, task.IsImportant, task.IsUrgent,
		task.CreatedAt.UnixNano(), task.UpdatedAt.UnixNano(),
	}, nil
}

func (s *SQLiteStorage) CreateTask(ctx context.Context, task *models.Task) error {
	args, err := taskArgs(task)
	if err != nil {
		return err
	}
	query := `INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return task, nil
}

func (s *SQLiteStorage) ListTasks(ctx context.Context) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStorage) SaveTask(ctx context.Context, task *models.Task) error {
	args, err := taskArgs(task)
	if err != nil {
		return err
	}
	query := `UPDATE tasks SET title = ?, description = ?, due_date = ?, priority = ?, status = ?, tags = ?,
		category = ?, is_important = ?, is_urgent = ?, created_at = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, append(args[1:], task.ID)...)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStorage) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) CountTasks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n)
	return n, err
}

func (s *SQLiteStorage) InsertMessage(ctx context.Context, msg *models.StoredMessage) error {
	query := `INSERT INTO messages (id, role, content, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, msg.ID, msg.Role, msg.Content, msg.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListMessages(ctx context.Context) ([]models.StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, role, content, created_at FROM messages ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []models.StoredMessage{}
	for rows.Next() {
		var (
			msg     models.StoredMessage
			created int64
		)
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.CreatedAt = time.Unix(0, created).UTC()
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStorage) DeleteMessages(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CountMessages(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
