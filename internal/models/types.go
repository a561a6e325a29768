package models

import (
	"strings"
	"time"
)

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents one provider-agnostic chat turn
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StoredMessage is a persisted conversation turn
type StoredMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatMessage strips persistence-only fields
func (m StoredMessage) ChatMessage() ChatMessage {
	return ChatMessage{Role: m.Role, Content: m.Content}
}

// Priority of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status of a task
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task represents a stored task
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	Tags        []string   `json:"tags"`
	Category    string     `json:"category,omitempty"`
	IsImportant bool       `json:"isImportant"`
	IsUrgent    bool       `json:"isUrgent"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ApplyDefaults fills the schema defaults for a new task
func (t *Task) ApplyDefaults() {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
}

// dueDateLayouts are tried in order; the first match wins
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDueDate parses an ISO 8601 style date, returning nil for empty or unparseable values
func ParseDueDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// TaskPatch holds the fields of a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	ClearDue    bool       `json:"-"`
	Priority    *Priority  `json:"priority,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Category    *string    `json:"category,omitempty"`
	IsImportant *bool      `json:"isImportant,omitempty"`
	IsUrgent    *bool      `json:"isUrgent,omitempty"`
}

// Apply merges the patch into t and bumps UpdatedAt
func (p TaskPatch) Apply(t *Task, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ClearDue {
		t.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Tags != nil {
		t.Tags = append([]string{}, p.Tags...)
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.IsImportant != nil {
		t.IsImportant = *p.IsImportant
	}
	if p.IsUrgent != nil {
		t.IsUrgent = *p.IsUrgent
	}
	t.UpdatedAt = now
}

// TaskDraft is a task parsed from free text. It is never persisted directly.
type TaskDraft struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    Priority   `json:"priority"`
	Tags        []string   `json:"tags"`
	IsImportant bool       `json:"isImportant"`
	IsUrgent    bool       `json:"isUrgent"`
	Status      Status     `json:"status"`
}

// ToTask converts the draft into a new, unsaved task
func (d TaskDraft) ToTask() *Task {
	task := &Task{
		Title:       d.Title,
		Description: d.Description,
		DueDate:     d.DueDate,
		Priority:    d.Priority,
		Status:      d.Status,
		Tags:        append([]string{}, d.Tags...),
		IsImportant: d.IsImportant,
		IsUrgent:    d.IsUrgent,
	}
	task.ApplyDefaults()
	return task
}

// QuadrantPartition is an Eisenhower 2x2 bucketing of tasks
type QuadrantPartition struct {
	ImportantUrgent       []Task `json:"importantUrgent"`
	ImportantNotUrgent    []Task `json:"importantNotUrgent"`
	NotImportantUrgent    []Task `json:"notImportantUrgent"`
	NotImportantNotUrgent []Task `json:"notImportantNotUrgent"`
}

// NewQuadrantPartition returns a partition with four empty, non-nil buckets
func NewQuadrantPartition() *QuadrantPartition {
	return &QuadrantPartition{
		ImportantUrgent:       []Task{},
		ImportantNotUrgent:    []Task{},
		NotImportantUrgent:    []Task{},
		NotImportantNotUrgent: []Task{},
	}
}

// Size returns the total number of entries across the four buckets
func (q *QuadrantPartition) Size() int {
	return len(q.ImportantUrgent) + len(q.ImportantNotUrgent) + len(q.NotImportantUrgent) + len(q.NotImportantNotUrgent)
}

// CacheEntry represents a cached assistant answer
type CacheEntry struct {
	Question  string
	Answer    string
	Provider  string
	CreatedAt time.Time
}
