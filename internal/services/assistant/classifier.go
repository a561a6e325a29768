package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ai-task-manager-go/internal/models"
	"github.com/ai-task-manager-go/internal/services/ai"
	"github.com/tidwall/gjson"
)

// ClassificationError means the model replied but the reply is not a valid partition
type ClassificationError struct {
	Reason string
	Reply  string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("task classification failed: %s", e.Reason)
}

// taskProjection is the minimized view of a task sent to the model
type taskProjection struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Priority models.Priority `json:"priority"`
	DueDate  *time.Time      `json:"dueDate"`
	Tags     []string        `json:"tags"`
}

// Classify asks the model to bucket tasks into the four quadrants. Ids in the reply
// are resolved against tasks; unknown ids are dropped and duplicates are kept.
// An empty input returns four empty buckets without calling the model.
func (s *Service) Classify(ctx context.Context, tasks []models.Task) (*models.QuadrantPartition, error) {
	if len(tasks) == 0 {
		return models.NewQuadrantPartition(), nil
	}

	projection := make([]taskProjection, len(tasks))
	for i, t := range tasks {
		tags := t.Tags
		if tags == nil {
			tags = []string{}
		}
		projection[i] = taskProjection{
			ID:       t.ID,
			Title:    t.Title,
			Priority: t.Priority,
			DueDate:  t.DueDate,
			Tags:     tags,
		}
	}
	payload, err := json.Marshal(projection)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tasks: %w", err)
	}

	reply, err := s.gateway.Complete(ctx, conversation(classifyPrompt, string(payload)), ai.WithTemperature(structuredTemperature))
	if err != nil {
		return nil, err
	}

	partition, err := partitionFromReply(reply, tasks)
	if err != nil {
		s.logger.WithError(err).WithField("tasks", len(tasks)).Warn("Failed to classify tasks from AI reply")
		return nil, err
	}
	return partition, nil
}

func partitionFromReply(reply string, tasks []models.Task) (*models.QuadrantPartition, error) {
	span, ok := jsonSpan(reply)
	if !ok {
		return nil, &ClassificationError{Reason: "reply contains no JSON object", Reply: reply}
	}
	if !gjson.Valid(span) {
		return nil, &ClassificationError{Reason: "reply JSON is malformed", Reply: reply}
	}

	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	partition := models.NewQuadrantPartition()
	buckets := []struct {
		field  string
		target *[]models.Task
	}{
		{"importantUrgent", &partition.ImportantUrgent},
		{"importantNotUrgent", &partition.ImportantNotUrgent},
		{"notImportantUrgent", &partition.NotImportantUrgent},
		{"notImportantNotUrgent", &partition.NotImportantNotUrgent},
	}

	doc := gjson.Parse(span)
	for _, b := range buckets {
		ids := doc.Get(b.field)
		if !ids.IsArray() {
			return nil, &ClassificationError{Reason: fmt.Sprintf("field %q is missing or not an array", b.field), Reply: reply}
		}
		for _, id := range ids.Array() {
			if task, ok := byID[id.String()]; ok {
				*b.target = append(*b.target, task)
			}
		}
	}

	return partition, nil
}

// PartitionByFlags buckets tasks by their own importance and urgency flags.
// Every task lands in exactly one bucket and input order is kept.
func PartitionByFlags(tasks []models.Task) *models.QuadrantPartition {
	partition := models.NewQuadrantPartition()
	for _, t := range tasks {
		switch {
		case t.IsImportant && t.IsUrgent:
			partition.ImportantUrgent = append(partition.ImportantUrgent, t)
		case t.IsImportant:
			partition.ImportantNotUrgent = append(partition.ImportantNotUrgent, t)
		case t.IsUrgent:
			partition.NotImportantUrgent = append(partition.NotImportantUrgent, t)
		default:
			partition.NotImportantNotUrgent = append(partition.NotImportantNotUrgent, t)
		}
	}
	return partition
}
