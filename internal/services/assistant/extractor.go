package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai-task-manager-go/internal/models"
	"github.com/ai-task-manager-go/internal/services/ai"
	"github.com/tidwall/gjson"
)

// ExtractionError means the model replied but no task could be read from the reply
type ExtractionError struct {
	Reason string
	Reply  string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("task extraction failed: %s", e.Reason)
}

// ParseTask asks the model to structure input as a task draft. Gateway failures are
// returned unchanged; an unreadable reply yields *ExtractionError. The draft is not stored.
func (s *Service) ParseTask(ctx context.Context, input string) (*models.TaskDraft, error) {
	reply, err := s.gateway.Complete(ctx, conversation(parseTaskPrompt, input), ai.WithTemperature(structuredTemperature))
	if err != nil {
		return nil, err
	}

	draft, err := draftFromReply(reply, input)
	if err != nil {
		s.logger.WithError(err).WithField("reply_length", len(reply)).Warn("Failed to parse task from AI reply")
		return nil, err
	}
	return draft, nil
}

func draftFromReply(reply, input string) (*models.TaskDraft, error) {
	span, ok := jsonSpan(reply)
	if !ok {
		return nil, &ExtractionError{Reason: "reply contains no JSON object", Reply: reply}
	}
	if !gjson.Valid(span) {
		return nil, &ExtractionError{Reason: "reply JSON is malformed", Reply: reply}
	}
	doc := gjson.Parse(span)
	if !doc.IsObject() {
		return nil, &ExtractionError{Reason: "reply JSON is not an object", Reply: reply}
	}

	draft := &models.TaskDraft{
		Title:       input,
		Priority:    models.PriorityMedium,
		Tags:        []string{},
		IsImportant: doc.Get("isImportant").Bool(),
		IsUrgent:    doc.Get("isUrgent").Bool(),
		Status:      models.StatusTodo,
	}

	if title := doc.Get("title"); title.Type == gjson.String && strings.TrimSpace(title.Str) != "" {
		draft.Title = strings.TrimSpace(title.Str)
	}
	if desc := doc.Get("description"); desc.Type == gjson.String {
		draft.Description = desc.Str
	}
	if due := doc.Get("dueDate"); due.Type == gjson.String {
		draft.DueDate = models.ParseDueDate(due.Str)
	}
	if p := models.Priority(doc.Get("priority").String()); p.Valid() {
		draft.Priority = p
	}
	if tags := doc.Get("tags"); tags.IsArray() {
		for _, tag := range tags.Array() {
			if tag.Type == gjson.String && strings.TrimSpace(tag.Str) != "" {
				draft.Tags = append(draft.Tags, tag.Str)
			}
		}
	}

	return draft, nil
}
