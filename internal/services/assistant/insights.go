package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ai-task-manager-go/internal/models"
	"github.com/ai-task-manager-go/internal/services/ai"
)

const statsTemperature = 0.5

// AnalyzeTasks returns a free-text quadrant analysis with priorities and time management advice
func (s *Service) AnalyzeTasks(ctx context.Context, tasks []models.Task) (string, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}
	payload, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode tasks: %w", err)
	}

	return s.gateway.Complete(ctx, conversation(analyzePrompt, fmt.Sprintf(analyzeRequest, payload)))
}

// FocusPrompt returns a short motivational line for a task. It never fails:
// any gateway problem yields FallbackFocusPrompt. Replies are cached per title.
func (s *Service) FocusPrompt(ctx context.Context, title string) string {
	if !s.gateway.Enabled() {
		s.fallback("focus_prompt", nil)
		return FallbackFocusPrompt
	}

	provider := s.gateway.Provider()
	if s.cache != nil {
		if cached, found := s.cache.Get(ctx, title, provider); found {
			return cached
		}
	}

	reply, err := s.gateway.Complete(ctx, conversation(focusPrompt, "任务："+title))
	reply = strings.TrimSpace(reply)
	if err != nil || reply == "" {
		s.fallback("focus_prompt", err)
		return FallbackFocusPrompt
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, title, provider, reply); err != nil {
			s.logger.WithError(err).Warn("Failed to cache focus prompt")
		}
	}
	return reply
}

// StatsSummary returns a short natural-language summary of task statistics. It never
// fails: any gateway problem yields FallbackStatsSummary.
func (s *Service) StatsSummary(ctx context.Context, stats any) string {
	payload, err := json.Marshal(stats)
	if err != nil {
		s.fallback("stats_summary", err)
		return FallbackStatsSummary
	}

	reply, err := s.gateway.Complete(ctx, conversation(statsPrompt, string(payload)), ai.WithTemperature(statsTemperature))
	reply = strings.TrimSpace(reply)
	if err != nil || reply == "" {
		s.fallback("stats_summary", err)
		return FallbackStatsSummary
	}
	return reply
}
