package assistant

import (
	"context"
	"strings"

	"github.com/ai-task-manager-go/internal/models"
	"github.com/ai-task-manager-go/internal/services/ai"
	"github.com/ai-task-manager-go/internal/services/cache"
	"github.com/sirupsen/logrus"
)

// structuredTemperature keeps extraction and classification replies close to the schema
const structuredTemperature = 0.3

// Completer is the slice of the AI gateway the assistant needs
type Completer interface {
	Enabled() bool
	Provider() string
	Complete(ctx context.Context, messages []models.ChatMessage, opts ...ai.CallOption) (string, error)
}

// FallbackRecorder counts answers served without the model
type FallbackRecorder interface {
	RecordFallback(feature string)
}

// Service turns free text into tasks and tasks into quadrants using the AI gateway
type Service struct {
	gateway  Completer
	cache    cache.Service
	logger   *logrus.Logger
	recorder FallbackRecorder
}

// NewService creates an assistant service. cache and recorder may be nil.
func NewService(gateway Completer, cache cache.Service, logger *logrus.Logger, recorder FallbackRecorder) *Service {
	return &Service{
		gateway:  gateway,
		cache:    cache,
		logger:   logger,
		recorder: recorder,
	}
}

// Enabled reports whether the underlying gateway has a provider
func (s *Service) Enabled() bool {
	return s.gateway.Enabled()
}

func (s *Service) fallback(feature string, err error) {
	if s.recorder != nil {
		s.recorder.RecordFallback(feature)
	}
	entry := s.logger.WithField("feature", feature)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn("Serving fallback answer")
}

// jsonSpan returns the greedy span from the first '{' to the last '}'
func jsonSpan(reply string) (string, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return "", false
	}
	return reply[start : end+1], true
}

func conversation(system, user string) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: models.RoleSystem, Content: system},
		{Role: models.RoleUser, Content: user},
	}
}
