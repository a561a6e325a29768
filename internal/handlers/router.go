package handlers

import (
	"net/http"

	"github.com/ai-task-manager-go/internal/config"
	"github.com/ai-task-manager-go/internal/i18n"
	"github.com/ai-task-manager-go/internal/middleware"
	"github.com/ai-task-manager-go/internal/services/assistant"
	"github.com/ai-task-manager-go/internal/services/conversation"
	"github.com/ai-task-manager-go/internal/services/storage"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Dependencies holds everything the HTTP API is built from
type Dependencies struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Localizer *i18n.Localizer
	Metrics   *middleware.Metrics
	Limiter   middleware.RateLimiter
	Gateway   GatewayStatus
	Storage   *storage.Manager
	Assistant *assistant.Service
	Bridge    *conversation.Bridge
}

// NewRouter wires every endpoint with logging, metrics, rate limiting and CORS
func NewRouter(deps Dependencies) http.Handler {
	b := base{localizer: deps.Localizer, logger: deps.Logger}

	health := NewHealthHandler(deps.Gateway, deps.Storage, b)
	tasks := NewTaskHandler(deps.Storage, deps.Assistant, b)
	messages := NewMessageHandler(deps.Bridge, middleware.NewSecurityMiddleware(deps.Config.Server.MaxInputLength, deps.Logger), b)
	ai := NewAssistantHandler(deps.Gateway, deps.Assistant, deps.Storage, b)

	limit := middleware.Limit(deps.Limiter, deps.Metrics, func(r *http.Request) string {
		return b.text(r, i18n.MsgRateLimitExceeded, nil)
	})

	r := mux.NewRouter()
	r.Use(deps.Metrics.Instrument, middleware.RequestLogger(deps.Logger))

	r.HandleFunc("/health", health.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", health.Health).Methods(http.MethodGet)

	api.HandleFunc("/tasks", tasks.List).Methods(http.MethodGet)
	api.HandleFunc("/tasks", tasks.Create).Methods(http.MethodPost)
	api.HandleFunc("/tasks/quadrant", tasks.Quadrant).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", tasks.Get).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", tasks.Update).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{id}", tasks.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id}/complete", tasks.Complete).Methods(http.MethodPatch)

	api.HandleFunc("/messages", messages.List).Methods(http.MethodGet)
	api.Handle("/messages", limit(http.HandlerFunc(messages.Send))).Methods(http.MethodPost)
	api.HandleFunc("/messages", messages.Clear).Methods(http.MethodDelete)

	api.HandleFunc("/ai/status", ai.Status).Methods(http.MethodGet)

	aiRoutes := api.PathPrefix("/ai").Subrouter()
	aiRoutes.Use(limit)
	aiRoutes.HandleFunc("/parse-task", ai.ParseTask).Methods(http.MethodPost)
	aiRoutes.HandleFunc("/classify", ai.Classify).Methods(http.MethodPost)
	aiRoutes.HandleFunc("/analyze-tasks", ai.AnalyzeTasks).Methods(http.MethodPost)
	aiRoutes.HandleFunc("/focus-prompt", ai.FocusPrompt).Methods(http.MethodPost)
	aiRoutes.HandleFunc("/stats-summary", ai.StatsSummary).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	var handler http.Handler = r
	if deps.Config.Server.TrustProxy {
		handler = gorillahandlers.ProxyHeaders(handler)
	}

	origins := deps.Config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Accept-Language", "X-Request-ID"}),
	)(handler)
}
