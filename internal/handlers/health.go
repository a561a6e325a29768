package handlers

import (
	"net/http"
	"time"

	"github.com/ai-task-manager-go/internal/i18n"
	"github.com/ai-task-manager-go/internal/services/storage"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	AI        aiStatus  `json:"ai"`
	Storage   string    `json:"storage"`
}

// HealthHandler reports liveness. It answers 200 even when storage or AI are down.
type HealthHandler struct {
	base
	gateway GatewayStatus
	storage *storage.Manager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(gateway GatewayStatus, storage *storage.Manager, b base) *HealthHandler {
	return &HealthHandler{
		base:    b,
		gateway: gateway,
		storage: storage,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Message:   h.text(r, i18n.MsgHealthOK, nil),
		Timestamp: time.Now().UTC(),
		AI:        aiStatus{Enabled: h.gateway.Enabled(), Provider: h.gateway.Provider()},
		Storage:   h.storage.Status(r.Context()),
	})
}
