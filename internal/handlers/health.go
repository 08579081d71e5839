package handlers

import (
	"net/http"

	"github.com/assetdeck/api/internal/platform/httpx"
)

// HealthHandlers exposes liveness probes.
type HealthHandlers struct{}

// NewHealthHandlers constructs health handlers.
func NewHealthHandlers() *HealthHandlers {
	return &HealthHandlers{}
}

func (h *HealthHandlers) healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
