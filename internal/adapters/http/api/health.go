// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// Counter reports how many recipes are stored.
type Counter interface {
	Count(ctx context.Context) int
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	counter Counter
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(counter Counter) *HealthHandler {
	return &HealthHandler{counter: counter}
}

type healthResponse struct {
	Status  string `json:"status"`
	Recipes int    `json:"recipes"`
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.counter != nil {
		resp.Recipes = h.counter.Count(r.Context())
	}
	writeJSON(w, http.StatusOK, resp)
}
