package handlers

import (
	"net/http"

	"github.com/VictoriaMetrics/metrics"

	"github.com/pytorch/alerting-infra/internal/middleware"
)

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Metrics handles GET /metrics in Prometheus text format.
func Metrics(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w, true)
}

// NewRouter assembles the full HTTP surface with middleware applied.
func NewRouter(webhook *WebhookHandler, states *StatesHandler, authHandler *AuthHandler, auth *middleware.JWTAuthMiddleware) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/webhook", webhook)
	mux.HandleFunc("/api/states", states.List)
	mux.HandleFunc("/api/states/", states.Get)
	mux.HandleFunc("/auth/login", authHandler.Login)
	mux.HandleFunc("/health", Health)
	mux.HandleFunc("/metrics", Metrics)

	return middleware.RequestID(auth.Wrap(mux))
}
