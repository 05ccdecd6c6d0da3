package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pytorch/alerting-infra/internal/store"
)

// defaultListLimit bounds the state list response.
const defaultListLimit = 100

// StatesHandler serves the read-only alert state API.
type StatesHandler struct {
	store store.Store
}

// NewStatesHandler creates the handler.
func NewStatesHandler(st store.Store) *StatesHandler {
	return &StatesHandler{store: st}
}

// List handles GET /api/states.
func (h *StatesHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	states, err := h.store.List(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "state store unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"states": states,
		"count":  len(states),
	})
}

// Get handles GET /api/states/{fingerprint}.
func (h *StatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	fingerprint := strings.TrimPrefix(r.URL.Path, "/api/states/")
	if fingerprint == "" || strings.Contains(fingerprint, "/") {
		respondError(w, http.StatusBadRequest, "invalid fingerprint")
		return
	}

	st, err := h.store.Load(r.Context(), fingerprint)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "state store unavailable")
		return
	}
	if st == nil {
		respondError(w, http.StatusNotFound, "no state for fingerprint")
		return
	}
	respondJSON(w, http.StatusOK, st)
}
