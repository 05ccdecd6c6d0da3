package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/pytorch/alerting-infra/internal/middleware"
)

// AuthHandler serves POST /auth/login for the read API.
type AuthHandler struct {
	auth *middleware.JWTAuthMiddleware
}

// NewAuthHandler creates the handler.
func NewAuthHandler(auth *middleware.JWTAuthMiddleware) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login validates credentials and issues a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.auth.ValidateCredentials(req.Username, req.Password) {
		log.Warn("login rejected", "username", req.Username, "remote", r.RemoteAddr)
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.auth.GenerateToken(req.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "token generation failed")
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{Token: token})
}
