package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/carteraclaro/backend/src/config"
	"github.com/username/carteraclaro/backend/src/logger"
	"github.com/username/carteraclaro/backend/src/security"
	"github.com/username/carteraclaro/backend/src/utils"
)

// AuthHandler authenticates the single operator account configured through
// the environment. There is no user table; the credential pair lives in
// config and the password is stored as a bcrypt hash.
type AuthHandler struct {
	authService *security.AuthService
}

func NewAuthHandler(authService *security.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if req.Username != config.Cfg.OperatorUsername {
		logger.L.Warn("Login attempt with unknown username", "username", req.Username)
		utils.SendJSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := h.authService.CompareHashAndPassword(config.Cfg.OperatorPasswordHash, req.Password); err != nil {
		logger.L.Warn("Login attempt with wrong password", "username", req.Username)
		utils.SendJSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken(req.Username)
	if err != nil {
		logger.L.Error("Failed to generate token", "error", err)
		utils.SendJSONError(w, "Could not generate token", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Operator logged in", "username", req.Username)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{Token: token})
}
