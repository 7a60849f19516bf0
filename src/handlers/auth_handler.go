package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/reconhub/backend/src/logger"
	"github.com/username/reconhub/backend/src/services"
	"github.com/username/reconhub/backend/src/utils"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// HandleLogin exchanges the admin password for a bearer token.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.authService.Login(req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPassword) {
			utils.SendJSONError(w, "Incorrect password", http.StatusUnauthorized)
			return
		}
		logger.FromContext(r.Context()).Error("Admin login failed", "error", err)
		utils.SendJSONError(w, "Login failed", http.StatusInternalServerError)
		return
	}

	utils.SendJSONResponse(w, loginResponse{Token: token}, http.StatusOK)
}
