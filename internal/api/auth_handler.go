package api

import (
	"net/http"

	"parkhub/internal/entities"
	"parkhub/internal/service"
)

type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req entities.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := h.Auth.Register(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "user registered successfully"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req entities.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
