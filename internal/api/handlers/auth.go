package handlers

import (
	"errors"
	"net/http"

	"github.com/openbookings/server/internal/api/problem"
	"github.com/openbookings/server/internal/auth"
	"github.com/openbookings/server/internal/domain/users"
)

type AuthHandler struct {
	Users *users.Service
	Env   string
}

func NewAuthHandler(service *users.Service, env string) *AuthHandler {
	return &AuthHandler{Users: service, Env: env}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type verifyRequest struct {
	Token string `json:"token" validate:"required"`
}

type authResponse struct {
	User   *users.User    `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, h.Env, &req) {
		return
	}

	user, tokens, err := h.Users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			problem.Write(w, r, http.StatusConflict, "conflict", "Email already registered", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusBadRequest, "validation-error", "Registration failed", err, h.Env)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{User: user, Tokens: tokens})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, h.Env, &req) {
		return
	}

	user, tokens, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			problem.Write(w, r, http.StatusUnauthorized, "unauthorized", "Invalid credentials", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, "server-error", "Login failed", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user, Tokens: tokens})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, h.Env, &req) {
		return
	}

	tokens, err := h.Users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		problem.Write(w, r, http.StatusUnauthorized, "unauthorized", "Invalid refresh token", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]auth.TokenPair{"tokens": tokens})
}

// Verify reports whether the submitted access token is valid. An invalid
// or expired token still answers 200 with valid=false so callers can
// introspect tokens without special error handling.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeJSON(w, r, h.Env, &req) {
		return
	}

	writeJSON(w, http.StatusOK, h.Users.Verify(r.Context(), req.Token))
}
