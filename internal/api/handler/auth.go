package handler

import (
	"net/http"

	"github.com/Rrens/storefront-gateway/internal/api/middleware"
	"github.com/Rrens/storefront-gateway/internal/api/response"
	"github.com/Rrens/storefront-gateway/internal/domain"
	"github.com/Rrens/storefront-gateway/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	validator   *Validator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, validator *Validator) *AuthHandler {
	return &AuthHandler{authService: authService, validator: validator}
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input domain.UserCreate
	if !h.validator.bind(w, r, &input) {
		return
	}

	result, err := h.authService.Register(r.Context(), input)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.Created(w, result)
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input domain.UserLogin
	if !h.validator.bind(w, r, &input) {
		return
	}

	result, err := h.authService.Login(r.Context(), input)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.OK(w, result)
}

// Refresh exchanges a refresh token for a new access token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var input domain.RefreshRequest
	if !h.validator.bind(w, r, &input) {
		return
	}

	grant, err := h.authService.Refresh(r.Context(), input.RefreshToken)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.OK(w, grant)
}

// Profile returns the current authenticated user
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	profile, err := h.authService.Profile(r.Context(), userID)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.OK(w, profile)
}
