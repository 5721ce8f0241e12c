package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Rrens/storefront-gateway/internal/api/response"
	"github.com/Rrens/storefront-gateway/internal/service"
)

// AdminHandler exposes get-by-id reads to administrators
type AdminHandler struct {
	authService *service.AuthService
	shopService *service.ShopService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService *service.AuthService, shopService *service.ShopService) *AdminHandler {
	return &AdminHandler{authService: authService, shopService: shopService}
}

// GetUser returns any user by id
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user ID")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.OK(w, user)
}

// GetShop returns any shop connection by id
func (h *AdminHandler) GetShop(w http.ResponseWriter, r *http.Request) {
	shopID, err := uuid.Parse(chi.URLParam(r, "shopID"))
	if err != nil {
		response.BadRequest(w, "invalid shop ID")
		return
	}

	shop, err := h.shopService.GetShopByID(r.Context(), shopID)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.OK(w, shop)
}
