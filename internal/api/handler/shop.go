package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Rrens/storefront-gateway/internal/api/middleware"
	"github.com/Rrens/storefront-gateway/internal/api/response"
	"github.com/Rrens/storefront-gateway/internal/domain"
	"github.com/Rrens/storefront-gateway/internal/service"
)

// ShopHandler handles storefront connection and proxy endpoints
type ShopHandler struct {
	shopService *service.ShopService
	validator   *Validator
}

// NewShopHandler creates a new shop handler
func NewShopHandler(shopService *service.ShopService, validator *Validator) *ShopHandler {
	return &ShopHandler{shopService: shopService, validator: validator}
}

// Connect binds the caller to a storefront after a live probe
func (h *ShopHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.ShopConnect
	if !h.validator.bind(w, r, &input) {
		return
	}

	summary, err := h.shopService.Connect(r.Context(), userID, input)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.OK(w, summary)
}

// GetConnection returns the caller's connection without its secret
func (h *ShopHandler) GetConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	shop, err := h.shopService.GetConnection(r.Context(), userID)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.OK(w, shop)
}

// ListProducts returns a page of reduced products
func (h *ShopHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	query, ok := h.productQuery(w, r)
	if !ok {
		return
	}

	page, err := h.shopService.ListProducts(r.Context(), userID, query)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.OK(w, page)
}

func (h *ShopHandler) productQuery(w http.ResponseWriter, r *http.Request) (domain.ProductQuery, bool) {
	var query domain.ProductQuery
	params := r.URL.Query()

	for name, dst := range map[string]*int{"page": &query.Page, "limit": &query.Limit} {
		raw := params.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.ValidationFailed(w, map[string]string{name: "must be an integer"})
			return query, false
		}
		*dst = n
	}
	query.Status = domain.ProductStatus(params.Get("status"))

	if fields := h.validator.Struct(query); fields != nil {
		response.ValidationFailed(w, fields)
		return query, false
	}
	return query, true
}

// GetProduct returns one upstream product verbatim
func (h *ShopHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}

	product, err := h.shopService.GetProduct(r.Context(), userID, productID)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.OK(w, product)
}

// GetVariant returns one upstream variant verbatim
func (h *ShopHandler) GetVariant(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	variantID, ok := pathID(w, r, "variantID")
	if !ok {
		return
	}

	variant, err := h.shopService.GetVariant(r.Context(), userID, variantID)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.OK(w, variant)
}

// ListWebhooks returns the upstream webhook list verbatim
func (h *ShopHandler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	webhooks, err := h.shopService.ListWebhooks(r.Context(), userID)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.OK(w, webhooks)
}

// RegisterWebhook creates a webhook upstream and mirrors it locally
func (h *ShopHandler) RegisterWebhook(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.WebhookCreate
	if !h.validator.bind(w, r, &input) {
		return
	}

	webhook, err := h.shopService.RegisterWebhook(r.Context(), userID, input)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	response.Created(w, webhook)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "invalid "+param)
		return 0, false
	}
	return id, true
}
