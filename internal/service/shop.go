package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Rrens/storefront-gateway/internal/domain"
	"github.com/Rrens/storefront-gateway/internal/security"
	"github.com/Rrens/storefront-gateway/internal/upstream"
)

// ownership is the outcome of looking up a domain on behalf of a user
type ownership int

const (
	ownershipAbsent ownership = iota
	ownershipOwned
	ownershipForeign
)

func resolveOwnership(existing *domain.ShopConnection, userID uuid.UUID) ownership {
	switch {
	case existing == nil:
		return ownershipAbsent
	case existing.UserID == userID:
		return ownershipOwned
	default:
		return ownershipForeign
	}
}

// ShopService manages shop connections and proxies storefront operations
type ShopService struct {
	shopRepo        domain.ShopRepository
	gateway         Gateway
	encryptor       *security.Encryptor
	maxPageSize     int
	defaultPageSize int
	now             func() time.Time
}

// NewShopService creates a new shop service
func NewShopService(
	shopRepo domain.ShopRepository,
	gateway Gateway,
	encryptor *security.Encryptor,
	maxPageSize int,
	defaultPageSize int,
) *ShopService {
	if maxPageSize <= 0 || maxPageSize > domain.MaxPageSize {
		maxPageSize = domain.MaxPageSize
	}
	if defaultPageSize <= 0 || defaultPageSize > maxPageSize {
		defaultPageSize = min(50, maxPageSize)
	}
	return &ShopService{
		shopRepo:        shopRepo,
		gateway:         gateway,
		encryptor:       encryptor,
		maxPageSize:     maxPageSize,
		defaultPageSize: defaultPageSize,
		now:             time.Now,
	}
}

type shopPayload struct {
	Shop struct {
		Name string `json:"name"`
	} `json:"shop"`
}

// Connect binds userID to a storefront after a live probe succeeds.
// A domain owned by another user is rejected without touching it.
func (s *ShopService) Connect(ctx context.Context, userID uuid.UUID, input domain.ShopConnect) (*domain.ConnectionSummary, error) {
	shopDomain := security.NormalizeDomain(input.Domain)

	existing, err := s.shopRepo.GetByDomain(ctx, shopDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	var shop domain.ShopConnection
	outcome := resolveOwnership(existing, userID)
	switch outcome {
	case ownershipForeign:
		return nil, domain.NewError(domain.KindConflict, "this shop is already connected to another account")
	case ownershipOwned:
		shop = *existing
	case ownershipAbsent:
		shop = domain.ShopConnection{
			ID:        uuid.New(),
			UserID:    userID,
			Domain:    shopDomain,
			CreatedAt: s.now().UTC(),
		}
	}

	var probe shopPayload
	err = s.gateway.Do(ctx, upstream.Request{
		Domain:     shopDomain,
		Secret:     input.AccessToken,
		APIVersion: input.APIVersion,
		Resource:   "shop",
		Method:     http.MethodGet,
	}, &probe)
	if err != nil {
		return nil, upstreamError("failed to connect to the shop", err)
	}

	encrypted, err := s.encryptor.EncryptSecret(input.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	now := s.now().UTC()
	shop.Name = probe.Shop.Name
	if shop.Name == "" {
		shop.Name = shopDomain
	}
	shop.AccessSecretEncrypted = encrypted
	shop.APIVersion = input.APIVersion
	shop.Status = domain.ShopStatusConnected
	shop.ConnectedAt = now
	shop.UpdatedAt = now

	if outcome == ownershipOwned {
		err = s.shopRepo.Update(ctx, &shop)
	} else {
		err = s.shopRepo.Create(ctx, &shop)
	}
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.WrapError(domain.KindConflict, "this shop is already connected to another account", err)
		}
		return nil, fmt.Errorf("failed to save shop: %w", err)
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("shop_id", shop.ID.String()).
		Str("domain", shop.Domain).
		Bool("rotated", outcome == ownershipOwned).
		Msg("shop connected")

	summary := shop.Summary()
	return &summary, nil
}

// GetConnection returns the caller's shop connection
func (s *ShopService) GetConnection(ctx context.Context, userID uuid.UUID) (*domain.ShopConnection, error) {
	return s.requireShop(ctx, userID)
}

// GetShopByID retrieves any shop connection by ID
func (s *ShopService) GetShopByID(ctx context.Context, id uuid.UUID) (*domain.ShopConnection, error) {
	shop, err := s.shopRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if shop == nil {
		return nil, domain.NewError(domain.KindNotFound, "shop not found")
	}
	return shop, nil
}

type productPayload struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Handle      string     `json:"handle"`
	ProductType string     `json:"product_type"`
	Status      string     `json:"status"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	Images      []struct {
		ID  int64  `json:"id"`
		Src string `json:"src"`
		Alt string `json:"alt"`
	} `json:"images"`
	Variants []struct {
		ID                int64           `json:"id"`
		Title             string          `json:"title"`
		Price             json.RawMessage `json:"price"`
		InventoryQuantity int             `json:"inventory_quantity"`
	} `json:"variants"`
}

// ListProducts returns one page of the caller's products and records the sync time
func (s *ShopService) ListProducts(ctx context.Context, userID uuid.UUID, query domain.ProductQuery) (*domain.ProductPage, error) {
	shop, err := s.requireShop(ctx, userID)
	if err != nil {
		return nil, err
	}
	secret, err := s.secret(shop)
	if err != nil {
		return nil, err
	}

	page := max(query.Page, 1)
	limit := s.ClampLimit(query.Limit)

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("page", strconv.Itoa(page))
	if query.Status != "" {
		params.Set("status", string(query.Status))
	}

	var list struct {
		Products []productPayload `json:"products"`
	}
	if err := s.gateway.Do(ctx, s.request(shop, secret, "products", params), &list); err != nil {
		return nil, upstreamError("failed to fetch products", err)
	}

	countParams := url.Values{}
	if query.Status != "" {
		countParams.Set("status", string(query.Status))
	}
	var count struct {
		Count int `json:"count"`
	}
	if err := s.gateway.Do(ctx, s.request(shop, secret, "products/count", countParams), &count); err != nil {
		return nil, upstreamError("failed to count products", err)
	}

	products, err := projectProducts(list.Products)
	if err != nil {
		return nil, upstreamError("failed to fetch products", &upstream.MalformedError{StatusCode: http.StatusOK, Err: err})
	}

	if err := s.shopRepo.TouchLastSync(ctx, shop.ID, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to record last sync: %w", err)
	}

	totalPages := 0
	if count.Count > 0 {
		totalPages = (count.Count + limit - 1) / limit
	}

	return &domain.ProductPage{
		Products: products,
		Pagination: domain.Pagination{
			CurrentPage:   page,
			TotalPages:    totalPages,
			TotalProducts: count.Count,
		},
	}, nil
}

// ClampLimit applies the default and maximum page size
func (s *ShopService) ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.defaultPageSize
	case limit > s.maxPageSize:
		return s.maxPageSize
	default:
		return limit
	}
}

// GetProduct returns the upstream product object unchanged
func (s *ShopService) GetProduct(ctx context.Context, userID uuid.UUID, productID int64) (json.RawMessage, error) {
	var out struct {
		Product json.RawMessage `json:"product"`
	}
	if err := s.passThrough(ctx, userID, "failed to fetch product", "products/"+strconv.FormatInt(productID, 10), &out); err != nil {
		return nil, err
	}
	return requireObject("failed to fetch product", out.Product)
}

// GetVariant returns the upstream variant object unchanged
func (s *ShopService) GetVariant(ctx context.Context, userID uuid.UUID, variantID int64) (json.RawMessage, error) {
	var out struct {
		Variant json.RawMessage `json:"variant"`
	}
	if err := s.passThrough(ctx, userID, "failed to fetch variant", "variants/"+strconv.FormatInt(variantID, 10), &out); err != nil {
		return nil, err
	}
	return requireObject("failed to fetch variant", out.Variant)
}

// ListWebhooks returns the webhooks registered upstream
func (s *ShopService) ListWebhooks(ctx context.Context, userID uuid.UUID) (json.RawMessage, error) {
	var out struct {
		Webhooks json.RawMessage `json:"webhooks"`
	}
	if err := s.passThrough(ctx, userID, "failed to fetch webhooks", "webhooks", &out); err != nil {
		return nil, err
	}
	if len(out.Webhooks) == 0 {
		return json.RawMessage("[]"), nil
	}
	return out.Webhooks, nil
}

type webhookPayload struct {
	ID      int64  `json:"id"`
	Topic   string `json:"topic"`
	Address string `json:"address"`
	Format  string `json:"format"`
}

// RegisterWebhook creates a webhook upstream and mirrors it locally only once the upstream acknowledged it
func (s *ShopService) RegisterWebhook(ctx context.Context, userID uuid.UUID, input domain.WebhookCreate) (json.RawMessage, error) {
	shop, err := s.requireShop(ctx, userID)
	if err != nil {
		return nil, err
	}
	secret, err := s.secret(shop)
	if err != nil {
		return nil, err
	}

	format := input.Format
	if format == "" {
		format = domain.WebhookFormatJSON
	}

	req := s.request(shop, secret, "webhooks", nil)
	req.Method = http.MethodPost
	req.Body = map[string]any{
		"webhook": map[string]string{
			"topic":   input.Topic,
			"address": input.Address,
			"format":  string(format),
		},
	}

	var out struct {
		Webhook json.RawMessage `json:"webhook"`
	}
	if err := s.gateway.Do(ctx, req, &out); err != nil {
		return nil, upstreamError("failed to register webhook", err)
	}

	var created webhookPayload
	if len(out.Webhook) == 0 {
		return nil, upstreamError("failed to register webhook", &upstream.MalformedError{StatusCode: http.StatusOK, Err: errors.New("missing webhook object")})
	}
	if err := json.Unmarshal(out.Webhook, &created); err != nil {
		return nil, upstreamError("failed to register webhook", &upstream.MalformedError{StatusCode: http.StatusOK, Err: err})
	}

	record := domain.WebhookRecord{
		WebhookID: created.ID,
		Topic:     firstNonEmpty(created.Topic, input.Topic),
		Address:   firstNonEmpty(created.Address, input.Address),
		Format:    domain.WebhookFormat(firstNonEmpty(created.Format, string(format))),
		CreatedAt: s.now().UTC(),
	}
	if err := s.shopRepo.AddWebhook(ctx, shop.ID, record); err != nil {
		log.Error().Err(err).
			Str("shop_id", shop.ID.String()).
			Int64("webhook_id", record.WebhookID).
			Msg("webhook registered upstream but not mirrored")
		return nil, fmt.Errorf("failed to save webhook: %w", err)
	}

	return out.Webhook, nil
}

func (s *ShopService) passThrough(ctx context.Context, userID uuid.UUID, action, resource string, out any) error {
	shop, err := s.requireShop(ctx, userID)
	if err != nil {
		return err
	}
	secret, err := s.secret(shop)
	if err != nil {
		return err
	}
	if err := s.gateway.Do(ctx, s.request(shop, secret, resource, nil), out); err != nil {
		return upstreamError(action, err)
	}
	return nil
}

func (s *ShopService) requireShop(ctx context.Context, userID uuid.UUID) (*domain.ShopConnection, error) {
	shop, err := s.shopRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if shop == nil {
		return nil, domain.NewError(domain.KindNotConnected, "no shop is connected to this account")
	}
	return shop, nil
}

func (s *ShopService) secret(shop *domain.ShopConnection) (string, error) {
	secret, err := s.encryptor.DecryptSecret(shop.AccessSecretEncrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt access token for shop %s: %w", shop.ID, err)
	}
	return secret, nil
}

func (s *ShopService) request(shop *domain.ShopConnection, secret, resource string, query url.Values) upstream.Request {
	return upstream.Request{
		Domain:     shop.Domain,
		Secret:     secret,
		APIVersion: shop.APIVersion,
		Resource:   resource,
		Method:     http.MethodGet,
		Query:      query,
	}
}

func requireObject(action string, raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, upstreamError(action, &upstream.MalformedError{StatusCode: http.StatusOK, Err: errors.New("missing object in response")})
	}
	return raw, nil
}

func projectProducts(payload []productPayload) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(payload))
	for _, p := range payload {
		product := domain.Product{
			ID:          p.ID,
			Title:       p.Title,
			Handle:      p.Handle,
			ProductType: p.ProductType,
			Status:      p.Status,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
			Images:      make([]domain.ProductImage, 0, len(p.Images)),
			Variants:    make([]domain.ProductVariant, 0, len(p.Variants)),
		}
		for _, img := range p.Images {
			product.Images = append(product.Images, domain.ProductImage{ID: img.ID, Src: img.Src, Alt: img.Alt})
		}
		for _, v := range p.Variants {
			variant := domain.ProductVariant{ID: v.ID, Title: v.Title, InventoryQuantity: v.InventoryQuantity}
			price, err := variantPrice(v.Price)
			if err != nil {
				return nil, fmt.Errorf("variant %d price: %w", v.ID, err)
			}
			variant.Price = price
			product.Variants = append(product.Variants, variant)
		}
		products = append(products, product)
	}
	return products, nil
}

// variantPrice checks that raw (a JSON string or number) is a decimal and
// returns its text as sent upstream
func variantPrice(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", err
		}
	}
	if _, err := decimal.NewFromString(text); err != nil {
		return "", err
	}
	return text, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
