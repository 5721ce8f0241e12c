package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/storefront-gateway/internal/domain"
)

type shopRecord struct {
	shop domain.ShopConnection
}

// ShopRepository implements domain.ShopRepository in memory
type ShopRepository struct {
	store *Store
}

// Create creates a new shop connection
func (r *ShopRepository) Create(ctx context.Context, shop *domain.ShopConnection) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	shopDomain := strings.ToLower(shop.Domain)
	if _, taken := r.store.shopByDomain[shopDomain]; taken {
		return fmt.Errorf("domain %s: %w", shopDomain, domain.ErrConflict)
	}
	if _, taken := r.store.shops[shop.ID.String()]; taken {
		return fmt.Errorf("shop %s: %w", shop.ID, domain.ErrConflict)
	}

	stored := copyShop(shop)
	stored.Webhooks = nil
	r.store.shops[shop.ID.String()] = &shopRecord{shop: *stored}
	r.store.shopByDomain[shopDomain] = shop.ID.String()
	return nil
}

// Update replaces the mutable fields of a shop connection. The webhook mirror is left untouched.
func (r *ShopRepository) Update(ctx context.Context, shop *domain.ShopConnection) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.shops[shop.ID.String()]
	if !ok {
		return fmt.Errorf("shop %s not found", shop.ID)
	}

	webhooks := rec.shop.Webhooks
	updated := copyShop(shop)
	updated.Webhooks = webhooks
	updated.UserID = rec.shop.UserID
	updated.Domain = rec.shop.Domain
	updated.CreatedAt = rec.shop.CreatedAt
	rec.shop = *updated
	return nil
}

// GetByID retrieves a shop connection by ID
func (r *ShopRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ShopConnection, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rec, ok := r.store.shops[id.String()]
	if !ok {
		return nil, nil
	}
	return copyShop(&rec.shop), nil
}

// GetByDomain retrieves a shop connection by its storefront domain
func (r *ShopRepository) GetByDomain(ctx context.Context, shopDomain string) (*domain.ShopConnection, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.shopByDomain[strings.ToLower(shopDomain)]
	if !ok {
		return nil, nil
	}
	return copyShop(&r.store.shops[id].shop), nil
}

// GetByUserID retrieves the user's most recently connected shop
func (r *ShopRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.ShopConnection, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var latest *domain.ShopConnection
	for _, rec := range r.store.shops {
		if rec.shop.UserID != userID {
			continue
		}
		if latest == nil || rec.shop.ConnectedAt.After(latest.ConnectedAt) {
			latest = &rec.shop
		}
	}
	if latest == nil {
		return nil, nil
	}
	return copyShop(latest), nil
}

// AddWebhook appends a webhook record to the shop's mirror
func (r *ShopRepository) AddWebhook(ctx context.Context, shopID uuid.UUID, webhook domain.WebhookRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.shops[shopID.String()]
	if !ok {
		return fmt.Errorf("shop %s not found", shopID)
	}
	rec.shop.Webhooks = append(rec.shop.Webhooks, webhook)
	return nil
}

// TouchLastSync records a sync time without touching credentials
func (r *ShopRepository) TouchLastSync(ctx context.Context, shopID uuid.UUID, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.shops[shopID.String()]
	if !ok {
		return fmt.Errorf("shop %s not found", shopID)
	}
	rec.shop.LastSync = &at
	rec.shop.UpdatedAt = at
	return nil
}

func copyShop(s *domain.ShopConnection) *domain.ShopConnection {
	c := *s
	c.AccessSecretEncrypted = slices.Clone(s.AccessSecretEncrypted)
	c.Webhooks = slices.Clone(s.Webhooks)
	if s.LastSync != nil {
		t := *s.LastSync
		c.LastSync = &t
	}
	return &c
}
