package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ShopStatus is the state of a shop connection
type ShopStatus string

const (
	ShopStatusConnected    ShopStatus = "connected"
	ShopStatusDisconnected ShopStatus = "disconnected"
	ShopStatusError        ShopStatus = "error"
)

// WebhookFormat is the delivery format of a webhook
type WebhookFormat string

const (
	WebhookFormatJSON WebhookFormat = "json"
	WebhookFormatXML  WebhookFormat = "xml"
)

// ShopConnection binds one user to one remote storefront
type ShopConnection struct {
	ID                    uuid.UUID       `json:"id"`
	UserID                uuid.UUID       `json:"user_id"`
	Domain                string          `json:"domain"`
	Name                  string          `json:"shop_name"`
	AccessSecretEncrypted []byte          `json:"-"`
	APIVersion            string          `json:"api_version"`
	Status                ShopStatus      `json:"status"`
	ConnectedAt           time.Time       `json:"connected_at"`
	LastSync              *time.Time      `json:"last_sync"`
	Webhooks              []WebhookRecord `json:"webhooks"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// WebhookRecord mirrors a webhook acknowledged by the remote API
type WebhookRecord struct {
	WebhookID int64         `json:"webhook_id"`
	Topic     string        `json:"topic"`
	Address   string        `json:"address"`
	Format    WebhookFormat `json:"format"`
	CreatedAt time.Time     `json:"created_at"`
}

// ShopConnect represents a connect request
type ShopConnect struct {
	Domain      string `json:"shop_domain" validate:"required,shopdomain"`
	AccessToken string `json:"access_token" validate:"required,max=255"`
	APIVersion  string `json:"api_version" validate:"required,apiversion"`
}

// WebhookCreate represents a webhook registration request
type WebhookCreate struct {
	Topic   string        `json:"topic" validate:"required,webhooktopic"`
	Address string        `json:"address" validate:"required,url,max=2048"`
	Format  WebhookFormat `json:"format" validate:"omitempty,oneof=json xml"`
}

// ConnectionSummary is returned after a successful connect
type ConnectionSummary struct {
	ShopID      uuid.UUID  `json:"shop_id"`
	ShopName    string     `json:"shop_name"`
	Domain      string     `json:"domain"`
	Status      ShopStatus `json:"status"`
	ConnectedAt time.Time  `json:"connected_at"`
}

// ShopRepository defines the interface for shop connection storage.
// Lookups return (nil, nil) when no record matches. Create and Update
// never touch the webhook mirror; AddWebhook is its only writer.
// TouchLastSync writes only last_sync and updated_at.
type ShopRepository interface {
	Create(ctx context.Context, shop *ShopConnection) error
	Update(ctx context.Context, shop *ShopConnection) error
	GetByID(ctx context.Context, id uuid.UUID) (*ShopConnection, error)
	GetByDomain(ctx context.Context, domain string) (*ShopConnection, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*ShopConnection, error)
	AddWebhook(ctx context.Context, shopID uuid.UUID, webhook WebhookRecord) error
	TouchLastSync(ctx context.Context, shopID uuid.UUID, at time.Time) error
}

// Summary returns the connect response view
func (s *ShopConnection) Summary() ConnectionSummary {
	return ConnectionSummary{
		ShopID:      s.ID,
		ShopName:    s.Name,
		Domain:      s.Domain,
		Status:      s.Status,
		ConnectedAt: s.ConnectedAt,
	}
}

// WebhookTopics is the closed set of topics that may be registered
var WebhookTopics = []string{
	"app/uninstalled",
	"carts/create",
	"carts/update",
	"checkouts/create",
	"checkouts/update",
	"collections/create",
	"collections/update",
	"collections/delete",
	"customers/create",
	"customers/update",
	"customers/delete",
	"fulfillments/create",
	"fulfillments/update",
	"inventory_levels/update",
	"orders/create",
	"orders/updated",
	"orders/paid",
	"orders/cancelled",
	"orders/fulfilled",
	"orders/delete",
	"products/create",
	"products/update",
	"products/delete",
	"refunds/create",
	"shop/update",
}

// IsWebhookTopic reports whether topic belongs to WebhookTopics
func IsWebhookTopic(topic string) bool {
	for _, t := range WebhookTopics {
		if t == topic {
			return true
		}
	}
	return false
}
