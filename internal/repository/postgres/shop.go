package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Rrens/storefront-gateway/internal/domain"
)

const shopColumns = `
	id, user_id, domain, shop_name, access_secret_encrypted, api_version,
	status, connected_at, last_sync, created_at, updated_at`

// ShopRepository handles shop connection data access
type ShopRepository struct {
	db *DB
}

// NewShopRepository creates a new shop repository
func NewShopRepository(db *DB) *ShopRepository {
	return &ShopRepository{db: db}
}

// Create creates a new shop connection. The unique index on domain decides concurrent claims.
func (r *ShopRepository) Create(ctx context.Context, shop *domain.ShopConnection) error {
	query := `
		INSERT INTO shop_connections (
			id, user_id, domain, shop_name, access_secret_encrypted, api_version,
			status, connected_at, last_sync, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		shop.ID,
		shop.UserID,
		shop.Domain,
		shop.Name,
		shop.AccessSecretEncrypted,
		shop.APIVersion,
		shop.Status,
		shop.ConnectedAt,
		shop.LastSync,
		shop.CreatedAt,
		shop.UpdatedAt,
	)
	if err != nil {
		return translate(err, "failed to create shop connection")
	}

	return nil
}

// Update updates the mutable fields of a shop connection
func (r *ShopRepository) Update(ctx context.Context, shop *domain.ShopConnection) error {
	query := `
		UPDATE shop_connections
		SET shop_name = $2, access_secret_encrypted = $3, api_version = $4,
			status = $5, connected_at = $6, last_sync = $7, updated_at = $8
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		shop.ID,
		shop.Name,
		shop.AccessSecretEncrypted,
		shop.APIVersion,
		shop.Status,
		shop.ConnectedAt,
		shop.LastSync,
		shop.UpdatedAt,
	)
	if err != nil {
		return translate(err, "failed to update shop connection")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shop %s not found", shop.ID)
	}

	return nil
}

// GetByID retrieves a shop connection by ID
func (r *ShopRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ShopConnection, error) {
	return r.getOne(ctx, `SELECT `+shopColumns+` FROM shop_connections WHERE id = $1`, id)
}

// GetByDomain retrieves a shop connection by its storefront domain
func (r *ShopRepository) GetByDomain(ctx context.Context, shopDomain string) (*domain.ShopConnection, error) {
	return r.getOne(ctx, `SELECT `+shopColumns+` FROM shop_connections WHERE LOWER(domain) = LOWER($1)`, shopDomain)
}

// GetByUserID retrieves the user's most recently connected shop
func (r *ShopRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.ShopConnection, error) {
	query := `SELECT ` + shopColumns + `
		FROM shop_connections
		WHERE user_id = $1
		ORDER BY connected_at DESC
		LIMIT 1`
	return r.getOne(ctx, query, userID)
}

// AddWebhook appends a webhook record to the shop's mirror
func (r *ShopRepository) AddWebhook(ctx context.Context, shopID uuid.UUID, webhook domain.WebhookRecord) error {
	query := `
		INSERT INTO shop_webhooks (shop_id, webhook_id, topic, address, format, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		shopID,
		webhook.WebhookID,
		webhook.Topic,
		webhook.Address,
		webhook.Format,
		webhook.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add webhook: %w", err)
	}

	return nil
}

// TouchLastSync records a sync time without touching credentials
func (r *ShopRepository) TouchLastSync(ctx context.Context, shopID uuid.UUID, at time.Time) error {
	query := `
		UPDATE shop_connections
		SET last_sync = $2, updated_at = $2
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, shopID, at)
	if err != nil {
		return fmt.Errorf("failed to record last sync: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shop %s not found", shopID)
	}

	return nil
}

func (r *ShopRepository) getOne(ctx context.Context, query string, arg any) (*domain.ShopConnection, error) {
	var shop domain.ShopConnection
	err := r.db.Pool.QueryRow(ctx, query, arg).Scan(
		&shop.ID,
		&shop.UserID,
		&shop.Domain,
		&shop.Name,
		&shop.AccessSecretEncrypted,
		&shop.APIVersion,
		&shop.Status,
		&shop.ConnectedAt,
		&shop.LastSync,
		&shop.CreatedAt,
		&shop.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shop connection: %w", err)
	}

	webhooks, err := r.listWebhooks(ctx, shop.ID)
	if err != nil {
		return nil, err
	}
	shop.Webhooks = webhooks

	return &shop, nil
}

func (r *ShopRepository) listWebhooks(ctx context.Context, shopID uuid.UUID) ([]domain.WebhookRecord, error) {
	query := `
		SELECT webhook_id, topic, address, format, created_at
		FROM shop_webhooks
		WHERE shop_id = $1
		ORDER BY id
	`

	rows, err := r.db.Pool.Query(ctx, query, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []domain.WebhookRecord
	for rows.Next() {
		var w domain.WebhookRecord
		if err := rows.Scan(&w.WebhookID, &w.Topic, &w.Address, &w.Format, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, w)
	}

	return webhooks, rows.Err()
}
