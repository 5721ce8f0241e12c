package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Rrens/storefront-gateway/internal/domain"
)

// ShopRepository implements domain.ShopRepository on a mongo collection.
// Webhook records are embedded in the shop document.
type ShopRepository struct {
	collection *mongo.Collection
}

// Create creates a new shop connection
func (r *ShopRepository) Create(ctx context.Context, shop *domain.ShopConnection) error {
	doc := shopDocFromDomain(shop)
	doc.Domain = strings.ToLower(doc.Domain)

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to create shop connection: %w", domain.ErrConflict)
		}
		return fmt.Errorf("failed to create shop connection: %w", err)
	}
	return nil
}

// Update updates the mutable fields of a shop connection, leaving the webhook mirror alone
func (r *ShopRepository) Update(ctx context.Context, shop *domain.ShopConnection) error {
	set := bson.M{
		"shop_name":               shop.Name,
		"access_secret_encrypted": shop.AccessSecretEncrypted,
		"api_version":             shop.APIVersion,
		"status":                  string(shop.Status),
		"connected_at":            shop.ConnectedAt,
		"updated_at":              shop.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if shop.LastSync != nil {
		set["last_sync"] = *shop.LastSync
	} else {
		update["$unset"] = bson.M{"last_sync": ""}
	}

	res, err := r.collection.UpdateByID(ctx, shop.ID.String(), update)
	if err != nil {
		return fmt.Errorf("failed to update shop connection: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("shop %s not found", shop.ID)
	}
	return nil
}

// GetByID retrieves a shop connection by ID
func (r *ShopRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ShopConnection, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

// GetByDomain retrieves a shop connection by its storefront domain
func (r *ShopRepository) GetByDomain(ctx context.Context, shopDomain string) (*domain.ShopConnection, error) {
	return r.findOne(ctx, bson.M{"domain": strings.ToLower(shopDomain)})
}

// GetByUserID retrieves the user's most recently connected shop
func (r *ShopRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.ShopConnection, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "connected_at", Value: -1}})
	return r.findOne(ctx, bson.M{"user_id": userID.String()}, opts)
}

// AddWebhook appends a webhook record to the shop's mirror
func (r *ShopRepository) AddWebhook(ctx context.Context, shopID uuid.UUID, webhook domain.WebhookRecord) error {
	res, err := r.collection.UpdateByID(ctx, shopID.String(), bson.M{
		"$push": bson.M{"webhooks": webhookDoc{
			WebhookID: webhook.WebhookID,
			Topic:     webhook.Topic,
			Address:   webhook.Address,
			Format:    string(webhook.Format),
			CreatedAt: webhook.CreatedAt,
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to add webhook: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("shop %s not found", shopID)
	}
	return nil
}

// TouchLastSync records a sync time without touching credentials
func (r *ShopRepository) TouchLastSync(ctx context.Context, shopID uuid.UUID, at time.Time) error {
	res, err := r.collection.UpdateByID(ctx, shopID.String(), bson.M{
		"$set": bson.M{"last_sync": at, "updated_at": at},
	})
	if err != nil {
		return fmt.Errorf("failed to record last sync: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("shop %s not found", shopID)
	}
	return nil
}

func (r *ShopRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.ShopConnection, error) {
	var doc shopDoc
	err := r.collection.FindOne(ctx, filter, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop connection: %w", err)
	}
	return doc.toDomain()
}
