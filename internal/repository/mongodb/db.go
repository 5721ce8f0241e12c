package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Rrens/storefront-gateway/internal/config"
)

const (
	usersCollection = "users"
	shopsCollection = "shop_connections"
)

// DB wraps a mongo client and the database holding both collections
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewDB connects to cfg.MongoURI and ensures the unique indexes exist
func NewDB(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := &DB{client: client, db: client.Database(cfg.MongoDatabase)}
	if err := db.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return db, nil
}

// EnsureIndexes creates the uniqueness and lookup indexes. Uniqueness is enforced here, not in application code.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	_, err := d.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_key"),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = d.db.Collection(shopsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "domain", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("shop_connections_domain_key"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "connected_at", Value: -1}},
			Options: options.Index().SetName("shop_connections_user_id_idx"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create shop_connections indexes: %w", err)
	}
	return nil
}

// Ping verifies connectivity
func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

// Close disconnects the client
func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// Users returns a UserRepository backed by the users collection
func (d *DB) Users() *UserRepository {
	return &UserRepository{collection: d.db.Collection(usersCollection)}
}

// Shops returns a ShopRepository backed by the shop_connections collection
func (d *DB) Shops() *ShopRepository {
	return &ShopRepository{collection: d.db.Collection(shopsCollection)}
}
