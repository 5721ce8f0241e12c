package mongodb

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/storefront-gateway/internal/domain"
)

type userDoc struct {
	ID           string     `bson:"_id"`
	Name         string     `bson:"name"`
	Email        string     `bson:"email"`
	PasswordHash string     `bson:"password_hash"`
	Role         string     `bson:"role"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
	LastLogin    *time.Time `bson:"last_login,omitempty"`
}

type shopDoc struct {
	ID                    string       `bson:"_id"`
	UserID                string       `bson:"user_id"`
	Domain                string       `bson:"domain"`
	Name                  string       `bson:"shop_name"`
	AccessSecretEncrypted []byte       `bson:"access_secret_encrypted"`
	APIVersion            string       `bson:"api_version"`
	Status                string       `bson:"status"`
	ConnectedAt           time.Time    `bson:"connected_at"`
	LastSync              *time.Time   `bson:"last_sync,omitempty"`
	Webhooks              []webhookDoc `bson:"webhooks"`
	CreatedAt             time.Time    `bson:"created_at"`
	UpdatedAt             time.Time    `bson:"updated_at"`
}

type webhookDoc struct {
	WebhookID int64     `bson:"webhook_id"`
	Topic     string    `bson:"topic"`
	Address   string    `bson:"address"`
	Format    string    `bson:"format"`
	CreatedAt time.Time `bson:"created_at"`
}

func userDocFromDomain(u *domain.User) userDoc {
	return userDoc{
		ID:           u.ID.String(),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    u.LastLogin,
	}
}

func (d *userDoc) toDomain() (*domain.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", d.ID, err)
	}
	return &domain.User{
		ID:           id,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		LastLogin:    d.LastLogin,
	}, nil
}

func shopDocFromDomain(s *domain.ShopConnection) shopDoc {
	return shopDoc{
		ID:                    s.ID.String(),
		UserID:                s.UserID.String(),
		Domain:                s.Domain,
		Name:                  s.Name,
		AccessSecretEncrypted: s.AccessSecretEncrypted,
		APIVersion:            s.APIVersion,
		Status:                string(s.Status),
		ConnectedAt:           s.ConnectedAt,
		LastSync:              s.LastSync,
		Webhooks:              []webhookDoc{},
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}

func (d *shopDoc) toDomain() (*domain.ShopConnection, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid shop id %q: %w", d.ID, err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", d.UserID, err)
	}

	shop := &domain.ShopConnection{
		ID:                    id,
		UserID:                userID,
		Domain:                d.Domain,
		Name:                  d.Name,
		AccessSecretEncrypted: d.AccessSecretEncrypted,
		APIVersion:            d.APIVersion,
		Status:                domain.ShopStatus(d.Status),
		ConnectedAt:           d.ConnectedAt,
		LastSync:              d.LastSync,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
	for _, w := range d.Webhooks {
		shop.Webhooks = append(shop.Webhooks, domain.WebhookRecord{
			WebhookID: w.WebhookID,
			Topic:     w.Topic,
			Address:   w.Address,
			Format:    domain.WebhookFormat(w.Format),
			CreatedAt: w.CreatedAt,
		})
	}
	return shop, nil
}
