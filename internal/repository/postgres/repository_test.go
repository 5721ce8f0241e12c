package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/storefront-gateway/internal/domain"
)

// openTestDB connects to TEST_POSTGRES_DSN and applies migrations, skipping when unset
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set - run as integration test")
	}

	require.NoError(t, RunMigrations(dsn, "file://../../../migrations"))

	db, err := Open(context.Background(), dsn, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func newUser(t *testing.T, repo *UserRepository) *domain.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &domain.User{
		ID:           uuid.New(),
		Name:         "Ana",
		Email:        uuid.NewString() + "@x.com",
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestUserRepository_Integration(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newUser(t, repo)

	dup := *user
	dup.ID = uuid.New()
	assert.ErrorIs(t, repo.Create(ctx, &dup), domain.ErrConflict)

	got, err := repo.GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Nil(t, got.LastLogin)

	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, time.Now()))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLogin)

	missing, err := repo.GetByID(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestShopRepository_Integration(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	repo := NewShopRepository(db)
	ctx := context.Background()

	owner := newUser(t, users)
	other := newUser(t, users)
	now := time.Now().UTC().Truncate(time.Microsecond)
	shopDomain := uuid.NewString()[:8] + ".myshopify.com"

	shop := &domain.ShopConnection{
		ID:                    uuid.New(),
		UserID:                owner.ID,
		Domain:                shopDomain,
		Name:                  "Shop",
		AccessSecretEncrypted: []byte{1, 2, 3},
		APIVersion:            "2024-01",
		Status:                domain.ShopStatusConnected,
		ConnectedAt:           now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	require.NoError(t, repo.Create(ctx, shop))

	claim := *shop
	claim.ID = uuid.New()
	claim.UserID = other.ID
	assert.ErrorIs(t, repo.Create(ctx, &claim), domain.ErrConflict)

	require.NoError(t, repo.AddWebhook(ctx, shop.ID, domain.WebhookRecord{
		WebhookID: 42, Topic: "orders/create", Address: "https://h.example.com", Format: domain.WebhookFormatJSON, CreatedAt: now,
	}))

	sync := now.Add(time.Minute)
	shop.LastSync = &sync
	require.NoError(t, repo.Update(ctx, shop))

	got, err := repo.GetByUserID(ctx, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, shop.ID, got.ID)
	assert.Equal(t, []byte{1, 2, 3}, got.AccessSecretEncrypted)
	require.NotNil(t, got.LastSync)
	require.Len(t, got.Webhooks, 1)
	assert.Equal(t, int64(42), got.Webhooks[0].WebhookID)

	rotated := *got
	rotated.AccessSecretEncrypted = []byte{9, 9}
	rotated.APIVersion = "2024-04"
	require.NoError(t, repo.Update(ctx, &rotated))
	require.NoError(t, repo.TouchLastSync(ctx, shop.ID, now.Add(2*time.Minute)))

	got, err = repo.GetByID(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, got.AccessSecretEncrypted)
	assert.Equal(t, "2024-04", got.APIVersion)
	require.NotNil(t, got.LastSync)
	assert.True(t, now.Add(2*time.Minute).Equal(*got.LastSync))

	none, err := repo.GetByDomain(ctx, "absent.myshopify.com")
	assert.NoError(t, err)
	assert.Nil(t, none)
}
