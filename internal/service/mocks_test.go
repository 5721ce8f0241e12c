package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Rrens/storefront-gateway/internal/domain"
	"github.com/Rrens/storefront-gateway/internal/upstream"
)

// MockGateway mocks the Gateway interface. The first return value, when
// non-nil, is JSON that is decoded into out.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Do(ctx context.Context, req upstream.Request, out any) error {
	args := m.Called(ctx, req, out)
	if body := args.Get(0); body != nil && out != nil {
		if err := json.Unmarshal([]byte(body.(string)), out); err != nil {
			return err
		}
	}
	return args.Error(1)
}

// MockUserRepository mocks the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockShopRepository mocks the ShopRepository interface
type MockShopRepository struct {
	mock.Mock
}

func (m *MockShopRepository) Create(ctx context.Context, shop *domain.ShopConnection) error {
	args := m.Called(ctx, shop)
	return args.Error(0)
}

func (m *MockShopRepository) Update(ctx context.Context, shop *domain.ShopConnection) error {
	args := m.Called(ctx, shop)
	return args.Error(0)
}

func (m *MockShopRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ShopConnection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShopConnection), args.Error(1)
}

func (m *MockShopRepository) GetByDomain(ctx context.Context, shopDomain string) (*domain.ShopConnection, error) {
	args := m.Called(ctx, shopDomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShopConnection), args.Error(1)
}

func (m *MockShopRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.ShopConnection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShopConnection), args.Error(1)
}

func (m *MockShopRepository) TouchLastSync(ctx context.Context, shopID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, shopID, at)
	return args.Error(0)
}

func (m *MockShopRepository) AddWebhook(ctx context.Context, shopID uuid.UUID, webhook domain.WebhookRecord) error {
	args := m.Called(ctx, shopID, webhook)
	return args.Error(0)
}
