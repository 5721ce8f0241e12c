package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/storefront-gateway/internal/domain"
	"github.com/Rrens/storefront-gateway/internal/security"
)

const (
	msgInvalidCredentials = "invalid email or password"

	// placeholderPassword is hashed once so unknown emails pay the same compare cost
	placeholderPassword = "placeholder-password-never-matches"
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo   domain.UserRepository
	jwtManager *security.JWTManager
	hasher     security.PasswordHasher
	dummyHash  string
	now        func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo domain.UserRepository,
	jwtManager *security.JWTManager,
	hasher security.PasswordHasher,
) *AuthService {
	dummyHash, err := hasher.Hash(placeholderPassword)
	if err != nil {
		log.Warn().Err(err).Msg("failed to prepare placeholder password hash")
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		hasher:     hasher,
		dummyHash:  dummyHash,
		now:        time.Now,
	}
}

// Register creates a new user account and signs it in
func (s *AuthService) Register(ctx context.Context, input domain.UserCreate) (*domain.AuthResult, error) {
	hashedPassword, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(input.Name),
		Email:        normalizeEmail(input.Email),
		PasswordHash: hashedPassword,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.WrapError(domain.KindConflict, "email already registered", err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.signIn(ctx, user)
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, input domain.UserLogin) (*domain.AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		_ = s.hasher.Compare(s.dummyHash, input.Password)
		return nil, domain.NewError(domain.KindUnauthenticated, msgInvalidCredentials)
	}

	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return nil, domain.NewError(domain.KindUnauthenticated, msgInvalidCredentials)
		}
		return nil, err
	}

	return s.signIn(ctx, user)
}

// Refresh mints a new access token from a refresh token. The refresh token is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.AccessGrant, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return nil, domain.WrapError(domain.KindUnauthenticated, "session expired, please log in again", err)
		}
		return nil, domain.WrapError(domain.KindUnauthenticated, "invalid refresh token", err)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.NewError(domain.KindUnauthenticated, "the user for this token no longer exists")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &domain.AccessGrant{
		AccessToken: accessToken,
		ExpiresIn:   s.jwtManager.ExpiresIn(),
	}, nil
}

// Authenticate verifies an access token and resolves the user it names
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return nil, domain.WrapError(domain.KindUnauthenticated, "token expired, please log in again", err)
		}
		return nil, domain.WrapError(domain.KindUnauthenticated, "invalid token, please log in again", err)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.NewError(domain.KindUnauthenticated, "the user for this token no longer exists")
	}
	return user, nil
}

// Profile returns the profile of userID
func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.NewError(domain.KindUnauthenticated, "the user for this token no longer exists")
	}
	profile := user.ToProfile()
	return &profile, nil
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.NewError(domain.KindNotFound, "user not found")
	}
	return user, nil
}

func (s *AuthService) signIn(ctx context.Context, user *domain.User) (*domain.AuthResult, error) {
	now := s.now().UTC()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	user.LastLogin = &now

	accessToken, refreshToken, expiresIn, err := s.jwtManager.GenerateTokenPair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	log.Debug().Str("user_id", user.ID.String()).Msg("user signed in")

	return &domain.AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		User:         user.Summary(),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
