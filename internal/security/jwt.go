package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token is malformed or its signature does not verify
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token verified but its expiry has passed
	ErrExpiredToken = errors.New("token expired")
)

const issuer = "storefront-gateway"

// Claims represents JWT claims
type Claims struct {
	UserID uuid.UUID `json:"id"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token operations. Access and refresh tokens are
// signed with distinct secrets so neither secret can mint the other class.
type JWTManager struct {
	accessSecret    []byte
	refreshSecret   []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	now             func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		accessSecret:    []byte(accessSecret),
		refreshSecret:   []byte(refreshSecret),
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		now:             time.Now,
	}
}

// WithClock replaces the time source used for issuing and verifying
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

// GenerateAccessToken signs {id: userID} with the access secret and lifetime
func (m *JWTManager) GenerateAccessToken(userID uuid.UUID) (string, error) {
	return m.sign(userID, m.accessSecret, m.accessTokenTTL)
}

// GenerateRefreshToken signs {id: userID} with the refresh secret and lifetime
func (m *JWTManager) GenerateRefreshToken(userID uuid.UUID) (string, error) {
	return m.sign(userID, m.refreshSecret, m.refreshTokenTTL)
}

// GenerateTokenPair generates both access and refresh tokens
func (m *JWTManager) GenerateTokenPair(userID uuid.UUID) (accessToken, refreshToken string, expiresIn int64, err error) {
	accessToken, err = m.GenerateAccessToken(userID)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err = m.GenerateRefreshToken(userID)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, m.ExpiresIn(), nil
}

// ValidateAccessToken verifies a token against the access secret
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return m.Verify(tokenString, m.accessSecret)
}

// ValidateRefreshToken verifies a token against the refresh secret
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return m.Verify(tokenString, m.refreshSecret)
}

// Verify checks the signature and expiry of tokenString against secret.
// The returned error is ErrExpiredToken for an otherwise valid token whose
// expiry has passed and ErrInvalidToken for everything else.
func (m *JWTManager) Verify(tokenString string, secret []byte) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// AccessTokenTTL returns the access token TTL
func (m *JWTManager) AccessTokenTTL() time.Duration {
	return m.accessTokenTTL
}

// ExpiresIn returns the access token lifetime in seconds
func (m *JWTManager) ExpiresIn() int64 {
	return int64(m.accessTokenTTL.Seconds())
}

func (m *JWTManager) sign(userID uuid.UUID, secret []byte, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
