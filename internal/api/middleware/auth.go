package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Rrens/storefront-gateway/internal/api/response"
	"github.com/Rrens/storefront-gateway/internal/domain"
)

type contextKey string

const (
	UserKey contextKey = "user"
)

const bearerPrefix = "Bearer "

// Authenticator resolves an access token to the user it names
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
}

// AuthMiddleware guards routes that need an authenticated user
type AuthMiddleware struct {
	auth Authenticator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Authenticate requires "Authorization: Bearer <token>" and attaches the resolved user
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "you are not logged in, please log in to get access")
			return
		}

		token, ok := strings.CutPrefix(authHeader, bearerPrefix)
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			response.Unauthorized(w, "invalid authorization header format")
			return
		}

		user, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			response.Fail(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RestrictTo rejects users whose role is not in roles. It must run after Authenticate.
func RestrictTo(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				response.Unauthorized(w, "you are not logged in, please log in to get access")
				return
			}
			if !user.HasRole(roles...) {
				response.Forbidden(w, "you do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser attaches user to ctx
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser gets the authenticated user from context
func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserKey).(*domain.User)
	return user, ok && user != nil
}

// GetUserID gets the authenticated user's ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	user, ok := GetUser(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return user.ID, true
}
