package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Rrens/storefront-gateway/internal/api/handler"
	customMiddleware "github.com/Rrens/storefront-gateway/internal/api/middleware"
	"github.com/Rrens/storefront-gateway/internal/config"
	"github.com/Rrens/storefront-gateway/internal/domain"
	"github.com/Rrens/storefront-gateway/internal/metrics"
	"github.com/Rrens/storefront-gateway/internal/security"
	"github.com/Rrens/storefront-gateway/internal/service"
	"github.com/Rrens/storefront-gateway/internal/upstream"
)

// Dependencies are the collaborators the router wires into services and handlers
type Dependencies struct {
	Config *config.Config
	Users  domain.UserRepository
	Shops  domain.ShopRepository
	// Store backs the readiness probe
	Store handler.Pinger
	// Limiter enables per-user rate limiting on authenticated routes when set
	Limiter customMiddleware.Limiter
	Metrics *metrics.Metrics
	// Gateway replaces the default upstream gateway built from Config
	Gateway service.Gateway
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Dependencies) (http.Handler, error) {
	cfg := deps.Config

	// Initialize security components
	jwtManager := security.NewJWTManager(
		cfg.Auth.AccessSecret,
		cfg.Auth.RefreshSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	encryptor, err := security.NewEncryptorFromBase64(cfg.Auth.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}
	storefront := security.NewStorefrontValidator(cfg.Upstream.DomainSuffix)

	gateway := deps.Gateway
	if gateway == nil {
		gateway = upstream.NewGateway(
			cfg.Upstream.Timeout,
			upstream.WithScheme(cfg.Upstream.Scheme),
			upstream.WithMetrics(deps.Metrics),
		)
	}

	// Initialize services
	authService := service.NewAuthService(deps.Users, jwtManager, hasher)
	shopService := service.NewShopService(
		deps.Shops,
		gateway,
		encryptor,
		cfg.Upstream.MaxPageSize,
		cfg.Upstream.DefaultPageSize,
	)

	// Initialize handlers
	validator := handler.NewValidator(storefront)
	authHandler := handler.NewAuthHandler(authService, validator)
	shopHandler := handler.NewShopHandler(shopService, validator)
	adminHandler := handler.NewAdminHandler(authService, shopService)

	authMiddleware := customMiddleware.NewAuthMiddleware(authService)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger(deps.Metrics))
	r.Use(middleware.Recoverer)
	if cfg.Server.MiddlewareTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.Server.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.Metrics.Enabled && deps.Metrics != nil {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, deps.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Store))

		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh-token", authHandler.Refresh)

			r.With(authMiddleware.Authenticate).Get("/profile", authHandler.Profile)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			if deps.Limiter != nil {
				r.Use(customMiddleware.NewRateLimitMiddleware(deps.Limiter).Limit)
			}

			r.Route("/shopify", func(r chi.Router) {
				r.Post("/connect", shopHandler.Connect)
				r.Get("/connection", shopHandler.GetConnection)
				r.Get("/products", shopHandler.ListProducts)
				r.Get("/products/{productID}", shopHandler.GetProduct)
				r.Get("/variants/{variantID}", shopHandler.GetVariant)
				r.Get("/webhooks", shopHandler.ListWebhooks)
				r.Post("/webhooks", shopHandler.RegisterWebhook)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(customMiddleware.RestrictTo(domain.RoleAdmin))

				r.Get("/users/{userID}", adminHandler.GetUser)
				r.Get("/shops/{shopID}", adminHandler.GetShop)
			})
		})
	})

	return r, nil
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
