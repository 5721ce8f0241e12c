package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/storefront-gateway/internal/api"
	"github.com/Rrens/storefront-gateway/internal/config"
	"github.com/Rrens/storefront-gateway/internal/domain"
	"github.com/Rrens/storefront-gateway/internal/logging"
	"github.com/Rrens/storefront-gateway/internal/metrics"
	"github.com/Rrens/storefront-gateway/internal/repository/memory"
	"github.com/Rrens/storefront-gateway/internal/repository/mongodb"
	"github.com/Rrens/storefront-gateway/internal/repository/postgres"
	"github.com/Rrens/storefront-gateway/internal/repository/redis"
)

// store is the backend chosen by database.driver
type store struct {
	users domain.UserRepository
	shops domain.ShopRepository
	ping  func(ctx context.Context) error
	close func(ctx context.Context)
}

func (s *store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Setup logger
	logCloser, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logCloser.Close()

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Msg("Starting storefront gateway")

	ctx := context.Background()

	// Initialize store
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.close(context.Background())

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	deps := api.Dependencies{
		Config:  cfg,
		Users:   st.users,
		Shops:   st.shops,
		Store:   st,
		Metrics: m,
	}

	// Initialize Redis
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()

		deps.Limiter = redis.NewRateLimiter(
			redisClient,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		)
	}

	// Initialize router
	router, err := api.NewRouter(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build router")
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsPath); err != nil {
				return nil, err
			}
		}
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &store{
			users: postgres.NewUserRepository(db),
			shops: postgres.NewShopRepository(db),
			ping:  db.Ping,
			close: func(context.Context) { db.Close() },
		}, nil

	case config.DriverMongo:
		db, err := mongodb.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &store{
			users: db.Users(),
			shops: db.Shops(),
			ping:  db.Ping,
			close: func(ctx context.Context) { _ = db.Close(ctx) },
		}, nil

	case config.DriverMemory:
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		mem := memory.NewStore()
		return &store{
			users: mem.Users(),
			shops: mem.Shops(),
			ping:  mem.Ping,
			close: func(context.Context) {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
