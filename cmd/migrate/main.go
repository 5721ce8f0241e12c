package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/storefront-gateway/internal/config"
	"github.com/Rrens/storefront-gateway/internal/logging"
	"github.com/Rrens/storefront-gateway/internal/repository/postgres"
)

func main() {
	source := flag.String("source", "", "migrations source URL (defaults to database.migrations_path)")
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] up|down\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if _, err := logging.Setup(cfg.Logging); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}

	sourceURL := *source
	if sourceURL == "" {
		sourceURL = cfg.Database.MigrationsPath
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("source", sourceURL).
		Msg("Connecting to database")

	switch flag.Arg(0) {
	case "", "up":
		err = postgres.RunMigrations(cfg.Database.DSN(), sourceURL)
	case "down":
		err = postgres.RollbackMigrations(cfg.Database.DSN(), sourceURL, *steps)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
