package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	pkgdb "github.com/rentrover/rentrover/pkg/database"
	"github.com/rentrover/rentrover/services/bidding-service/migrations"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load environment variables (local overrides .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	dbURL := os.Getenv("BID_DB_URL")
	if dbURL == "" {
		logger.Error("BID_DB_URL is not set")
		os.Exit(1)
	}

	if err := pkgdb.Migrate(context.Background(), dbURL, migrations.FS); err != nil {
		logger.Error("Migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Migrations applied")
}
