package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/firewatch/suggestionbox/internal/config"
	"github.com/firewatch/suggestionbox/internal/db"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		slog.Error("migration failed", "err", err)
		os.Exit(1)
	}

	backend := "sqlite"
	if db.IsPostgres(cfg.DatabaseURL) {
		backend = "postgres"
	}
	fmt.Printf("migrations complete (%s)\n", backend)
}
