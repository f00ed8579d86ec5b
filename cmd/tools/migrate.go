package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/baxromumarov/fresher-hunter/internal/store"
)

func main() {
	dbURL := flag.String("db", os.Getenv("DATABASE_URL"), "Database URL")
	schema := flag.String("schema", "", "Schema file to apply instead of the embedded one")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if *dbURL == "" {
		logger.Error("no database URL: pass -db or set DATABASE_URL")
		os.Exit(2)
	}

	db, err := store.NewStore(*dbURL)
	if err != nil {
		logger.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(context.Background(), *schema); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	logger.Info("migrations executed successfully")
}
