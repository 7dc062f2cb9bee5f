package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/crocodileps/Mon-ps-sub009/internal/datahub"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/pkg/config"
	"github.com/crocodileps/Mon-ps-sub009/pkg/database"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	lg := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		lg.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			lg.Fatalf("Failed to run migrations: %v", err)
		}
		lg.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			lg.Fatalf("Failed to drop tables: %v", err)
		}
		lg.Info("Tables dropped successfully")

	case "seed":
		counts, err := seedData(context.Background(), db, cfg, lg)
		if err != nil {
			lg.Fatalf("Failed to seed data: %v", err)
		}
		lg.WithFields(logrus.Fields(toFields(counts))).Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

// indexes gorm tags cannot express.
var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_picks_pending_kickoff ON picks(commence_time) WHERE is_resolved = false",
	"CREATE INDEX IF NOT EXISTS idx_picks_source_market ON picks(source, market_type)",
	"CREATE INDEX IF NOT EXISTS idx_match_results_finished ON match_results(is_finished, commence_time)",
}

func runMigrations(db *database.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	// reverse migration order
	all := models.AllModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", all[i], err)
		}
	}
	return nil
}

// seedData imports the JSON files in DATA_DIR into the database. Existing rows
// with the same natural key are overwritten.
func seedData(ctx context.Context, db *database.DB, cfg *config.Config, lg *logrus.Logger) (map[string]int, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("DATA_DIR is not set")
	}
	snapshot := datahub.Load(ctx, datahub.LoaderConfig{DataDir: cfg.DataDir, Timeout: cfg.DBTimeout}, lg)
	return datahub.Persist(ctx, db.DB, snapshot, lg)
}

func toFields(counts map[string]int) map[string]interface{} {
	fields := make(map[string]interface{}, len(counts))
	for k, v := range counts {
		fields[k] = v
	}
	return fields
}
