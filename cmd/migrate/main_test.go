package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crocodileps/Mon-ps-sub009/internal/datahub"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/pkg/config"
	"github.com/crocodileps/Mon-ps-sub009/pkg/database"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewConnection(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpDown(t *testing.T) {
	db := setupDB(t)

	require.NoError(t, runMigrations(db))
	for _, m := range models.AllModels() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Pick{}, "idx_picks_pending_kickoff"))

	// idempotent
	require.NoError(t, runMigrations(db))

	require.NoError(t, dropTables(db))
	for _, m := range models.AllModels() {
		assert.False(t, db.Migrator().HasTable(m), "%T", m)
	}
}

func TestSeedFromDataDir(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, runMigrations(db))

	dir := t.TempDir()
	teams := `{"teams": [{"team_name": "Arsenal", "league": "EPL"}, {"team_name": "Chelsea", "league": "EPL"}],
	"friction": [{"team_a": "Arsenal", "team_b": "Chelsea", "friction_score": 70, "chaos_potential": 55}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, datahub.FileTeamsContext), []byte(teams), 0o644))

	cfg := &config.Config{DataDir: dir}
	ctx := context.Background()

	counts, err := seedData(ctx, db, cfg, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, 2, counts["team_profiles"])

	// reseeding upserts rather than duplicating
	_, err = seedData(ctx, db, cfg, logger.Discard())
	require.NoError(t, err)
	var n int64
	require.NoError(t, db.Model(&models.TeamProfile{}).Count(&n).Error)
	assert.Equal(t, int64(2), n)

	snap, err := datahub.LoadFromDB(ctx, db.DB, 0)
	require.NoError(t, err)
	assert.Len(t, snap.Friction, 1)
}

func TestSeedRequiresDataDir(t *testing.T) {
	_, err := seedData(context.Background(), setupDB(t), &config.Config{}, logger.Discard())
	assert.Error(t, err)
}
