package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 10*time.Second, cfg.DBTimeout)
	assert.Equal(t, 720*time.Hour, cfg.StaleAfter)
	assert.Equal(t, 20*time.Second, cfg.ExternalAPITimeout)
	assert.Equal(t, 3, cfg.ExternalAPIRetries)
	assert.Equal(t, 2*time.Second, cfg.ExternalAPIBackoff)
	assert.Equal(t, 80.0, cfg.ChaosExtreme)
	assert.Equal(t, 3.5, cfg.XGShootout)
	assert.Equal(t, 10, cfg.MinSample)
	assert.Equal(t, 1.50, cfg.MinOdds)
	assert.Equal(t, 50, cfg.MinRefereeMatches)
	assert.Equal(t, "v2.3", cfg.PenaltyTableVersion)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.LessOrEqual(t, cfg.Workers, 8)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("CHAOS_EXTREME", "85")
	t.Setenv("WORKERS", "3")
	t.Setenv("PENALTY_TABLE_VERSION", "V2.2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 85.0, cfg.ChaosExtreme)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "v2.2", cfg.PenaltyTableVersion)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "min odds too low", mutate: func(c *Config) { c.MinOdds = 1.0 }, wantErr: true},
		{name: "unknown penalty table", mutate: func(c *Config) { c.PenaltyTableVersion = "v9" }, wantErr: true},
		{name: "negative stake", mutate: func(c *Config) { c.BaseStake = -1 }, wantErr: true},
		{name: "zero referee confidence", mutate: func(c *Config) { c.RefereeHighConfidence = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				MinOdds:               1.5,
				MinSample:             10,
				MinH2H:                5,
				MinRefereeMatches:     50,
				RefereeHighConfidence: 100,
				BaseStake:             1,
				PenaltyTableVersion:   "v2.3",
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
