// Package app assembles the engine, stores and services from configuration for
// the command binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/crocodileps/Mon-ps-sub009/internal/datahub"
	"github.com/crocodileps/Mon-ps-sub009/internal/engine"
	"github.com/crocodileps/Mon-ps-sub009/internal/metrics"
	"github.com/crocodileps/Mon-ps-sub009/internal/providers"
	"github.com/crocodileps/Mon-ps-sub009/internal/services"
	"github.com/crocodileps/Mon-ps-sub009/internal/tracker"
	"github.com/crocodileps/Mon-ps-sub009/internal/value"
	"github.com/crocodileps/Mon-ps-sub009/pkg/config"
	"github.com/crocodileps/Mon-ps-sub009/pkg/database"
)

type App struct {
	Config   *config.Config
	Logger   *logrus.Logger
	DB       *database.DB // nil when the database is unreachable
	Cache    *services.CacheService
	Hub      *datahub.Hub
	Engine   *engine.Engine
	Tracker  *tracker.Tracker // nil without a database
	Provider *providers.OpportunityClient
	Metrics  *metrics.Metrics
	Matchday *services.MatchdayService

	redis *redis.Client
}

// New connects the stores and loads the first snapshot. A missing database or
// redis degrades to files and an in-memory cache rather than failing.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.WithError(err).Warn("Database unavailable, running on file inputs only")
	} else {
		a.DB = db
	}

	redisClient, err := services.NewRedisClient(cfg.RedisURL)
	if err != nil {
		a.Close()
		return nil, err
	}
	if redisClient != nil {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.DBTimeout)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, using in-memory cache")
			_ = redisClient.Close()
			redisClient = nil
		}
	}
	a.redis = redisClient
	a.Cache = services.NewCacheService(redisClient)

	loader := func(ctx context.Context) *datahub.Snapshot {
		return datahub.Load(ctx, datahub.LoaderConfig{
			DB:      a.gorm(),
			DataDir: cfg.DataDir,
			Timeout: cfg.DBTimeout,
		}, logger)
	}

	a.Hub = datahub.New(loader(ctx), datahub.Options{
		RefereeHighConfidence: cfg.RefereeHighConfidence,
		LeagueAvgTrigger:      cfg.LeagueAvgTrigger,
	}, logger)

	scorer, err := value.NewScorer(cfg.PenaltyTableVersion, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build value scorer: %w", err)
	}
	a.Engine = engine.New(a.Hub, scorer, engine.OptionsFromConfig(cfg), logger)

	if a.DB != nil {
		a.Tracker = tracker.NewTracker(a.DB.DB, tracker.SettingsFromConfig(cfg), logger)
	}
	a.Provider = providers.NewOpportunityClient(providers.ConfigFromApp(cfg), a.Cache, logger)

	a.Matchday = services.NewMatchdayService(services.MatchdayDeps{
		Engine:   a.Engine,
		Hub:      a.Hub,
		Tracker:  a.Tracker,
		Provider: a.Provider,
		Cache:    a.Cache,
		Metrics:  a.Metrics,
		Loader:   loader,
		CacheTTL: cfg.CacheTTL,
	}, logger)

	logger.WithFields(logrus.Fields{
		"teams":     len(a.Hub.Teams()),
		"database":  a.DB != nil,
		"cache":     a.Cache.Backend(),
		"provider":  a.Provider.Enabled(),
		"penalties": cfg.PenaltyTableVersion,
		"workers":   cfg.Workers,
	}).Info("Engine ready")
	return a, nil
}

func (a *App) gorm() *gorm.DB {
	if a.DB == nil {
		return nil
	}
	return a.DB.DB
}

func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	return errors.Join(errs...)
}
