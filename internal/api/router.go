package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/crocodileps/Mon-ps-sub009/internal/api/handlers"
	"github.com/crocodileps/Mon-ps-sub009/internal/api/middleware"
	"github.com/crocodileps/Mon-ps-sub009/internal/services"
)

// NewRouter builds the gin engine with health, metrics and the /api/v1 routes.
func NewRouter(matchday *services.MatchdayService, cache *services.CacheService, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))

	health := handlers.NewHealthHandler(matchday, cache)
	router.GET("/health", health.GetHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(matchday.Metrics().Registry(), promhttp.HandlerOpts{})))

	SetupRoutes(router.Group("/api/v1"), matchday, logger)
	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, matchday *services.MatchdayService, logger *logrus.Logger) {
	analysisHandler := handlers.NewAnalysisHandler(matchday, logger)
	picksHandler := handlers.NewPicksHandler(matchday, logger)

	group.GET("/analyze", analysisHandler.Analyze)
	group.GET("/shorts", analysisHandler.ScanShorts)
	group.POST("/backtest", analysisHandler.RunBacktest)
	group.GET("/opportunities", analysisHandler.Opportunities)
	group.POST("/opportunities", analysisHandler.RecordOpportunities)

	picks := group.Group("/picks")
	{
		picks.POST("/resolve", picksHandler.Resolve)
		picks.GET("/audit", picksHandler.Audit)
		picks.GET("/clv", picksHandler.CLV)
		picks.GET("/drift", picksHandler.Drift)
	}
}
