package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crocodileps/Mon-ps-sub009/internal/services"
)

type HealthHandler struct {
	matchday *services.MatchdayService
	cache    *services.CacheService
}

func NewHealthHandler(matchday *services.MatchdayService, cache *services.CacheService) *HealthHandler {
	return &HealthHandler{
		matchday: matchday,
		cache:    cache,
	}
}

// GetHealth always answers 200 while the process is up; a failing cache ping is
// reported but does not fail the check.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	body := gin.H{
		"status":      "ok",
		"time":        time.Now().UTC(),
		"service":     "mon-ps",
		"hub_version": h.matchday.Engine().Source().Version(),
		"pick_store":  h.matchday.Tracker() != nil,
	}
	if h.cache != nil {
		cache := gin.H{"backend": h.cache.Backend(), "ok": true}
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			cache["ok"] = false
			cache["error"] = err.Error()
		}
		body["cache"] = cache
	}
	c.JSON(http.StatusOK, body)
}
