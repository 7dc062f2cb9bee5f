package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/crocodileps/Mon-ps-sub009/internal/services"
	"github.com/crocodileps/Mon-ps-sub009/internal/tracker"
	"github.com/crocodileps/Mon-ps-sub009/pkg/utils"
)

type PicksHandler struct {
	matchday *services.MatchdayService
	logger   *logrus.Logger
}

func NewPicksHandler(matchday *services.MatchdayService, logger *logrus.Logger) *PicksHandler {
	return &PicksHandler{
		matchday: matchday,
		logger:   logger,
	}
}

func (h *PicksHandler) store(c *gin.Context) *tracker.Tracker {
	t := h.matchday.Tracker()
	if t == nil {
		utils.SendError(c, http.StatusServiceUnavailable, utils.NewAppError(utils.ErrCodeIOFailure, "pick store not configured"))
	}
	return t
}

// Resolve settles unresolved picks against finished fixtures.
func (h *PicksHandler) Resolve(c *gin.Context) {
	if h.store(c) == nil {
		return
	}
	summary, err := h.matchday.Resolve(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Pick resolution failed")
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, summary)
}

// Audit re-settles resolved picks and lists disagreements.
func (h *PicksHandler) Audit(c *gin.Context) {
	if h.store(c) == nil {
		return
	}
	conflicts, err := h.matchday.Audit(c.Request.Context())
	if errors.Is(err, utils.ErrResolutionConflict) {
		h.logger.WithField("conflicts", len(conflicts)).Warn("Resolution conflicts found")
		utils.SendConflict(c, "resolved picks disagree with match results", err.Error(), conflicts)
		return
	}
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	if conflicts == nil {
		conflicts = []tracker.Conflict{}
	}
	utils.SendSuccessWithMeta(c, conflicts, &utils.Meta{Total: int64(len(conflicts))})
}

// CLV rolls closing-line value up by source, market or bookmaker.
func (h *PicksHandler) CLV(c *gin.Context) {
	t := h.store(c)
	if t == nil {
		return
	}
	dim, err := tracker.ParseDimension(c.DefaultQuery("dimension", string(tracker.BySource)))
	if err != nil {
		utils.SendValidationError(c, "Invalid rollup dimension", err.Error())
		return
	}
	rollups, err := t.CLVRollups(c.Request.Context(), dim)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	if rollups == nil {
		rollups = []tracker.CLVRollup{}
	}
	utils.SendSuccessWithMeta(c, rollups, &utils.Meta{Total: int64(len(rollups))})
}

// Drift compares realised win rate with mean model probability per market.
func (h *PicksHandler) Drift(c *gin.Context) {
	t := h.store(c)
	if t == nil {
		return
	}
	drift, err := t.DriftReport(c.Request.Context())
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	if drift == nil {
		drift = []tracker.Drift{}
	}
	utils.SendSuccessWithMeta(c, drift, &utils.Meta{Total: int64(len(drift))})
}
