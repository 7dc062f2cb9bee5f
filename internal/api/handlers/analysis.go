package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/crocodileps/Mon-ps-sub009/internal/backtest"
	"github.com/crocodileps/Mon-ps-sub009/internal/engine"
	"github.com/crocodileps/Mon-ps-sub009/internal/providers"
	"github.com/crocodileps/Mon-ps-sub009/internal/services"
	"github.com/crocodileps/Mon-ps-sub009/internal/shorting"
	"github.com/crocodileps/Mon-ps-sub009/pkg/utils"
)

type AnalysisHandler struct {
	matchday *services.MatchdayService
	logger   *logrus.Logger
}

func NewAnalysisHandler(matchday *services.MatchdayService, logger *logrus.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		matchday: matchday,
		logger:   logger,
	}
}

type analyzeQuery struct {
	MatchID       string    `form:"match_id"`
	Home          string    `form:"home" binding:"required"`
	Away          string    `form:"away" binding:"required"`
	League        string    `form:"league"`
	CommenceTime  time.Time `form:"commence_time" time_format:"2006-01-02T15:04:05Z07:00"`
	Referee       string    `form:"referee"`
	OpponentStyle string    `form:"opponent_style"`
	Importance    float64   `form:"importance" binding:"min=0"`
}

// Analyze runs the full pipeline for one fixture.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var q analyzeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.SendValidationError(c, "Invalid analysis query", err.Error())
		return
	}

	start := time.Now()
	a, err := h.matchday.Analyze(c.Request.Context(), engine.Request{
		MatchID:         q.MatchID,
		Home:            q.Home,
		Away:            q.Away,
		League:          q.League,
		CommenceTime:    q.CommenceTime,
		Referee:         q.Referee,
		OpponentStyle:   q.OpponentStyle,
		MatchImportance: q.Importance,
	})
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	utils.SendSuccessWithMeta(c, a, &utils.Meta{
		Status:   a.Status,
		Duration: time.Since(start).String(),
	})
}

// ScanShorts lists defender lines at or above min_prob collapse probability.
func (h *AnalysisHandler) ScanShorts(c *gin.Context) {
	var q struct {
		MinProb *float64 `form:"min_prob" binding:"omitempty,min=0,max=100"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.SendValidationError(c, "Invalid shorts query", err.Error())
		return
	}
	minProb := shorting.DefaultMinProbability
	if q.MinProb != nil {
		minProb = *q.MinProb
	}

	out := h.matchday.ScanShorts(c.Request.Context(), minProb)
	if out == nil {
		out = []shorting.Assessment{}
	}
	utils.SendSuccessWithMeta(c, out, &utils.Meta{Total: int64(len(out))})
}

type backtestRequest struct {
	From      string  `json:"from" binding:"required"`
	To        string  `json:"to" binding:"required"`
	League    string  `json:"league"`
	Team      string  `json:"team"`
	BaseStake float64 `json:"base_stake" binding:"min=0"`
	Outcomes  bool    `json:"outcomes"`
}

// RunBacktest replays the engine over finished fixtures in [from, to].
func (h *AnalysisHandler) RunBacktest(c *gin.Context) {
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid backtest request", err.Error())
		return
	}
	from, to, err := backtest.ParseRange(req.From, req.To)
	if err != nil {
		utils.SendValidationError(c, "Invalid backtest range", err.Error())
		return
	}

	report, err := h.matchday.Backtest(c.Request.Context(), backtest.Config{
		From:      from,
		To:        to,
		League:    req.League,
		Team:      req.Team,
		BaseStake: req.BaseStake,
	})
	if err != nil && report == nil {
		utils.SendAppError(c, err)
		return
	}
	if err != nil {
		// client went away mid-run; the partial report is still returned
		h.logger.WithError(err).Warn("Backtest cancelled")
	}
	if !req.Outcomes {
		report.Outcomes = nil
	}
	utils.SendSuccess(c, report)
}

// Opportunities analyses the external feed without storing picks.
func (h *AnalysisHandler) Opportunities(c *gin.Context) {
	var q struct {
		Record bool `form:"record"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.SendValidationError(c, "Invalid opportunities query", err.Error())
		return
	}
	if q.Record {
		utils.SendValidationError(c, "Recording requires POST", "use POST /api/v1/opportunities to record picks")
		return
	}
	h.runOpportunities(c, false)
}

// RecordOpportunities runs the batch and stores the resulting picks.
func (h *AnalysisHandler) RecordOpportunities(c *gin.Context) {
	h.runOpportunities(c, true)
}

func (h *AnalysisHandler) runOpportunities(c *gin.Context, record bool) {
	report, err := h.matchday.RunOpportunities(c.Request.Context(), record)
	if err != nil && report == nil {
		if errors.Is(err, providers.ErrDisabled) || errors.Is(err, services.ErrNoStore) {
			utils.SendError(c, http.StatusServiceUnavailable, utils.NewAppError(utils.ErrCodeIOFailure, "opportunities unavailable", err.Error()))
			return
		}
		utils.SendAppError(c, err)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("record", record).Warn("Opportunity batch finished with errors")
	}
	utils.SendSuccessWithMeta(c, report, &utils.Meta{Total: int64(report.Fixtures)})
}
