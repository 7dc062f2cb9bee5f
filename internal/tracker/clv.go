package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/pkg/utils"
)

// CLV is the percentage by which the taken price beat the closing price:
// (taken/closing - 1) * 100. Positive means the market moved toward the pick.
func CLV(taken, closing float64) (float64, error) {
	if taken <= 1 || closing <= 1 {
		return 0, fmt.Errorf("%w: odds must exceed 1 (taken %.2f, closing %.2f)", utils.ErrInvalidInput, taken, closing)
	}
	t, c := decimal.NewFromFloat(taken), decimal.NewFromFloat(closing)
	return t.Div(c).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64(), nil
}

// UpdateClosingOdds writes closing odds and CLV onto an unresolved pick.
func (t *Tracker) UpdateClosingOdds(ctx context.Context, pickID string, closing float64, bookmaker string) (models.Pick, error) {
	var pick models.Pick
	if err := t.db.WithContext(ctx).Where("id = ?", pickID).First(&pick).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pick, utils.NewAppError(utils.ErrCodeNotFound, "pick not found", pickID)
		}
		return pick, fmt.Errorf("failed to load pick: %w", err)
	}
	if pick.IsResolved {
		return pick, fmt.Errorf("%w: %s", utils.ErrResolvedImmutable, pickID)
	}

	clv, err := CLV(pick.OddsTaken, closing)
	if err != nil {
		return pick, err
	}

	updates := map[string]interface{}{
		"closing_odds":   closing,
		"clv_percentage": clv,
	}
	if bookmaker != "" && pick.Bookmaker == "" {
		updates["bookmaker"] = bookmaker
	}
	res := t.db.WithContext(ctx).Model(&models.Pick{}).
		Where("id = ? AND is_resolved = ?", pickID, false).
		Updates(updates)
	if res.Error != nil {
		return pick, fmt.Errorf("failed to update closing odds: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return pick, fmt.Errorf("%w: %s", utils.ErrResolvedImmutable, pickID)
	}

	pick.ClosingOdds = &closing
	pick.CLVPercentage = &clv
	if b, ok := updates["bookmaker"].(string); ok {
		pick.Bookmaker = b
	}
	t.logger.WithFields(logrus.Fields{
		"pick_id": pickID,
		"taken":   pick.OddsTaken,
		"closing": closing,
		"clv":     clv,
	}).Debug("Closing odds captured")
	return pick, nil
}

// PendingClosing lists unresolved picks without closing odds whose kickoff falls
// inside [now, now+window].
func (t *Tracker) PendingClosing(ctx context.Context, now time.Time, window time.Duration) ([]models.Pick, error) {
	var picks []models.Pick
	err := t.db.WithContext(ctx).
		Where("is_resolved = ? AND closing_odds IS NULL AND commence_time BETWEEN ? AND ?", false, now, now.Add(window)).
		Order("commence_time, id").
		Find(&picks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load picks awaiting closing odds: %w", err)
	}
	return picks, nil
}

type Dimension string

const (
	BySource    Dimension = "source"
	ByMarket    Dimension = "market"
	ByBookmaker Dimension = "bookmaker"
)

var dimensionColumns = map[Dimension]string{
	BySource:    "source",
	ByMarket:    "market_type",
	ByBookmaker: "COALESCE(NULLIF(bookmaker, ''), 'unknown')",
}

func ParseDimension(s string) (Dimension, error) {
	d := Dimension(s)
	if _, ok := dimensionColumns[d]; !ok {
		return "", fmt.Errorf("%w: unknown rollup dimension %q", utils.ErrInvalidInput, s)
	}
	return d, nil
}

type CLVRollup struct {
	Dimension      Dimension `json:"dimension"`
	Key            string    `json:"key"`
	Picks          int       `json:"picks"`
	AvgCLV         float64   `json:"avg_clv"`
	BeatClose      int       `json:"beat_close"`
	BeatCloseShare float64   `json:"beat_close_share"`
}

type rollupRow struct {
	GroupKey  string
	Picks     int
	AvgCLV    float64
	BeatClose int
}

// CLVRollups aggregates picks that have a CLV value along one dimension.
func (t *Tracker) CLVRollups(ctx context.Context, dim Dimension) ([]CLVRollup, error) {
	col, ok := dimensionColumns[dim]
	if !ok {
		return nil, fmt.Errorf("%w: unknown rollup dimension %q", utils.ErrInvalidInput, dim)
	}

	var rows []rollupRow
	err := t.db.WithContext(ctx).Model(&models.Pick{}).
		Select(col + " AS group_key, COUNT(*) AS picks, AVG(clv_percentage) AS avg_clv, " +
			"SUM(CASE WHEN clv_percentage > 0 THEN 1 ELSE 0 END) AS beat_close").
		Where("clv_percentage IS NOT NULL").
		Group("group_key").
		Order("group_key").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate clv: %w", err)
	}

	out := make([]CLVRollup, 0, len(rows))
	for _, r := range rows {
		share := 0.0
		if r.Picks > 0 {
			share = float64(r.BeatClose) / float64(r.Picks) * 100
		}
		out = append(out, CLVRollup{
			Dimension:      dim,
			Key:            r.GroupKey,
			Picks:          r.Picks,
			AvgCLV:         round2(r.AvgCLV),
			BeatClose:      r.BeatClose,
			BeatCloseShare: round2(share),
		})
	}
	return out, nil
}

// Drift compares realised win rate with the mean model probability per market.
type Drift struct {
	Market          markets.Market `json:"market"`
	Picks           int            `json:"picks"`
	Wins            int            `json:"wins"`
	WinRate         float64        `json:"win_rate"`
	MeanProbability float64        `json:"mean_probability"`
	Drift           float64        `json:"drift"`
}

type driftRow struct {
	MarketType      string
	Picks           int
	Wins            int
	MeanProbability float64
}

// DriftReport is derived on read from resolved, non-push picks.
func (t *Tracker) DriftReport(ctx context.Context) ([]Drift, error) {
	var rows []driftRow
	err := t.db.WithContext(ctx).Model(&models.Pick{}).
		Select("market_type, COUNT(*) AS picks, " +
			"SUM(CASE WHEN is_winner THEN 1 ELSE 0 END) AS wins, AVG(probability) AS mean_probability").
		Where("is_resolved = ? AND is_winner IS NOT NULL", true).
		Group("market_type").
		Order("market_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute drift: %w", err)
	}

	out := make([]Drift, 0, len(rows))
	for _, r := range rows {
		if r.Picks == 0 {
			continue
		}
		winRate := float64(r.Wins) / float64(r.Picks) * 100
		mean := r.MeanProbability * 100
		out = append(out, Drift{
			Market:          markets.Market(r.MarketType),
			Picks:           r.Picks,
			Wins:            r.Wins,
			WinRate:         round2(winRate),
			MeanProbability: round2(mean),
			Drift:           round2(winRate - mean),
		})
	}
	return out, nil
}
