// Package tracker persists emitted picks, settles them against final scores and
// reports closing-line value. Resolved rows are never rewritten.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/crocodileps/Mon-ps-sub009/internal/decision"
	"github.com/crocodileps/Mon-ps-sub009/internal/engine"
	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/pkg/config"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
	"github.com/crocodileps/Mon-ps-sub009/pkg/utils"
)

const DefaultSource = "engine"

type Settings struct {
	Source    string
	BaseStake float64
	MinOdds   float64
	Now       func() time.Time
}

func DefaultSettings() Settings {
	return Settings{Source: DefaultSource, BaseStake: 1, MinOdds: 1.50}
}

func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()
	if cfg.PickSource != "" {
		s.Source = cfg.PickSource
	}
	if cfg.BaseStake > 0 {
		s.BaseStake = cfg.BaseStake
	}
	if cfg.MinOdds > 0 {
		s.MinOdds = cfg.MinOdds
	}
	return s
}

type Tracker struct {
	db       *gorm.DB
	settings Settings
	logger   *logrus.Logger
}

func NewTracker(db *gorm.DB, settings Settings, logger *logrus.Logger) *Tracker {
	if settings.Source == "" {
		settings.Source = DefaultSource
	}
	if settings.Now == nil {
		settings.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Tracker{db: db, settings: settings, logger: logger}
}

func (t *Tracker) Settings() Settings {
	return t.settings
}

// Quote is a live price for one market, used instead of the typical odds.
type Quote struct {
	Odds      float64 `json:"odds"`
	Bookmaker string  `json:"bookmaker,omitempty"`
}

// PicksFromAnalysis builds one pick per emitted bet, primary first.
func (t *Tracker) PicksFromAnalysis(a *engine.Analysis, quotes map[markets.Market]Quote) []models.Pick {
	bets := a.Decision.Bets()
	picks := make([]models.Pick, 0, len(bets))
	for i, b := range bets {
		odds, bookmaker := b.TypicalOdds(), ""
		if q, ok := quotes[b.Market]; ok && q.Odds > 1 {
			odds, bookmaker = q.Odds, q.Bookmaker
		}

		p := models.Pick{
			MatchID:      a.MatchID,
			MarketType:   b.Market,
			Source:       t.settings.Source,
			HomeTeam:     a.Home.Name,
			AwayTeam:     a.Away.Name,
			League:       a.League,
			CommenceTime: a.CommenceTime,
			Decision:     string(a.Decision.Type),
			Prediction:   b.Selection,
			Side:         b.Side,
			Line:         b.Line,
			IsPrimary:    i == 0 && !a.Decision.Primary.IsSkip(),
			Bookmaker:    bookmaker,
			OddsTaken:    odds,
			Stake:        stake(t.settings.BaseStake, b.Sizing),
			Probability:  b.Probability,
			DiamondScore: round2(a.Decision.Confidence*100 + a.Alignment.Modifier),
			KellyPct:     KellyPct(b.Probability, odds),
			HomeXG:       a.Projection.HomeXG,
			AwayXG:       a.Projection.AwayXG,
			TotalXG:      a.Projection.TotalXG,
		}
		reasons := append(append([]models.Reason{}, a.Decision.Rationale...), b.Reasoning...)
		if raw, err := json.Marshal(reasons); err == nil {
			p.Reasoning = datatypes.JSON(raw)
		}
		picks = append(picks, p)
	}
	return picks
}

func stake(base float64, s decision.Sizing) float64 {
	return decimal.NewFromFloat(base).Mul(decimal.NewFromFloat(s.Units())).Round(2).InexactFloat64()
}

// KellyPct is the full-Kelly fraction in percent, floored at zero.
func KellyPct(prob, odds float64) float64 {
	if odds <= 1 || prob <= 0 {
		return 0
	}
	f := (prob*odds - 1) / (odds - 1)
	if f < 0 {
		return 0
	}
	return round2(f * 100)
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

type RecordSummary struct {
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Rejected []string `json:"rejected,omitempty"`
}

// RecordPicks upserts picks one fixture per transaction. Unresolved rows are
// refreshed in place, resolved rows are left alone, and markets outside the
// odds map or below the floor are rejected.
func (t *Tracker) RecordPicks(ctx context.Context, picks []models.Pick) (RecordSummary, error) {
	var summary RecordSummary
	var errs []error

	order := make([]string, 0)
	byMatch := make(map[string][]models.Pick)
	for _, p := range picks {
		if p.Source == "" {
			p.Source = t.settings.Source
		}
		if err := t.validate(p); err != nil {
			summary.Rejected = append(summary.Rejected, fmt.Sprintf("%s/%s", p.MatchID, p.MarketType))
			errs = append(errs, err)
			continue
		}
		if _, ok := byMatch[p.MatchID]; !ok {
			order = append(order, p.MatchID)
		}
		byMatch[p.MatchID] = append(byMatch[p.MatchID], p)
	}

	for _, matchID := range order {
		created, updated, skipped, err := t.recordFixture(ctx, byMatch[matchID])
		if err != nil {
			t.logger.WithError(err).WithField("match_id", matchID).Error("Failed to record picks")
			errs = append(errs, err)
			continue
		}
		summary.Created += created
		summary.Updated += updated
		summary.Skipped += skipped
	}

	t.logger.WithFields(logrus.Fields{
		"created":  summary.Created,
		"updated":  summary.Updated,
		"skipped":  summary.Skipped,
		"rejected": len(summary.Rejected),
	}).Info("Picks recorded")
	return summary, errors.Join(errs...)
}

func (t *Tracker) validate(p models.Pick) error {
	if p.MatchID == "" {
		return utils.WrapAppError(utils.ErrCodeValidation, utils.ErrInvalidInput, "pick has no match id")
	}
	if err := markets.Eligible(p.MarketType, t.settings.MinOdds); err != nil {
		return utils.WrapAppError(utils.ErrCodeInconsistentMarket, err, "pick market rejected")
	}
	if p.OddsTaken <= 1 {
		return utils.WrapAppError(utils.ErrCodeValidation, utils.ErrInvalidInput, fmt.Sprintf("odds %.2f must exceed 1", p.OddsTaken))
	}
	return nil
}

func (t *Tracker) recordFixture(ctx context.Context, picks []models.Pick) (created, updated, skipped int, err error) {
	tx := t.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return 0, 0, 0, tx.Error
	}

	seen := make(map[markets.Market]bool, len(picks))
	for _, p := range picks {
		if seen[p.MarketType] {
			skipped++
			continue
		}
		seen[p.MarketType] = true

		var existing models.Pick
		err := tx.Where("match_id = ? AND market_type = ? AND source = ?", p.MatchID, p.MarketType, p.Source).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&p).Error; err != nil {
				tx.Rollback()
				return 0, 0, 0, fmt.Errorf("failed to create pick: %w", err)
			}
			created++
		case err != nil:
			tx.Rollback()
			return 0, 0, 0, fmt.Errorf("failed to load pick: %w", err)
		case existing.IsResolved:
			skipped++
		default:
			res := tx.Model(&models.Pick{}).
				Where("id = ? AND is_resolved = ?", existing.ID, false).
				Updates(map[string]interface{}{
					"decision":      p.Decision,
					"prediction":    p.Prediction,
					"side":          p.Side,
					"line":          p.Line,
					"is_primary":    p.IsPrimary,
					"bookmaker":     p.Bookmaker,
					"odds_taken":    p.OddsTaken,
					"stake":         p.Stake,
					"probability":   p.Probability,
					"diamond_score": p.DiamondScore,
					"kelly_pct":     p.KellyPct,
					"home_xg":       p.HomeXG,
					"away_xg":       p.AwayXG,
					"total_xg":      p.TotalXG,
					"reasoning":     p.Reasoning,
					"commence_time": p.CommenceTime,
				})
			if res.Error != nil {
				tx.Rollback()
				return 0, 0, 0, fmt.Errorf("failed to update pick: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				skipped++
			} else {
				updated++
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return 0, 0, 0, fmt.Errorf("failed to commit picks: %w", err)
	}
	return created, updated, skipped, nil
}

type ResolveSummary struct {
	Fixtures    int             `json:"fixtures"`
	Resolved    int             `json:"resolved"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	Pushes      int             `json:"pushes"`
	MissingStat int             `json:"missing_stat"`
	Failed      int             `json:"failed"`
	Profit      decimal.Decimal `json:"profit"`
}

func (s ResolveSummary) Add(o ResolveSummary) ResolveSummary {
	s.Fixtures += o.Fixtures
	s.Resolved += o.Resolved
	s.Wins += o.Wins
	s.Losses += o.Losses
	s.Pushes += o.Pushes
	s.MissingStat += o.MissingStat
	s.Failed += o.Failed
	s.Profit = s.Profit.Add(o.Profit)
	return s
}

// Resolve settles unresolved picks whose fixtures are finished in match_results.
func (t *Tracker) Resolve(ctx context.Context) (ResolveSummary, error) {
	pending := t.db.Model(&models.Pick{}).Select("match_id").Where("is_resolved = ?", false)

	var results []models.MatchResult
	if err := t.db.WithContext(ctx).
		Where("is_finished = ? AND match_id IN (?)", true, pending).
		Find(&results).Error; err != nil {
		return ResolveSummary{}, fmt.Errorf("failed to load match results: %w", err)
	}
	return t.ResolveWith(ctx, results)
}

// ResolveWith settles unresolved picks against the given results. Each fixture
// is written in one transaction guarded by is_resolved = false, so repeated runs
// change nothing.
func (t *Tracker) ResolveWith(ctx context.Context, results []models.MatchResult) (ResolveSummary, error) {
	summary := ResolveSummary{Profit: decimal.Zero}

	scores := make(map[string]markets.Score, len(results))
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if !r.Settled() {
			continue
		}
		if _, dup := scores[r.MatchID]; !dup {
			ids = append(ids, r.MatchID)
		}
		scores[r.MatchID] = r.Score()
	}
	if len(ids) == 0 {
		return summary, nil
	}
	sort.Strings(ids)

	var picks []models.Pick
	if err := t.db.WithContext(ctx).
		Where("is_resolved = ? AND match_id IN ?", false, ids).
		Order("match_id, id").
		Find(&picks).Error; err != nil {
		return summary, fmt.Errorf("failed to load unresolved picks: %w", err)
	}

	byMatch := make(map[string][]models.Pick)
	for _, p := range picks {
		byMatch[p.MatchID] = append(byMatch[p.MatchID], p)
	}

	var errs []error
	for _, matchID := range ids {
		group := byMatch[matchID]
		if len(group) == 0 {
			continue
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := t.resolveFixture(ctx, group, scores[matchID], &summary); err != nil {
			t.logger.WithError(err).WithField("match_id", matchID).Error("Failed to resolve fixture")
			summary.Failed += len(group)
			errs = append(errs, err)
			continue
		}
		summary.Fixtures++
	}

	t.logger.WithFields(logrus.Fields{
		"fixtures":     summary.Fixtures,
		"resolved":     summary.Resolved,
		"missing_stat": summary.MissingStat,
		"failed":       summary.Failed,
		"profit":       summary.Profit.StringFixed(2),
	}).Info("Resolution pass complete")
	return summary, errors.Join(errs...)
}

func (t *Tracker) resolveFixture(ctx context.Context, picks []models.Pick, score markets.Score, summary *ResolveSummary) error {
	now := t.settings.Now()
	local := ResolveSummary{Profit: decimal.Zero}
	log := logger.WithMatch(t.logger, picks[0].MatchID)

	tx := t.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	for _, p := range picks {
		result, err := markets.Settle(p.Bet(), score)
		if errors.Is(err, markets.ErrMissingStat) {
			log.WithFields(logrus.Fields{
				"pick_id": p.ID,
				"market":  p.MarketType,
			}).Debug("Match stat missing, pick left unresolved")
			local.MissingStat++
			continue
		}
		if err != nil {
			log.WithError(err).WithField("pick_id", p.ID).Warn("Pick cannot be settled")
			local.Failed++
			continue
		}

		pl := markets.ProfitLoss(result, decimal.NewFromFloat(p.Stake), decimal.NewFromFloat(p.OddsTaken))
		res := tx.Model(&models.Pick{}).
			Where("id = ? AND is_resolved = ?", p.ID, false).
			Updates(map[string]interface{}{
				"is_resolved": true,
				"is_winner":   result.IsWinner(),
				"result":      result,
				"profit_loss": pl.Round(2).InexactFloat64(),
				"resolved_at": now,
			})
		if res.Error != nil {
			tx.Rollback()
			return fmt.Errorf("failed to resolve pick %s: %w", p.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}

		local.Resolved++
		local.Profit = local.Profit.Add(pl)
		switch w := result.IsWinner(); {
		case w == nil:
			local.Pushes++
		case *w:
			local.Wins++
		default:
			local.Losses++
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit resolution: %w", err)
	}

	summary.Resolved += local.Resolved
	summary.Wins += local.Wins
	summary.Losses += local.Losses
	summary.Pushes += local.Pushes
	summary.MissingStat += local.MissingStat
	summary.Failed += local.Failed
	summary.Profit = summary.Profit.Add(local.Profit)
	return nil
}

// Conflict is a resolved pick whose stored outcome disagrees with a fresh settlement.
type Conflict struct {
	PickID       string         `json:"pick_id"`
	MatchID      string         `json:"match_id"`
	Market       markets.Market `json:"market"`
	Stored       markets.Result `json:"stored"`
	Recomputed   markets.Result `json:"recomputed"`
	StoredPL     float64        `json:"stored_pl"`
	RecomputedPL float64        `json:"recomputed_pl"`
	Reason       models.Reason  `json:"reason"`
}

// Audit re-settles resolved picks against match_results and reports mismatches.
// It never writes. Any mismatch returns the conflicts together with an error
// wrapping utils.ErrResolutionConflict.
func (t *Tracker) Audit(ctx context.Context) ([]Conflict, error) {
	resolved := t.db.Model(&models.Pick{}).Select("match_id").Where("is_resolved = ?", true)

	var results []models.MatchResult
	if err := t.db.WithContext(ctx).
		Where("is_finished = ? AND match_id IN (?)", true, resolved).
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to load match results: %w", err)
	}
	return t.AuditWith(ctx, results)
}

func (t *Tracker) AuditWith(ctx context.Context, results []models.MatchResult) ([]Conflict, error) {
	scores := make(map[string]markets.Score, len(results))
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.Settled() {
			scores[r.MatchID] = r.Score()
			ids = append(ids, r.MatchID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var picks []models.Pick
	if err := t.db.WithContext(ctx).
		Where("is_resolved = ? AND match_id IN ?", true, ids).
		Order("match_id, id").
		Find(&picks).Error; err != nil {
		return nil, fmt.Errorf("failed to load resolved picks: %w", err)
	}

	var conflicts []Conflict
	for _, p := range picks {
		result, err := markets.Settle(p.Bet(), scores[p.MatchID])
		if err != nil {
			continue
		}
		pl := markets.ProfitLoss(result, decimal.NewFromFloat(p.Stake), decimal.NewFromFloat(p.OddsTaken)).Round(2)
		if result == p.Result && pl.Equal(decimal.NewFromFloat(p.ProfitLoss).Round(2)) {
			continue
		}

		c := Conflict{
			PickID:       p.ID,
			MatchID:      p.MatchID,
			Market:       p.MarketType,
			Stored:       p.Result,
			Recomputed:   result,
			StoredPL:     p.ProfitLoss,
			RecomputedPL: pl.InexactFloat64(),
			Reason: models.NewReason(models.ReasonResolutionConflict, map[string]float64{
				"stored_pl":     p.ProfitLoss,
				"recomputed_pl": pl.InexactFloat64(),
			}).WithSubject(p.ID),
		}
		t.logger.WithFields(logrus.Fields{
			"pick_id":    p.ID,
			"match_id":   p.MatchID,
			"market":     p.MarketType,
			"stored":     p.Result,
			"recomputed": result,
		}).Warn("Resolution conflict")
		conflicts = append(conflicts, c)
	}
	if len(conflicts) > 0 {
		return conflicts, utils.WrapAppError(utils.ErrCodeResolutionConflict,
			fmt.Errorf("%w: %d resolved picks disagree with match results", utils.ErrResolutionConflict, len(conflicts)),
			"stored outcomes left unchanged for reconciliation")
	}
	return nil, nil
}
