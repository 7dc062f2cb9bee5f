// Package backtest replays historical fixtures through the engine and settles
// each primary bet against the recorded score.
package backtest

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/crocodileps/Mon-ps-sub009/internal/decision"
	"github.com/crocodileps/Mon-ps-sub009/internal/engine"
	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
	"github.com/crocodileps/Mon-ps-sub009/pkg/utils"
)

// Filter reasons for fixtures that produced no bet.
const (
	FilterTeamNotFound      = "TEAM_NOT_FOUND"
	FilterSkip              = "SKIP"
	FilterUnsupportedMarket = "UNSUPPORTED_MARKET"
	FilterMissingStat       = "MISSING_STAT"
	FilterSettleError       = "SETTLE_ERROR"
	FilterAnalysisError     = "ANALYSIS_ERROR"
	FilterCancelled         = "CANCELLED"
)

type Config struct {
	From      time.Time
	To        time.Time
	League    string
	Team      string
	BaseStake float64
}

type Outcome struct {
	MatchID      string         `json:"match_id"`
	Home         string         `json:"home"`
	Away         string         `json:"away"`
	League       string         `json:"league"`
	CommenceTime time.Time      `json:"commence_time"`
	Decision     decision.Type  `json:"decision,omitempty"`
	Scenario     string         `json:"scenario,omitempty"`
	Market       markets.Market `json:"market,omitempty"`
	Selection    string         `json:"selection,omitempty"`
	Followed     string         `json:"followed,omitempty"`
	Odds         float64        `json:"odds,omitempty"`
	Stake        float64        `json:"stake,omitempty"`
	Result       markets.Result `json:"result,omitempty"`
	Profit       float64        `json:"profit"`
	FilterReason string         `json:"filter_reason,omitempty"`
}

func (o Outcome) Placed() bool {
	return o.FilterReason == ""
}

type Bucket struct {
	Bets   int     `json:"bets"`
	Wins   int     `json:"wins"`
	Pushes int     `json:"pushes"`
	Staked float64 `json:"staked"`
	Profit float64 `json:"profit"`
	ROI    float64 `json:"roi"`

	staked decimal.Decimal
	profit decimal.Decimal
}

func (b *Bucket) add(o Outcome, stake, profit decimal.Decimal) {
	b.Bets++
	switch o.Result {
	case markets.ResultWin, markets.ResultHalfWin:
		b.Wins++
	case markets.ResultPush:
		b.Pushes++
	}
	b.staked = b.staked.Add(stake)
	b.profit = b.profit.Add(profit)
	b.Staked = b.staked.Round(2).InexactFloat64()
	b.Profit = b.profit.Round(2).InexactFloat64()
	if b.staked.IsPositive() {
		b.ROI = b.profit.Div(b.staked).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}
}

// WinRate is wins over decided bets, in percent.
func (b *Bucket) WinRate() float64 {
	decided := b.Bets - b.Pushes
	if decided == 0 {
		return 0
	}
	return float64(b.Wins) / float64(decided) * 100
}

type Report struct {
	RunID         string             `json:"run_id"`
	From          time.Time          `json:"from"`
	To            time.Time          `json:"to"`
	Fixtures      int                `json:"fixtures"`
	Total         Bucket             `json:"total"`
	ByDecision    map[string]*Bucket `json:"by_decision"`
	ByScenario    map[string]*Bucket `json:"by_scenario"`
	ByTeam        map[string]*Bucket `json:"by_team"`
	ByLeague      map[string]*Bucket `json:"by_league"`
	ByMarket      map[string]*Bucket `json:"by_market"`
	FilterReasons map[string]int     `json:"filter_reasons"`
	Outcomes      []Outcome          `json:"outcomes"`
	Duration      time.Duration      `json:"duration"`
}

type Runner struct {
	engine *engine.Engine
	logger *logrus.Logger
}

func NewRunner(e *engine.Engine, logger *logrus.Logger) *Runner {
	return &Runner{engine: e, logger: logger}
}

// Run replays finished fixtures in (commence_time, match_id) order. A failing
// fixture never aborts the run; it is counted under FilterReasons.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Report, error) {
	if !cfg.From.IsZero() && !cfg.To.IsZero() && cfg.To.Before(cfg.From) {
		return nil, utils.WrapAppError(utils.ErrCodeValidation, utils.ErrInvalidInput, "backtest range ends before it starts")
	}
	if cfg.BaseStake <= 0 {
		cfg.BaseStake = 1
	}
	start := time.Now()

	var fixtures []models.MatchResult
	for m := range r.engine.Source().GetMatchResults(models.ResultFilter{
		From:         cfg.From,
		To:           cfg.To,
		League:       cfg.League,
		Team:         cfg.Team,
		FinishedOnly: true,
	}) {
		fixtures = append(fixtures, m)
	}
	sort.SliceStable(fixtures, func(i, j int) bool {
		if !fixtures[i].CommenceTime.Equal(fixtures[j].CommenceTime) {
			return fixtures[i].CommenceTime.Before(fixtures[j].CommenceTime)
		}
		return fixtures[i].MatchID < fixtures[j].MatchID
	})

	reqs := make([]engine.Request, len(fixtures))
	for i, f := range fixtures {
		reqs[i] = engine.Request{
			MatchID:      f.MatchID,
			Home:         f.HomeTeam,
			Away:         f.AwayTeam,
			League:       f.League,
			CommenceTime: f.CommenceTime,
		}
	}

	report := &Report{
		RunID:         uuid.New().String(),
		From:          cfg.From,
		To:            cfg.To,
		Fixtures:      len(fixtures),
		ByDecision:    map[string]*Bucket{},
		ByScenario:    map[string]*Bucket{},
		ByTeam:        map[string]*Bucket{},
		ByLeague:      map[string]*Bucket{},
		ByMarket:      map[string]*Bucket{},
		FilterReasons: map[string]int{},
	}
	log := logger.WithRun(r.logger, report.RunID, "backtest").WithField("fixtures", len(fixtures))
	log.Info("Backtest started")

	stake := decimal.NewFromFloat(cfg.BaseStake)
	for i, res := range r.engine.AnalyzeBatch(ctx, reqs, nil) {
		o := evaluate(fixtures[i], res, stake)
		report.Outcomes = append(report.Outcomes, o)
		if !o.Placed() {
			report.FilterReasons[o.FilterReason]++
			continue
		}
		s := decimal.NewFromFloat(o.Stake)
		p := decimal.NewFromFloat(o.Profit)
		report.Total.add(o, s, p)
		bucket(report.ByDecision, string(o.Decision)).add(o, s, p)
		bucket(report.ByScenario, o.Scenario).add(o, s, p)
		bucket(report.ByLeague, o.League).add(o, s, p)
		bucket(report.ByMarket, string(o.Market)).add(o, s, p)
		if o.Followed != "" {
			bucket(report.ByTeam, o.Followed).add(o, s, p)
		}
	}
	report.Duration = time.Since(start)

	log.WithFields(logrus.Fields{
		"bets":     report.Total.Bets,
		"profit":   report.Total.Profit,
		"roi":      report.Total.ROI,
		"filtered": report.FilterReasons,
	}).Info("Backtest complete")

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func bucket(m map[string]*Bucket, key string) *Bucket {
	b, ok := m[key]
	if !ok {
		b = &Bucket{}
		m[key] = b
	}
	return b
}

func evaluate(f models.MatchResult, res engine.BatchResult, baseStake decimal.Decimal) Outcome {
	o := Outcome{
		MatchID:      f.MatchID,
		Home:         f.HomeTeam,
		Away:         f.AwayTeam,
		League:       f.League,
		CommenceTime: f.CommenceTime,
	}

	switch {
	case errors.Is(res.Err, context.Canceled), errors.Is(res.Err, context.DeadlineExceeded):
		o.FilterReason = FilterCancelled
		return o
	case errors.Is(res.Err, utils.ErrTeamNotFound):
		o.FilterReason = FilterTeamNotFound
		return o
	case res.Err != nil || res.Analysis == nil:
		o.FilterReason = FilterAnalysisError
		return o
	}

	a := res.Analysis
	d := a.Decision
	o.Decision = d.Type
	if len(d.Rationale) > 0 {
		o.Scenario = d.Rationale[0].Code
	}
	if o.League == "" {
		o.League = a.League
	}
	if d.Primary.IsSkip() {
		o.FilterReason = FilterSkip
		return o
	}

	primary := d.Primary
	odds, ok := markets.TypicalOdds(primary.Market)
	if !ok {
		o.FilterReason = FilterUnsupportedMarket
		return o
	}
	o.Market = primary.Market
	o.Selection = primary.Selection
	o.Odds = odds
	switch primary.Market {
	case markets.AHHome, markets.AHAway, markets.Home, markets.Away:
		if primary.Side == markets.SideAway {
			o.Followed = a.Away.Name
		} else {
			o.Followed = a.Home.Name
		}
	}

	result, err := markets.Settle(primary.Bet(), f.Score())
	if err != nil {
		if errors.Is(err, markets.ErrMissingStat) {
			o.FilterReason = FilterMissingStat
		} else {
			o.FilterReason = FilterSettleError
		}
		return o
	}

	stake := baseStake.Mul(decimal.NewFromFloat(primary.Sizing.Units()))
	o.Stake = stake.InexactFloat64()
	o.Result = result
	o.Profit = markets.ProfitLoss(result, stake, decimal.NewFromFloat(odds)).Round(4).InexactFloat64()
	return o
}
