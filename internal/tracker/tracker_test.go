package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/crocodileps/Mon-ps-sub009/internal/decision"
	"github.com/crocodileps/Mon-ps-sub009/internal/engine"
	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
	"github.com/crocodileps/Mon-ps-sub009/pkg/utils"
)

var kickoff = time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)

type TrackerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	tracker *Tracker
	ctx     context.Context
}

func (s *TrackerTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(db.AutoMigrate(models.AllModels()...))
	s.db = db
	s.ctx = context.Background()

	settings := DefaultSettings()
	settings.Now = func() time.Time { return kickoff.Add(3 * time.Hour) }
	s.tracker = NewTracker(db, settings, logger.Discard())
}

func (s *TrackerTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM picks")
	s.db.Exec("DELETE FROM match_results")
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func pick(matchID string, m markets.Market, odds, stake, prob float64) models.Pick {
	return models.Pick{
		MatchID:      matchID,
		MarketType:   m,
		HomeTeam:     "Lockdown FC",
		AwayTeam:     "Parkbus United",
		League:       "EPL",
		CommenceTime: kickoff,
		OddsTaken:    odds,
		Stake:        stake,
		Probability:  prob,
	}
}

func (s *TrackerTestSuite) finish(matchID string, home, away int, cards *int) models.MatchResult {
	r := models.MatchResult{
		MatchID:      matchID,
		HomeTeam:     "Lockdown FC",
		AwayTeam:     "Parkbus United",
		League:       "EPL",
		CommenceTime: kickoff,
		ScoreHome:    intp(home),
		ScoreAway:    intp(away),
		IsFinished:   true,
		TotalCards:   cards,
	}
	r.DeriveOutcome()
	s.Require().NoError(s.db.Create(&r).Error)
	return r
}

func (s *TrackerTestSuite) load(matchID string, m markets.Market) models.Pick {
	var p models.Pick
	s.Require().NoError(s.db.Where("match_id = ? AND market_type = ?", matchID, m).First(&p).Error)
	return p
}

func (s *TrackerTestSuite) TestRecordPicks_CreatesThenRefreshesUnresolved() {
	summary, err := s.tracker.RecordPicks(s.ctx, []models.Pick{pick("m1", markets.Over25, 1.85, 1, 0.6)})
	s.Require().NoError(err)
	s.Equal(1, summary.Created)

	summary, err = s.tracker.RecordPicks(s.ctx, []models.Pick{pick("m1", markets.Over25, 1.92, 1, 0.62)})
	s.Require().NoError(err)
	s.Equal(0, summary.Created)
	s.Equal(1, summary.Updated)

	var count int64
	s.db.Model(&models.Pick{}).Where("match_id = ?", "m1").Count(&count)
	s.Equal(int64(1), count)

	p := s.load("m1", markets.Over25)
	s.Equal(1.92, p.OddsTaken)
	s.Equal(DefaultSource, p.Source)
	s.Len(p.ID, 36)
}

func (s *TrackerTestSuite) TestRecordPicks_RejectsUnsupportedAndCheapMarkets() {
	summary, err := s.tracker.RecordPicks(s.ctx, []models.Pick{
		pick("m1", markets.Over15, 1.30, 1, 0.8),
		pick("m1", markets.Market("corners_exact_10"), 9.0, 1, 0.1),
		pick("m1", markets.BTTSNo, 1.95, 1, 0.55),
	})
	s.Require().Error(err)
	s.True(errors.Is(err, utils.ErrMarketBelowMinOdds))
	s.True(errors.Is(err, utils.ErrUnsupportedMarket))
	s.Len(summary.Rejected, 2)
	s.Equal(1, summary.Created)

	var appErr *utils.AppError
	s.Require().True(errors.As(err, &appErr))
	s.Equal(utils.ErrCodeInconsistentMarket, appErr.Code)
}

func (s *TrackerTestSuite) TestRecordPicks_LeavesResolvedRowsAlone() {
	_, err := s.tracker.RecordPicks(s.ctx, []models.Pick{pick("m1", markets.Over25, 1.85, 1, 0.6)})
	s.Require().NoError(err)
	s.finish("m1", 2, 1, nil)
	_, err = s.tracker.Resolve(s.ctx)
	s.Require().NoError(err)

	summary, err := s.tracker.RecordPicks(s.ctx, []models.Pick{pick("m1", markets.Over25, 3.00, 5, 0.9)})
	s.Require().NoError(err)
	s.Equal(1, summary.Skipped)

	p := s.load("m1", markets.Over25)
	s.Equal(1.85, p.OddsTaken)
	s.Equal(1.0, p.Stake)
}

func (s *TrackerTestSuite) TestResolve_SettlesAndIsIdempotent() {
	asianUnder := pick("m1", markets.AsianUnder, 1.90, 1, 0.5)
	asianUnder.Line = floatp(2.25)
	_, err := s.tracker.RecordPicks(s.ctx, []models.Pick{
		pick("m1", markets.Over25, 1.85, 1, 0.6),
		pick("m1", markets.BTTSNo, 1.95, 1, 0.55),
		asianUnder,
		pick("m2", markets.Over25, 1.85, 1, 0.6),
	})
	s.Require().NoError(err)
	s.finish("m1", 2, 0, nil)

	summary, err := s.tracker.Resolve(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, summary.Fixtures)
	s.Equal(3, summary.Resolved)
	s.Equal(2, summary.Wins)
	s.Equal(1, summary.Losses)
	// -1 + 0.95 + 0.45
	s.Equal("0.40", summary.Profit.StringFixed(2))

	over := s.load("m1", markets.Over25)
	s.True(over.IsResolved)
	s.Require().NotNil(over.IsWinner)
	s.False(*over.IsWinner)
	s.Equal(-1.0, over.ProfitLoss)

	au := s.load("m1", markets.AsianUnder)
	s.Equal(markets.ResultHalfWin, au.Result)
	s.InDelta(0.45, au.ProfitLoss, 1e-9)
	s.Require().NotNil(au.ResolvedAt)
	firstResolved := *au.ResolvedAt

	s.False(s.load("m2", markets.Over25).IsResolved)

	again, err := s.tracker.Resolve(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, again.Resolved)
	s.True(again.Profit.IsZero())
	s.Equal(firstResolved.Unix(), s.load("m1", markets.AsianUnder).ResolvedAt.Unix())
}

func (s *TrackerTestSuite) TestResolve_PushLeavesWinnerNull() {
	p := pick("m1", markets.AsianOver, 1.90, 2, 0.5)
	p.Line = floatp(2.0)
	_, err := s.tracker.RecordPicks(s.ctx, []models.Pick{p})
	s.Require().NoError(err)
	s.finish("m1", 1, 1, nil)

	summary, err := s.tracker.Resolve(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, summary.Pushes)

	got := s.load("m1", markets.AsianOver)
	s.True(got.IsResolved)
	s.Nil(got.IsWinner)
	s.Equal(markets.ResultPush, got.Result)
	s.Equal(0.0, got.ProfitLoss)
}

func (s *TrackerTestSuite) TestResolve_MissingStatStaysUnresolved() {
	_, err := s.tracker.RecordPicks(s.ctx, []models.Pick{pick("m1", markets.CardsOver45, 1.90, 1, 0.6)})
	s.Require().NoError(err)
	s.finish("m1", 1, 0, nil)

	summary, err := s.tracker.Resolve(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, summary.MissingStat)
	s.Equal(0, summary.Resolved)
	s.False(s.load("m1", markets.CardsOver45).IsResolved)

	s.db.Model(&models.MatchResult{}).Where("match_id = ?", "m1").Update("total_cards", 6)
	summary, err = s.tracker.Resolve(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, summary.Wins)
}

func (s *TrackerTestSuite) TestResolveWith_IgnoresUnfinishedResults() {
	_, err := s.tracker.RecordPicks(s.ctx, []models.Pick{pick("m1", markets.Over25, 1.85, 1, 0.6)})
	s.Require().NoError(err)

	summary, err := s.tracker.ResolveWith(s.ctx, []models.MatchResult{{MatchID: "m1", ScoreHome: intp(3), ScoreAway: intp(0)}})
	s.Require().NoError(err)
	s.Equal(0, summary.Resolved)
}

func (s *TrackerTestSuite) TestAudit_ReportsConflictWithoutOverwriting() {
	_, err := s.tracker.RecordPicks(s.ctx, []models.Pick{
		pick("m1", markets.Over25, 1.85, 1, 0.6),
		pick("m1", markets.BTTSNo, 1.95, 1, 0.55),
	})
	s.Require().NoError(err)
	s.finish("m1", 3, 0, nil)
	_, err = s.tracker.Resolve(s.ctx)
	s.Require().NoError(err)

	conflicts, err := s.tracker.Audit(s.ctx)
	s.Require().NoError(err)
	s.Empty(conflicts)

	// score corrected after resolution
	s.db.Model(&models.MatchResult{}).Where("match_id = ?", "m1").Update("score_away", 1)

	conflicts, err = s.tracker.Audit(s.ctx)
	s.Require().ErrorIs(err, utils.ErrResolutionConflict)
	var appErr *utils.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Equal(utils.ErrCodeResolutionConflict, appErr.Code)
	s.Require().Len(conflicts, 1)
	c := conflicts[0]
	s.Equal(markets.BTTSNo, c.Market)
	s.Equal(markets.ResultWin, c.Stored)
	s.Equal(markets.ResultLoss, c.Recomputed)
	s.Equal(models.ReasonResolutionConflict, c.Reason.Code)

	stored := s.load("m1", markets.BTTSNo)
	s.Equal(markets.ResultWin, stored.Result)
	s.InDelta(0.95, stored.ProfitLoss, 1e-9)
}

func (s *TrackerTestSuite) TestUpdateClosingOdds() {
	_, err := s.tracker.RecordPicks(s.ctx, []models.Pick{
		pick("m1", markets.Over25, 2.00, 1, 0.6),
		pick("m2", markets.Over25, 2.00, 1, 0.6),
	})
	s.Require().NoError(err)

	open := s.load("m1", markets.Over25)
	got, err := s.tracker.UpdateClosingOdds(s.ctx, open.ID, 1.80, "pinnacle")
	s.Require().NoError(err)
	s.Require().NotNil(got.CLVPercentage)
	s.Equal(11.11, *got.CLVPercentage)

	stored := s.load("m1", markets.Over25)
	s.Equal(1.80, *stored.ClosingOdds)
	s.Equal("pinnacle", stored.Bookmaker)

	s.finish("m2", 2, 1, nil)
	_, err = s.tracker.Resolve(s.ctx)
	s.Require().NoError(err)
	resolved := s.load("m2", markets.Over25)

	_, err = s.tracker.UpdateClosingOdds(s.ctx, resolved.ID, 1.70, "")
	s.True(errors.Is(err, utils.ErrResolvedImmutable))
	s.Nil(s.load("m2", markets.Over25).ClosingOdds)

	_, err = s.tracker.UpdateClosingOdds(s.ctx, "missing", 1.70, "")
	s.Equal(utils.ExitMissingData, utils.ExitCode(err))
}

func (s *TrackerTestSuite) TestPendingClosing() {
	later := pick("m2", markets.Over25, 1.85, 1, 0.6)
	later.CommenceTime = kickoff.Add(2 * time.Hour)
	_, err := s.tracker.RecordPicks(s.ctx, []models.Pick{pick("m1", markets.Over25, 1.85, 1, 0.6), later})
	s.Require().NoError(err)

	picks, err := s.tracker.PendingClosing(s.ctx, kickoff.Add(-5*time.Minute), 10*time.Minute)
	s.Require().NoError(err)
	s.Require().Len(picks, 1)
	s.Equal("m1", picks[0].MatchID)
}

func (s *TrackerTestSuite) TestCLVRollups() {
	_, err := s.tracker.RecordPicks(s.ctx, []models.Pick{
		pick("m1", markets.Over25, 2.20, 1, 0.6),
		pick("m1", markets.BTTSNo, 1.90, 1, 0.6),
		pick("m2", markets.Over25, 1.85, 1, 0.6),
	})
	s.Require().NoError(err)
	for _, c := range []struct {
		match  string
		market markets.Market
		close  float64
	}{
		{"m1", markets.Over25, 2.00},
		{"m1", markets.BTTSNo, 2.00},
	} {
		_, err := s.tracker.UpdateClosingOdds(s.ctx, s.load(c.match, c.market).ID, c.close, "")
		s.Require().NoError(err)
	}

	bySource, err := s.tracker.CLVRollups(s.ctx, BySource)
	s.Require().NoError(err)
	s.Require().Len(bySource, 1)
	s.Equal(DefaultSource, bySource[0].Key)
	s.Equal(2, bySource[0].Picks)
	s.Equal(2.5, bySource[0].AvgCLV)
	s.Equal(1, bySource[0].BeatClose)
	s.Equal(50.0, bySource[0].BeatCloseShare)

	byMarket, err := s.tracker.CLVRollups(s.ctx, ByMarket)
	s.Require().NoError(err)
	s.Require().Len(byMarket, 2)
	s.Equal(string(markets.BTTSNo), byMarket[0].Key)
	s.Equal(-5.0, byMarket[0].AvgCLV)

	byBook, err := s.tracker.CLVRollups(s.ctx, ByBookmaker)
	s.Require().NoError(err)
	s.Require().Len(byBook, 1)
	s.Equal("unknown", byBook[0].Key)

	_, err = s.tracker.CLVRollups(s.ctx, Dimension("league"))
	s.True(errors.Is(err, utils.ErrInvalidInput))
}

func (s *TrackerTestSuite) TestDriftReport() {
	_, err := s.tracker.RecordPicks(s.ctx, []models.Pick{
		pick("m1", markets.Over25, 1.85, 1, 0.6),
		pick("m2", markets.Over25, 1.85, 1, 0.6),
		pick("m3", markets.Over25, 1.85, 1, 0.6),
	})
	s.Require().NoError(err)
	s.finish("m1", 2, 1, nil)
	s.finish("m2", 3, 1, nil)
	s.finish("m3", 0, 0, nil)
	_, err = s.tracker.Resolve(s.ctx)
	s.Require().NoError(err)

	drift, err := s.tracker.DriftReport(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(drift, 1)
	s.Equal(markets.Over25, drift[0].Market)
	s.Equal(3, drift[0].Picks)
	s.Equal(2, drift[0].Wins)
	s.Equal(66.67, drift[0].WinRate)
	s.Equal(60.0, drift[0].MeanProbability)
	s.Equal(6.67, drift[0].Drift)
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerTestSuite))
}

func TestCLV(t *testing.T) {
	tests := []struct {
		name    string
		taken   float64
		closing float64
		want    float64
		wantErr bool
	}{
		{"unchanged", 2.00, 2.00, 0, false},
		{"beat close", 2.00, 1.80, 11.11, false},
		{"lost to close", 1.80, 2.00, -10, false},
		{"invalid closing", 2.00, 1.00, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CLV(tt.taken, tt.closing)
			if tt.wantErr {
				assert.ErrorIs(t, err, utils.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKellyPct(t *testing.T) {
	assert.Equal(t, 0.0, KellyPct(0.4, 2.0))
	assert.Equal(t, 20.0, KellyPct(0.6, 2.0))
	assert.Equal(t, 0.0, KellyPct(0.6, 1.0))
}

func TestPicksFromAnalysis(t *testing.T) {
	tr := NewTracker(nil, DefaultSettings(), logger.Discard())
	under := decision.SmartBet{
		Market:      markets.Under25,
		Selection:   "Under 2.5",
		Probability: 0.62,
		Sizing:      decision.SizingNormal,
	}
	bttsNo := decision.SmartBet{
		Market:      markets.BTTSNo,
		Selection:   "BTTS No",
		Probability: 0.58,
		Sizing:      decision.SizingSmall,
	}
	a := &engine.Analysis{
		MatchID:      "m1",
		League:       "EPL",
		CommenceTime: kickoff,
		Home:         engine.TeamView{Name: "Lockdown FC"},
		Away:         engine.TeamView{Name: "Parkbus United"},
		Decision: decision.Decision{
			Type:        decision.TacticalLock,
			Primary:     under,
			Secondaries: []decision.SmartBet{bttsNo},
			Confidence:  0.75,
			Rationale:   []models.Reason{models.NewReason(decision.CodeFrictionLowXG, nil)},
		},
		Alignment: engine.Alignment{Modifier: 5},
	}

	picks := tr.PicksFromAnalysis(a, map[markets.Market]Quote{markets.BTTSNo: {Odds: 2.05, Bookmaker: "pinnacle"}})
	require.Len(t, picks, 2)

	assert.True(t, picks[0].IsPrimary)
	assert.Equal(t, markets.Under25, picks[0].MarketType)
	assert.Equal(t, 1.95, picks[0].OddsTaken)
	assert.Equal(t, 1.0, picks[0].Stake)
	assert.Equal(t, 80.0, picks[0].DiamondScore)
	assert.Equal(t, string(decision.TacticalLock), picks[0].Decision)

	assert.False(t, picks[1].IsPrimary)
	assert.Equal(t, 2.05, picks[1].OddsTaken)
	assert.Equal(t, "pinnacle", picks[1].Bookmaker)
	assert.Equal(t, 0.5, picks[1].Stake)

	var reasons []models.Reason
	require.NoError(t, json.Unmarshal(picks[0].Reasoning, &reasons))
	require.Len(t, reasons, 1)
	assert.Equal(t, decision.CodeFrictionLowXG, reasons[0].Code)
}
