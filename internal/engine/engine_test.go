package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crocodileps/Mon-ps-sub009/internal/datahub"
	"github.com/crocodileps/Mon-ps-sub009/internal/decision"
	"github.com/crocodileps/Mon-ps-sub009/internal/marketprofile"
	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/internal/value"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
	"github.com/crocodileps/Mon-ps-sub009/pkg/utils"
)

var updated = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func team(name string, tier models.Tier, xgFor, xgAgainst float64) models.TeamProfile {
	t := models.TeamProfile{TeamName: name, League: "EPL", Tier: tier, UpdatedAt: updated}
	t.DNA.CurrentSeason = models.CurrentSeason{XGForAvg: xgFor, XGAgainstAvg: xgAgainst}
	t.DNA.SetPieces.CornersForAvg = 3 + 2*xgFor
	t.DNA.SetPieces.CornersAgainstAvg = 3 + 2*xgAgainst
	return t
}

func engineSnapshot() *datahub.Snapshot {
	return &datahub.Snapshot{
		Teams: []models.TeamProfile{
			team("Lockdown FC", models.TierSilver, 0.8, 0.8),
			team("Parkbus United", models.TierBronze, 0.8, 0.8),
			team("Open City", models.TierGold, 2.0, 1.6),
			team("Glass Rovers", models.TierExperimental, 1.4, 1.9),
		},
		MarketProfiles: []models.MarketProfile{
			{Team: "Lockdown FC", MarketType: markets.Under25, WinRate: 60, ROI: 8, SampleSize: 12},
			{Team: "Parkbus United", MarketType: markets.BTTSNo, WinRate: 58, ROI: 10, SampleSize: 12},
		},
		Friction: []models.FrictionRecord{
			{
				TeamA: "Lockdown FC", TeamB: "Parkbus United",
				FrictionScore: 80, ChaosPotential: 40,
				PredictedBTTSProb: 0.3, PredictedOver25Prob: 0.3,
				UpdatedAt: updated,
			},
		},
	}
}

func newTestEngine(t *testing.T, now time.Time) (*Engine, *datahub.Hub) {
	t.Helper()
	hub := datahub.New(engineSnapshot(), datahub.Options{RefereeHighConfidence: 100, LeagueAvgTrigger: 16.5}, logger.Discard())
	scorer, err := value.NewScorer("v2.3", logger.Discard())
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Workers = 2
	opts.Now = func() time.Time { return now }
	return New(hub, scorer, opts, logger.Discard()), hub
}

func reasonCodes(rs []models.Reason) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Code)
	}
	return out
}

func TestAnalyzeTacticalLock(t *testing.T) {
	e, _ := newTestEngine(t, updated.Add(24*time.Hour))

	a, err := e.Analyze(context.Background(), Request{Home: "Lockdown FC", Away: "Parkbus United"})
	require.NoError(t, err)

	assert.Equal(t, utils.StatusOK, a.Status)
	assert.Equal(t, DataQualityComplete, a.DataQuality)
	assert.Equal(t, "EPL", a.League)
	assert.NotEmpty(t, a.MatchID)

	assert.InDelta(t, 1.26, a.Projection.HomeXG, 1e-9)
	assert.InDelta(t, 0.96, a.Projection.AwayXG, 1e-9)
	assert.InDelta(t, 2.22, a.Projection.TotalXG, 1e-9)

	assert.Equal(t, marketprofile.RuleCompatible, a.Markets.Rule)
	assert.Equal(t, decision.TacticalLock, a.Decision.Type)
	assert.Equal(t, markets.Under25, a.Decision.Primary.Market)
	assert.Equal(t, 5.0, a.Alignment.Modifier)
	assert.Equal(t, marketprofile.AlignmentCompatible, a.Alignment.Alignment)

	assert.Equal(t, "Lockdown FC", a.Home.Name)
	assert.Equal(t, 4, a.Home.Z.LeagueTotal)
	assert.NotZero(t, a.Home.Value.ValueScore)
	assert.NotEmpty(t, a.Cards.Recommendation)
	assert.Equal(t, 1.0, a.Cards.Importance)
	assert.Len(t, a.Corners.Lines, 4)
}

func TestAnalyzeMissingTeam(t *testing.T) {
	e, _ := newTestEngine(t, updated)

	a, err := e.Analyze(context.Background(), Request{Home: "Nowhere Athletic", Away: "Open City"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrTeamNotFound))
	assert.Equal(t, utils.ExitMissingData, utils.ExitCode(err))

	require.NotNil(t, a)
	assert.Equal(t, utils.StatusError, a.Status)
	assert.Equal(t, utils.ErrCodeMissingData, a.ErrorCode)
	assert.Equal(t, []string{models.ReasonTeamNotFound}, reasonCodes(a.Reasons))
}

func TestAnalyzeInvalidRequest(t *testing.T) {
	e, _ := newTestEngine(t, updated)

	_, err := e.Analyze(context.Background(), Request{Home: "Open City", Away: "open city"})
	assert.Equal(t, utils.ExitInvalidArgs, utils.ExitCode(err))

	_, err = e.Analyze(context.Background(), Request{Home: "", Away: "Open City"})
	assert.Equal(t, utils.ExitInvalidArgs, utils.ExitCode(err))
}

func TestAnalyzeDefaultsArePartial(t *testing.T) {
	e, _ := newTestEngine(t, updated)

	a, err := e.Analyze(context.Background(), Request{Home: "Open City", Away: "Glass Rovers"})
	require.NoError(t, err)

	codes := reasonCodes(a.Reasons)
	assert.Contains(t, codes, models.ReasonDefaultFriction)
	assert.Contains(t, codes, models.ReasonDefaultMarkets)
	assert.Contains(t, codes, models.ReasonRefereeBaseline)
	assert.Equal(t, DataQualityPartial, a.DataQuality)
	assert.Contains(t, []utils.Status{utils.StatusPartial, utils.StatusSkip}, a.Status)
	assert.Equal(t, 50.0, a.Projection.Friction)
}

func TestAnalyzeStaleData(t *testing.T) {
	fresh, _ := newTestEngine(t, updated.Add(24*time.Hour))
	stale, _ := newTestEngine(t, updated.Add(60*24*time.Hour))
	req := Request{Home: "Lockdown FC", Away: "Parkbus United"}

	fa, err := fresh.Analyze(context.Background(), req)
	require.NoError(t, err)
	sa, err := stale.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.NotContains(t, reasonCodes(fa.Reasons), models.ReasonStaleData)
	assert.Contains(t, reasonCodes(sa.Reasons), models.ReasonStaleData)
	assert.Contains(t, reasonCodes(sa.Decision.Warnings), models.ReasonStaleData)
	assert.Equal(t, DataQualityPartial, sa.DataQuality)
	assert.InDelta(t, fa.Decision.Confidence-0.1, sa.Decision.Confidence, 1e-9)
}

func TestAnalyzeDeterministic(t *testing.T) {
	e, _ := newTestEngine(t, updated)
	req := Request{Home: "Open City", Away: "Glass Rovers", Referee: "Unknown Ref"}

	first, err := e.Analyze(context.Background(), req)
	require.NoError(t, err)
	second, err := e.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAnalyzeDefenderAdvisory(t *testing.T) {
	snap := engineSnapshot()
	for i := 0; i < 4; i++ {
		snap.Defenders = append(snap.Defenders, models.DefenderProfile{
			PlayerName: string(rune('A' + i)), Team: "Parkbus United", Minutes: 1500,
			HMMState: models.DefenderStateCrisis, Alpha: -0.9, Beta: 1.4, CVaR: 4.5,
			LeadershipRole: models.RoleDependent,
		})
	}
	hub := datahub.New(snap, datahub.Options{}, logger.Discard())
	scorer, err := value.NewScorer("v2.3", logger.Discard())
	require.NoError(t, err)
	e := New(hub, scorer, DefaultOptions(), logger.Discard())

	a, err := e.Analyze(context.Background(), Request{Home: "Lockdown FC", Away: "Parkbus United"})
	require.NoError(t, err)

	assert.True(t, a.Away.Shorting.Advisory())
	assert.Contains(t, reasonCodes(a.Decision.Warnings), models.ReasonDefenderCollapse)
	assert.Equal(t, decision.TacticalLock, a.Decision.Type, "advisories never change the decision")
}

func TestCorpusRefreshesOnReload(t *testing.T) {
	e, hub := newTestEngine(t, updated)
	before := e.Corpus()
	require.Len(t, before, 4)

	snap := engineSnapshot()
	snap.Teams = append(snap.Teams, team("Late Entrant", models.TierSilver, 1.2, 1.2))
	hub.Reload(snap)

	after := e.Corpus()
	assert.Len(t, after, 5)
	assert.Equal(t, 5, after["Open City"].LeagueTotal)
}

func TestMatchIDStable(t *testing.T) {
	kick := time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)
	assert.Equal(t, MatchID("Man Utd", "Wolves", kick), MatchID("Manchester United", "Wolverhampton Wanderers", kick))
	assert.NotEqual(t, MatchID("A", "B", kick), MatchID("B", "A", kick))
}

func TestAnalyzeBatch(t *testing.T) {
	e, _ := newTestEngine(t, updated)
	reqs := []Request{
		{Home: "Lockdown FC", Away: "Parkbus United"},
		{Home: "Nowhere Athletic", Away: "Open City"},
		{Home: "Open City", Away: "Glass Rovers"},
		{Home: "Glass Rovers", Away: "Lockdown FC"},
	}

	var sunk atomic.Int32
	results := e.AnalyzeBatch(context.Background(), reqs, func(BatchResult) { sunk.Add(1) })

	require.Len(t, results, 4)
	assert.Equal(t, int32(4), sunk.Load())
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, reqs[i], r.Request)
	}
	assert.NoError(t, results[0].Err)
	assert.True(t, errors.Is(results[1].Err, utils.ErrTeamNotFound))
	assert.Equal(t, decision.TacticalLock, results[0].Analysis.Decision.Type)

	sequential, err := e.Analyze(context.Background(), reqs[2])
	require.NoError(t, err)
	assert.Equal(t, sequential, results[2].Analysis)
}

func TestAnalyzeBatchCancelled(t *testing.T) {
	e, _ := newTestEngine(t, updated)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sunk atomic.Int32
	results := e.AnalyzeBatch(ctx, []Request{
		{Home: "Lockdown FC", Away: "Parkbus United"},
		{Home: "Open City", Away: "Glass Rovers"},
	}, func(BatchResult) { sunk.Add(1) })

	require.Len(t, results, 2)
	assert.Zero(t, sunk.Load())
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.Nil(t, r.Analysis)
	}
}
