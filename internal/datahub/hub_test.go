package datahub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
)

func intp(v int) *int { return &v }

func testSnapshot() *Snapshot {
	kickoff := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	return &Snapshot{
		Teams: []models.TeamProfile{
			{TeamName: "Manchester United", League: "EPL", Tier: models.TierElite},
			{TeamName: "Manchester City", League: "EPL", Tier: models.TierElite},
			{TeamName: "Wolverhampton Wanderers", League: "EPL", Tier: models.TierSilver},
			{TeamName: "Bayern Munich", League: "Bundesliga", Tier: models.TierElite},
			{TeamName: "Brentford", League: "EPL", Tier: models.TierBronze},
			{TeamName: "Barcelona", League: "La Liga", Tier: models.TierElite},
		},
		MarketProfiles: []models.MarketProfile{
			{Team: "Brentford", MarketType: markets.Over25, Location: models.LocationHome, WinRate: 64, ROI: 12, SampleSize: 14, IsBestMarket: true},
			{Team: "Brentford", MarketType: markets.BTTSYes, WinRate: 58, ROI: 6, SampleSize: 20},
		},
		Friction: []models.FrictionRecord{
			{TeamA: "Wolverhampton Wanderers", TeamB: "Brentford", FrictionScore: 72, ChaosPotential: 61},
		},
		H2H: []models.H2HPattern{
			{TeamA: "Manchester City", TeamB: "Manchester United", MarketType: markets.Over25, WinRate: 70, TotalMatches: 8, OverrideIndividualDNA: true},
		},
		Referees: []models.RefereeProfile{
			{RefereeName: "Anthony Taylor", Matches: 150, CardImpact: 0.4, CardTriggerRate: 18, Strictness: models.StrictnessStrict},
			{RefereeName: "Rookie Ref", Matches: 40, CardTriggerRate: 14},
		},
		Goalscorers: []models.GoalscorerProfile{
			{PlayerName: "Mbeumo", Team: "Brentford", TotalGoals: 9},
			{PlayerName: "Wissa", Team: "Brentford", TotalGoals: 11},
			{PlayerName: "Toney", Team: "Brentford", TotalGoals: 9},
		},
		Results: []models.MatchResult{
			{MatchID: "m3", HomeTeam: "Brentford", AwayTeam: "Wolves", CommenceTime: kickoff.Add(48 * time.Hour), IsFinished: true, ScoreHome: intp(2), ScoreAway: intp(1)},
			{MatchID: "m2", HomeTeam: "Man City", AwayTeam: "Brentford", CommenceTime: kickoff, IsFinished: true, ScoreHome: intp(3), ScoreAway: intp(1)},
			{MatchID: "m1", HomeTeam: "Man United", AwayTeam: "Wolves", CommenceTime: kickoff, IsFinished: true, ScoreHome: intp(0), ScoreAway: intp(0)},
			{MatchID: "m4", HomeTeam: "Brentford", AwayTeam: "Man United", CommenceTime: kickoff.Add(96 * time.Hour)},
		},
	}
}

func newTestHub() *Hub {
	return New(testSnapshot(), Options{RefereeHighConfidence: 100, LeagueAvgTrigger: 16.5}, logger.Discard())
}

func TestGetTeam(t *testing.T) {
	hub := newTestHub()

	tests := []struct {
		query string
		want  string
	}{
		{"Man United", "Manchester United"},
		{"manchester united", "Manchester United"},
		{"Wolves", "Wolverhampton Wanderers"},
		{"Bayern München", "Bayern Munich"},
		{"Brentford FC", "Brentford"},
		{"AFC Brentford", "Brentford"},
		{"Wolverhampton", "Wolverhampton Wanderers"},
		{"Wanderers", "Wolverhampton Wanderers"},
		{"Barcelona SC", ""},
		{"Barcelona B", ""},
		{"Brent", ""},
		{"Manchester", ""},
		{"Fulham", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			team := hub.GetTeam(tt.query)
			if tt.want == "" {
				assert.Nil(t, team)
				return
			}
			require.NotNil(t, team)
			assert.Equal(t, tt.want, team.TeamName)
		})
	}
}

func TestGetTeamReturnsCopy(t *testing.T) {
	hub := newTestHub()
	team := hub.GetTeam("Brentford")
	require.NotNil(t, team)
	team.League = "mutated"

	assert.Equal(t, "EPL", hub.GetTeam("Brentford").League)
}

func TestGetFrictionIsSymmetric(t *testing.T) {
	hub := newTestHub()

	ab, ok := hub.GetFriction("Wolves", "Brentford")
	require.True(t, ok)
	ba, ok := hub.GetFriction("Brentford", "Wolverhampton Wanderers")
	require.True(t, ok)
	assert.Equal(t, ab, ba)
	assert.Equal(t, 72.0, ab.FrictionScore)

	def, ok := hub.GetFriction("Brentford", "Bayern Munich")
	assert.False(t, ok)
	assert.Equal(t, 50.0, def.FrictionScore)
	assert.Equal(t, 50.0, def.ChaosPotential)
	assert.Equal(t, 0.5, def.PredictedOver25Prob)
	assert.Equal(t, 0.5, def.PredictedBTTSProb)
	assert.Equal(t, 2.6, def.PredictedGoals)
}

func TestGetMarketProfile(t *testing.T) {
	hub := newTestHub()

	home, ok := hub.GetMarketProfile("Brentford", models.LocationHome)
	require.True(t, ok)
	assert.Equal(t, 64.0, home[markets.Over25].WinRate)
	assert.True(t, home[markets.Over25].IsBest)

	// no away split, falls back to overall
	away, ok := hub.GetMarketProfile("Brentford", models.LocationAway)
	require.True(t, ok)
	assert.Equal(t, 58.0, away[markets.BTTSYes].WinRate)

	def, ok := hub.GetMarketProfile("Nobody FC", models.LocationOverall)
	assert.False(t, ok)
	assert.Equal(t, 53.0, def[markets.Over25].WinRate)
	assert.Equal(t, 52.0, def[markets.BTTSYes].WinRate)
	assert.Equal(t, 47.0, def[markets.Under25].WinRate)
	assert.Equal(t, 25.0, def[markets.CleanSheet].WinRate)
	assert.Equal(t, 25.0, def[markets.FailToScore].WinRate)
	assert.Zero(t, def[markets.Over25].SampleSize)
}

func TestGetH2H(t *testing.T) {
	hub := newTestHub()
	p, ok := hub.GetH2H("Man United", "Man City")
	require.True(t, ok)
	assert.Equal(t, markets.Over25, p.MarketType)

	_, ok = hub.GetH2H("Brentford", "Wolves")
	assert.False(t, ok)
}

func TestGetReferee(t *testing.T) {
	hub := newTestHub()

	ref, ok := hub.GetReferee("anthony taylor")
	require.True(t, ok)
	assert.Equal(t, 1.0, ref.Confidence)

	rookie, ok := hub.GetReferee("Rookie Ref")
	require.True(t, ok)
	assert.InDelta(t, 0.4, rookie.Confidence, 1e-9)

	base, ok := hub.GetReferee("Unknown Person")
	assert.False(t, ok)
	assert.Zero(t, base.CardImpact)
	assert.Zero(t, base.Confidence)
	assert.InDelta(t, 16.0, base.CardTriggerRate, 1e-9)
}

func TestGetGoalscorersOrdered(t *testing.T) {
	hub := newTestHub()
	scorers := hub.GetGoalscorers("Brentford")
	require.Len(t, scorers, 3)
	assert.Equal(t, "Wissa", scorers[0].PlayerName)
	assert.Equal(t, "Mbeumo", scorers[1].PlayerName)
	assert.Equal(t, "Toney", scorers[2].PlayerName)
}

func TestGetMatchResults(t *testing.T) {
	hub := newTestHub()

	var ids []string
	for r := range hub.GetMatchResults(models.ResultFilter{FinishedOnly: true}) {
		ids = append(ids, r.MatchID)
	}
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)

	ids = nil
	for r := range hub.GetMatchResults(models.ResultFilter{Team: "Wolverhampton Wanderers"}) {
		ids = append(ids, r.MatchID)
	}
	assert.Equal(t, []string{"m1", "m3"}, ids)

	// early break stops iteration
	count := 0
	for range hub.GetMatchResults(models.ResultFilter{}) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestReloadSwapsSnapshot(t *testing.T) {
	hub := newTestHub()
	require.NotNil(t, hub.GetTeam("Brentford"))
	v := hub.Version()

	hub.Reload(&Snapshot{Teams: []models.TeamProfile{{TeamName: "Fulham", League: "EPL"}}})

	assert.Equal(t, v+1, hub.Version())
	assert.Nil(t, hub.GetTeam("Brentford"))
	assert.NotNil(t, hub.GetTeam("Fulham"))
	assert.Len(t, hub.Teams(), 1)
}

func TestClose(t *testing.T) {
	hub := newTestHub()
	hub.Close()
	assert.Nil(t, hub.GetTeam("Brentford"))
	assert.Empty(t, hub.Teams())
}
