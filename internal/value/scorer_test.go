package value

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
)

func team(name string, tier models.Tier, mutate func(t *models.TeamProfile)) models.TeamProfile {
	t := models.TeamProfile{TeamName: name, League: "EPL", Tier: tier}
	if mutate != nil {
		mutate(&t)
	}
	return t
}

func TestNewScorer(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	s, err := NewScorer("V2.2", log)
	require.NoError(t, err)
	assert.Equal(t, "v2.2", s.Version())
	assert.Contains(t, buf.String(), "PENALTY_TABLE_VERSION")

	_, err = NewScorer("v3", log)
	assert.Error(t, err)
}

func TestPublicPenaltyVersions(t *testing.T) {
	v22, err := NewScorer("v2.2", logger.Discard())
	require.NoError(t, err)
	v23, err := NewScorer("v2.3", logger.Discard())
	require.NoError(t, err)

	assert.Equal(t, -12.0, v22.PublicPenalty("Man United"))
	assert.Equal(t, -11.0, v23.PublicPenalty("Man United"))
	assert.Equal(t, -15.0, v23.PublicPenalty("Manchester City"))
	assert.Equal(t, 15.0, v23.PublicPenalty("Brentford"))

	for _, version := range PenaltyTableVersions() {
		for team, p := range penaltyTables[version] {
			assert.GreaterOrEqual(t, p, -15.0, team)
			assert.LessOrEqual(t, p, -8.0, team)
		}
	}
}

func TestScoreComponents(t *testing.T) {
	scorer, err := NewScorer("v2.3", logger.Discard())
	require.NoError(t, err)

	tests := []struct {
		name      string
		team      models.TeamProfile
		wantValue float64
		check     func(t *testing.T, b Breakdown)
	}{
		{
			name:      "elite public team with no luck data",
			team:      team("Real Madrid", models.TierElite, nil),
			wantValue: -15,
		},
		{
			name: "unlucky silver with clinical finishers",
			team: team("Brentford", models.TierSilver, func(t *models.TeamProfile) {
				t.DNA.Luck = models.LuckDNA{LuckProfile: models.LuckUnlucky, TotalLuck: -4}
				t.DNA.Roster.ClinicalFinishers = 5
				t.DNA.Nemesis.KeeperStatus = models.KeeperLeaky
			}),
			// 25 + 15 + (30 + 10 + 2.8) + 20
			wantValue: 102.8,
			check: func(t *testing.T, b Breakdown) {
				assert.Equal(t, 10.0, b.MegaValueBonus)
				assert.InDelta(t, 2.8, b.RegressionPotential, 1e-9)
				assert.InDelta(t, -2.4, b.TalentAdjustedLuck, 1e-9)
			},
		},
		{
			name: "lucky gold with seven finishers",
			team: team("Fulham", models.TierGold, func(t *models.TeamProfile) {
				t.DNA.Luck = models.LuckDNA{LuckProfile: models.LuckLucky, TotalLuck: 5}
				t.DNA.Roster.ClinicalFinishers = 7
				t.DNA.Nemesis.KeeperStatus = models.KeeperOnFire
			}),
			// 15 + 15 + (-6 - 1) - 10
			wantValue: 13,
			check: func(t *testing.T, b Breakdown) {
				assert.Equal(t, 0.4, b.TalentFactor)
				assert.InDelta(t, -6, b.LuckBase, 1e-9)
				assert.InDelta(t, -1, b.RegressionPotential, 1e-9)
			},
		},
		{
			name: "lucky bronze with three finishers",
			team: team("Luton", models.TierBronze, func(t *models.TeamProfile) {
				t.DNA.Luck = models.LuckDNA{LuckProfile: models.LuckLucky, TotalLuck: 2}
				t.DNA.Roster.ClinicalFinishers = 3
			}),
			// 20 + 15 + (-12.75 - 0.85)
			wantValue: 21.4,
		},
		{
			name: "historical anchor applied from five bets",
			team: team("Burnley", models.TierExperimental, func(t *models.TeamProfile) {
				t.DNA.Luck.LuckProfile = models.LuckNeutral
				t.HistoricalBets = 5
				t.HistoricalWinRate = 80
				t.HistoricalPnL = 12
			}),
			// 10 + 15 + 10 + (20 + 15)
			wantValue: 70,
		},
		{
			name: "historical ignored under five bets",
			team: team("Sheffield United", models.TierExperimental, func(t *models.TeamProfile) {
				t.HistoricalBets = 4
				t.HistoricalWinRate = 20
				t.HistoricalPnL = -30
			}),
			wantValue: 25,
			check: func(t *testing.T, b Breakdown) {
				assert.Zero(t, b.HistoricalValue)
			},
		},
		{
			name: "losing history penalised",
			team: team("Everton", models.TierBronze, func(t *models.TeamProfile) {
				t.DNA.Nemesis.KeeperStatus = models.KeeperSolid
				t.HistoricalBets = 12
				t.HistoricalWinRate = 40
				t.HistoricalPnL = -8
			}),
			// 20 + 15 + 5 - 30
			wantValue: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.team)
			assert.InDelta(t, tt.wantValue, got.ValueScore, 1e-9)
			if tt.check != nil {
				tt.check(t, got.Breakdown)
			}
		})
	}
}

func TestQualityScore(t *testing.T) {
	cs := models.CurrentSeason{XGForAvg: 2.0, XGAgainstAvg: 1.0, PPG: 2.0}
	// 0.6*(50+20) + 0.4*50
	assert.InDelta(t, 62.0, QualityScore(cs), 1e-9)

	// missing xG defaults to 1.3 on both sides
	assert.InDelta(t, 30.0+10.0, QualityScore(models.CurrentSeason{PPG: 1.0}), 1e-9)
}
