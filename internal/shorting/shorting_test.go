package shorting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
)

func defender(name, state string, alpha, beta, cvar float64) models.DefenderProfile {
	return models.DefenderProfile{
		PlayerName: name,
		Minutes:    1200,
		HMMState:   state,
		Alpha:      alpha,
		Beta:       beta,
		CVaR:       cvar,
	}
}

func collapsingLine() []models.DefenderProfile {
	line := []models.DefenderProfile{
		defender("A", models.DefenderStateCrisis, -0.8, 1.5, 4.5),
		defender("B", models.DefenderStateCrisis, -0.8, 1.5, 4.5),
		defender("C", models.DefenderStateCrisis, -0.8, 1.5, 4.5),
		defender("D", models.DefenderStateStable, -0.8, 1.5, 4.5),
	}
	for i := range line {
		line[i].LeadershipRole = models.RoleDependent
	}
	line[0].TiltProfile, line[0].CompoundErrorRisk = models.TiltProfileTilter, 25
	line[1].TiltProfile, line[1].CompoundErrorRisk = models.TiltProfileTilter, 30
	line[2].TransitionVulnerable = true
	line[3].TransitionVulnerable = true

	bench := defender("Bench", models.DefenderStateCrisis, -3, 3, 9)
	bench.Minutes = 300
	return append(line, bench)
}

func factorCodes(a Assessment) []string {
	out := make([]string, 0, len(a.Factors))
	for _, f := range a.Factors {
		out = append(out, f.Code)
	}
	return out
}

func TestAssessCollapse(t *testing.T) {
	a := Assess("Leaky FC", collapsingLine(), "counter")

	assert.Equal(t, 5, a.Defenders)
	assert.Equal(t, 4, a.Starters)
	assert.Equal(t, 75.0, a.CrisisRatio)
	assert.Equal(t, []string{
		FactorCrisis, FactorNegativeAlpha, FactorHighBeta, FactorTailRisk,
		FactorLeadership, FactorTiltCascade, FactorMatchupDanger,
	}, factorCodes(a))
	assert.Equal(t, 100.0, a.CollapseProbability)
	assert.Equal(t, RiskCritical, a.RiskLevel)
	assert.Equal(t, SignalAggressiveShort, a.Signal)
	assert.Equal(t, 1.5, a.KellyMultiplier)
	assert.True(t, a.Advisory())

	var suggested []markets.Market
	for _, s := range a.Suggestions {
		suggested = append(suggested, s.Market)
	}
	assert.Equal(t, []markets.Market{markets.Over35, markets.TeamOver15, markets.TeamOver25}, suggested)

	r := a.Reason()
	assert.Equal(t, models.ReasonDefenderCollapse, r.Code)
	assert.Equal(t, "Leaky FC", r.Subject)
}

func TestAssessLevels(t *testing.T) {
	tests := []struct {
		name      string
		line      []models.DefenderProfile
		style     string
		wantProb  float64
		wantLevel RiskLevel
		wantSugg  int
	}{
		{
			name: "half in crisis",
			line: []models.DefenderProfile{
				defender("A", models.DefenderStateCrisis, 0, 1, 2),
				defender("B", models.DefenderStateCrisis, 0, 1, 2),
				defender("C", models.DefenderStateStable, 0, 1, 2),
				defender("D", models.DefenderStatePeak, 0, 1, 2),
			},
			wantProb:  20,
			wantLevel: RiskModerate,
		},
		{
			name: "crisis and negative alpha",
			line: []models.DefenderProfile{
				defender("A", models.DefenderStateCrisis, -0.6, 1, 2),
				defender("B", models.DefenderStateCrisis, -0.6, 1, 2),
				defender("C", models.DefenderStateStable, -0.6, 1, 2),
				defender("D", models.DefenderStateStable, -0.6, 1, 2),
			},
			wantProb:  45,
			wantLevel: RiskElevated,
			wantSugg:  1,
		},
		{
			name: "solid line",
			line: []models.DefenderProfile{
				defender("A", models.DefenderStateStable, 0.3, 0.9, 1.5),
				defender("B", models.DefenderStatePeak, 0.4, 0.8, 1.2),
			},
			wantProb:  0,
			wantLevel: RiskLow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess("Team", tt.line, tt.style)
			assert.Equal(t, tt.wantProb, a.CollapseProbability)
			assert.Equal(t, tt.wantLevel, a.RiskLevel)
			assert.Len(t, a.Suggestions, tt.wantSugg)
		})
	}
}

func TestAssessMatchupDangerNeedsStyle(t *testing.T) {
	line := []models.DefenderProfile{
		defender("A", models.DefenderStateStable, 0, 1, 2),
		defender("B", models.DefenderStateStable, 0, 1, 2),
	}
	line[0].TransitionVulnerable = true
	line[1].TransitionVulnerable = true
	line[0].LeadershipRole = models.RoleLeader

	assert.Equal(t, 15.0, Assess("T", line, "TRANSITION").CollapseProbability)
	assert.Equal(t, 15.0, Assess("T", line, "fast").CollapseProbability)
	assert.Equal(t, 0.0, Assess("T", line, "POSSESSION").CollapseProbability)
	assert.Equal(t, 0.0, Assess("T", line, "").CollapseProbability)
}

func TestAssessNoStarters(t *testing.T) {
	bench := defender("Kid", models.DefenderStateCrisis, -2, 2, 6)
	bench.Minutes = 120

	a := Assess("Academy", []models.DefenderProfile{bench}, "FAST")
	assert.Zero(t, a.Starters)
	assert.Equal(t, RiskLow, a.RiskLevel)
	assert.Equal(t, SignalNoTrade, a.Signal)
	assert.Equal(t, []string{CodeNoStarters}, factorCodes(a))
	assert.False(t, a.Advisory())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		points float64
		level  RiskLevel
		signal Signal
		kelly  float64
		prob   float64
	}{
		{130, RiskCritical, SignalAggressiveShort, 1.5, 100},
		{80, RiskCritical, SignalAggressiveShort, 1.5, 80},
		{60, RiskHigh, SignalStandardShort, 1.0, 60},
		{40, RiskElevated, SignalOpportunistic, 0.7, 40},
		{20, RiskModerate, SignalMonitor, 0.5, 20},
		{19.9, RiskLow, SignalNoTrade, 0, 19.9},
		{-5, RiskLow, SignalNoTrade, 0, 0},
	}
	for _, tt := range tests {
		var a Assessment
		classify(&a, tt.points)
		assert.Equal(t, tt.level, a.RiskLevel, "points=%v", tt.points)
		assert.Equal(t, tt.signal, a.Signal)
		assert.Equal(t, tt.kelly, a.KellyMultiplier)
		assert.Equal(t, tt.prob, a.CollapseProbability)
	}
}

func TestStyleFromTactical(t *testing.T) {
	assert.Equal(t, "TRANSITION", StyleFromTactical(models.TacticalTransition))
	assert.Equal(t, "FAST", StyleFromTactical(models.TacticalGegenpress))
	assert.Equal(t, "LOW_BLOCK", StyleFromTactical(models.TacticalLowBlock))
}

type fakeSource struct {
	teams     []models.TeamProfile
	defenders map[string][]models.DefenderProfile
}

func (f fakeSource) Teams() []models.TeamProfile { return f.teams }

func (f fakeSource) GetDefenders(team string) []models.DefenderProfile {
	return f.defenders[team]
}

func TestScanShorts(t *testing.T) {
	mid := []models.DefenderProfile{
		defender("A", models.DefenderStateCrisis, -0.6, 1, 2),
		defender("B", models.DefenderStateCrisis, -0.6, 1, 2),
		defender("C", models.DefenderStateStable, -0.6, 1, 2),
		defender("D", models.DefenderStateStable, -0.6, 1, 2),
	}
	src := fakeSource{
		teams: []models.TeamProfile{{TeamName: "Zeta"}, {TeamName: "Alpha"}, {TeamName: "Beta"}, {TeamName: "No Data"}},
		defenders: map[string][]models.DefenderProfile{
			"Zeta":  collapsingLine(),
			"Alpha": collapsingLine(),
			"Beta":  mid,
		},
	}

	s := NewScanner(src, logger.Discard())

	got := s.ScanShorts(40)
	require.Len(t, got, 3)
	assert.Equal(t, "Alpha", got[0].Team)
	assert.Equal(t, "Zeta", got[1].Team)
	assert.Equal(t, "Beta", got[2].Team)

	assert.Len(t, s.ScanShorts(50), 2)
	assert.Empty(t, s.ScanShorts(101))
}
