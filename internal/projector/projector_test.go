package projector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crocodileps/Mon-ps-sub009/internal/models"
)

func profile(xgFor, xgAgainst float64) models.TeamProfile {
	var t models.TeamProfile
	t.DNA.CurrentSeason = models.CurrentSeason{XGForAvg: xgFor, XGAgainstAvg: xgAgainst}
	return t
}

func TestProjectShootoutScenario(t *testing.T) {
	home := profile(2.0, 1.0)
	away := profile(1.8, 1.1)
	f := models.FrictionRecord{FrictionScore: 55, ChaosPotential: 55, PredictedOver25Prob: 0.72, PredictedBTTSProb: 0.65}

	p := Project(home, away, f)
	assert.Equal(t, 1.86, Round2(p.HomeXG))
	assert.Equal(t, 1.45, Round2(p.AwayXG))
	assert.Equal(t, 3.31, Round2(p.TotalXG))
	assert.Equal(t, 0.72, p.Over25Prob)
	assert.False(t, p.DefaultXG)

	f.FrictionScore = 80
	p = Project(home, away, f)
	assert.Greater(t, p.TotalXG, 3.5)
}

func TestProjectDefaults(t *testing.T) {
	p := Project(profile(0, 0), profile(math.NaN(), 1.3), models.DefaultFriction("a", "b"))
	assert.True(t, p.DefaultXG)
	assert.InDelta(t, 1.55, p.HomeXG, 1e-9)
	assert.InDelta(t, 1.30, p.AwayXG, 1e-9)
	assert.Equal(t, 1.0, p.Multiplier)
}

func TestProbOverMonotonic(t *testing.T) {
	for _, lambda := range []float64{0.4, 1.7, 2.6, 3.4, 5.2} {
		prev := 1.0
		for line := 0.5; line <= 8.5; line += 0.25 {
			p := ProbOver(lambda, line)
			assert.LessOrEqual(t, p, prev+1e-12, "lambda %.2f line %.2f", lambda, line)
			assert.InDelta(t, 1, p+ProbUnder(lambda, line), 1e-12)
			prev = p
		}
	}
}

func TestProbOverClosedForm(t *testing.T) {
	lambda := 2.6
	var cdf float64
	for k := 0; k <= 2; k++ {
		cdf += math.Pow(lambda, float64(k)) * math.Exp(-lambda) / math.Gamma(float64(k+1))
	}
	assert.InDelta(t, 1-cdf, ProbOver(lambda, 2.5), 1e-9)
	assert.Zero(t, ProbOver(0, 2.5))
}

func TestResultProbabilities(t *testing.T) {
	r := ResultProbabilities(1.8, 1.0)
	assert.InDelta(t, 1, r.Home+r.Draw+r.Away, 1e-9)
	assert.Greater(t, r.Home, r.Away)

	sym := ResultProbabilities(1.4, 1.4)
	assert.InDelta(t, sym.Home, sym.Away, 1e-9)
}

func TestProbBTTS(t *testing.T) {
	assert.InDelta(t, (1-math.Exp(-1.5))*(1-math.Exp(-1.2)), ProbBTTS(1.5, 1.2), 1e-12)
	assert.Zero(t, ProbBTTS(0, 2))
}
