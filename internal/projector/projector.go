// Package projector derives expected goals and goal-market probabilities from
// team DNA and the pair's friction record.
package projector

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/crocodileps/Mon-ps-sub009/internal/models"
)

const (
	HomeAdvantage  = 0.25
	frictionCenter = 50.0
	frictionScale  = 150.0
	maxGoals       = 10
)

type Projection struct {
	HomeXG     float64 `json:"home_xg"`
	AwayXG     float64 `json:"away_xg"`
	TotalXG    float64 `json:"total_xg"`
	Multiplier float64 `json:"multiplier"`
	Friction   float64 `json:"friction"`
	Chaos      float64 `json:"chaos"`
	BTTSProb   float64 `json:"btts_prob"`
	Over25Prob float64 `json:"over25_prob"`
	DefaultXG  bool    `json:"default_xg"`
}

// Project applies the friction-scaled xG formula.
func Project(home, away models.TeamProfile, f models.FrictionRecord) Projection {
	hs, as := home.DNA.CurrentSeason, away.DNA.CurrentSeason

	homeXG := (hs.XGFor()+as.XGAgainst())/2 + HomeAdvantage
	awayXG := (as.XGFor() + hs.XGAgainst()) / 2
	multiplier := 1 + (f.FrictionScore-frictionCenter)/frictionScale
	homeXG *= multiplier
	awayXG *= multiplier

	return Projection{
		HomeXG:     homeXG,
		AwayXG:     awayXG,
		TotalXG:    homeXG + awayXG,
		Multiplier: multiplier,
		Friction:   f.FrictionScore,
		Chaos:      f.ChaosPotential,
		BTTSProb:   f.PredictedBTTSProb,
		Over25Prob: f.PredictedOver25Prob,
		DefaultXG:  !hs.HasXG() || !as.HasXG(),
	}
}

// ProbOver is P(X > line) for X ~ Poisson(lambda), i.e. 1 - CDF(floor(line)).
func ProbOver(lambda, line float64) float64 {
	if lambda <= 0 || math.IsNaN(lambda) {
		return 0
	}
	if line < 0 {
		return 1
	}
	return distuv.Poisson{Lambda: lambda}.Survival(math.Floor(line))
}

func ProbUnder(lambda, line float64) float64 {
	return 1 - ProbOver(lambda, line)
}

// ProbBTTS assumes independent Poisson scoring.
func ProbBTTS(homeXG, awayXG float64) float64 {
	return (1 - math.Exp(-math.Max(homeXG, 0))) * (1 - math.Exp(-math.Max(awayXG, 0)))
}

// OneXTwo holds the three result probabilities of a double-Poisson score matrix.
type OneXTwo struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// ResultProbabilities sums a score matrix truncated at ten goals per side and
// renormalises the mass.
func ResultProbabilities(homeXG, awayXG float64) OneXTwo {
	if homeXG <= 0 || awayXG <= 0 {
		return OneXTwo{Home: 1.0 / 3, Draw: 1.0 / 3, Away: 1.0 / 3}
	}
	hp := distuv.Poisson{Lambda: homeXG}
	ap := distuv.Poisson{Lambda: awayXG}

	var out OneXTwo
	for h := 0; h <= maxGoals; h++ {
		ph := hp.Prob(float64(h))
		for a := 0; a <= maxGoals; a++ {
			p := ph * ap.Prob(float64(a))
			switch {
			case h > a:
				out.Home += p
			case h < a:
				out.Away += p
			default:
				out.Draw += p
			}
		}
	}
	total := out.Home + out.Draw + out.Away
	out.Home /= total
	out.Draw /= total
	out.Away /= total
	return out
}

// Round2 rounds half away from zero to two decimals for displayed fields.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
