// Package normalizer turns raw value scores into per-league z-scores and ranks.
package normalizer

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

type Entry struct {
	Team   string
	League string
	Value  float64
}

type Result struct {
	Team        string  `json:"team"`
	League      string  `json:"league"`
	ValueScore  float64 `json:"value_score"`
	ZScore      float64 `json:"z_score"`
	Rank        int     `json:"rank"`
	LeagueTotal int     `json:"league_total"`
	LeagueMean  float64 `json:"league_mean"`
	LeagueStd   float64 `json:"league_std"`
}

// Normalize groups entries by league and computes population z-scores.
// NaN or infinite values are skipped. A league with zero spread or a single team
// yields z=0 for all members. Ranks break ties by team name ascending.
func Normalize(entries []Entry, logger *logrus.Logger) map[string]Result {
	byLeague := make(map[string][]Entry)
	for _, e := range entries {
		if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
			logger.WithFields(logrus.Fields{
				"team":   e.Team,
				"league": e.League,
			}).Warn("Skipping non-finite value score")
			continue
		}
		byLeague[e.League] = append(byLeague[e.League], e)
	}

	out := make(map[string]Result, len(entries))
	for league, members := range byLeague {
		values := make([]float64, len(members))
		for i, m := range members {
			values[i] = m.Value
		}
		mean, std := stat.PopMeanStdDev(values, nil)

		sort.SliceStable(members, func(i, j int) bool {
			if members[i].Value != members[j].Value {
				return members[i].Value > members[j].Value
			}
			return members[i].Team < members[j].Team
		})

		for i, m := range members {
			z := 0.0
			if len(members) > 1 && std > 0 {
				z = (m.Value - mean) / std
			}
			out[m.Team] = Result{
				Team:        m.Team,
				League:      league,
				ValueScore:  m.Value,
				ZScore:      z,
				Rank:        i + 1,
				LeagueTotal: len(members),
				LeagueMean:  mean,
				LeagueStd:   std,
			}
		}
	}
	return out
}
