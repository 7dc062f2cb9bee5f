package datahub

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/crocodileps/Mon-ps-sub009/internal/models"
)

// GamestateThresholds are corpus P25/P75 cut-offs for comeback and
// lead-protection rates.
type GamestateThresholds struct {
	ComebackP25 float64 `json:"comeback_p25"`
	ComebackP75 float64 `json:"comeback_p75"`
	LeadP25     float64 `json:"lead_protection_p25"`
	LeadP75     float64 `json:"lead_protection_p75"`
	Sample      int     `json:"sample"`
}

const minGamestateSample = 4

// calibrateGamestate classifies teams whose behaviour label is missing.
func calibrateGamestate(teams map[string]*models.TeamProfile) GamestateThresholds {
	var comeback, lead []float64
	for _, t := range teams {
		g := t.DNA.Gamestate
		if g.ComebackRate == 0 && g.LeadProtectionRate == 0 {
			continue
		}
		comeback = append(comeback, g.ComebackRate)
		lead = append(lead, g.LeadProtectionRate)
	}

	th := GamestateThresholds{Sample: len(comeback)}
	if len(comeback) < minGamestateSample {
		return th
	}
	sort.Float64s(comeback)
	sort.Float64s(lead)
	th.ComebackP25 = stat.Quantile(0.25, stat.Empirical, comeback, nil)
	th.ComebackP75 = stat.Quantile(0.75, stat.Empirical, comeback, nil)
	th.LeadP25 = stat.Quantile(0.25, stat.Empirical, lead, nil)
	th.LeadP75 = stat.Quantile(0.75, stat.Empirical, lead, nil)

	for _, t := range teams {
		b := t.DNA.Gamestate.Behavior
		if b != "" && b != models.GamestateUnknown {
			continue
		}
		g := t.DNA.Gamestate
		if g.ComebackRate == 0 && g.LeadProtectionRate == 0 {
			continue
		}
		t.DNA.Gamestate.Behavior = th.Classify(g.ComebackRate, g.LeadProtectionRate)
	}
	return th
}

// Classify maps rates onto a behaviour using the calibrated percentiles.
func (th GamestateThresholds) Classify(comeback, lead float64) models.GamestateBehavior {
	if th.Sample < minGamestateSample {
		return models.GamestateNeutral
	}
	switch {
	case comeback >= th.ComebackP75 && lead >= th.LeadP75:
		return models.GamestateKiller
	case comeback >= th.ComebackP75:
		return models.GamestateComebackKing
	case lead >= th.LeadP75:
		return models.GamestateGameManager
	case comeback <= th.ComebackP25 && lead <= th.LeadP25:
		return models.GamestateSettler
	case comeback <= th.ComebackP25:
		return models.GamestateFrontRunner
	}
	return models.GamestateNeutral
}
