package marketprofile

import "github.com/crocodileps/Mon-ps-sub009/internal/markets"

type Alignment string

const (
	AlignmentPerfect    Alignment = "PERFECT"
	AlignmentCompatible Alignment = "COMPATIBLE"
	AlignmentClash      Alignment = "CLASH"
	AlignmentNeutral    Alignment = "NEUTRAL"
)

const (
	orchestratorPerfect    = 10.0
	orchestratorCompatible = 5.0
	orchestratorClash      = -20.0
)

// OrchestratorModifier scores an externally asserted target market against the
// two teams' profiles.
func (r *Resolver) OrchestratorModifier(home, away string, target markets.Market) (float64, Alignment) {
	return AlignTarget(r.Resolve(home, away), target)
}

func AlignTarget(res Resolution, target markets.Market) (float64, Alignment) {
	if target == "" {
		return 0, AlignmentNeutral
	}
	for _, m := range res.ClashMarkets {
		if m == target {
			return orchestratorClash, AlignmentClash
		}
	}

	tops := []TopMarket{res.HomeTop, res.AwayTop}
	for _, top := range tops {
		if top.Found && markets.AreOpposite(top.Market, target) {
			return orchestratorClash, AlignmentClash
		}
	}

	if (res.Rule == RulePerfectConvergence || res.Rule == RuleH2HOverride) && res.Market == target {
		return orchestratorPerfect, AlignmentPerfect
	}

	for _, top := range tops {
		if top.Found && (top.Market == target || markets.AreCompatible(top.Market, target)) {
			return orchestratorCompatible, AlignmentCompatible
		}
	}
	return 0, AlignmentNeutral
}
