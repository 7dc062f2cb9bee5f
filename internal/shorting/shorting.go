// Package shorting detects defensive units at risk of collapse.
package shorting

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/internal/projector"
)

type RiskLevel string

const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskElevated RiskLevel = "ELEVATED"
	RiskModerate RiskLevel = "MODERATE"
	RiskLow      RiskLevel = "LOW"
)

type Signal string

const (
	SignalAggressiveShort Signal = "AGGRESSIVE_SHORT"
	SignalStandardShort   Signal = "STANDARD_SHORT"
	SignalOpportunistic   Signal = "OPPORTUNISTIC"
	SignalMonitor         Signal = "MONITOR"
	SignalNoTrade         Signal = "NO_TRADE"
)

// Risk factor codes.
const (
	FactorCrisis        = "CRISIS_RATIO"
	FactorNegativeAlpha = "NEGATIVE_ALPHA"
	FactorHighBeta      = "HIGH_BETA"
	FactorTailRisk      = "TAIL_RISK"
	FactorLeadership    = "LEADERSHIP_VACUUM"
	FactorTiltCascade   = "TILT_CASCADE"
	FactorMatchupDanger = "MATCHUP_DANGER"
	CodeNoStarters      = "NO_STARTERS"
)

// Suggestion scopes.
const (
	ScopeOpponent = "opponent"
	ScopeMatch    = "match"
)

const (
	starterMinutes        = 500
	transitionVulnerables = 2
)

var dangerousStyles = map[string]bool{"FAST": true, "COUNTER": true, "TRANSITION": true}

// StyleFromTactical maps a tactical profile onto the opponent styles the scan
// treats as dangerous.
func StyleFromTactical(p models.TacticalProfile) string {
	switch p {
	case models.TacticalTransition:
		return "TRANSITION"
	case models.TacticalGegenpress:
		return "FAST"
	}
	return string(p)
}

type RiskFactor struct {
	Code   string  `json:"code"`
	Points float64 `json:"points"`
	Value  float64 `json:"value"`
}

type Suggestion struct {
	Market markets.Market `json:"market"`
	Scope  string         `json:"scope"`
	Reason string         `json:"reason"`
}

type Assessment struct {
	Team                string       `json:"team"`
	Defenders           int          `json:"defenders"`
	Starters            int          `json:"starters"`
	CrisisRatio         float64      `json:"crisis_ratio"`
	MeanAlpha           float64      `json:"mean_alpha"`
	MeanBeta            float64      `json:"mean_beta"`
	MeanSharpe          float64      `json:"mean_sharpe"`
	MeanCVaR            float64      `json:"mean_cvar"`
	Factors             []RiskFactor `json:"factors,omitempty"`
	CollapseProbability float64      `json:"collapse_probability"`
	RiskLevel           RiskLevel    `json:"risk_level"`
	Signal              Signal       `json:"signal"`
	KellyMultiplier     float64      `json:"kelly_multiplier"`
	Suggestions         []Suggestion `json:"suggestions,omitempty"`
}

// Advisory reports whether the assessment should surface as a warning.
func (a Assessment) Advisory() bool {
	switch a.RiskLevel {
	case RiskCritical, RiskHigh, RiskElevated:
		return true
	}
	return false
}

// Reason renders the assessment as a structured advisory.
func (a Assessment) Reason() models.Reason {
	return models.NewReason(models.ReasonDefenderCollapse, map[string]float64{
		"collapse_probability": a.CollapseProbability,
		"kelly_multiplier":     a.KellyMultiplier,
	}).WithSubject(a.Team)
}

// Assess scores one team's defensive line against an opponent style.
func Assess(team string, defenders []models.DefenderProfile, opponentStyle string) Assessment {
	a := Assessment{Team: team, Defenders: len(defenders)}

	var starters []models.DefenderProfile
	for _, d := range defenders {
		if d.Minutes > starterMinutes {
			starters = append(starters, d)
		}
	}
	a.Starters = len(starters)
	if len(starters) == 0 {
		a.Factors = append(a.Factors, RiskFactor{Code: CodeNoStarters})
		classify(&a, 0)
		return a
	}

	var alphas, betas, sharpes, cvars []float64
	crisis, leaders, dependents, tilters, vulnerable := 0, 0, 0, 0, 0
	for _, d := range starters {
		alphas = append(alphas, d.Alpha)
		betas = append(betas, d.Beta)
		sharpes = append(sharpes, d.Sharpe)
		cvars = append(cvars, d.CVaR)
		if strings.EqualFold(d.HMMState, models.DefenderStateCrisis) {
			crisis++
		}
		switch strings.ToUpper(d.LeadershipRole) {
		case models.RoleLeader:
			leaders++
		case models.RoleDependent:
			dependents++
		}
		if strings.EqualFold(d.TiltProfile, models.TiltProfileTilter) && d.CompoundErrorRisk > 20 {
			tilters++
		}
		if d.TransitionVulnerable {
			vulnerable++
		}
	}

	a.CrisisRatio = float64(crisis) / float64(len(starters)) * 100
	a.MeanAlpha = stat.Mean(alphas, nil)
	a.MeanBeta = stat.Mean(betas, nil)
	a.MeanSharpe = stat.Mean(sharpes, nil)
	a.MeanCVaR = stat.Mean(cvars, nil)

	var points float64
	add := func(code string, pts, value float64) {
		points += pts
		a.Factors = append(a.Factors, RiskFactor{Code: code, Points: pts, Value: projector.Round2(value)})
	}

	switch {
	case a.CrisisRatio >= 75:
		add(FactorCrisis, 30, a.CrisisRatio)
	case a.CrisisRatio >= 50:
		add(FactorCrisis, 20, a.CrisisRatio)
	case a.CrisisRatio >= 25:
		add(FactorCrisis, 10, a.CrisisRatio)
	}
	if a.MeanAlpha < -0.5 {
		add(FactorNegativeAlpha, 25, a.MeanAlpha)
	}
	if a.MeanBeta > 1.3 {
		add(FactorHighBeta, 10, a.MeanBeta)
	}
	if a.MeanCVaR > 4.0 {
		add(FactorTailRisk, 20, a.MeanCVaR)
		a.Suggestions = append(a.Suggestions, Suggestion{Market: markets.Over35, Scope: ScopeMatch, Reason: FactorTailRisk})
	}
	if leaders == 0 && dependents >= 2 {
		add(FactorLeadership, 20, float64(dependents))
	}
	if tilters >= 2 {
		add(FactorTiltCascade, 10, float64(tilters))
	}
	if dangerousStyles[strings.ToUpper(opponentStyle)] && vulnerable >= transitionVulnerables {
		add(FactorMatchupDanger, 15, float64(vulnerable))
	}

	classify(&a, points)

	switch a.RiskLevel {
	case RiskCritical, RiskHigh:
		a.Suggestions = append(a.Suggestions,
			Suggestion{Market: markets.TeamOver15, Scope: ScopeOpponent, Reason: string(a.RiskLevel)},
			Suggestion{Market: markets.TeamOver25, Scope: ScopeOpponent, Reason: string(a.RiskLevel)},
		)
	case RiskElevated:
		a.Suggestions = append(a.Suggestions, Suggestion{Market: markets.TeamOver15, Scope: ScopeOpponent, Reason: string(a.RiskLevel)})
	}

	a.CrisisRatio = projector.Round2(a.CrisisRatio)
	a.MeanAlpha = projector.Round2(a.MeanAlpha)
	a.MeanBeta = projector.Round2(a.MeanBeta)
	a.MeanSharpe = projector.Round2(a.MeanSharpe)
	a.MeanCVaR = projector.Round2(a.MeanCVaR)
	return a
}

func classify(a *Assessment, points float64) {
	p := min(max(points, 0), 100)
	a.CollapseProbability = p
	switch {
	case p >= 80:
		a.RiskLevel, a.Signal, a.KellyMultiplier = RiskCritical, SignalAggressiveShort, 1.5
	case p >= 60:
		a.RiskLevel, a.Signal, a.KellyMultiplier = RiskHigh, SignalStandardShort, 1.0
	case p >= 40:
		a.RiskLevel, a.Signal, a.KellyMultiplier = RiskElevated, SignalOpportunistic, 0.7
	case p >= 20:
		a.RiskLevel, a.Signal, a.KellyMultiplier = RiskModerate, SignalMonitor, 0.5
	default:
		a.RiskLevel, a.Signal, a.KellyMultiplier = RiskLow, SignalNoTrade, 0
	}
}

// Source is the slice of the data hub the scanner reads.
type Source interface {
	Teams() []models.TeamProfile
	GetDefenders(team string) []models.DefenderProfile
}

type Scanner struct {
	source Source
	logger *logrus.Logger
}

func NewScanner(source Source, logger *logrus.Logger) *Scanner {
	return &Scanner{source: source, logger: logger}
}

// DefaultMinProbability is the collapse probability at which a line becomes
// an advisory (ELEVATED risk).
const DefaultMinProbability = 40.0

// ScanShorts assesses every team with defender data and returns those at or
// above minProb, most exposed first.
func (s *Scanner) ScanShorts(minProb float64) []Assessment {
	var out []Assessment
	scanned := 0
	for _, t := range s.source.Teams() {
		defenders := s.source.GetDefenders(t.TeamName)
		if len(defenders) == 0 {
			continue
		}
		scanned++
		a := Assess(t.TeamName, defenders, "")
		if a.CollapseProbability >= minProb {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CollapseProbability != out[j].CollapseProbability {
			return out[i].CollapseProbability > out[j].CollapseProbability
		}
		return out[i].Team < out[j].Team
	})

	s.logger.WithFields(logrus.Fields{
		"scanned":  scanned,
		"flagged":  len(out),
		"min_prob": minProb,
	}).Info("Defender-line scan complete")
	return out
}
