// Package value computes per-team value and quality scores.
package value

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/internal/names"
)

var tierValues = map[models.Tier]float64{
	models.TierElite:        0,
	models.TierGold:         15,
	models.TierSilver:       25,
	models.TierBronze:       20,
	models.TierExperimental: 10,
}

var luckBase = map[models.LuckProfile]float64{
	models.LuckUnlucky: 30,
	models.LuckNeutral: 10,
	models.LuckLucky:   -15,
}

var keeperValues = map[models.KeeperStatus]float64{
	models.KeeperLeaky:  20,
	models.KeeperSolid:  5,
	models.KeeperOnFire: -10,
}

const (
	minHistoricalBets  = 5
	megaValueBonus     = 10.0
	megaValueFinishers = 5
	unluckyRegression  = 0.7
	luckyRegression    = 0.5
)

// Breakdown lists every additive component of the value score.
type Breakdown struct {
	TierValue           float64 `json:"tier_value"`
	PublicPenalty       float64 `json:"public_penalty"`
	LuckBase            float64 `json:"luck_base"`
	MegaValueBonus      float64 `json:"mega_value_bonus"`
	RegressionPotential float64 `json:"regression_potential"`
	LuckValue           float64 `json:"luck_value"`
	KeeperValue         float64 `json:"keeper_value"`
	WinRateBonus        float64 `json:"wr_bonus"`
	PnLBonus            float64 `json:"pnl_bonus"`
	HistoricalValue     float64 `json:"historical_value"`
	TalentFactor        float64 `json:"talent_factor"`

	// Advisory only, never summed.
	TalentAdjustedLuck float64 `json:"talent_adjusted_luck"`
}

type Score struct {
	Team         string    `json:"team"`
	League       string    `json:"league"`
	ValueScore   float64   `json:"value_score"`
	QualityScore float64   `json:"quality_score"`
	Breakdown    Breakdown `json:"breakdown"`
}

type Scorer struct {
	version   string
	penalties map[string]float64
	logger    *logrus.Logger
}

// NewScorer selects the public-team penalty table by version.
func NewScorer(version string, logger *logrus.Logger) (*Scorer, error) {
	version = strings.ToLower(strings.TrimSpace(version))
	table, ok := penaltyTables[version]
	if !ok {
		return nil, fmt.Errorf("unknown penalty table version %q", version)
	}

	logger.WithFields(logrus.Fields{
		"todo_code": "PENALTY_TABLE_VERSION",
		"version":   version,
		"available": PenaltyTableVersions(),
	}).Warn("Public-team penalty magnitudes differ between table versions; using configured table")

	penalties := make(map[string]float64, len(table))
	for team, p := range table {
		penalties[names.Key(team)] = p
	}
	return &Scorer{version: version, penalties: penalties, logger: logger}, nil
}

func (s *Scorer) Version() string {
	return s.version
}

// PublicPenalty returns the table penalty, or the unlisted bonus.
func (s *Scorer) PublicPenalty(team string) float64 {
	if p, ok := s.penalties[names.Key(names.Canonical(team))]; ok {
		return p
	}
	return unlistedBonus
}

// TalentFactor scales the LUCKY penalty down for squads with clinical finishers.
func TalentFactor(clinicalFinishers int) float64 {
	switch {
	case clinicalFinishers >= 7:
		return 0.4
	case clinicalFinishers >= 5:
		return 0.6
	case clinicalFinishers >= 3:
		return 0.85
	}
	return 1.0
}

func winRateBonus(wr float64) float64 {
	switch {
	case wr >= 85:
		return 30
	case wr >= 75:
		return 20
	case wr >= 65:
		return 10
	case wr < 50:
		return -15
	}
	return 0
}

func pnlBonus(pnl float64) float64 {
	switch {
	case pnl >= 15:
		return 20
	case pnl >= 10:
		return 15
	case pnl >= 5:
		return 10
	case pnl > 0:
		return 5
	case pnl < -5:
		return -15
	}
	return 0
}

// QualityScore is informational and never part of the value score.
func QualityScore(cs models.CurrentSeason) float64 {
	return 0.6*(50+20*(cs.XGFor()-cs.XGAgainst())) + 0.4*(25*cs.PPG)
}

func (s *Scorer) Score(t models.TeamProfile) Score {
	var b Breakdown
	dna := t.DNA

	b.TierValue = tierValues[t.Tier]
	b.PublicPenalty = s.PublicPenalty(t.TeamName)

	b.TalentFactor = TalentFactor(dna.Roster.ClinicalFinishers)
	totalLuck := dna.Luck.TotalLuck
	if math.IsNaN(totalLuck) {
		totalLuck = 0
	}
	b.TalentAdjustedLuck = totalLuck * b.TalentFactor

	switch dna.Luck.LuckProfile {
	case models.LuckUnlucky:
		b.LuckBase = luckBase[models.LuckUnlucky]
		if dna.Roster.ClinicalFinishers >= megaValueFinishers {
			b.MegaValueBonus = megaValueBonus
		}
		b.RegressionPotential = math.Abs(totalLuck) * unluckyRegression
	case models.LuckLucky:
		b.LuckBase = luckBase[models.LuckLucky] * b.TalentFactor
		b.RegressionPotential = -math.Abs(totalLuck) * luckyRegression * b.TalentFactor
	case models.LuckNeutral:
		b.LuckBase = luckBase[models.LuckNeutral]
	}
	b.LuckValue = b.LuckBase + b.MegaValueBonus + b.RegressionPotential

	b.KeeperValue = keeperValues[dna.Nemesis.KeeperStatus]

	if t.HistoricalBets >= minHistoricalBets {
		b.WinRateBonus = winRateBonus(t.HistoricalWinRate)
		b.PnLBonus = pnlBonus(t.HistoricalPnL)
		b.HistoricalValue = b.WinRateBonus + b.PnLBonus
	}

	return Score{
		Team:         t.TeamName,
		League:       t.League,
		ValueScore:   b.TierValue + b.PublicPenalty + b.LuckValue + b.KeeperValue + b.HistoricalValue,
		QualityScore: QualityScore(dna.CurrentSeason),
		Breakdown:    b,
	}
}
