// Package adjusters projects card and corner totals. Its output is advisory and
// never changes the decision matrix.
package adjusters

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/internal/projector"
)

type CardsRecommendation string

const (
	CardsOver45  CardsRecommendation = "OVER_4.5"
	CardsOver35  CardsRecommendation = "OVER_3.5"
	CardsUnder35 CardsRecommendation = "UNDER_3.5"
	CardsNoBet   CardsRecommendation = "NO_BET"
)

const CodeDefaultCards = "DEFAULT_CARDS"

// DefaultTeamCards stands in for a team with no discipline record.
const DefaultTeamCards = 2.0

type CardsSettings struct {
	MinRefereeMatches int
	LeagueAvgTrigger  float64
	Sigma             float64
}

func DefaultCardsSettings() CardsSettings {
	return CardsSettings{MinRefereeMatches: 50, LeagueAvgTrigger: 16.5, Sigma: 2.0}
}

type CardsProjection struct {
	Referee           string              `json:"referee,omitempty"`
	Base              float64             `json:"base"`
	RefereeAdjustment float64             `json:"referee_adjustment"`
	StyleBoost        float64             `json:"style_boost"`
	Importance        float64             `json:"importance"`
	Total             float64             `json:"total"`
	ProbOver35        float64             `json:"prob_over_35"`
	ProbOver45        float64             `json:"prob_over_45"`
	Recommendation    CardsRecommendation `json:"recommendation"`
	Market            markets.Market      `json:"market,omitempty"`
	Reasons           []models.Reason     `json:"reasons,omitempty"`
}

type CardsAdjuster struct {
	settings CardsSettings
	logger   *logrus.Logger
}

func NewCardsAdjuster(settings CardsSettings, logger *logrus.Logger) *CardsAdjuster {
	if settings.Sigma <= 0 {
		settings.Sigma = 2.0
	}
	return &CardsAdjuster{settings: settings, logger: logger}
}

// Project combines both teams' discipline with the referee's card tendency.
// refFound is false when ref is the league baseline.
func (a *CardsAdjuster) Project(home, away models.TeamProfile, ref models.RefereeProfile, refFound bool, importance float64) CardsProjection {
	p := CardsProjection{Referee: ref.RefereeName, Importance: importance}
	if importance <= 0 {
		p.Importance = 1
	}

	homeCards := teamCards(home, &p)
	awayCards := teamCards(away, &p)
	p.Base = homeCards + awayCards

	switch {
	case !refFound:
		p.Reasons = append(p.Reasons, models.NewReason(models.ReasonRefereeBaseline, map[string]float64{
			"trigger_rate": ref.CardTriggerRate,
		}).WithSubject(ref.RefereeName))
	case ref.Matches < a.settings.MinRefereeMatches:
		p.Reasons = append(p.Reasons, models.NewReason(models.ReasonInsufficientSample, map[string]float64{
			"matches":     float64(ref.Matches),
			"min_matches": float64(a.settings.MinRefereeMatches),
		}).WithSubject(ref.RefereeName))
		a.logger.WithFields(logrus.Fields{
			"referee": ref.RefereeName,
			"matches": ref.Matches,
		}).Debug("Referee sample too small, excluded from card projection")
	default:
		fouls := home.DNA.Discipline.AvgFouls + away.DNA.Discipline.AvgFouls
		p.RefereeAdjustment = ref.CardImpact * ref.Confidence
		p.StyleBoost = fouls * (ref.CardTriggerRate - a.settings.LeagueAvgTrigger) / 100 * ref.Confidence
	}

	total := (p.Base + p.RefereeAdjustment + p.StyleBoost) * p.Importance
	if total < 0 {
		total = 0
	}

	dist := distuv.Normal{Mu: total, Sigma: a.settings.Sigma}
	p.ProbOver35 = 1 - dist.CDF(3.5)
	p.ProbOver45 = 1 - dist.CDF(4.5)
	p.Recommendation = recommendCards(p.ProbOver35, p.ProbOver45, ref.Strictness, refFound)
	p.Market = cardsMarket(p.Recommendation)

	p.Total = projector.Round2(total)
	p.Base = projector.Round2(p.Base)
	p.RefereeAdjustment = projector.Round2(p.RefereeAdjustment)
	p.StyleBoost = projector.Round2(p.StyleBoost)
	p.ProbOver35 = projector.Round2(p.ProbOver35)
	p.ProbOver45 = projector.Round2(p.ProbOver45)
	return p
}

func teamCards(t models.TeamProfile, p *CardsProjection) float64 {
	if c := t.DNA.Discipline.AvgCards; c > 0 {
		return c
	}
	p.Reasons = append(p.Reasons, models.NewReason(CodeDefaultCards, map[string]float64{"cards": DefaultTeamCards}).WithSubject(t.TeamName))
	return DefaultTeamCards
}

func recommendCards(over35, over45 float64, strictness models.Strictness, refFound bool) CardsRecommendation {
	if refFound {
		if over45 > 0.55 && strictness == models.StrictnessStrict {
			return CardsOver45
		}
		if over35 < 0.40 && strictness == models.StrictnessLenient {
			return CardsUnder35
		}
	}
	switch {
	case over35 > 0.60:
		return CardsOver35
	case over35 < 0.35:
		return CardsUnder35
	}
	return CardsNoBet
}

func cardsMarket(r CardsRecommendation) markets.Market {
	switch r {
	case CardsOver45:
		return markets.CardsOver45
	case CardsOver35:
		return markets.CardsOver35
	case CardsUnder35:
		return markets.CardsUnder35
	}
	return ""
}
