// Package marketprofile decides which market two teams converge or clash on.
package marketprofile

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/crocodileps/Mon-ps-sub009/internal/datahub"
	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
)

type Action string

const (
	ActionStrongBet Action = "STRONG_BET"
	ActionNormalBet Action = "NORMAL_BET"
	ActionSmallBet  Action = "SMALL_BET"
	ActionNoBet     Action = "NO_BET"
	ActionSkip      Action = "SKIP"
)

type Rule string

const (
	RuleH2HOverride        Rule = "H2H_OVERRIDE"
	RulePerfectConvergence Rule = "PERFECT_CONVERGENCE"
	RuleClash              Rule = "CLASH"
	RuleCompatible         Rule = "COMPATIBLE"
	RuleCommonStrength     Rule = "COMMON_STRENGTH"
	RuleNone               Rule = "NONE"
)

// Score modifiers per rule.
const (
	ModifierH2H        = 25.0
	ModifierConvergent = 20.0
	ModifierClash      = -30.0
	ModifierCompatible = 10.0
	ModifierCommon     = 5.0
	ModifierSkip       = -15.0

	h2hMinWinRate    = 60.0
	commonMinWinRate = 55.0
	maxConfidence    = 95.0
)

type Settings struct {
	MinSample int
	MinOdds   float64
	MinH2H    int
}

func DefaultSettings() Settings {
	return Settings{MinSample: 10, MinOdds: 1.50, MinH2H: 5}
}

// TopMarket is a team's strongest considered market.
type TopMarket struct {
	Market  markets.Market `json:"market"`
	WinRate float64        `json:"wr"`
	ROI     float64        `json:"roi"`
	Found   bool           `json:"found"`
}

type Resolution struct {
	Rule          Rule             `json:"rule"`
	Action        Action           `json:"action"`
	Market        markets.Market   `json:"market,omitempty"`
	ScoreModifier float64          `json:"score_modifier"`
	Confidence    float64          `json:"confidence,omitempty"`
	HomeTop       TopMarket        `json:"home_top"`
	AwayTop       TopMarket        `json:"away_top"`
	ClashMarkets  []markets.Market `json:"clash_markets,omitempty"`
	Reasons       []models.Reason  `json:"reasons,omitempty"`
}

// Source is the subset of the data hub the resolver reads.
type Source interface {
	GetMarketProfile(team string, loc models.Location) (datahub.MarketTable, bool)
	GetH2H(a, b string) (models.H2HPattern, bool)
}

type Resolver struct {
	source   Source
	settings Settings
	logger   *logrus.Logger
}

func NewResolver(source Source, settings Settings, logger *logrus.Logger) *Resolver {
	return &Resolver{source: source, settings: settings, logger: logger}
}

// Resolve reads the home split for the home team and the away split for the away team.
func (r *Resolver) Resolve(home, away string) Resolution {
	homeTable, homeFound := r.source.GetMarketProfile(home, models.LocationHome)
	awayTable, awayFound := r.source.GetMarketProfile(away, models.LocationAway)

	var h2h *models.H2HPattern
	if p, ok := r.source.GetH2H(home, away); ok {
		h2h = &p
	}

	res := ResolveTables(homeTable, awayTable, h2h, r.settings)
	if !homeFound {
		res.Reasons = append(res.Reasons, models.NewReason(models.ReasonDefaultMarkets, nil).WithSubject(home))
	}
	if !awayFound {
		res.Reasons = append(res.Reasons, models.NewReason(models.ReasonDefaultMarkets, nil).WithSubject(away))
	}

	r.logger.WithFields(logrus.Fields{
		"home":   home,
		"away":   away,
		"rule":   res.Rule,
		"action": res.Action,
		"market": res.Market,
	}).Debug("Market profiles resolved")
	return res
}

// considered filters a table to markets with enough sample and a price above the floor.
func considered(table datahub.MarketTable, s Settings) map[markets.Market]datahub.MarketStat {
	out := make(map[markets.Market]datahub.MarketStat)
	for m, st := range table {
		if st.SampleSize < s.MinSample || st.IsAvoid {
			continue
		}
		if markets.Eligible(m, s.MinOdds) != nil {
			continue
		}
		out[m] = st
	}
	return out
}

// topMarket prefers flagged best markets, then win rate, ROI and name.
func topMarket(table map[markets.Market]datahub.MarketStat) TopMarket {
	ms := make([]markets.Market, 0, len(table))
	for m := range table {
		ms = append(ms, m)
	}
	if len(ms) == 0 {
		return TopMarket{}
	}
	sort.Slice(ms, func(i, j int) bool {
		a, b := table[ms[i]], table[ms[j]]
		if a.IsBest != b.IsBest {
			return a.IsBest
		}
		if a.WinRate != b.WinRate {
			return a.WinRate > b.WinRate
		}
		if a.ROI != b.ROI {
			return a.ROI > b.ROI
		}
		return ms[i] < ms[j]
	})
	st := table[ms[0]]
	return TopMarket{Market: ms[0], WinRate: st.WinRate, ROI: st.ROI, Found: true}
}

// ResolveTables applies the rules in order; the first match wins.
func ResolveTables(homeTable, awayTable datahub.MarketTable, h2h *models.H2HPattern, s Settings) Resolution {
	hc, ac := considered(homeTable, s), considered(awayTable, s)
	res := Resolution{HomeTop: topMarket(hc), AwayTop: topMarket(ac)}

	if h2h != nil {
		switch {
		case h2h.TotalMatches < s.MinH2H:
			res.Reasons = append(res.Reasons, models.NewReason(models.ReasonInsufficientSample, map[string]float64{
				"h2h_matches": float64(h2h.TotalMatches),
				"min_h2h":     float64(s.MinH2H),
			}).WithSubject("h2h"))
		case h2h.WinRate >= h2hMinWinRate && h2h.OverrideIndividualDNA && markets.Eligible(h2h.MarketType, s.MinOdds) == nil:
			res.Rule = RuleH2HOverride
			res.Action = ActionStrongBet
			res.Market = h2h.MarketType
			res.ScoreModifier = ModifierH2H
			res.Confidence = h2h.WinRate
			return res
		}
	}

	ht, at := res.HomeTop, res.AwayTop
	if ht.Found && at.Found {
		switch {
		case ht.Market == at.Market && markets.IsHighValue(ht.Market):
			res.Rule = RulePerfectConvergence
			res.Action = ActionStrongBet
			res.Market = ht.Market
			res.ScoreModifier = ModifierConvergent
			res.Confidence = min(maxConfidence, (ht.WinRate+at.WinRate)/2)
			return res

		case markets.AreOpposite(ht.Market, at.Market):
			res.Rule = RuleClash
			res.Action = ActionNoBet
			res.ScoreModifier = ModifierClash
			res.ClashMarkets = []markets.Market{ht.Market, at.Market}
			return res

		case markets.AreCompatible(ht.Market, at.Market):
			res.Rule = RuleCompatible
			res.Action = ActionNormalBet
			res.ScoreModifier = ModifierCompatible
			res.Market = ht.Market
			if at.ROI > ht.ROI {
				res.Market = at.Market
			}
			return res
		}
	}

	if m, ok := commonStrength(hc, ac); ok {
		res.Rule = RuleCommonStrength
		res.Action = ActionSmallBet
		res.Market = m
		res.ScoreModifier = ModifierCommon
		return res
	}

	res.Rule = RuleNone
	res.Action = ActionSkip
	res.ScoreModifier = ModifierSkip
	return res
}

func commonStrength(hc, ac map[markets.Market]datahub.MarketStat) (markets.Market, bool) {
	var best markets.Market
	bestScore := -1.0
	for _, m := range markets.HighValueMarkets() {
		h, okH := hc[m]
		a, okA := ac[m]
		if !okH || !okA || h.WinRate < commonMinWinRate || a.WinRate < commonMinWinRate {
			continue
		}
		odds, _ := markets.TypicalOdds(m)
		score := (h.WinRate + a.WinRate) / 2 * odds
		if score > bestScore {
			best, bestScore = m, score
		}
	}
	return best, bestScore >= 0
}
