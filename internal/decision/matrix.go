// Package decision classifies a matchup and selects primary and secondary bets.
package decision

import (
	"math"

	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/internal/projector"
)

type Type string

const (
	ChaosPlay    Type = "CHAOS_PLAY"
	Shootout     Type = "SHOOTOUT"
	ValueSecure  Type = "VALUE_SECURE"
	TacticalLock Type = "TACTICAL_LOCK"
	PureValue    Type = "PURE_VALUE"
	NoEdge       Type = "NO_EDGE"
)

type Sizing string

const (
	SizingMax    Sizing = "MAX"
	SizingNormal Sizing = "NORMAL"
	SizingSmall  Sizing = "SMALL"
	SizingNone   Sizing = "NONE"
)

// Units is the stake multiplier of a sizing.
func (s Sizing) Units() float64 {
	switch s {
	case SizingMax:
		return 2.0
	case SizingNormal:
		return 1.0
	case SizingSmall:
		return 0.5
	}
	return 0
}

// Rationale and warning codes.
const (
	CodeChaosExtreme      = "CHAOS_ABOVE_EXTREME"
	CodeXGShootout        = "XG_ABOVE_SHOOTOUT"
	CodeEdgeLowFriction   = "Z_EDGE_LOW_FRICTION"
	CodeFrictionLowXG     = "HIGH_FRICTION_LOW_XG"
	CodeEdgeHighFriction  = "Z_EDGE_HIGH_FRICTION"
	CodeChaosHigh         = "CHAOS_ABOVE_HIGH"
	CodeNoEdge            = "NO_Z_EDGE"
	CodeModerateValue     = "MODERATE_VALUE"
	CodeAsianTotalLine    = "ASIAN_TOTAL_LINE"
	CodeBTTSByProbability = "BTTS_BY_PROBABILITY"
	CodeHandicapLine      = "HANDICAP_LINE"
	CodeUnderLine         = "UNDER_LINE"
	CodeFavorite          = "Z_FAVORITE"
	CodeCardsChaos        = "CARDS_CHAOS"
	CodeSecondaryFallback = "SECONDARY_FALLBACK"

	WarnChaosExtreme     = "WARN_CHAOS_EXTREME"
	WarnFrictionHigh     = "WARN_FRICTION_HIGH"
	WarnWeakEdge         = "WARN_WEAK_EDGE"
	WarnShootoutExpected = "WARN_SHOOTOUT_EXPECTED"
)

// Input is everything the matrix reads. It never touches the data hub.
type Input struct {
	HomeZ      float64
	AwayZ      float64
	HomeXG     float64
	AwayXG     float64
	TotalXG    float64
	Friction   float64
	Chaos      float64
	BTTSProb   float64
	Over25Prob float64

	// Markets the profile resolver found in clash; they are never primary.
	ClashMarkets []markets.Market

	// Optional card projection for the chaos secondary.
	CardsOver45Prob float64

	Stale      bool
	Advisories []models.Reason
}

type SmartBet struct {
	Market      markets.Market  `json:"market,omitempty"`
	Side        markets.Side    `json:"side,omitempty"`
	Line        *float64        `json:"line,omitempty"`
	Selection   string          `json:"selection"`
	Probability float64         `json:"probability"`
	Sizing      Sizing          `json:"sizing"`
	Reasoning   []models.Reason `json:"reasoning,omitempty"`
}

func (b SmartBet) IsSkip() bool {
	return b.Market == ""
}

func (b SmartBet) Bet() markets.Bet {
	bet := markets.Bet{Market: b.Market, Side: b.Side}
	if b.Line != nil {
		bet.Line = *b.Line
	}
	return bet
}

// TypicalOdds is the static reference price of the bet's market.
func (b SmartBet) TypicalOdds() float64 {
	odds, _ := markets.TypicalOdds(b.Market)
	return odds
}

type Decision struct {
	Type        Type            `json:"decision"`
	Row         int             `json:"row"`
	Primary     SmartBet        `json:"primary"`
	Secondaries []SmartBet      `json:"secondaries,omitempty"`
	Confidence  float64         `json:"confidence"`
	ZEdge       float64         `json:"z_edge"`
	Favorite    markets.Side    `json:"favorite"`
	Rationale   []models.Reason `json:"rationale"`
	Warnings    []models.Reason `json:"warnings,omitempty"`
}

// Bets returns the primary (when not SKIP) followed by the secondaries.
func (d Decision) Bets() []SmartBet {
	out := make([]SmartBet, 0, 1+len(d.Secondaries))
	if !d.Primary.IsSkip() {
		out = append(out, d.Primary)
	}
	return append(out, d.Secondaries...)
}

type Matrix struct {
	th Thresholds
}

func NewMatrix(th Thresholds) *Matrix {
	return &Matrix{th: th}
}

func (m *Matrix) Thresholds() Thresholds {
	return m.th
}

func line(v float64) *float64 {
	return &v
}

func round2(v float64) float64 {
	return projector.Round2(v)
}

func skipBet() SmartBet {
	return SmartBet{Selection: "SKIP", Sizing: SizingNone}
}

func newBet(market markets.Market, side markets.Side, l *float64, prob float64, sizing Sizing, reasons ...models.Reason) SmartBet {
	b := SmartBet{Market: market, Side: side, Line: l, Probability: round2(prob), Sizing: sizing, Reasoning: reasons}
	b.Selection = b.Bet().String()
	return b
}

// Decide evaluates the decision table in order; the first matching row wins.
func (m *Matrix) Decide(in Input) Decision {
	th := m.th
	zEdge := math.Abs(in.HomeZ - in.AwayZ)
	favorite := markets.SideHome
	if in.AwayZ > in.HomeZ {
		favorite = markets.SideAway
	}
	clash := make(map[markets.Market]bool, len(in.ClashMarkets))
	for _, c := range in.ClashMarkets {
		clash[c] = true
	}

	d := Decision{ZEdge: round2(zEdge), Favorite: favorite}
	p := map[string]float64{
		"z_edge":   round2(zEdge),
		"total_xg": round2(in.TotalXG),
		"friction": round2(in.Friction),
		"chaos":    round2(in.Chaos),
	}
	results := projector.ResultProbabilities(in.HomeXG, in.AwayXG)

	switch {
	case in.Chaos > th.ChaosExtreme:
		d.Type, d.Row = ChaosPlay, 1
		d.Rationale = append(d.Rationale, models.NewReason(CodeChaosExtreme, pick(p, "chaos")))
	case in.TotalXG > th.XGShootout:
		d.Type, d.Row = Shootout, 2
		d.Rationale = append(d.Rationale, models.NewReason(CodeXGShootout, pick(p, "total_xg")))
	case zEdge > th.ZStrong && in.Friction < th.FrictionNeutral:
		d.Type, d.Row = ValueSecure, 3
		d.Rationale = append(d.Rationale, models.NewReason(CodeEdgeLowFriction, pick(p, "z_edge", "friction")))
	case in.Friction > th.FrictionHigh && in.TotalXG < th.XGLow:
		d.Type, d.Row = TacticalLock, 4
		d.Rationale = append(d.Rationale, models.NewReason(CodeFrictionLowXG, pick(p, "friction", "total_xg")))
	case zEdge > th.ZMedium && in.Friction > th.FrictionNeutral:
		d.Type, d.Row = PureValue, 5
		d.Rationale = append(d.Rationale, models.NewReason(CodeEdgeHighFriction, pick(p, "z_edge", "friction")))
	case in.Chaos > th.ChaosHigh:
		d.Type, d.Row = ChaosPlay, 6
		d.Rationale = append(d.Rationale, models.NewReason(CodeChaosHigh, pick(p, "chaos")))
	case zEdge < th.ZNoEdge:
		d.Type, d.Row = NoEdge, 7
		d.Rationale = append(d.Rationale, models.NewReason(CodeNoEdge, pick(p, "z_edge")))
	default:
		d.Type, d.Row = PureValue, 8
		d.Rationale = append(d.Rationale, models.NewReason(CodeModerateValue, pick(p, "z_edge")))
	}

	if len(clash) > 0 {
		switch d.Type {
		case Shootout, ValueSecure, PureValue:
			d.Rationale = append(d.Rationale, models.Reason{
				Code:    models.ReasonMarketClashVeto,
				Subject: string(d.Type),
				Params:  map[string]float64{"row": float64(d.Row)},
			})
			d.Type = NoEdge
		}
	}

	switch d.Type {
	case ChaosPlay:
		d.Primary = m.chaosPrimary(in, clash)
		if in.Chaos > th.ChaosCards {
			d.Secondaries = append(d.Secondaries, newBet(markets.CardsOver45, markets.SideNone, nil, in.CardsOver45Prob, SizingSmall,
				models.NewReason(CodeCardsChaos, pick(p, "chaos"))))
		}

	case Shootout:
		l := 3.0
		if in.TotalXG >= th.ShootoutHighLineXG {
			l = 3.5
		}
		d.Primary = newBet(markets.AsianOver, markets.SideNone, line(l), projector.ProbOver(in.TotalXG, l), SizingMax,
			models.NewReason(CodeAsianTotalLine, map[string]float64{"line": l, "total_xg": round2(in.TotalXG)}))
		d.Secondaries = append(d.Secondaries,
			newBet(markets.BTTSYes, markets.SideNone, nil, in.BTTSProb, SizingNormal),
			newBet(markets.Over25, markets.SideNone, nil, in.Over25Prob, SizingNormal, models.NewReason(CodeSecondaryFallback, nil)),
		)

	case ValueSecure:
		l := 0.5
		prob := favoriteWin(results, favorite) + results.Draw
		if zEdge >= th.LevelHandicapZ {
			l = 0.0
			prob = favoriteWin(results, favorite)
		}
		ah := markets.AHHome
		dc := markets.DC1X
		if favorite == markets.SideAway {
			ah, dc = markets.AHAway, markets.DCX2
		}
		d.Primary = newBet(ah, favorite, line(l), prob, SizingNormal,
			models.NewReason(CodeHandicapLine, map[string]float64{"line": l, "z_edge": round2(zEdge)}).WithSubject(string(favorite)))
		d.Secondaries = append(d.Secondaries,
			newBet(dc, markets.SideNone, nil, favoriteWin(results, favorite)+results.Draw, SizingNormal))

	case TacticalLock:
		var primary SmartBet
		if in.TotalXG < th.TacticalLowLineXG || clash[markets.Under25] {
			primary = newBet(markets.AsianUnder, markets.SideNone, line(2.0), winProbUnder(in.TotalXG, 2.0), SizingNormal,
				models.NewReason(CodeUnderLine, map[string]float64{"line": 2.0, "total_xg": round2(in.TotalXG)}))
		} else {
			primary = newBet(markets.Under25, markets.SideNone, nil, winProbUnder(in.TotalXG, 2.5), SizingNormal,
				models.NewReason(CodeUnderLine, map[string]float64{"line": 2.5, "total_xg": round2(in.TotalXG)}))
		}
		d.Primary = primary
		d.Secondaries = append(d.Secondaries, newBet(markets.BTTSNo, markets.SideNone, nil, 1-in.BTTSProb, SizingNormal))

	case PureValue:
		sizing := SizingSmall
		if d.Row == 5 {
			switch {
			case zEdge > th.ZStrong:
				sizing = SizingMax
			case zEdge > th.ZMedium:
				sizing = SizingNormal
			}
		}
		market := markets.Home
		if favorite == markets.SideAway {
			market = markets.Away
		}
		d.Primary = newBet(market, favorite, nil, favoriteWin(results, favorite), sizing,
			models.NewReason(CodeFavorite, map[string]float64{"z_edge": round2(zEdge)}).WithSubject(string(favorite)))
		if in.TotalXG > th.PureValueOverXG {
			d.Secondaries = append(d.Secondaries, newBet(markets.Over25, markets.SideNone, nil, in.Over25Prob, SizingSmall))
		}

	default:
		d.Primary = skipBet()
	}

	m.enforceMarketRules(&d, clash)
	d.Warnings = m.warnings(in, zEdge, p)
	d.Confidence = m.confidence(in, zEdge)
	return d
}

func (m *Matrix) chaosPrimary(in Input, clash map[markets.Market]bool) SmartBet {
	th := m.th
	bttsBlocked := clash[markets.BTTSYes] || clash[markets.BTTSNo]
	totalsBlocked := clash[markets.Over25] || clash[markets.Under25] || clash[markets.Over35] || clash[markets.Under35]

	if (in.TotalXG > th.ChaosOverXG && !totalsBlocked) || bttsBlocked {
		l := 2.75
		if in.TotalXG >= th.ChaosHighLineXG {
			l = 3.0
		}
		return newBet(markets.AsianOver, markets.SideNone, line(l), projector.ProbOver(in.TotalXG, l), SizingSmall,
			models.NewReason(CodeAsianTotalLine, map[string]float64{"line": l, "total_xg": round2(in.TotalXG)}))
	}
	if in.BTTSProb >= 0.5 {
		return newBet(markets.BTTSYes, markets.SideNone, nil, in.BTTSProb, SizingSmall,
			models.NewReason(CodeBTTSByProbability, map[string]float64{"btts_prob": round2(in.BTTSProb)}))
	}
	return newBet(markets.BTTSNo, markets.SideNone, nil, 1-in.BTTSProb, SizingSmall,
		models.NewReason(CodeBTTSByProbability, map[string]float64{"btts_prob": round2(in.BTTSProb)}))
}

// enforceMarketRules drops anything outside the odds map, below the odds floor or
// in clash. A rejected primary turns the decision into NO_EDGE.
func (m *Matrix) enforceMarketRules(d *Decision, clash map[markets.Market]bool) {
	if !d.Primary.IsSkip() {
		if reason, ok := m.rejects(d.Primary.Market, clash); ok {
			d.Rationale = append(d.Rationale, reason)
			d.Type = NoEdge
			d.Primary = skipBet()
			d.Secondaries = nil
		}
	}

	kept := d.Secondaries[:0]
	for _, s := range d.Secondaries {
		if _, ok := m.rejects(s.Market, clash); !ok {
			kept = append(kept, s)
		}
	}
	d.Secondaries = kept
	if len(d.Secondaries) == 0 {
		d.Secondaries = nil
	}
}

func (m *Matrix) rejects(market markets.Market, clash map[markets.Market]bool) (models.Reason, bool) {
	if clash[market] {
		return models.NewReason(models.ReasonMarketClashVeto, nil).WithSubject(string(market)), true
	}
	odds, ok := markets.TypicalOdds(market)
	if !ok {
		return models.NewReason(models.ReasonUnsupportedMarket, nil).WithSubject(string(market)), true
	}
	if odds < m.th.MinOdds {
		return models.NewReason(models.ReasonMarketBelowMinOdds, map[string]float64{
			"typical_odds": odds,
			"min_odds":     m.th.MinOdds,
		}).WithSubject(string(market)), true
	}
	return models.Reason{}, false
}

func (m *Matrix) warnings(in Input, zEdge float64, p map[string]float64) []models.Reason {
	th := m.th
	var w []models.Reason
	if in.Chaos > th.ChaosExtreme {
		w = append(w, models.NewReason(WarnChaosExtreme, pick(p, "chaos")))
	}
	if in.Friction > th.FrictionHigh {
		w = append(w, models.NewReason(WarnFrictionHigh, pick(p, "friction")))
	}
	if zEdge < th.ZMedium {
		w = append(w, models.NewReason(WarnWeakEdge, pick(p, "z_edge")))
	}
	if in.TotalXG > th.XGShootout {
		w = append(w, models.NewReason(WarnShootoutExpected, pick(p, "total_xg")))
	}
	if in.Stale {
		w = append(w, models.NewReason(models.ReasonStaleData, map[string]float64{"penalty": th.StalePenalty}))
	}
	return append(w, in.Advisories...)
}

func (m *Matrix) confidence(in Input, zEdge float64) float64 {
	th := m.th
	c := th.ConfidenceBase
	if zEdge > th.ConfidenceZEdge {
		c += 0.2
	}
	if in.Chaos < th.ConfidenceCalm {
		c += 0.1
	}
	if in.Friction > th.FrictionNeutral {
		c += 0.05
	}
	if c > th.ConfidenceCap {
		c = th.ConfidenceCap
	}
	if in.Stale {
		c -= th.StalePenalty
	}
	return round2(c)
}

func favoriteWin(r projector.OneXTwo, fav markets.Side) float64 {
	if fav == markets.SideAway {
		return r.Away
	}
	return r.Home
}

// winProbUnder is P(total < line).
func winProbUnder(lambda, l float64) float64 {
	return projector.ProbUnder(lambda, math.Ceil(l)-1)
}

func pick(p map[string]float64, keys ...string) map[string]float64 {
	out := make(map[string]float64, len(keys))
	for _, k := range keys {
		out[k] = p[k]
	}
	return out
}
