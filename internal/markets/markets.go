package markets

import (
	"fmt"
	"sort"

	"github.com/crocodileps/Mon-ps-sub009/pkg/utils"
)

// Market is the closed set of market types the engine knows how to price and settle.
type Market string

const (
	Over15      Market = "over_15"
	Over25      Market = "over_25"
	Under25     Market = "under_25"
	Over35      Market = "over_35"
	Under35     Market = "under_35"
	BTTSYes     Market = "btts_yes"
	BTTSNo      Market = "btts_no"
	TeamOver05  Market = "team_over_05"
	TeamOver15  Market = "team_over_15"
	TeamOver25  Market = "team_over_25"
	CleanSheet  Market = "clean_sheet"
	FailToScore Market = "fail_to_score"
	DC1X        Market = "dc_1x"
	DCX2        Market = "dc_x2"
	DC12        Market = "dc_12"
	Home        Market = "home"
	Away        Market = "away"
	Draw        Market = "draw"

	AsianOver    Market = "asian_over"
	AsianUnder   Market = "asian_under"
	AHHome       Market = "ah_home"
	AHAway       Market = "ah_away"
	CardsOver45  Market = "cards_over_45"
	CardsOver35  Market = "cards_over_35"
	CardsUnder35 Market = "cards_under_35"
	CornersOver  Market = "corners_over"
	CornersUnder Market = "corners_under"
)

// Side names the team a team-scoped market refers to.
type Side string

const (
	SideNone Side = ""
	SideHome Side = "home"
	SideAway Side = "away"
)

func (s Side) Opponent() Side {
	switch s {
	case SideHome:
		return SideAway
	case SideAway:
		return SideHome
	}
	return SideNone
}

type info struct {
	typicalOdds float64
	highValue   bool
	lined       bool
	sided       bool
	profile     bool
	label       string
}

var table = map[Market]info{
	Over15:      {typicalOdds: 1.30, profile: false, label: "Over 1.5"},
	Over25:      {typicalOdds: 1.85, highValue: true, profile: true, label: "Over 2.5"},
	Under25:     {typicalOdds: 1.95, highValue: true, profile: true, label: "Under 2.5"},
	Over35:      {typicalOdds: 2.40, highValue: true, profile: true, label: "Over 3.5"},
	Under35:     {typicalOdds: 1.55, highValue: true, profile: true, label: "Under 3.5"},
	BTTSYes:     {typicalOdds: 1.80, highValue: true, profile: true, label: "BTTS Yes"},
	BTTSNo:      {typicalOdds: 1.95, highValue: true, profile: true, label: "BTTS No"},
	TeamOver05:  {typicalOdds: 1.15, sided: true, profile: true, label: "Team Over 0.5"},
	TeamOver15:  {typicalOdds: 1.70, sided: true, profile: true, label: "Team Over 1.5"},
	TeamOver25:  {typicalOdds: 2.90, sided: true, profile: true, label: "Team Over 2.5"},
	CleanSheet:  {typicalOdds: 2.70, sided: true, profile: true, label: "Clean Sheet"},
	FailToScore: {typicalOdds: 3.10, sided: true, profile: true, label: "Fail To Score"},
	DC1X:        {typicalOdds: 1.50, profile: true, label: "Double Chance 1X"},
	DCX2:        {typicalOdds: 1.65, profile: true, label: "Double Chance X2"},
	DC12:        {typicalOdds: 1.35, profile: true, label: "Double Chance 12"},
	Home:        {typicalOdds: 2.10, profile: true, label: "Home Win"},
	Away:        {typicalOdds: 3.30, profile: true, label: "Away Win"},
	Draw:        {typicalOdds: 3.40, profile: true, label: "Draw"},

	AsianOver:    {typicalOdds: 1.90, lined: true, label: "Asian Total Over"},
	AsianUnder:   {typicalOdds: 1.90, lined: true, label: "Asian Total Under"},
	AHHome:       {typicalOdds: 1.90, lined: true, label: "Asian Handicap Home"},
	AHAway:       {typicalOdds: 1.90, lined: true, label: "Asian Handicap Away"},
	CardsOver45:  {typicalOdds: 1.90, label: "Over 4.5 Cards"},
	CardsOver35:  {typicalOdds: 1.70, label: "Over 3.5 Cards"},
	CardsUnder35: {typicalOdds: 2.00, label: "Under 3.5 Cards"},
	CornersOver:  {typicalOdds: 1.90, lined: true, label: "Corners Over"},
	CornersUnder: {typicalOdds: 1.90, lined: true, label: "Corners Under"},
}

var opposites = map[Market]Market{
	Over25:  Under25,
	Under25: Over25,
	Over35:  Under35,
	Under35: Over35,
	BTTSYes: BTTSNo,
	BTTSNo:  BTTSYes,
}

var compatible = map[Market][]Market{
	Over25:     {Over35, BTTSYes},
	Over35:     {Over25, BTTSYes},
	BTTSYes:    {Over25, Over35},
	Under25:    {Under35, BTTSNo},
	Under35:    {Under25, BTTSNo},
	BTTSNo:     {Under25, Under35, CleanSheet},
	CleanSheet: {BTTSNo, Under25},
	DC1X:       {Home},
	Home:       {DC1X},
	DCX2:       {Away},
	Away:       {DCX2},
}

func (m Market) Valid() bool {
	_, ok := table[m]
	return ok
}

// TypicalOdds returns the static reference price for m.
func TypicalOdds(m Market) (float64, bool) {
	i, ok := table[m]
	return i.typicalOdds, ok
}

// IsHighValue reports membership of the goal-total and BTTS set.
func IsHighValue(m Market) bool {
	return table[m].highValue
}

// IsLined reports whether the market needs an explicit line.
func IsLined(m Market) bool {
	return table[m].lined
}

// IsSided reports whether the market is scoped to one team.
func IsSided(m Market) bool {
	return table[m].sided
}

func Opposite(m Market) (Market, bool) {
	o, ok := opposites[m]
	return o, ok
}

func AreOpposite(a, b Market) bool {
	o, ok := opposites[a]
	return ok && o == b
}

func AreCompatible(a, b Market) bool {
	for _, c := range compatible[a] {
		if c == b {
			return true
		}
	}
	return false
}

// Eligible checks m against the odds map and the minimum-odds floor.
func Eligible(m Market, minOdds float64) error {
	odds, ok := TypicalOdds(m)
	if !ok {
		return fmt.Errorf("%w: %s", utils.ErrUnsupportedMarket, m)
	}
	if odds < minOdds {
		return fmt.Errorf("%w: %s at %.2f < %.2f", utils.ErrMarketBelowMinOdds, m, odds, minOdds)
	}
	return nil
}

// ProfileMarkets lists the market types tracked in per-team profiles.
func ProfileMarkets() []Market {
	out := make([]Market, 0, 17)
	for m, i := range table {
		if i.profile {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HighValueMarkets lists the high-value set in stable order.
func HighValueMarkets() []Market {
	out := make([]Market, 0, 6)
	for m, i := range table {
		if i.highValue {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Label is the human name of the market without side or line.
func Label(m Market) string {
	if i, ok := table[m]; ok {
		return i.label
	}
	return string(m)
}
