package markets

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/crocodileps/Mon-ps-sub009/pkg/utils"
)

var (
	ErrMissingStat = errors.New("match stat required for settlement is missing")
	ErrInvalidLine = errors.New("line must be a multiple of 0.25")
)

type Result string

const (
	ResultWin      Result = "win"
	ResultHalfWin  Result = "half_win"
	ResultPush     Result = "push"
	ResultHalfLoss Result = "half_loss"
	ResultLoss     Result = "loss"
)

// IsWinner maps a result onto the nullable is_winner flag; pushes stay nil.
func (r Result) IsWinner() *bool {
	var v bool
	switch r {
	case ResultWin, ResultHalfWin:
		v = true
	case ResultLoss, ResultHalfLoss:
		v = false
	default:
		return nil
	}
	return &v
}

type Bet struct {
	Market Market  `json:"market"`
	Side   Side    `json:"side,omitempty"`
	Line   float64 `json:"line,omitempty"`
}

func (b Bet) String() string {
	switch {
	case IsLined(b.Market) && (b.Market == AHHome || b.Market == AHAway):
		return fmt.Sprintf("%s %+.2f", Label(b.Market), b.Line)
	case IsLined(b.Market):
		return fmt.Sprintf("%s %.2f", Label(b.Market), b.Line)
	case IsSided(b.Market) && b.Side != SideNone:
		return fmt.Sprintf("%s (%s)", Label(b.Market), b.Side)
	}
	return Label(b.Market)
}

// Score is the final state of a match. Cards and Corners are optional.
type Score struct {
	Home    int
	Away    int
	Cards   *int
	Corners *int
}

func (s Score) Total() int { return s.Home + s.Away }

func (s Score) goals(side Side) (int, int, error) {
	switch side {
	case SideHome:
		return s.Home, s.Away, nil
	case SideAway:
		return s.Away, s.Home, nil
	}
	return 0, 0, fmt.Errorf("%w: team market needs a side", utils.ErrInvalidInput)
}

func binary(win bool) Result {
	if win {
		return ResultWin
	}
	return ResultLoss
}

// Settle evaluates a bet deterministically against the final score.
func Settle(b Bet, s Score) (Result, error) {
	total := s.Total()
	switch b.Market {
	case Over15:
		return binary(total >= 2), nil
	case Over25:
		return binary(total >= 3), nil
	case Under25:
		return binary(total <= 2), nil
	case Over35:
		return binary(total >= 4), nil
	case Under35:
		return binary(total <= 3), nil
	case BTTSYes:
		return binary(s.Home > 0 && s.Away > 0), nil
	case BTTSNo:
		return binary(s.Home == 0 || s.Away == 0), nil
	case TeamOver05, TeamOver15, TeamOver25, CleanSheet, FailToScore:
		own, opp, err := s.goals(b.Side)
		if err != nil {
			return "", err
		}
		switch b.Market {
		case TeamOver05:
			return binary(own >= 1), nil
		case TeamOver15:
			return binary(own >= 2), nil
		case TeamOver25:
			return binary(own >= 3), nil
		case CleanSheet:
			return binary(opp == 0), nil
		default:
			return binary(own == 0), nil
		}
	case DC1X:
		return binary(s.Home >= s.Away), nil
	case DCX2:
		return binary(s.Away >= s.Home), nil
	case DC12:
		return binary(s.Home != s.Away), nil
	case Home:
		return binary(s.Home > s.Away), nil
	case Away:
		return binary(s.Away > s.Home), nil
	case Draw:
		return binary(s.Home == s.Away), nil
	case CardsOver45, CardsOver35, CardsUnder35:
		if s.Cards == nil {
			return "", fmt.Errorf("%w: cards", ErrMissingStat)
		}
		switch b.Market {
		case CardsOver45:
			return binary(*s.Cards >= 5), nil
		case CardsOver35:
			return binary(*s.Cards >= 4), nil
		default:
			return binary(*s.Cards <= 3), nil
		}
	case AsianOver, AsianUnder, AHHome, AHAway, CornersOver, CornersUnder:
		legs, err := SettleLegs(b, s)
		if err != nil {
			return "", err
		}
		return combine(legs[0], legs[1]), nil
	}
	return "", fmt.Errorf("%w: %s", utils.ErrUnsupportedMarket, b.Market)
}

// SettleLegs splits a lined bet into its two half-stake legs. Whole and half lines
// produce two identical legs; quarter lines use line-0.25 and line+0.25.
func SettleLegs(b Bet, s Score) ([2]Result, error) {
	var legs [2]Result
	if !IsLined(b.Market) {
		return legs, fmt.Errorf("%w: %s has no line", utils.ErrUnsupportedMarket, b.Market)
	}
	if math.Mod(b.Line*4, 1) != 0 {
		return legs, fmt.Errorf("%w: %v", ErrInvalidLine, b.Line)
	}

	lines := [2]float64{b.Line, b.Line}
	if int(math.Abs(b.Line*4))%2 == 1 {
		lines = [2]float64{b.Line - 0.25, b.Line + 0.25}
	}

	for i, line := range lines {
		var margin float64
		switch b.Market {
		case AsianOver:
			margin = float64(s.Total()) - line
		case AsianUnder:
			margin = line - float64(s.Total())
		case AHHome:
			margin = float64(s.Home-s.Away) + line
		case AHAway:
			margin = float64(s.Away-s.Home) + line
		case CornersOver, CornersUnder:
			if s.Corners == nil {
				return legs, fmt.Errorf("%w: corners", ErrMissingStat)
			}
			margin = float64(*s.Corners) - line
			if b.Market == CornersUnder {
				margin = -margin
			}
		}
		switch {
		case margin > 0:
			legs[i] = ResultWin
		case margin < 0:
			legs[i] = ResultLoss
		default:
			legs[i] = ResultPush
		}
	}
	return legs, nil
}

func combine(a, b Result) Result {
	if a == b {
		return a
	}
	switch {
	case (a == ResultWin && b == ResultPush) || (a == ResultPush && b == ResultWin):
		return ResultHalfWin
	case (a == ResultLoss && b == ResultPush) || (a == ResultPush && b == ResultLoss):
		return ResultHalfLoss
	}
	return ResultPush
}

var two = decimal.NewFromInt(2)

// ProfitLoss returns the settled P&L for a stake at decimal odds.
func ProfitLoss(r Result, stake, odds decimal.Decimal) decimal.Decimal {
	win := stake.Mul(odds.Sub(decimal.NewFromInt(1)))
	switch r {
	case ResultWin:
		return win
	case ResultHalfWin:
		return win.Div(two)
	case ResultHalfLoss:
		return stake.Neg().Div(two)
	case ResultLoss:
		return stake.Neg()
	}
	return decimal.Zero
}

// LegsProfitLoss settles each leg on half the stake and sums them.
func LegsProfitLoss(legs [2]Result, stake, odds decimal.Decimal) decimal.Decimal {
	half := stake.Div(two)
	return ProfitLoss(legs[0], half, odds).Add(ProfitLoss(legs[1], half, odds))
}
