package adjusters

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/internal/names"
	"github.com/crocodileps/Mon-ps-sub009/internal/projector"
)

type CornerSignalType string

const (
	SignalOverCorners    CornerSignalType = "Over_Corners"
	SignalUnderCorners   CornerSignalType = "Under_Corners"
	SignalCornerMatchBet CornerSignalType = "Corner_Match_Bet"
	SignalHeaderGoal     CornerSignalType = "Header_Goal"
)

const CodeNoCornerBenchmark = "NO_CORNER_BENCHMARK"

// CornerLines are the totals priced for every fixture.
var CornerLines = []float64{8.5, 9.5, 10.5, 11.5}

type CornersSettings struct {
	HomeFactor      float64
	AwayFactor      float64
	LineThreshold   float64
	MatchBetDiff    float64
	HeaderThreshold float64
}

func DefaultCornersSettings() CornersSettings {
	return CornersSettings{
		HomeFactor:      1.1,
		AwayFactor:      0.9,
		LineThreshold:   0.60,
		MatchBetDiff:    0.8,
		HeaderThreshold: 2.0,
	}
}

// Benchmark is the per-league distribution of corner averages.
type Benchmark struct {
	League      string  `json:"league"`
	Teams       int     `json:"teams"`
	ForMean     float64 `json:"for_mean"`
	ForStd      float64 `json:"for_std"`
	AgainstMean float64 `json:"against_mean"`
	AgainstStd  float64 `json:"against_std"`
}

func (b Benchmark) zFor(v float64) float64 {
	if b.ForStd == 0 {
		return 0
	}
	return (v - b.ForMean) / b.ForStd
}

func (b Benchmark) zAgainst(v float64) float64 {
	if b.AgainstStd == 0 {
		return 0
	}
	return (v - b.AgainstMean) / b.AgainstStd
}

// LeagueBenchmark computes the corner benchmark of league from teams. An empty
// league uses every team with corner data.
func LeagueBenchmark(teams []models.TeamProfile, league string) Benchmark {
	var forVals, againstVals []float64
	collect := func(filter bool) {
		for _, t := range teams {
			sp := t.DNA.SetPieces
			if sp.CornersForAvg <= 0 || sp.CornersAgainstAvg <= 0 {
				continue
			}
			if filter && names.Key(t.League) != names.Key(league) {
				continue
			}
			forVals = append(forVals, sp.CornersForAvg)
			againstVals = append(againstVals, sp.CornersAgainstAvg)
		}
	}
	collect(league != "")
	if len(forVals) < 2 && league != "" {
		forVals, againstVals = nil, nil
		collect(false)
	}

	b := Benchmark{League: league, Teams: len(forVals)}
	if len(forVals) == 0 {
		return b
	}
	b.ForMean, b.ForStd = stat.PopMeanStdDev(forVals, nil)
	b.AgainstMean, b.AgainstStd = stat.PopMeanStdDev(againstVals, nil)
	return b
}

type AerialIndex struct {
	OffensiveZ float64 `json:"offensive_z"`
	DefensiveZ float64 `json:"defensive_z"`
	HeaderPct  float64 `json:"header_goal_pct"`
	CornerPct  float64 `json:"corner_goal_pct"`
	Offensive  float64 `json:"offensive"`
}

type CornerLine struct {
	Line  float64 `json:"line"`
	Over  float64 `json:"over"`
	Under float64 `json:"under"`
}

type CornerSignal struct {
	Type        CornerSignalType `json:"type"`
	Market      markets.Market   `json:"market,omitempty"`
	Side        markets.Side     `json:"side,omitempty"`
	Line        *float64         `json:"line,omitempty"`
	Probability float64          `json:"probability,omitempty"`
	Strength    float64          `json:"strength"`
}

type CornersProjection struct {
	HomeExpected float64         `json:"home_expected"`
	AwayExpected float64         `json:"away_expected"`
	Total        float64         `json:"total"`
	Lines        []CornerLine    `json:"lines"`
	HomeAerial   AerialIndex     `json:"home_aerial"`
	AwayAerial   AerialIndex     `json:"away_aerial"`
	Benchmark    Benchmark       `json:"benchmark"`
	Signals      []CornerSignal  `json:"signals,omitempty"`
	Reasons      []models.Reason `json:"reasons,omitempty"`
}

type CornersAdjuster struct {
	settings CornersSettings
	logger   *logrus.Logger
}

func NewCornersAdjuster(settings CornersSettings, logger *logrus.Logger) *CornersAdjuster {
	return &CornersAdjuster{settings: settings, logger: logger}
}

// Project prices corner totals and aerial signals for home vs away against the
// supplied league benchmark.
func (a *CornersAdjuster) Project(home, away models.TeamProfile, bench Benchmark) CornersProjection {
	s := a.settings
	p := CornersProjection{Benchmark: bench}
	if bench.Teams == 0 {
		p.Reasons = append(p.Reasons, models.NewReason(CodeNoCornerBenchmark, nil).WithSubject(bench.League))
		// nothing to fall back to; no lines or signals from zero means
		if !hasCornerData(home) || !hasCornerData(away) {
			return p
		}
	}

	hf, ha := cornerAverages(home, bench)
	af, aa := cornerAverages(away, bench)

	homeExp := (hf*s.HomeFactor + aa) / 2
	awayExp := (af + ha) / 2 * s.AwayFactor
	total := homeExp + awayExp

	p.HomeExpected = projector.Round2(homeExp)
	p.AwayExpected = projector.Round2(awayExp)
	p.Total = projector.Round2(total)

	var bestOver, bestUnder *CornerLine
	for _, l := range CornerLines {
		over := projector.ProbOver(total, l)
		cl := CornerLine{Line: l, Over: projector.Round2(over), Under: projector.Round2(1 - over)}
		p.Lines = append(p.Lines, cl)

		if over >= s.LineThreshold {
			c := cl
			bestOver = &c
		}
		if 1-over >= s.LineThreshold && bestUnder == nil {
			c := cl
			bestUnder = &c
		}
	}
	if bestOver != nil {
		l := bestOver.Line
		p.Signals = append(p.Signals, CornerSignal{
			Type: SignalOverCorners, Market: markets.CornersOver, Line: &l,
			Probability: bestOver.Over, Strength: bestOver.Over,
		})
	}
	if bestUnder != nil {
		l := bestUnder.Line
		p.Signals = append(p.Signals, CornerSignal{
			Type: SignalUnderCorners, Market: markets.CornersUnder, Line: &l,
			Probability: bestUnder.Under, Strength: bestUnder.Under,
		})
	}

	if diff := homeExp - awayExp; math.Abs(diff) >= s.MatchBetDiff {
		side := markets.SideHome
		if diff < 0 {
			side = markets.SideAway
		}
		p.Signals = append(p.Signals, CornerSignal{Type: SignalCornerMatchBet, Side: side, Strength: projector.Round2(math.Abs(diff))})
	}

	p.HomeAerial = aerial(home, bench, hf, ha)
	p.AwayAerial = aerial(away, bench, af, aa)
	for _, pair := range []struct {
		side     markets.Side
		att, def AerialIndex
	}{
		{markets.SideHome, p.HomeAerial, p.AwayAerial},
		{markets.SideAway, p.AwayAerial, p.HomeAerial},
	} {
		strength := pair.att.Offensive + pair.def.DefensiveZ
		if strength >= s.HeaderThreshold {
			p.Signals = append(p.Signals, CornerSignal{Type: SignalHeaderGoal, Side: pair.side, Strength: projector.Round2(strength)})
		}
	}
	return p
}

func hasCornerData(t models.TeamProfile) bool {
	return t.DNA.SetPieces.CornersForAvg > 0 && t.DNA.SetPieces.CornersAgainstAvg > 0
}

// cornerAverages falls back to the benchmark means for a team without data.
func cornerAverages(t models.TeamProfile, bench Benchmark) (float64, float64) {
	sp := t.DNA.SetPieces
	cf, ca := sp.CornersForAvg, sp.CornersAgainstAvg
	if cf <= 0 {
		cf = bench.ForMean
	}
	if ca <= 0 {
		ca = bench.AgainstMean
	}
	return cf, ca
}

func aerial(t models.TeamProfile, bench Benchmark, cornersFor, cornersAgainst float64) AerialIndex {
	sp := t.DNA.SetPieces
	idx := AerialIndex{
		OffensiveZ: bench.zFor(cornersFor),
		DefensiveZ: bench.zAgainst(cornersAgainst),
		HeaderPct:  sp.HeaderGoalPct,
		CornerPct:  sp.CornerGoalPct,
	}
	idx.Offensive = idx.OffensiveZ + (sp.HeaderGoalPct+sp.CornerGoalPct)/50
	idx.OffensiveZ = projector.Round2(idx.OffensiveZ)
	idx.DefensiveZ = projector.Round2(idx.DefensiveZ)
	idx.Offensive = projector.Round2(idx.Offensive)
	return idx
}
