package adjusters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
)

func cornerTeam(name, league string, cf, ca, header, corner float64) models.TeamProfile {
	t := models.TeamProfile{TeamName: name, League: league}
	t.DNA.SetPieces = models.SetPieceDNA{
		CornersForAvg:     cf,
		CornersAgainstAvg: ca,
		HeaderGoalPct:     header,
		CornerGoalPct:     corner,
	}
	return t
}

func cornerLeague() []models.TeamProfile {
	return []models.TeamProfile{
		cornerTeam("Aerial FC", "EPL", 7, 3, 20, 15),
		cornerTeam("Leaky United", "EPL", 4, 6, 5, 5),
		cornerTeam("Middle Town", "EPL", 5.5, 4.5, 10, 10),
		cornerTeam("Elsewhere", "Serie A", 9, 9, 0, 0),
	}
}

func TestLeagueBenchmark(t *testing.T) {
	b := LeagueBenchmark(cornerLeague(), "EPL")
	assert.Equal(t, 3, b.Teams)
	assert.InDelta(t, 5.5, b.ForMean, 1e-9)
	assert.InDelta(t, 4.5, b.AgainstMean, 1e-9)
	assert.InDelta(t, 1.2247, b.ForStd, 1e-4)

	all := LeagueBenchmark(cornerLeague(), "")
	assert.Equal(t, 4, all.Teams)

	// a league with a single team borrows the whole corpus
	fallback := LeagueBenchmark(cornerLeague(), "Serie A")
	assert.Equal(t, 4, fallback.Teams)
}

func TestCornersProject(t *testing.T) {
	teams := cornerLeague()
	a := NewCornersAdjuster(DefaultCornersSettings(), logger.Discard())

	p := a.Project(teams[0], teams[1], LeagueBenchmark(teams, "EPL"))

	assert.InDelta(t, 6.85, p.HomeExpected, 1e-9)
	assert.InDelta(t, 3.15, p.AwayExpected, 1e-9)
	assert.InDelta(t, 10.0, p.Total, 1e-9)
	require.Len(t, p.Lines, 4)
	for i := 1; i < len(p.Lines); i++ {
		assert.LessOrEqual(t, p.Lines[i].Over, p.Lines[i-1].Over)
	}

	byType := map[CornerSignalType]CornerSignal{}
	for _, s := range p.Signals {
		byType[s.Type] = s
	}

	over, ok := byType[SignalOverCorners]
	require.True(t, ok)
	assert.Equal(t, markets.CornersOver, over.Market)
	assert.Equal(t, 8.5, *over.Line)
	assert.InDelta(t, 0.67, over.Probability, 0.01)

	under, ok := byType[SignalUnderCorners]
	require.True(t, ok)
	assert.Equal(t, 11.5, *under.Line)

	match, ok := byType[SignalCornerMatchBet]
	require.True(t, ok)
	assert.Equal(t, markets.SideHome, match.Side)
	assert.InDelta(t, 3.7, match.Strength, 1e-9)

	header, ok := byType[SignalHeaderGoal]
	require.True(t, ok)
	assert.Equal(t, markets.SideHome, header.Side)
	assert.Greater(t, header.Strength, 2.0)

	headers := 0
	for _, s := range p.Signals {
		if s.Type == SignalHeaderGoal {
			headers++
		}
	}
	assert.Equal(t, 1, headers)
}

func TestCornersMissingData(t *testing.T) {
	teams := cornerLeague()
	a := NewCornersAdjuster(DefaultCornersSettings(), logger.Discard())
	bench := LeagueBenchmark(teams, "EPL")

	p := a.Project(models.TeamProfile{TeamName: "New"}, models.TeamProfile{TeamName: "Newer"}, bench)
	assert.InDelta(t, (5.5*1.1+4.5)/2, p.HomeExpected, 0.01)
	assert.Empty(t, p.Reasons)

	empty := a.Project(models.TeamProfile{}, models.TeamProfile{}, LeagueBenchmark(nil, "EPL"))
	require.Len(t, empty.Reasons, 1)
	assert.Equal(t, CodeNoCornerBenchmark, empty.Reasons[0].Code)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Signals)
	assert.Empty(t, empty.Lines)

	// league present but without any corner data
	bare := []models.TeamProfile{{TeamName: "A", League: "X"}, {TeamName: "B", League: "X"}}
	none := a.Project(bare[0], bare[1], LeagueBenchmark(bare, "X"))
	require.Len(t, none.Reasons, 1)
	assert.Equal(t, CodeNoCornerBenchmark, none.Reasons[0].Code)
	assert.Empty(t, none.Signals)
	assert.Empty(t, none.Lines)
}
