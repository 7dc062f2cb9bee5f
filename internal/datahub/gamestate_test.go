package datahub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
)

func TestGamestateCalibration(t *testing.T) {
	team := func(name string, comeback, lead float64, behavior models.GamestateBehavior) models.TeamProfile {
		p := models.TeamProfile{TeamName: name, League: "EPL"}
		p.DNA.Gamestate = models.GamestateDNA{Behavior: behavior, ComebackRate: comeback, LeadProtectionRate: lead}
		return p
	}

	snap := &Snapshot{Teams: []models.TeamProfile{
		team("Alpha", 40, 90, ""),
		team("Bravo", 35, 50, models.GamestateUnknown),
		team("Charlie", 10, 20, ""),
		team("Delta", 20, 60, ""),
		team("Echo", 25, 70, models.GamestateSettler),
		team("Foxtrot", 12, 80, ""),
	}}

	hub := New(snap, Options{}, logger.Discard())
	th := hub.GamestateThresholds()
	assert.Equal(t, 6, th.Sample)
	assert.Less(t, th.ComebackP25, th.ComebackP75)

	assert.Equal(t, models.GamestateKiller, hub.GetTeam("Alpha").DNA.Gamestate.Behavior)
	assert.Equal(t, models.GamestateComebackKing, hub.GetTeam("Bravo").DNA.Gamestate.Behavior)
	assert.Equal(t, models.GamestateSettler, hub.GetTeam("Charlie").DNA.Gamestate.Behavior)
	// explicit labels are never overwritten
	assert.Equal(t, models.GamestateSettler, hub.GetTeam("Echo").DNA.Gamestate.Behavior)
}

func TestGamestateClassifySmallSample(t *testing.T) {
	th := GamestateThresholds{Sample: 2}
	assert.Equal(t, models.GamestateNeutral, th.Classify(90, 90))
}
