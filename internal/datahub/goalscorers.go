package datahub

import (
	"sort"

	"github.com/crocodileps/Mon-ps-sub009/internal/models"
	"github.com/crocodileps/Mon-ps-sub009/internal/names"
)

// GoalEvent is one goal from an all_goals_*.json file.
type GoalEvent struct {
	MatchID    string  `json:"match_id"`
	PlayerName string  `json:"player_name"`
	Team       string  `json:"team"`
	League     string  `json:"league"`
	Season     string  `json:"season"`
	Minute     int     `json:"minute"`
	XG         float64 `json:"xg"`
	Situation  string  `json:"situation"`
	IsHeader   bool    `json:"is_header"`
}

// PlayerImpact carries playing time and shot volume for per-90 rates.
type PlayerImpact struct {
	PlayerName string `json:"player_name"`
	Team       string `json:"team"`
	Minutes    int    `json:"minutes"`
	Shots      int    `json:"shots"`
}

const (
	SituationOpenPlay = "open_play"
	SituationSetPiece = "set_piece"
	SituationPenalty  = "penalty"
)

// AggregateGoalscorers folds goal events into one profile per (player, season).
func AggregateGoalscorers(events []GoalEvent, impact []PlayerImpact) []models.GoalscorerProfile {
	type key struct{ player, season string }

	profiles := make(map[key]*models.GoalscorerProfile)
	byMatch := make(map[string][]GoalEvent)

	for _, e := range events {
		k := key{names.Key(e.PlayerName), e.Season}
		p, ok := profiles[k]
		if !ok {
			p = &models.GoalscorerProfile{
				PlayerName: e.PlayerName,
				Team:       names.Canonical(e.Team),
				League:     e.League,
				Season:     e.Season,
			}
			profiles[k] = p
		}
		p.TotalGoals++
		p.TotalXG += e.XG
		p.Timing[models.TimingBucket(e.Minute)]++
		switch e.Situation {
		case SituationSetPiece:
			p.SetPiece++
		case SituationPenalty:
			p.Penalty++
		default:
			p.OpenPlay++
		}
		if e.IsHeader {
			p.Header++
		}
		if e.MatchID != "" {
			byMatch[e.MatchID] = append(byMatch[e.MatchID], e)
		}
	}

	for _, goals := range byMatch {
		sort.SliceStable(goals, func(i, j int) bool { return goals[i].Minute < goals[j].Minute })
		first, last := goals[0], goals[len(goals)-1]
		profiles[key{names.Key(first.PlayerName), first.Season}].FirstGoals++
		profiles[key{names.Key(last.PlayerName), last.Season}].LastGoals++
	}

	playing := make(map[string]PlayerImpact, len(impact))
	for _, pi := range impact {
		playing[names.Key(pi.PlayerName)] = pi
	}

	out := make([]models.GoalscorerProfile, 0, len(profiles))
	for k, p := range profiles {
		if pi, ok := playing[k.player]; ok {
			p.Minutes = pi.Minutes
			p.Shots = pi.Shots
		}
		p.Derive()
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalGoals != out[j].TotalGoals {
			return out[i].TotalGoals > out[j].TotalGoals
		}
		if out[i].PlayerName != out[j].PlayerName {
			return out[i].PlayerName < out[j].PlayerName
		}
		return out[i].Season < out[j].Season
	})
	return out
}
