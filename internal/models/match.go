package models

import (
	"time"

	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
)

type MatchResult struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	MatchID      string    `gorm:"uniqueIndex;not null" json:"match_id"`
	HomeTeam     string    `gorm:"not null" json:"home_team"`
	AwayTeam     string    `gorm:"not null" json:"away_team"`
	League       string    `gorm:"index" json:"league"`
	CommenceTime time.Time `gorm:"index" json:"commence_time"`
	ScoreHome    *int      `json:"score_home"`
	ScoreAway    *int      `json:"score_away"`
	Outcome      Outcome   `json:"outcome"`
	IsFinished   bool      `gorm:"index" json:"is_finished"`

	// Optional match stats for card and corner markets.
	TotalCards   *int `json:"total_cards,omitempty"`
	TotalCorners *int `json:"total_corners,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (MatchResult) TableName() string {
	return "match_results"
}

// Settled reports whether the result is final and scored.
func (m MatchResult) Settled() bool {
	return m.IsFinished && m.ScoreHome != nil && m.ScoreAway != nil
}

// Score converts a settled result for market settlement.
func (m MatchResult) Score() markets.Score {
	s := markets.Score{Cards: m.TotalCards, Corners: m.TotalCorners}
	if m.ScoreHome != nil {
		s.Home = *m.ScoreHome
	}
	if m.ScoreAway != nil {
		s.Away = *m.ScoreAway
	}
	return s
}

// DeriveOutcome fills Outcome from the scores when both are present.
func (m *MatchResult) DeriveOutcome() {
	if m.ScoreHome == nil || m.ScoreAway == nil {
		return
	}
	switch {
	case *m.ScoreHome > *m.ScoreAway:
		m.Outcome = OutcomeHome
	case *m.ScoreHome < *m.ScoreAway:
		m.Outcome = OutcomeAway
	default:
		m.Outcome = OutcomeDraw
	}
}

// ResultFilter selects match results. Zero values mean "any".
type ResultFilter struct {
	From         time.Time
	To           time.Time
	League       string
	Team         string
	FinishedOnly bool
	MatchIDs     []string
}

func (f ResultFilter) Match(m MatchResult) bool {
	if f.FinishedOnly && !m.Settled() {
		return false
	}
	if !f.From.IsZero() && m.CommenceTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && m.CommenceTime.After(f.To) {
		return false
	}
	if f.League != "" && m.League != f.League {
		return false
	}
	if f.Team != "" && m.HomeTeam != f.Team && m.AwayTeam != f.Team {
		return false
	}
	if len(f.MatchIDs) > 0 {
		found := false
		for _, id := range f.MatchIDs {
			if id == m.MatchID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
