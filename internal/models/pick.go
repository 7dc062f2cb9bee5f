package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
)

// Pick is one tracked bet, unique per (match_id, market_type, source).
type Pick struct {
	ID           string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MatchID      string         `gorm:"uniqueIndex:idx_pick_market;not null" json:"match_id"`
	MarketType   markets.Market `gorm:"uniqueIndex:idx_pick_market;not null" json:"market_type"`
	Source       string         `gorm:"uniqueIndex:idx_pick_market;not null;default:engine" json:"source"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	League       string         `json:"league"`
	CommenceTime time.Time      `gorm:"index" json:"commence_time"`
	Decision     string         `json:"decision"`
	Prediction   string         `json:"prediction"`
	Side         markets.Side   `json:"side,omitempty"`
	Line         *float64       `json:"line,omitempty"`
	IsPrimary    bool           `json:"is_primary"`
	Bookmaker    string         `json:"bookmaker,omitempty"`

	OddsTaken    float64 `gorm:"not null" json:"odds_taken"`
	Stake        float64 `json:"stake"`
	Probability  float64 `json:"probability"`
	DiamondScore float64 `json:"diamond_score"`
	KellyPct     float64 `json:"kelly_pct"`

	HomeXG  float64 `json:"home_xg"`
	AwayXG  float64 `json:"away_xg"`
	TotalXG float64 `json:"total_xg"`

	IsResolved bool           `gorm:"index;default:false" json:"is_resolved"`
	IsWinner   *bool          `json:"is_winner"`
	Result     markets.Result `json:"result,omitempty"`
	ProfitLoss float64        `json:"profit_loss"`

	ClosingOdds   *float64 `json:"closing_odds,omitempty"`
	CLVPercentage *float64 `json:"clv_percentage,omitempty"`

	Reasoning datatypes.JSON `json:"reasoning,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

func (Pick) TableName() string {
	return "picks"
}

// BeforeCreate assigns a UUID when the caller did not.
func (p *Pick) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Bet returns the settlement view of the pick.
func (p Pick) Bet() markets.Bet {
	b := markets.Bet{Market: p.MarketType, Side: p.Side}
	if p.Line != nil {
		b.Line = *p.Line
	}
	return b
}

// AllModels lists every table for migrations.
func AllModels() []interface{} {
	return []interface{}{
		&TeamProfile{},
		&MarketProfile{},
		&H2HPattern{},
		&FrictionRecord{},
		&RefereeProfile{},
		&GoalscorerProfile{},
		&DefenderProfile{},
		&MatchResult{},
		&Pick{},
	}
}
