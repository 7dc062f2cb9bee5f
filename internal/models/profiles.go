package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crocodileps/Mon-ps-sub009/internal/markets"
)

// MarketProfile is one row per (team, market_type, location).
type MarketProfile struct {
	ID            uint           `gorm:"primaryKey" json:"-"`
	Team          string         `gorm:"uniqueIndex:idx_market_profile;not null" json:"team"`
	MarketType    markets.Market `gorm:"uniqueIndex:idx_market_profile;not null" json:"market_type"`
	Location      Location       `gorm:"uniqueIndex:idx_market_profile;default:overall" json:"location"`
	WinRate       float64        `json:"win_rate"`
	ROI           float64        `json:"roi"`
	AvgOdds       float64        `json:"avg_odds"`
	SampleSize    int            `json:"sample_size"`
	IsBestMarket  bool           `json:"is_best_market"`
	IsAvoidMarket bool           `json:"is_avoid_market"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (MarketProfile) TableName() string {
	return "market_profiles"
}

// H2HPattern is a recorded head-to-head market tendency, keyed canonically.
type H2HPattern struct {
	ID                    uint           `gorm:"primaryKey" json:"-"`
	TeamA                 string         `gorm:"uniqueIndex:idx_h2h;not null" json:"team_a"`
	TeamB                 string         `gorm:"uniqueIndex:idx_h2h;not null" json:"team_b"`
	MarketType            markets.Market `json:"market_type"`
	WinRate               float64        `json:"win_rate"`
	TotalMatches          int            `json:"total_matches"`
	OverrideIndividualDNA bool           `json:"override_individual_dna"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

func (H2HPattern) TableName() string {
	return "h2h_patterns"
}

// FrictionRecord is stored once per unordered pair with TeamA < TeamB.
type FrictionRecord struct {
	ID                  uint      `gorm:"primaryKey" json:"-"`
	TeamA               string    `gorm:"uniqueIndex:idx_friction;not null" json:"team_a"`
	TeamB               string    `gorm:"uniqueIndex:idx_friction;not null" json:"team_b"`
	FrictionScore       float64   `json:"friction_score"`
	ChaosPotential      float64   `json:"chaos_potential"`
	StyleClash          float64   `json:"style_clash"`
	TempoClash          float64   `json:"tempo_clash"`
	MentalClash         float64   `json:"mental_clash"`
	PredictedGoals      float64   `json:"predicted_goals"`
	PredictedBTTSProb   float64   `json:"predicted_btts_prob"`
	PredictedOver25Prob float64   `json:"predicted_over25_prob"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (FrictionRecord) TableName() string {
	return "friction"
}

// DefaultFriction is served when no record exists for a pair.
func DefaultFriction(a, b string) FrictionRecord {
	return FrictionRecord{
		TeamA:               a,
		TeamB:               b,
		FrictionScore:       50,
		ChaosPotential:      50,
		PredictedGoals:      2.6,
		PredictedBTTSProb:   0.5,
		PredictedOver25Prob: 0.5,
	}
}

type RefereeProfile struct {
	ID              uint       `gorm:"primaryKey" json:"-"`
	RefereeName     string     `gorm:"uniqueIndex;not null" json:"referee_name"`
	Matches         int        `json:"matches"`
	CardImpact      float64    `json:"card_impact"`
	CardTriggerRate float64    `json:"card_trigger_rate"`
	AvgCards        float64    `json:"avg_cards"`
	Strictness      Strictness `json:"strictness"`
	Over45Pct       float64    `json:"over_45_pct"`
	Confidence      float64    `gorm:"-" json:"confidence"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (RefereeProfile) TableName() string {
	return "referee_profiles"
}

// RefereeConfidence is min(1, matches/highConfidence).
func RefereeConfidence(matches, highConfidence int) float64 {
	if highConfidence <= 0 || matches <= 0 {
		return 0
	}
	c := float64(matches) / float64(highConfidence)
	if c > 1 {
		return 1
	}
	return c
}

// GoalTiming counts goals per 15-minute bucket: 0-15, 16-30, 31-45, 46-60, 61-75, 76-90.
type GoalTiming [6]int

// Scan implements the sql.Scanner interface for JSONB
func (g *GoalTiming) Scan(value interface{}) error {
	if value == nil {
		*g = GoalTiming{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into GoalTiming", value)
	}
	return json.Unmarshal(bytes, g)
}

// Value implements the driver.Valuer interface for JSONB
func (g GoalTiming) Value() (driver.Value, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// TimingBucket maps a match minute onto a GoalTiming index.
func TimingBucket(minute int) int {
	switch {
	case minute <= 15:
		return 0
	case minute <= 30:
		return 1
	case minute <= 45:
		return 2
	case minute <= 60:
		return 3
	case minute <= 75:
		return 4
	default:
		return 5
	}
}

type GoalscorerProfile struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	PlayerName string `gorm:"uniqueIndex:idx_goalscorer;not null" json:"player_name"`
	Team       string `gorm:"index" json:"team"`
	League     string `json:"league"`
	Season     string `gorm:"uniqueIndex:idx_goalscorer" json:"season"`

	TotalGoals int     `json:"total_goals"`
	TotalXG    float64 `json:"total_xg"`
	FirstGoals int     `json:"first_goals"`
	LastGoals  int     `json:"last_goals"`
	Minutes    int     `json:"minutes"`
	Shots      int     `json:"shots"`

	Timing GoalTiming `gorm:"type:jsonb" json:"timing"`

	OpenPlay int `json:"open_play"`
	SetPiece int `json:"set_piece"`
	Penalty  int `json:"penalty"`
	Header   int `json:"header"`

	GoalsPer90      float64 `json:"goals_per_90"`
	XGPer90         float64 `json:"xg_per_90"`
	FirstGoalRate   float64 `json:"first_goal_rate"`
	LastGoalRate    float64 `json:"last_goal_rate"`
	ConversionRate  float64 `json:"conversion_rate"`
	Overperformance float64 `json:"overperformance"`
}

func (GoalscorerProfile) TableName() string {
	return "goalscorer_profiles"
}

// Derive fills the per-90 and rate fields from the raw counts.
func (g *GoalscorerProfile) Derive() {
	if g.Minutes > 0 {
		g.GoalsPer90 = float64(g.TotalGoals) * 90 / float64(g.Minutes)
		g.XGPer90 = g.TotalXG * 90 / float64(g.Minutes)
	}
	if g.TotalGoals > 0 {
		g.FirstGoalRate = float64(g.FirstGoals) / float64(g.TotalGoals) * 100
		g.LastGoalRate = float64(g.LastGoals) / float64(g.TotalGoals) * 100
	}
	if g.Shots > 0 {
		g.ConversionRate = float64(g.TotalGoals) / float64(g.Shots) * 100
	}
	g.Overperformance = float64(g.TotalGoals) - g.TotalXG
}

// Defender states and roles used by the shorting model.
const (
	DefenderStateCrisis = "CRISIS"
	DefenderStateStable = "STABLE"
	DefenderStatePeak   = "PEAK"

	RoleLeader    = "LEADER"
	RoleDependent = "DEPENDENT"

	TiltProfileTilter = "TILTER"
)

type DefenderProfile struct {
	ID                   uint    `gorm:"primaryKey" json:"-"`
	PlayerName           string  `gorm:"uniqueIndex:idx_defender;not null" json:"player_name"`
	Team                 string  `gorm:"uniqueIndex:idx_defender;index" json:"team"`
	Position             string  `json:"position"`
	Minutes              int     `json:"minutes"`
	HMMState             string  `json:"hmm_state"`
	Alpha                float64 `json:"alpha"`
	Beta                 float64 `json:"beta"`
	Sharpe               float64 `json:"sharpe"`
	CVaR                 float64 `json:"cvar"`
	LeadershipRole       string  `json:"leadership_role"`
	TiltProfile          string  `json:"tilt_profile"`
	CompoundErrorRisk    float64 `json:"compound_error_risk"`
	TransitionVulnerable bool    `json:"transition_vulnerable"`
}

func (DefenderProfile) TableName() string {
	return "defender_profiles"
}
