package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type TeamProfile struct {
	ID                uint      `gorm:"primaryKey" json:"-"`
	TeamName          string    `gorm:"uniqueIndex;not null" json:"team_name"`
	League            string    `gorm:"index" json:"league"`
	Tier              Tier      `gorm:"not null" json:"tier"`
	HistoricalPnL     float64   `json:"historical_pnl"`
	HistoricalWinRate float64   `json:"historical_win_rate"`
	HistoricalBets    int       `json:"historical_bets"`
	DNA               TeamDNA   `gorm:"type:jsonb" json:"dna"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (TeamProfile) TableName() string {
	return "team_profiles"
}

// TeamDNA is stored as a single encoded document column.
type TeamDNA struct {
	CurrentSeason CurrentSeason `json:"current_season"`
	Luck          LuckDNA       `json:"luck_dna"`
	Roster        RosterDNA     `json:"roster_dna"`
	Nemesis       NemesisDNA    `json:"nemesis_dna"`
	Tactical      TacticalDNA   `json:"tactical"`
	Goalkeeper    GoalkeeperDNA `json:"goalkeeper"`
	Gamestate     GamestateDNA  `json:"gamestate"`
	Timing        TimingDNA     `json:"timing"`
	Discipline    DisciplineDNA `json:"discipline"`
	SetPieces     SetPieceDNA   `json:"set_pieces"`
}

type CurrentSeason struct {
	XGForAvg     float64 `json:"xg_for_avg"`
	XGAgainstAvg float64 `json:"xg_against_avg"`
	PPG          float64 `json:"ppg"`
	BTTSRate     float64 `json:"btts_rate"`
	Over25Rate   float64 `json:"over25_rate"`
}

// DefaultXG is used when a team has no usable xG average.
const DefaultXG = 1.3

func xgOrDefault(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultXG
	}
	return v
}

func (c CurrentSeason) XGFor() float64     { return xgOrDefault(c.XGForAvg) }
func (c CurrentSeason) XGAgainst() float64 { return xgOrDefault(c.XGAgainstAvg) }

// HasXG reports whether both averages are present.
func (c CurrentSeason) HasXG() bool {
	return c.XGFor() == c.XGForAvg && c.XGAgainst() == c.XGAgainstAvg
}

type LuckDNA struct {
	LuckProfile   LuckProfile `json:"luck_profile"`
	TotalLuck     float64     `json:"total_luck"`
	FinishingLuck float64     `json:"finishing_luck"`
}

type RosterDNA struct {
	ClinicalFinishers int `json:"clinical_finishers"`
}

type NemesisDNA struct {
	KeeperStatus KeeperStatus `json:"keeper_status"`
}

type TacticalDNA struct {
	Profile        TacticalProfile `json:"profile"`
	SetPiecePct    float64         `json:"set_piece_pct"`
	ConversionRate float64         `json:"conversion_rate"`
	BuildupRatio   float64         `json:"buildup_ratio"`
}

type GoalkeeperDNA struct {
	Status   GoalkeeperStatus `json:"status"`
	SaveRate float64          `json:"save_rate"`
}

type GamestateDNA struct {
	Behavior           GamestateBehavior `json:"behavior"`
	ComebackRate       float64           `json:"comeback_rate"`
	LeadProtectionRate float64           `json:"lead_protection_rate"`
}

// Curve holds scoring intensity over five buckets, 0-15 through 75-90.
type TimingDNA struct {
	DecayFactor float64    `json:"decay_factor"`
	Curve       [5]float64 `json:"curve"`
}

type DisciplineDNA struct {
	AvgCards float64 `json:"avg_cards"`
	AvgFouls float64 `json:"avg_fouls"`
}

type SetPieceDNA struct {
	CornersForAvg     float64 `json:"corners_for_avg"`
	CornersAgainstAvg float64 `json:"corners_against_avg"`
	HeaderGoalPct     float64 `json:"header_goal_pct"`
	CornerGoalPct     float64 `json:"corner_goal_pct"`
}

// Scan implements the sql.Scanner interface for JSONB
func (d *TeamDNA) Scan(value interface{}) error {
	if value == nil {
		*d = TeamDNA{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into TeamDNA", value)
	}

	var result TeamDNA
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*d = result
	return nil
}

// Value implements the driver.Valuer interface for JSONB
func (d TeamDNA) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
