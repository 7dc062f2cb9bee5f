package decision

import "github.com/crocodileps/Mon-ps-sub009/pkg/config"

// Thresholds carries every cut-off the matrix uses.
type Thresholds struct {
	ChaosExtreme    float64 `json:"chaos_extreme"`
	ChaosHigh       float64 `json:"chaos_high"`
	FrictionHigh    float64 `json:"friction_high"`
	FrictionNeutral float64 `json:"friction_neutral"`
	XGShootout      float64 `json:"xg_shootout"`
	XGLow           float64 `json:"xg_low"`
	ZStrong         float64 `json:"z_strong"`
	ZMedium         float64 `json:"z_medium"`
	ZNoEdge         float64 `json:"z_no_edge"`

	// Line and secondary selection.
	ChaosOverXG        float64 `json:"chaos_over_xg"`
	ChaosHighLineXG    float64 `json:"chaos_high_line_xg"`
	ShootoutHighLineXG float64 `json:"shootout_high_line_xg"`
	LevelHandicapZ     float64 `json:"level_handicap_z"`
	TacticalLowLineXG  float64 `json:"tactical_low_line_xg"`
	PureValueOverXG    float64 `json:"pure_value_over_xg"`
	ChaosCards         float64 `json:"chaos_cards"`

	// Confidence synthesis.
	ConfidenceBase  float64 `json:"confidence_base"`
	ConfidenceCap   float64 `json:"confidence_cap"`
	ConfidenceZEdge float64 `json:"confidence_z_edge"`
	ConfidenceCalm  float64 `json:"confidence_calm"`
	StalePenalty    float64 `json:"stale_penalty"`

	MinOdds float64 `json:"min_odds"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		ChaosExtreme:    80,
		ChaosHigh:       70,
		FrictionHigh:    70,
		FrictionNeutral: 60,
		XGShootout:      3.5,
		XGLow:           2.5,
		ZStrong:         2.0,
		ZMedium:         1.0,
		ZNoEdge:         0.5,

		ChaosOverXG:        3.0,
		ChaosHighLineXG:    3.25,
		ShootoutHighLineXG: 4.0,
		LevelHandicapZ:     2.5,
		TacticalLowLineXG:  2.2,
		PureValueOverXG:    2.8,
		ChaosCards:         85,

		ConfidenceBase:  0.5,
		ConfidenceCap:   0.9,
		ConfidenceZEdge: 1.5,
		ConfidenceCalm:  60,
		StalePenalty:    0.1,

		MinOdds: 1.50,
	}
}

// FromConfig overrides the configurable cut-offs.
func FromConfig(cfg *config.Config) Thresholds {
	th := DefaultThresholds()
	th.ChaosExtreme = cfg.ChaosExtreme
	th.ChaosHigh = cfg.ChaosHigh
	th.FrictionHigh = cfg.FrictionHigh
	th.FrictionNeutral = cfg.FrictionNeutral
	th.XGShootout = cfg.XGShootout
	th.XGLow = cfg.XGLow
	th.ZStrong = cfg.ZStrong
	th.ZMedium = cfg.ZMedium
	th.MinOdds = cfg.MinOdds
	return th
}
