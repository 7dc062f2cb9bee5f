package value

// Public-team penalties keyed by canonical name. Unlisted teams get unlistedBonus.
const unlistedBonus = 15.0

var penaltyTables = map[string]map[string]float64{
	"v2.2": {
		"Real Madrid":         -15,
		"Barcelona":           -15,
		"Manchester City":     -15,
		"Bayern Munich":       -15,
		"Liverpool":           -12,
		"Manchester United":   -12,
		"Paris Saint Germain": -12,
		"Arsenal":             -10,
		"Chelsea":             -10,
		"Juventus":            -10,
		"Inter Milan":         -10,
		"AC Milan":            -10,
		"Borussia Dortmund":   -10,
		"Tottenham Hotspur":   -8,
		"Atletico Madrid":     -8,
	},
	"v2.3": {
		"Real Madrid":         -15,
		"Barcelona":           -14,
		"Manchester City":     -15,
		"Bayern Munich":       -14,
		"Liverpool":           -13,
		"Manchester United":   -11,
		"Paris Saint Germain": -13,
		"Arsenal":             -12,
		"Chelsea":             -9,
		"Juventus":            -9,
		"Inter Milan":         -11,
		"AC Milan":            -9,
		"Borussia Dortmund":   -8,
		"Tottenham Hotspur":   -8,
		"Atletico Madrid":     -10,
		"Newcastle United":    -8,
	},
}

// PenaltyTableVersions lists the shipped tables.
func PenaltyTableVersions() []string {
	return []string{"v2.2", "v2.3"}
}
