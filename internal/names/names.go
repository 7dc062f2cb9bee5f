// Package names canonicalizes team names across providers.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// aliases maps a folded key to the canonical team name.
var aliases = map[string]string{
	"man united":          "Manchester United",
	"man utd":             "Manchester United",
	"manchester utd":      "Manchester United",
	"man city":            "Manchester City",
	"wolves":              "Wolverhampton Wanderers",
	"wolverhampton":       "Wolverhampton Wanderers",
	"spurs":               "Tottenham Hotspur",
	"tottenham":           "Tottenham Hotspur",
	"newcastle":           "Newcastle United",
	"west ham":            "West Ham United",
	"nottm forest":        "Nottingham Forest",
	"notts forest":        "Nottingham Forest",
	"sheffield utd":       "Sheffield United",
	"brighton":            "Brighton and Hove Albion",
	"leicester":           "Leicester City",
	"bayern munchen":      "Bayern Munich",
	"fc bayern":           "Bayern Munich",
	"bayern":              "Bayern Munich",
	"dortmund":            "Borussia Dortmund",
	"bvb":                 "Borussia Dortmund",
	"gladbach":            "Borussia Monchengladbach",
	"m gladbach":          "Borussia Monchengladbach",
	"leverkusen":          "Bayer Leverkusen",
	"psg":                 "Paris Saint Germain",
	"paris sg":            "Paris Saint Germain",
	"inter":               "Inter Milan",
	"internazionale":      "Inter Milan",
	"milan":               "AC Milan",
	"atletico":            "Atletico Madrid",
	"atl madrid":          "Atletico Madrid",
	"real":                "Real Madrid",
	"barca":               "Barcelona",
	"fc barcelona":        "Barcelona",
	"athletic bilbao":     "Athletic Club",
	"betis":               "Real Betis",
	"om":                  "Marseille",
	"olympique marseille": "Marseille",
	"ol":                  "Lyon",
	"olympique lyonnais":  "Lyon",
}

var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key folds accents, case and punctuation so that variants compare equal.
func Key(name string) string {
	folded, _, err := transform.String(folder, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r == '&':
			b.WriteString(" and ")
		case r == '-' || r == '_' || r == '/':
			b.WriteRune(' ')
		case r == '.' || r == '\'' || r == ',':
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Canonical returns the canonical name for a known alias, or the trimmed input.
// Applying it twice yields the same value.
func Canonical(name string) string {
	if c, ok := aliases[Key(name)]; ok {
		return c
	}
	return strings.Join(strings.Fields(name), " ")
}

// PairKey orders two canonical names for symmetric lookups.
func PairKey(a, b string) (string, string) {
	ka, kb := Key(Canonical(a)), Key(Canonical(b))
	if ka <= kb {
		return ka, kb
	}
	return kb, ka
}

// Aliases returns a copy of the alias table.
func Aliases() map[string]string {
	out := make(map[string]string, len(aliases))
	for k, v := range aliases {
		out[k] = v
	}
	return out
}
