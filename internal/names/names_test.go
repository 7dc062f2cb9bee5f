package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Man United", "Manchester United"},
		{"MAN UTD", "Manchester United"},
		{"Wolves", "Wolverhampton Wanderers"},
		{"Bayern München", "Bayern Munich"},
		{"Nott'm Forest", "Nottingham Forest"},
		{"Paris Saint-Germain", "Paris Saint-Germain"},
		{"  Arsenal  ", "Arsenal"},
		{"Brighton & Hove Albion", "Brighton & Hove Albion"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.input))
		})
	}
}

func TestCanonicalIsStable(t *testing.T) {
	inputs := []string{"Atlético Madrid", "Man City", "psg", "Borussia M'gladbach", "Real Sociedad"}
	for alias, canonical := range Aliases() {
		inputs = append(inputs, alias, canonical)
	}

	for _, in := range inputs {
		once := Canonical(in)
		assert.Equal(t, once, Canonical(once), "input %q", in)
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "atletico madrid", Key("Atlético  Madrid"))
	assert.Equal(t, "brighton and hove albion", Key("Brighton & Hove Albion"))
	assert.Equal(t, "paris saint germain", Key("Paris Saint-Germain"))
	assert.Equal(t, Key("Bayern München"), Key("bayern munchen"))
}

func TestPairKeyIsSymmetric(t *testing.T) {
	a1, b1 := PairKey("Chelsea", "Arsenal")
	a2, b2 := PairKey("Arsenal", "Chelsea")
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
	assert.Equal(t, "arsenal", a1)
}
