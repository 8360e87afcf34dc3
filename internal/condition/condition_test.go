package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_ConditionBands(t *testing.T) {
	cases := []struct {
		name       string
		conditions []string
		min, max   float64
	}{
		{"excellent", []string{"Nysynet", "Helt ny", "Fabriksny", "Som ny", "Topstand", "Perfekt stand"}, 0.9, 1.0},
		{"good", []string{"Velholdt", "Pæn", "Flot", "God stand", "Fin stand"}, 0.7, 0.9},
		{"average", []string{"Brugt", "Normal", "Normalt brugsspor", "Almindelig stand", "OK stand"}, 0.4, 0.7},
		{"poor", []string{"Reparationsobjekt", "Defekt", "Ødelagt", "Til dele", "Havareret"}, 0.0, 0.2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, text := range tc.conditions {
				score, _ := Parse(text)
				assert.GreaterOrEqual(t, score, tc.min, "%q", text)
				assert.LessOrEqual(t, score, tc.max, "%q", text)
			}
		})
	}
}

func TestParse_ExactScores(t *testing.T) {
	cases := map[string]float64{
		"Nysynet":           1.0,
		"Topstand":          0.95,
		"Pæn":               0.8,
		"God stand":         0.75,
		"Brugt":             0.55,
		"Dårlig stand":      0.2,
		"Reparationsobjekt": 0.1,
		"Defekt":            0.0,
	}
	for text, want := range cases {
		score, _ := Parse(text)
		assert.InDelta(t, want, score, 1e-9, "%q", text)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "  \n\t  "} {
		score, info := Parse(text)
		assert.Equal(t, 0.5, score)
		assert.Empty(t, info.Matches)
	}
}

func TestParse_NoMatchIsNeutral(t *testing.T) {
	score, info := Parse("sælges billigt uden afgift")
	assert.Equal(t, 0.5, score)
	assert.Empty(t, info.Matches)
	assert.Empty(t, info.Modifiers)
}

func TestParse_PositiveModifiers(t *testing.T) {
	cases := []struct{ modified, base string }{
		{"Meget pæn", "pæn"},
		{"Super flot", "flot"},
		{"Rigtig god stand", "god stand"},
	}
	for _, tc := range cases {
		modified, _ := Parse(tc.modified)
		base, _ := Parse(tc.base)
		assert.GreaterOrEqual(t, modified, base-1e-9,
			"%q should not score below %q", tc.modified, tc.base)
	}
}

func TestParse_IssuesLowerTheScore(t *testing.T) {
	cases := []struct{ text, without string }{
		{"Pæn men med rust", "Pæn"},
		{"God stand med buler", "God stand"},
		{"Flot bil med motor problemer", "Flot"},
	}
	for _, tc := range cases {
		withIssue, _ := Parse(tc.text)
		clean, _ := Parse(tc.without)
		assert.Less(t, withIssue, clean, "%q should score below %q", tc.text, tc.without)
	}
}

func TestParse_MostOptimisticPhraseWins(t *testing.T) {
	// "god stand" (0.75) outranks the bare "god" (0.7) extracted from the
	// same text.
	score, info := Parse("god stand")
	assert.InDelta(t, 0.75, score, 1e-9)
	assert.Contains(t, info.Matches, "god stand=0.75")
	assert.Contains(t, info.Matches, "god=0.70")
}

func TestParse_CaseAndDiacriticsFolded(t *testing.T) {
	upper, _ := Parse("NYSYNET")
	lower, _ := Parse("nysynet")
	assert.Equal(t, lower, upper)

	folded, _ := Parse("paen")
	unfolded, _ := Parse("pæn")
	assert.Equal(t, unfolded, folded, "ae spelling and æ must score alike")

	a, _ := Parse("dårlig stand")
	b, _ := Parse("daarlig stand")
	assert.Equal(t, a, b)
}

func TestParse_PunctuationIgnored(t *testing.T) {
	clean, _ := Parse("topstand")
	noisy, _ := Parse("  Topstand!!! (nysynet, velholdt)...  ")
	assert.GreaterOrEqual(t, noisy, clean, "punctuation must not hide phrases")
}

func TestParse_ClampedToUnitInterval(t *testing.T) {
	// Stack every issue onto a wreck: the score bottoms out at 0.
	score, _ := Parse("defekt med rust buler ridser motor gear bremser elektronik")
	assert.Equal(t, 0.0, score)

	// Stack amplifiers onto a top score: capped at 1.
	score, _ = Parse("super rigtig ekstra utrolig nysynet")
	assert.Equal(t, 1.0, score)
}

func TestDescribe_Bands(t *testing.T) {
	cases := map[float64]string{
		1.0:  "Excellent",
		0.9:  "Excellent",
		0.85: "Very Good",
		0.8:  "Very Good",
		0.7:  "Good",
		0.6:  "Good",
		0.5:  "Fair",
		0.4:  "Fair",
		0.3:  "Poor",
		0.2:  "Poor",
		0.1:  "Very Poor",
		0.0:  "Very Poor",
	}
	for score, want := range cases {
		assert.Equal(t, want, Describe(score), "score %g", score)
	}
}

func TestFromDescription(t *testing.T) {
	cases := []struct {
		name      string
		text      string
		wantScore float64
		wantLabel string
	}{
		{"empty", "", 0.5, "Ukendt"},
		{"no keywords", "Sælges for en ven, bud modtages", 0.5, "Almindelig"},
		{"two good", "Bilen fremstår i topstand og er meget velholdt", 0.7, "Topstand"},
		{"two poor", "Defekt motor og en del rust i bunden", 0.3, "Defekt"},
		{"balanced", "Flot bil men med rust", 0.5, "Flot stand"},
		{"clamped high", "topstand velholdt nysynet flot pæn god stand", 1.0, "Topstand"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, label := FromDescription(tc.text)
			assert.InDelta(t, tc.wantScore, score, 1e-9)
			assert.Equal(t, tc.wantLabel, label)
		})
	}
}
