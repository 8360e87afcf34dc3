package condition

import (
	"fmt"
	"regexp"
	"strings"
)

// Danish condition phrases mapped to scores in [0,1], higher is better.
// Keys are folded through normalize at init, so "pæn" in an ad matches
// whether the text spells it with æ or ae.
var conditionScores = map[string]float64{
	"nysynet":       1.0,
	"helt ny":       1.0,
	"fabriksny":     1.0,
	"som ny":        0.95,
	"topstand":      0.95,
	"perfekt stand": 0.95,
	"upåklagelig":   0.9,
	"fremragende":   0.9,

	"nyserviceret": 0.85,
	"meget pæn":    0.85,
	"virkelig pæn": 0.85,
	"super flot":   0.85,
	"flot":         0.8,
	"pæn":          0.8,
	"velholdt":     0.8,

	"god stand":         0.75,
	"fin stand":         0.75,
	"god":               0.7,
	"fin":               0.7,
	"tilfredsstillende": 0.65,
	"ok stand":          0.65,
	"acceptabel":        0.6,
	"brugbar":           0.6,

	"brugt":             0.55,
	"almindelig brugt":  0.55,
	"normal":            0.5,
	"normalt brugsspor": 0.5,
	"almindelig stand":  0.5,
	"middelstand":       0.45,
	"gennemsnitlig":     0.45,
	"brugsport":         0.4,

	"slidte":         0.35,
	"tærskel":        0.35,
	"slidt":          0.3,
	"mangler":        0.3,
	"skal repareres": 0.25,
	"trænger til":    0.25,
	"dårlig stand":   0.2,
	"dårlig":         0.2,

	"reparationsobjekt": 0.1,
	"til dele":          0.05,
	"defekt":            0.0,
	"ødelagt":           0.0,
	"havareret":         0.0,
	"skrotet":           0.0,
}

var positiveModifiers = map[string]float64{
	"meget":   0.05,
	"super":   0.05,
	"rigtig":  0.05,
	"særlig":  0.05,
	"ekstra":  0.05,
	"utrolig": 0.05,
}

// "meget" sits in both tables: +0.05 as an amplifier, -0.1 as a hedge,
// netting slightly negative on its own.
var negativeModifiers = map[string]float64{
	"lidt":     -0.05,
	"noget":    -0.05,
	"ret":      -0.05,
	"temmelig": -0.1,
	"meget":    -0.1,
}

var issuePhrases = map[string]float64{
	"rust":         -0.1,
	"buler":        -0.05,
	"ridser":       -0.03,
	"slitage":      -0.05,
	"motor":        -0.15,
	"gear":         -0.1,
	"bremser":      -0.1,
	"elektronik":   -0.08,
	"aircon":       -0.03,
	"aircondition": -0.03,
}

var (
	punctRe    = regexp.MustCompile(`[.,!?;:"'()]+`)
	spaceRe    = regexp.MustCompile(`\s+`)
	danishFold = strings.NewReplacer("æ", "ae", "ø", "oe", "å", "aa")
)

func init() {
	conditionScores = foldKeys(conditionScores)
	positiveModifiers = foldKeys(positiveModifiers)
	negativeModifiers = foldKeys(negativeModifiers)
	issuePhrases = foldKeys(issuePhrases)
}

func foldKeys(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[normalize(k)] = v
	}
	return out
}

// normalize lowercases, strips punctuation, collapses whitespace, and
// folds æ/ø/å to their ascii digraphs.
func normalize(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = punctRe.ReplaceAllString(t, " ")
	t = spaceRe.ReplaceAllString(t, " ")
	t = danishFold.Replace(t)
	return strings.TrimSpace(t)
}

// extractPhrases returns every word, word pair, and word triple of the
// normalized text, in that order.
func extractPhrases(normalized string) []string {
	words := strings.Fields(normalized)
	phrases := make([]string, 0, len(words)*3)

	phrases = append(phrases, words...)
	for i := 0; i+1 < len(words); i++ {
		phrases = append(phrases, words[i]+" "+words[i+1])
	}
	for i := 0; i+2 < len(words); i++ {
		phrases = append(phrases, words[i]+" "+words[i+1]+" "+words[i+2])
	}
	return phrases
}

// ParseInfo records how a condition text was scored.
type ParseInfo struct {
	Normalized string   `json:"normalized"`
	Matches    []string `json:"matches"`
	Modifiers  []string `json:"modifiers"`
	BaseScore  float64  `json:"base_score"`
}

// Parse scores Danish condition text on [0,1]. The base score is the most
// optimistic matched table phrase; modifier words and known issue phrases
// shift it, and the result is clamped to the unit interval. Empty or
// unrecognized text scores the neutral 0.5.
func Parse(text string) (float64, ParseInfo) {
	info := ParseInfo{BaseScore: 0.5}
	if strings.TrimSpace(text) == "" {
		return 0.5, info
	}

	info.Normalized = normalize(text)
	phrases := extractPhrases(info.Normalized)

	base := 0.5
	matched := false
	for _, p := range phrases {
		if score, ok := conditionScores[p]; ok {
			info.Matches = append(info.Matches, fmt.Sprintf("%s=%.2f", p, score))
			if !matched || score > base {
				base = score
			}
			matched = true
		}
	}
	info.BaseScore = base

	var shift float64
	for _, p := range phrases {
		if m, ok := positiveModifiers[p]; ok {
			shift += m
			info.Modifiers = append(info.Modifiers, fmt.Sprintf("+%s", p))
		}
	}
	for _, p := range phrases {
		if m, ok := negativeModifiers[p]; ok {
			shift += m
			info.Modifiers = append(info.Modifiers, fmt.Sprintf("-%s", p))
		}
		if m, ok := issuePhrases[p]; ok {
			shift += m
			info.Modifiers = append(info.Modifiers, fmt.Sprintf("!%s", p))
		}
	}

	score := base + shift
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, info
}

// Score is Parse without the debug detail.
func Score(text string) float64 {
	s, _ := Parse(text)
	return s
}

// Describe bands a condition score for display.
func Describe(score float64) string {
	switch {
	case score >= 0.9:
		return "Excellent"
	case score >= 0.8:
		return "Very Good"
	case score >= 0.6:
		return "Good"
	case score >= 0.4:
		return "Fair"
	case score >= 0.2:
		return "Poor"
	default:
		return "Very Poor"
	}
}

type descriptionKeyword struct {
	keyword string
	label   string
}

// Keyword lists for reading free-form ad descriptions, where full condition
// phrases rarely appear. Order matters: the first match supplies the label.
var goodDescriptionKeywords = []descriptionKeyword{
	{"topstand", "Topstand"},
	{"velholdt", "Velholdt"},
	{"nysynet", "Nysynet"},
	{"flot", "Flot stand"},
	{"pæn", "Pæn stand"},
	{"god stand", "God stand"},
	{"professionelt klargjort", "Professionelt klargjort"},
	{"klar til levering", "Klar til levering"},
}

var poorDescriptionKeywords = []descriptionKeyword{
	{"defekt", "Defekt"},
	{"reparationsobjekt", "Reparationsobjekt"},
	{"slidte", "Slidt"},
	{"skader", "Skader"},
	{"rust", "Rust"},
	{"problemer", "Problemer"},
}

// FromDescription estimates a condition from an ad's free-text description
// by counting good against poor keywords: 0.5 plus 0.1 per surplus match,
// clamped to [0,1]. The label comes from the strongest side, "Ukendt" when
// the description is empty and "Almindelig" when nothing matched.
func FromDescription(description string) (float64, string) {
	if strings.TrimSpace(description) == "" {
		return 0.5, "Ukendt"
	}

	lower := strings.ToLower(description)

	var foundGood, foundPoor []string
	for _, kw := range goodDescriptionKeywords {
		if strings.Contains(lower, kw.keyword) {
			foundGood = append(foundGood, kw.label)
		}
	}
	for _, kw := range poorDescriptionKeywords {
		if strings.Contains(lower, kw.keyword) {
			foundPoor = append(foundPoor, kw.label)
		}
	}

	switch {
	case len(foundGood) > len(foundPoor):
		score := 0.5 + float64(len(foundGood)-len(foundPoor))*0.1
		if score > 1 {
			score = 1
		}
		return score, foundGood[0]
	case len(foundPoor) > len(foundGood):
		score := 0.5 - float64(len(foundPoor)-len(foundGood))*0.1
		if score < 0 {
			score = 0
		}
		return score, foundPoor[0]
	case len(foundGood) > 0:
		// Tie: both sides matched equally, first good label wins.
		return 0.5, foundGood[0]
	default:
		return 0.5, "Almindelig"
	}
}
