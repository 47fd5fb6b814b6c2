package engine

import (
	"regexp"
	"sort"
	"strings"
)

// Estimator is the external base-polarity capability: given raw text it
// returns polarity in [-1,1] and subjectivity in [0,1].
type Estimator interface {
	Estimate(text string) (polarity, subjectivity float64, err error)
}

// Category is one of eight ordered sentiment bands.
type Category string

const (
	CategoryGigaBullish     Category = "GIGA BULLISH"
	CategoryBullish         Category = "BULLISH"
	CategorySlightlyBullish Category = "SLIGHTLY BULLISH"
	CategoryNeutral         Category = "NEUTRAL"
	CategorySlightlyBearish Category = "SLIGHTLY BEARISH"
	CategoryBearish         Category = "BEARISH"
	CategoryFUD             Category = "FUD DETECTED"
)

// Result is the full per-message sentiment breakdown. Produced fresh on every
// Analyze call; never stored by the scorer.
type Result struct {
	Polarity     float64  `json:"polarity"`
	Subjectivity float64  `json:"subjectivity"`
	BaseScore    float64  `json:"base_sentiment"`
	EmojiImpact  float64  `json:"emoji_impact"`
	LexiconHit   bool     `json:"has_custom_keywords"`
	Category     Category `json:"sentiment_category"`
}

const (
	baseBoost        = 1.2
	questionDiscount = 0.5
	capsMultiplier   = 1.1
)

var capsWordRe = regexp.MustCompile(`\b[A-Z]{2,}\b`)

// weightedTerm is one lexicon entry in iteration order.
type weightedTerm struct {
	term   string
	weight float64
}

// sortedTerms fixes a lexicon's iteration order so float accumulation is
// identical across calls.
func sortedTerms(m map[string]float64) []weightedTerm {
	out := make([]weightedTerm, 0, len(m))
	for term, weight := range m {
		out = append(out, weightedTerm{term: term, weight: weight})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].term < out[j].term })
	return out
}

// Scorer computes sentiment for a message: external base polarity plus five
// custom lexicons and emoji weights, with diminishing-returns adjustment.
// Stateless across calls apart from its static tables.
type Scorer struct {
	estimator Estimator
	lexicons  [][]weightedTerm
	emoji     []weightedTerm
	questions map[string]struct{}
}

// NewScorer builds a Scorer around the given base estimator. Question
// indicators come from cfg; the modifier lexicons are fixed.
func NewScorer(estimator Estimator, cfg Config) *Scorer {
	questions := make(map[string]struct{}, len(cfg.QuestionIndicators))
	for _, w := range cfg.QuestionIndicators {
		questions[w] = struct{}{}
	}
	return &Scorer{
		estimator: estimator,
		lexicons: [][]weightedTerm{
			sortedTerms(statusModifiers),
			sortedTerms(projectModifiers),
			sortedTerms(communityModifiers),
			sortedTerms(marketModifiers),
			sortedTerms(criticismModifiers),
		},
		emoji:     sortedTerms(emojiSentiment),
		questions: questions,
	}
}

// Analyze scores a message. Errors come only from the base estimator; the
// caller (Policy) absorbs them into an error decision.
func (s *Scorer) Analyze(msg *Message) (Result, error) {
	basePolarity, subjectivity, err := s.estimator.Estimate(msg.Content)
	if err != nil {
		return Result{}, err
	}
	base := basePolarity * baseBoost
	adjusted := base

	textLower := strings.ToLower(msg.Content)
	words := strings.Fields(textLower)

	// Substring matching is intentional here: modifiers are soft signals,
	// unlike the whole-word keyword detector.
	var modifiers []float64
	for _, lexicon := range s.lexicons {
		for _, entry := range lexicon {
			if strings.Contains(textLower, entry.term) {
				modifiers = append(modifiers, entry.weight)
			}
		}
	}

	if len(modifiers) > 0 {
		var sum float64
		for _, m := range modifiers {
			sum += m
		}
		avg := sum / float64(len(modifiers))
		if avg > 0.1 || avg < -0.1 {
			adjusted = adjustSentiment(adjusted, avg)
		}
	}

	var emojiImpact float64
	for _, entry := range s.emoji {
		count := strings.Count(msg.Content, entry.term)
		if count > 2 {
			count = 2
		}
		emojiImpact += entry.weight * float64(count) * 0.3
	}
	if emojiImpact != 0 {
		adjusted = adjustSentiment(adjusted, emojiImpact)
	}

	if s.isQuestion(msg.Content, words) {
		adjusted *= questionDiscount
	}

	if capsWordRe.MatchString(msg.Content) {
		adjusted *= capsMultiplier
	}

	final := clampPolarity(adjusted)

	return Result{
		Polarity:     final,
		Subjectivity: subjectivity,
		BaseScore:    base,
		EmojiImpact:  emojiImpact,
		LexiconHit:   len(modifiers) > 0,
		Category:     Categorize(final),
	}, nil
}

func (s *Scorer) isQuestion(content string, words []string) bool {
	if strings.Contains(content, "?") {
		return true
	}
	for _, w := range words {
		if _, ok := s.questions[w]; ok {
			return true
		}
	}
	return false
}

// adjustSentiment applies a modifier with diminishing returns: positive
// modifiers pull toward +1 proportionally to the remaining headroom, negative
// ones toward -1. A single adjustment never overshoots either bound.
func adjustSentiment(current, modifier float64) float64 {
	if modifier > 0 {
		return current + (1-current)*modifier*0.4
	}
	return current + (current+1)*modifier*0.5
}

// Categorize maps a final polarity onto the eight bands.
func Categorize(polarity float64) Category {
	switch {
	case polarity >= 0.6:
		return CategoryGigaBullish
	case polarity >= 0.3:
		return CategoryBullish
	case polarity >= 0.1:
		return CategorySlightlyBullish
	case polarity > -0.1:
		return CategoryNeutral
	case polarity > -0.3:
		return CategorySlightlyBearish
	case polarity > -0.6:
		return CategoryBearish
	default:
		return CategoryFUD
	}
}

func clampPolarity(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Modifier lexicons. Values are signed adjustment strengths; matched terms are
// averaged before adjustment.
var (
	statusModifiers = map[string]float64{
		"working on":  0.3,
		"development": 0.3,
		"progress":    0.4,
		"update":      0.2,
		"integration": 0.3,
		"release":     0.3,
		"launching":   0.3,
		"delays":      -0.2,
		"delayed":     -0.2,
		"waiting":     -0.1,
	}

	projectModifiers = map[string]float64{
		"gigacheng":   0.3,
		"giga":        0.2,
		"cheng":       0.2,
		"alephium":    0.2,
		"alph":        0.2,
		"ayin":        0.2,
		"candyswap":   0.2,
		"chengverse":  0.3,
		"chenginator": 0.3,
	}

	communityModifiers = map[string]float64{
		"gm":    0.1,
		"ser":   0.1,
		"sers":  0.1,
		"fam":   0.2,
		"lfg":   0.3,
		"wagmi": 0.3,
	}

	marketModifiers = map[string]float64{
		"moon":       0.4,
		"pump":       0.3,
		"pumping":    0.3,
		"bullish":    0.4,
		"support":    0.3,
		"ath":        0.4,
		"accumulate": 0.2,
		"volume":     -0.2, // usually "need more volume"
		"liquidity":  -0.1, // usually "low liquidity"

		"dump":    -0.5,
		"dumping": -0.5,
		"bearish": -0.4,
		"dip":     -0.3,
		"down":    -0.3,
		"rough":   -0.3,
		"low":     -0.2,
	}

	criticismModifiers = map[string]float64{
		"dead":      -0.5,
		"inactive":  -0.4,
		"abandoned": -0.6,
		"rug":       -0.7,
		"rugpull":   -0.7,
		"scam":      -0.7,
		"fud":       -0.4,
		"worried":   -0.4,
		"concerned": -0.4,
		"issues":    -0.3,
		"broken":    -0.4,
		"bug":       -0.3,
		"delayed":   -0.3,
		"slow":      -0.3,
	}

	emojiSentiment = map[string]float64{
		"🚀": 0.2,
		"📈": 0.2,
		"💪": 0.1,
		"🔥": 0.2,
		"💎": 0.1,
		"👍": 0.1,
		"📉": -0.2,
		"😢": -0.1,
		"💀": -0.2,
	}
)
