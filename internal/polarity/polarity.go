// Package polarity provides the base natural-language polarity capability
// consumed by the sentiment scorer. The VADER implementation is the default;
// the engine only sees the Estimator interface.
package polarity

import (
	"github.com/grassmudhorses/vader-go/lexicon"
	"github.com/grassmudhorses/vader-go/sentitext"
)

// Vader estimates polarity with the VADER rule-based model. Stateless and
// safe for concurrent use.
type Vader struct{}

// NewVader returns a ready estimator.
func NewVader() *Vader {
	return &Vader{}
}

// Estimate returns the compound polarity in [-1,1] and a subjectivity proxy
// in [0,1]. VADER has no native subjectivity figure; the opinion-bearing
// fraction (everything that is not neutral) stands in for it.
func (v *Vader) Estimate(text string) (float64, float64, error) {
	parsed := sentitext.Parse(text, lexicon.DefaultLexicon)
	score := sentitext.PolarityScore(parsed)

	subjectivity := 1 - score.Neutral
	if subjectivity < 0 {
		subjectivity = 0
	}
	if subjectivity > 1 {
		subjectivity = 1
	}
	return score.Compound, subjectivity, nil
}
