package scoring

import "math"

// RuleKind identifies how a category converts raw input into marks.
type RuleKind int

const (
	// KindPerUnit awards count x rate.
	KindPerUnit RuleKind = iota
	// KindAmountThreshold awards floor(amount / threshold) x rate.
	KindAmountThreshold
	// KindCitationTier awards floor(count / 3) x rate.
	KindCitationTier
)

// citationsPerTier is the number of citations that earn one rate increment.
const citationsPerTier = 3

// Rule is the rate table entry for a single category.
type Rule struct {
	Kind      RuleKind
	Rate      float64
	Threshold float64
	// Cap limits the category marks when positive.
	Cap float64
}

func perUnit(rate float64) Rule {
	return Rule{Kind: KindPerUnit, Rate: rate}
}

func perThreshold(threshold, rate float64) Rule {
	return Rule{Kind: KindAmountThreshold, Rate: rate, Threshold: threshold}
}

func perCitationTier(rate float64) Rule {
	return Rule{Kind: KindCitationTier, Rate: rate}
}

func (r Rule) capped(limit float64) Rule {
	r.Cap = limit
	return r
}

// Apply computes the marks earned for the given raw count and amount.
// Negative or non-finite inputs earn nothing.
func (r Rule) Apply(count, amount float64) float64 {
	count = sanitize(count)
	amount = sanitize(amount)

	var marks float64
	switch r.Kind {
	case KindPerUnit:
		marks = count * r.Rate
	case KindAmountThreshold:
		if r.Threshold <= 0 {
			return 0
		}
		marks = math.Floor(amount/r.Threshold) * r.Rate
	case KindCitationTier:
		marks = math.Floor(count/citationsPerTier) * r.Rate
	}

	if r.Cap > 0 && marks > r.Cap {
		marks = r.Cap
	}
	return round2(marks)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
