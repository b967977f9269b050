package scoring

import (
	"fmt"
	"math"
	"strings"
)

// Policy holds the business constants of the final composite score.
type Policy struct {
	VerifiedWeight    float64
	InteractionWeight float64
	InteractionScale  float64
	Ceiling           float64
	DesignationBonus  map[string]float64
}

// DefaultPolicy is the 85/15 blend capped at 1000.
func DefaultPolicy() Policy {
	return Policy{
		VerifiedWeight:    850,
		InteractionWeight: 150,
		InteractionScale:  100,
		Ceiling:           1000,
		DesignationBonus: map[string]float64{
			"HOD":            100,
			"Dean":           100,
			"Associate Dean": 50,
		},
	}
}

// Validate rejects policies that would divide by zero or exceed the ceiling.
func (p Policy) Validate() error {
	if p.Ceiling <= 0 {
		return fmt.Errorf("ceiling must be positive")
	}
	if p.InteractionScale <= 0 {
		return fmt.Errorf("interaction scale must be positive")
	}
	if p.VerifiedWeight < 0 || p.InteractionWeight < 0 {
		return fmt.Errorf("weights must not be negative")
	}
	if p.VerifiedWeight+p.InteractionWeight > p.Ceiling {
		return fmt.Errorf("weights %.2f + %.2f exceed ceiling %.2f", p.VerifiedWeight, p.InteractionWeight, p.Ceiling)
	}
	return nil
}

// Bonus returns the fixed designation bonus; unknown designations earn nothing.
func (p Policy) Bonus(designation string) float64 {
	needle := strings.TrimSpace(designation)
	for name, bonus := range p.DesignationBonus {
		if strings.EqualFold(name, needle) {
			return bonus
		}
	}
	return 0
}

// FinalScoreBreakdown exposes every intermediate value of the composition.
type FinalScoreBreakdown struct {
	VerifiedMarks     float64 `json:"verified_marks"`
	ExtraMarks        float64 `json:"extra_marks_for_designation"`
	VerifiedWithBonus float64 `json:"verified_marks_with_bonus"`
	CappedVerified    float64 `json:"capped_verified_marks"`
	ScaledVerified    float64 `json:"scaled_verified_marks"`
	InteractionAvg    float64 `json:"interaction_avg"`
	ScaledInteraction float64 `json:"scaled_interaction_marks"`
	CalculatedTotal   float64 `json:"calculated_total"`
	TotalMarks        float64 `json:"total_marks"`
	IsCapped          bool    `json:"is_capped"`
}

// ComposeFinalScore blends verified marks with the interaction average.
// Reported values are rounded to two decimals; arithmetic runs unrounded.
func ComposeFinalScore(verifiedMarks float64, designation string, interactionMarks []float64, policy Policy) FinalScoreBreakdown {
	verifiedMarks = sanitize(verifiedMarks)
	extra := policy.Bonus(designation)
	withBonus := verifiedMarks + extra
	capped := clampMax(withBonus, policy.Ceiling)
	scaledVerified := capped / policy.Ceiling * policy.VerifiedWeight

	avg := Mean(interactionMarks)
	scaledInteraction := avg / policy.InteractionScale * policy.InteractionWeight

	calculated := scaledVerified + scaledInteraction
	total := clampMax(calculated, policy.Ceiling)

	return FinalScoreBreakdown{
		VerifiedMarks:     round2(verifiedMarks),
		ExtraMarks:        round2(extra),
		VerifiedWithBonus: round2(withBonus),
		CappedVerified:    round2(capped),
		ScaledVerified:    round2(scaledVerified),
		InteractionAvg:    round2(avg),
		ScaledInteraction: round2(scaledInteraction),
		CalculatedTotal:   round2(calculated),
		TotalMarks:        round2(total),
		IsCapped:          round2(total) >= policy.Ceiling,
	}
}

// Mean averages the finite non-negative values and skips the rest. A list
// with nothing to average yields zero.
func Mean(values []float64) float64 {
	var sum float64
	var n int
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

var positionDivisors = map[string]float64{
	"assistant professor": 1.0,
	"associate professor": 18.0 / 22.0,
	"professor":           15.0 / 22.0,
}

// NormalizeForPosition scales a section A total by the teaching load divisor
// of an academic position so marks compare across ranks.
func NormalizeForPosition(total float64, position string) (float64, error) {
	divisor, ok := positionDivisors[strings.ToLower(strings.TrimSpace(position))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPosition, position)
	}
	return round2(total / divisor), nil
}
