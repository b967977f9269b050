package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Grand total status tags persisted next to the numeric total.
const (
	GrandTotalCalculated = "calculated"
	GrandTotalError      = "error"
)

// GrandTotal is the persisted result of summing section totals.
type GrandTotal struct {
	GrandTotal float64 `json:"grand_total"`
	Status     string  `json:"status"`
}

// Failed reports whether the total carries the error sentinel.
func (g GrandTotal) Failed() bool {
	return g.Status == GrandTotalError
}

// CalculateGrandTotal sums total_marks across the present sections. Absent
// sections are skipped. Any fault yields the {0, "error"} sentinel together
// with the cause so callers can log it and still persist the record.
func CalculateGrandTotal(sections map[Letter]Document) (result GrandTotal, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = GrandTotal{GrandTotal: 0, Status: GrandTotalError}
			err = fmt.Errorf("grand total panicked: %v", r)
		}
	}()

	var sum float64
	for _, letter := range Letters {
		doc, ok := sections[letter]
		if !ok || doc == nil {
			continue
		}
		value, err := numericField(doc, "total_marks")
		if err != nil {
			return GrandTotal{GrandTotal: 0, Status: GrandTotalError}, fmt.Errorf("section %s: %w", letter, err)
		}
		sum += value
	}
	return GrandTotal{GrandTotal: round2(sum), Status: GrandTotalCalculated}, nil
}

// CalculateVerifiedTotal sums section verified_marks, applying each section's ceiling.
func CalculateVerifiedTotal(sections map[Letter]Document) (float64, error) {
	var sum float64
	for _, letter := range Letters {
		doc, ok := sections[letter]
		if !ok || doc == nil {
			continue
		}
		value, err := numericField(doc, "verified_marks")
		if err != nil {
			return 0, fmt.Errorf("section %s: %w", letter, err)
		}
		sum += clampMax(sanitize(value), MaxMarks(letter))
	}
	return round2(sum), nil
}

// numericField reads a number from doc; a missing key counts as zero.
func numericField(doc Document, key string) (float64, error) {
	raw, ok := doc[key]
	if !ok || raw == nil {
		return 0, nil
	}
	var value float64
	switch typed := raw.(type) {
	case float64:
		value = typed
	case float32:
		value = float64(typed)
	case int:
		value = float64(typed)
	case int64:
		value = float64(typed)
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s is not numeric: %w", key, err)
		}
		value = parsed
	case string:
		parsed, err := strconv.ParseFloat(typed, 64)
		if err != nil {
			return 0, fmt.Errorf("%s is not numeric: %q", key, typed)
		}
		value = parsed
	default:
		return 0, fmt.Errorf("%s has unsupported type %T", key, raw)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%s is not finite", key)
	}
	return value, nil
}
