package scoring

import (
	"fmt"
	"math"
)

// Defaults returns the zero-valued skeleton of a section.
func Defaults(letter Letter) (Document, error) {
	section, err := New(letter)
	if err != nil {
		return nil, err
	}
	return toDocument(section)
}

// Skeleton returns zero-valued documents for all five sections keyed by letter.
func Skeleton() (map[Letter]Document, error) {
	out := make(map[Letter]Document, len(Letters))
	for _, letter := range Letters {
		doc, err := Defaults(letter)
		if err != nil {
			return nil, err
		}
		out[letter] = doc
	}
	return out, nil
}

// Decode merges doc with the section defaults and decodes the typed record.
func Decode(letter Letter, doc Document) (Section, error) {
	defaults, err := Defaults(letter)
	if err != nil {
		return nil, err
	}
	section, _ := New(letter)
	if err := fromDocument(Merge(defaults, doc), section); err != nil {
		return nil, err
	}
	return section, nil
}

// Submit applies a faculty submission to a stored section. The incoming
// payload is merged with defaults, marks are recalculated, and verified
// marks are carried over from the stored section untouched. Extra keys in
// either document are preserved.
func Submit(letter Letter, stored, incoming Document) (Document, SectionTotals, error) {
	if incoming == nil {
		return nil, SectionTotals{}, fmt.Errorf("%w: section %s payload is empty", ErrMalformedSection, letter)
	}
	defaults, err := Defaults(letter)
	if err != nil {
		return nil, SectionTotals{}, err
	}

	previous, err := Decode(letter, stored)
	if err != nil {
		// a corrupted stored section cannot contribute verified marks
		previous, _ = New(letter)
	}

	merged := Merge(defaults, incoming)
	section, _ := New(letter)
	if err := fromDocument(merged, section); err != nil {
		return nil, SectionTotals{}, err
	}

	prevRefs := previous.categories()
	for i, ref := range section.categories() {
		ref.cat.VerifiedMarks = prevRefs[i].cat.VerifiedMarks
	}

	totals := Calculate(section)
	computed, err := toDocument(section)
	if err != nil {
		return nil, SectionTotals{}, err
	}
	return Overlay(merged, computed), totals, nil
}

// Verify records reviewer-entered marks for the listed categories of a stored
// section and recomputes its totals. Claimed marks are left as calculated.
func Verify(letter Letter, stored Document, verified map[string]float64) (Document, SectionTotals, error) {
	section, err := Decode(letter, stored)
	if err != nil {
		return nil, SectionTotals{}, err
	}

	refs := make(map[string]categoryRef)
	for _, ref := range section.categories() {
		refs[ref.key] = ref
	}
	for _, key := range sortedKeys(verified) {
		value := verified[key]
		ref, ok := refs[key]
		if !ok {
			return nil, SectionTotals{}, fmt.Errorf("%w: %s.%s", ErrUnknownCategory, letter, key)
		}
		if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, SectionTotals{}, fmt.Errorf("%w: %s.%s=%v", ErrInvalidMarks, letter, key, value)
		}
		ref.cat.VerifiedMarks = value
	}

	totals := Calculate(section)
	computed, err := toDocument(section)
	if err != nil {
		return nil, SectionTotals{}, err
	}
	defaults, _ := Defaults(letter)
	return Overlay(Merge(defaults, stored), computed), totals, nil
}
