package scoring

import "errors"

var (
	// ErrUnknownSection is returned for section letters outside A to E.
	ErrUnknownSection = errors.New("unknown section")
	// ErrMalformedSection is returned when a section payload cannot be decoded into its typed record.
	ErrMalformedSection = errors.New("malformed section payload")
	// ErrUnknownCategory is returned when verified marks reference a category the section lacks.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInvalidMarks is returned for negative or non-finite reviewer marks.
	ErrInvalidMarks = errors.New("invalid marks")
	// ErrUnknownPosition is returned when no normalization divisor exists for an academic position.
	ErrUnknownPosition = errors.New("unknown academic position")
)
