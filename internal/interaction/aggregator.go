package interaction

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Role identifies one of the interaction rating slots.
type Role string

const (
	RoleExternal Role = "external"
	RoleDean     Role = "dean"
	RoleHOD      Role = "hod"
)

// Review status values stored beside the rating slots.
const (
	ReviewPending   = "pending"
	ReviewCompleted = "completed"
)

// MaxMarks is the top of the interaction rating scale.
const MaxMarks = 100

var (
	ErrUnknownRole  = errors.New("unknown interaction rater role")
	ErrInvalidMarks = errors.New("interaction marks must be between 0 and 100")
	ErrMissingRater = errors.New("rater id is required")
)

// DefaultRequired lists the raters that complete a review when none are configured.
var DefaultRequired = []Role{RoleExternal, RoleDean, RoleHOD}

// ParseRole resolves a rater role; "authority" is accepted for the HOD slot.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "external":
		return RoleExternal, nil
	case "dean":
		return RoleDean, nil
	case "hod", "authority":
		return RoleHOD, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
}

// ParseRoles resolves a configured list, falling back to DefaultRequired when empty.
func ParseRoles(raw []string) ([]Role, error) {
	if len(raw) == 0 {
		return append([]Role(nil), DefaultRequired...), nil
	}
	roles := make([]Role, 0, len(raw))
	for _, item := range raw {
		role, err := ParseRole(item)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// Rating is one rater's submission.
type Rating struct {
	RaterID     string    `json:"rater_id"`
	Marks       float64   `json:"marks"`
	Comments    string    `json:"comments"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Marks is the persisted interaction sub-document of a faculty record.
type Marks struct {
	External     *Rating `json:"external_marks,omitempty"`
	Dean         *Rating `json:"dean_marks,omitempty"`
	HOD          *Rating `json:"hod_marks,omitempty"`
	ReviewStatus string  `json:"review_status"`
}

func (m *Marks) slot(role Role) **Rating {
	switch role {
	case RoleExternal:
		return &m.External
	case RoleDean:
		return &m.Dean
	case RoleHOD:
		return &m.HOD
	default:
		return nil
	}
}

// Summary is the read model of an interaction review.
type Summary struct {
	Ratings      map[Role]Rating `json:"ratings"`
	Average      float64         `json:"average"`
	TotalReviews int             `json:"total_reviews"`
	ReviewStatus string          `json:"review_status"`
	Missing      []Role          `json:"missing"`
}

// Aggregator holds the rating slots of one faculty member and detects completion.
type Aggregator struct {
	required []Role
	marks    Marks
}

// NewAggregator wraps persisted marks. A nil required list uses DefaultRequired.
func NewAggregator(marks Marks, required []Role) *Aggregator {
	if len(required) == 0 {
		required = DefaultRequired
	}
	if marks.ReviewStatus == "" {
		marks.ReviewStatus = ReviewPending
	}
	return &Aggregator{required: required, marks: marks}
}

// Submit upserts the rating for role and reports whether this call completed
// the review. Completion fires once: later resubmissions return false.
func (a *Aggregator) Submit(role Role, rating Rating) (bool, error) {
	slot := a.marks.slot(role)
	if slot == nil {
		return false, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if strings.TrimSpace(rating.RaterID) == "" {
		return false, ErrMissingRater
	}
	if math.IsNaN(rating.Marks) || rating.Marks < 0 || rating.Marks > MaxMarks {
		return false, fmt.Errorf("%w: got %v", ErrInvalidMarks, rating.Marks)
	}

	wasComplete := a.marks.ReviewStatus == ReviewCompleted
	stored := rating
	*slot = &stored

	if a.Completion() {
		a.marks.ReviewStatus = ReviewCompleted
		return !wasComplete, nil
	}
	a.marks.ReviewStatus = ReviewPending
	return false, nil
}

// Completion reports whether every required rater has marks.
func (a *Aggregator) Completion() bool {
	for _, role := range a.required {
		if slot := a.marks.slot(role); slot == nil || *slot == nil {
			return false
		}
	}
	return true
}

// Values returns the present marks in slot order.
func (a *Aggregator) Values() []float64 {
	var values []float64
	for _, role := range DefaultRequired {
		if rating := *a.marks.slot(role); rating != nil {
			values = append(values, rating.Marks)
		}
	}
	return values
}

// Summary averages whatever ratings are present.
func (a *Aggregator) Summary() Summary {
	summary := Summary{
		Ratings:      make(map[Role]Rating),
		ReviewStatus: a.marks.ReviewStatus,
	}
	var sum float64
	for _, role := range DefaultRequired {
		rating := *a.marks.slot(role)
		if rating == nil {
			continue
		}
		summary.Ratings[role] = *rating
		sum += rating.Marks
		summary.TotalReviews++
	}
	for _, role := range a.required {
		if *a.marks.slot(role) == nil {
			summary.Missing = append(summary.Missing, role)
		}
	}
	if summary.TotalReviews > 0 {
		summary.Average = math.Round(sum/float64(summary.TotalReviews)*100) / 100
	}
	return summary
}

// State returns the marks to persist.
func (a *Aggregator) State() Marks {
	return a.marks
}
