package dto

import (
	"time"

	"github.com/patil-rushikesh/FDW-backend/internal/models"
)

// CreateFacultyRequest onboards a faculty member.
type CreateFacultyRequest struct {
	ID          string          `json:"id" validate:"required,alphanum,max=32"`
	Name        string          `json:"name" validate:"required,max=120"`
	Email       string          `json:"email" validate:"required,email"`
	Phone       string          `json:"phone" validate:"omitempty,max=20"`
	Department  string          `json:"department" validate:"required"`
	Position    string          `json:"position" validate:"required,oneof='Assistant Professor' 'Associate Professor' 'Professor'"`
	Designation string          `json:"designation" validate:"required,max=60"`
	Role        models.UserRole `json:"role" validate:"omitempty,oneof=FACULTY HOD DEAN VERIFIER DIRECTOR ADMIN"`
}

// CreateFacultyResponse echoes the created account. The secret is only mailed.
type CreateFacultyResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Department  models.Department `json:"department"`
	Position    string            `json:"position"`
	Designation string            `json:"designation"`
	Role        models.UserRole   `json:"role"`
}

// VerifySectionRequest carries reviewer-entered marks keyed by category.
type VerifySectionRequest struct {
	VerifiedMarks map[string]float64 `json:"verified_marks" validate:"required,min=1,dive,gte=0"`
}

// TransitionRequest is the optional body of a workflow action.
type TransitionRequest struct {
	PortfolioMarks *float64 `json:"portfolio_marks" validate:"omitempty,gte=0,lte=100"`
}

// SendToDirectorRequest lists the faculty to forward.
type SendToDirectorRequest struct {
	FacultyIDs []string `json:"faculty_ids" validate:"required,min=1,dive,required"`
}

// RatingRequest is an interaction rating.
type RatingRequest struct {
	Marks    *float64 `json:"marks" validate:"required,gte=0,lte=100"`
	Comments string   `json:"comments" validate:"max=2000"`
}

// CommitteeRequest maps verifier ids to the faculty ids they review.
type CommitteeRequest struct {
	Members map[string][]string `json:"members" validate:"required,min=1,dive,dive,required"`
}

// ExternalAssignmentRequest maps external reviewer ids to the faculty ids they interview.
type ExternalAssignmentRequest struct {
	Assignments map[string][]string `json:"external_assignments" validate:"required,min=1,dive,dive,required"`
}

// CreateExternalRequest registers an external reviewer.
type CreateExternalRequest struct {
	Name           string `json:"name" validate:"required,max=120"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required,numeric,len=10"`
	Organization   string `json:"organization" validate:"required,max=160"`
	Designation    string `json:"designation" validate:"required,max=60"`
	Specialization string `json:"specialization" validate:"required,max=120"`
	Address        string `json:"address" validate:"max=300"`
}

// ReportResponse points at a rendered appraisal report.
type ReportResponse struct {
	FacultyID   string    `json:"faculty_id"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
	Regenerated bool      `json:"regenerated"`
}
