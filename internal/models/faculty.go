package models

import (
	"time"

	"github.com/patil-rushikesh/FDW-backend/internal/interaction"
	"github.com/patil-rushikesh/FDW-backend/internal/scoring"
	"github.com/patil-rushikesh/FDW-backend/internal/workflow"
)

// Document ids shared by every department namespace.
const (
	DocRoster              = "roster"
	DocVerificationTeam    = "verification_team"
	DocExternals           = "externals"
	DocExternalAssignments = "externals_assignments"
)

// FacultyRecord is the appraisal document of one faculty member.
type FacultyRecord struct {
	ID                 string                              `json:"_id"`
	Name               string                              `json:"name"`
	Department         Department                          `json:"department"`
	Sections           map[scoring.Letter]scoring.Document `json:"sections"`
	GrandTotal         scoring.GrandTotal                  `json:"grand_total"`
	GrandVerifiedMarks float64                             `json:"grand_verified_marks"`
	Status             workflow.Status                     `json:"status"`
	Portfolio          PortfolioMarks                      `json:"portfolio"`
	Interaction        interaction.Marks                   `json:"interaction"`
	IsUpdated          bool                                `json:"isUpdated"`
	Documents          GeneratedDocuments                  `json:"documents"`
	CreatedAt          time.Time                           `json:"created_at"`
	UpdatedAt          time.Time                           `json:"updated_at"`

	// Version is the store version the record was read at.
	Version int64 `json:"-"`
}

// PortfolioMarks are recorded by the HOD and Dean portfolio steps.
type PortfolioMarks struct {
	HODMarks  *float64 `json:"hod_marks,omitempty"`
	DeanMarks *float64 `json:"dean_marks,omitempty"`
}

// GeneratedDocuments tracks the rendered report of a record.
type GeneratedDocuments struct {
	PDF         string     `json:"pdf,omitempty"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}

// Roster maps faculty ids to names for a department.
type Roster map[string]string

// FacultySummary is a roster listing row.
type FacultySummary struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Status             workflow.Status `json:"status"`
	GrandTotal         float64         `json:"grand_total"`
	GrandTotalStatus   string          `json:"grand_total_status"`
	GrandVerifiedMarks float64         `json:"grand_verified_marks"`
}

// SectionView is returned by section reads and writes.
type SectionView struct {
	FacultyID          string             `json:"faculty_id"`
	Section            scoring.Letter     `json:"section"`
	Title              string             `json:"title"`
	Document           scoring.Document   `json:"document"`
	TotalMarks         float64            `json:"total_marks"`
	VerifiedMarks      float64            `json:"verified_marks"`
	GrandTotal         scoring.GrandTotal `json:"grand_total"`
	GrandVerifiedMarks float64            `json:"grand_verified_marks"`
}

// TotalsView reports the grand totals of a record.
type TotalsView struct {
	FacultyID          string                                   `json:"faculty_id"`
	Sections           map[scoring.Letter]scoring.SectionTotals `json:"sections"`
	GrandTotal         scoring.GrandTotal                       `json:"grand_total"`
	GrandVerifiedMarks float64                                  `json:"grand_verified_marks"`
	SectionANormalized *float64                                 `json:"section_a_normalized,omitempty"`
	NormalizationError string                                   `json:"normalization_error,omitempty"`
	Status             workflow.Status                          `json:"status"`
}

// TransitionResult reports the outcome of a workflow action.
type TransitionResult struct {
	FacultyID string          `json:"faculty_id"`
	Action    workflow.Action `json:"action"`
	From      workflow.Status `json:"from"`
	To        workflow.Status `json:"to"`
}

// BulkTransitionResult reports a bulk send to the director.
type BulkTransitionResult struct {
	SuccessfulIDs []string `json:"successful_ids"`
	SkippedIDs    []string `json:"skipped_ids"`
}

// InteractionResult is returned after a rating is recorded.
type InteractionResult struct {
	FacultyID string              `json:"faculty_id"`
	Completed bool                `json:"completed"`
	Status    workflow.Status     `json:"status"`
	Summary   interaction.Summary `json:"summary"`
}
