package models

import (
	"github.com/patil-rushikesh/FDW-backend/internal/interaction"
	"github.com/patil-rushikesh/FDW-backend/internal/scoring"
	"github.com/patil-rushikesh/FDW-backend/internal/workflow"
)

// FacultyFinalScore is the reportable composite of one faculty member.
type FacultyFinalScore struct {
	FacultyID            string                      `json:"faculty_id"`
	Name                 string                      `json:"name"`
	Department           Department                  `json:"department"`
	Designation          string                      `json:"designation"`
	Status               workflow.Status             `json:"status"`
	Interaction          interaction.Summary         `json:"interaction"`
	Breakdown            scoring.FinalScoreBreakdown `json:"breakdown"`
	MissingVerifiedMarks bool                        `json:"missing_verified_marks"`
}

// DepartmentFinalScores is the department listing with summary counters.
type DepartmentFinalScores struct {
	Department Department          `json:"department"`
	Faculty    []FacultyFinalScore `json:"faculty"`
	Summary    FinalScoreSummary   `json:"summary"`
}

// FinalScoreSummary counts review progress across a department.
type FinalScoreSummary struct {
	TotalFaculty          int `json:"total_faculty"`
	TotalReviewed         int `json:"total_reviewed"`
	PartiallyReviewed     int `json:"partially_reviewed"`
	NotReviewed           int `json:"not_reviewed"`
	FinalMarksCalculated  int `json:"final_marks_calculated"`
	MissingVerifiedMarks  int `json:"missing_verified_marks"`
	DesignationBonusGiven int `json:"designation_bonus_given"`
	MarksCapped           int `json:"marks_capped"`
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
