package models

import (
	"time"

	"github.com/patil-rushikesh/FDW-backend/internal/workflow"
)

// VerificationTeam maps verifier ids to their assigned faculty.
type VerificationTeam map[string]VerifierAssignment

// VerifierAssignment lists the faculty a verifier reviews.
type VerifierAssignment struct {
	Name    string            `json:"name"`
	Faculty []AssignedFaculty `json:"faculty"`
}

// AssignedFaculty is one entry of a verifier's list.
type AssignedFaculty struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	IsApproved bool   `json:"isApproved"`
}

// AssignedFacultyStatus joins an assignment with the live record status.
type AssignedFacultyStatus struct {
	ID         string          `json:"_id"`
	Name       string          `json:"name"`
	IsApproved bool            `json:"isApproved"`
	Status     workflow.Status `json:"status"`
}

// ExternalReviewer is an interaction rater from outside the institute.
type ExternalReviewer struct {
	ID             string     `json:"_id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Organization   string     `json:"organization"`
	Designation    string     `json:"designation"`
	Specialization string     `json:"specialization"`
	Address        string     `json:"address,omitempty"`
	Department     Department `json:"department"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ExternalAssignments maps external reviewer ids to the faculty they interview.
type ExternalAssignments map[string]ExternalAssignment

// ExternalAssignment is one reviewer's interview list.
type ExternalAssignment struct {
	Reviewer ExternalReviewer `json:"reviewer_info"`
	Faculty  []AssignedReview `json:"assigned_faculty"`
}

// AssignedReview tracks whether an external has rated an assigned faculty member.
type AssignedReview struct {
	ID         string  `json:"_id"`
	Name       string  `json:"name"`
	IsReviewed bool    `json:"isReviewed"`
	TotalMarks float64 `json:"total_marks"`
	Comments   string  `json:"comments,omitempty"`
}

// Review returns the index of facultyID in the reviewer's list, or -1.
func (a ExternalAssignment) Review(facultyID string) int {
	for i, entry := range a.Faculty {
		if entry.ID == facultyID {
			return i
		}
	}
	return -1
}

// VerifierWorkload lists a verifier's assigned faculty across departments.
type VerifierWorkload struct {
	VerifierID string                                 `json:"_id"`
	Name       string                                 `json:"name"`
	Assigned   map[Department][]AssignedFacultyStatus `json:"assigned_faculties"`
}
