package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/patil-rushikesh/FDW-backend/internal/dto"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/scoring"
	"github.com/patil-rushikesh/FDW-backend/pkg/response"
)

type appraisalService interface {
	CreateFaculty(ctx context.Context, actor *models.JWTClaims, req dto.CreateFacultyRequest) (*dto.CreateFacultyResponse, error)
	ListFaculty(ctx context.Context, dept models.Department) ([]models.FacultySummary, error)
	GetSection(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID, rawLetter string) (*models.SectionView, error)
	SubmitSection(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID, rawLetter string, payload scoring.Document) (*models.SectionView, error)
	VerifySection(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID, rawLetter string, req dto.VerifySectionRequest) (*models.SectionView, error)
	Totals(ctx context.Context, dept models.Department, facultyID string) (*models.TotalsView, error)
}

// AppraisalHandler serves faculty onboarding and appraisal sections.
type AppraisalHandler struct {
	service appraisalService
}

// NewAppraisalHandler constructs the handler.
func NewAppraisalHandler(svc appraisalService) *AppraisalHandler {
	return &AppraisalHandler{service: svc}
}

// CreateFaculty godoc
// @Summary Onboard faculty
// @Description Creates the user, an empty appraisal record and the roster entry, then mails credentials
// @Tags Faculty
// @Accept json
// @Produce json
// @Param payload body dto.CreateFacultyRequest true "Faculty payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /faculty [post]
func (h *AppraisalHandler) CreateFaculty(c *gin.Context) {
	var req dto.CreateFacultyRequest
	if !bindJSON(c, &req, "invalid faculty payload") {
		return
	}
	res, err := h.service.CreateFaculty(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// ListFaculty godoc
// @Summary Department roster
// @Tags Faculty
// @Produce json
// @Param dept path string true "Department"
// @Success 200 {object} response.Envelope
// @Router /departments/{dept}/faculty [get]
func (h *AppraisalHandler) ListFaculty(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	list, err := h.service.ListFaculty(c.Request.Context(), dept)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, map[string]interface{}{"total": len(list)})
}

// GetSection godoc
// @Summary Read an appraisal section
// @Tags Appraisals
// @Produce json
// @Param dept path string true "Department"
// @Param id path string true "Faculty ID"
// @Param section path string true "Section letter A-E"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appraisals/{dept}/{id}/sections/{section} [get]
func (h *AppraisalHandler) GetSection(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	view, err := h.service.GetSection(c.Request.Context(), claimsFromContext(c), dept, c.Param("id"), c.Param("section"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// SubmitSection godoc
// @Summary Submit an appraisal section
// @Description Merges the payload over the stored section and recomputes marks and totals
// @Tags Appraisals
// @Accept json
// @Produce json
// @Param dept path string true "Department"
// @Param id path string true "Faculty ID"
// @Param section path string true "Section letter A-E"
// @Param payload body object true "Section document"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appraisals/{dept}/{id}/sections/{section} [put]
func (h *AppraisalHandler) SubmitSection(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	var payload scoring.Document
	if !bindJSON(c, &payload, "invalid section payload") {
		return
	}
	view, err := h.service.SubmitSection(c.Request.Context(), claimsFromContext(c), dept, c.Param("id"), c.Param("section"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// VerifySection godoc
// @Summary Record verified marks
// @Tags Appraisals
// @Accept json
// @Produce json
// @Param dept path string true "Department"
// @Param id path string true "Faculty ID"
// @Param section path string true "Section letter A-E"
// @Param payload body dto.VerifySectionRequest true "Verified marks"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appraisals/{dept}/{id}/sections/{section}/verify [post]
func (h *AppraisalHandler) VerifySection(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	var req dto.VerifySectionRequest
	if !bindJSON(c, &req, "invalid verification payload") {
		return
	}
	view, err := h.service.VerifySection(c.Request.Context(), claimsFromContext(c), dept, c.Param("id"), c.Param("section"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Totals godoc
// @Summary Section and grand totals
// @Tags Appraisals
// @Produce json
// @Param dept path string true "Department"
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{dept}/{id}/totals [get]
func (h *AppraisalHandler) Totals(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	totals, err := h.service.Totals(c.Request.Context(), dept, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, totals)
}
