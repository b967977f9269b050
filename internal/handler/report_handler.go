package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/patil-rushikesh/FDW-backend/internal/dto"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/pkg/response"
)

type finalScoreService interface {
	FacultyFinalScore(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID string) (*models.FacultyFinalScore, error)
	DepartmentFinalScores(ctx context.Context, actor *models.JWTClaims, dept models.Department) (*models.DepartmentFinalScores, error)
	ExportDepartment(ctx context.Context, actor *models.JWTClaims, dept models.Department, format string) (*models.ExportFile, error)
}

type reportService interface {
	Generate(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID string) (*dto.ReportResponse, error)
	Fields(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID, format string) (map[string]string, *models.ExportFile, error)
	Download(ctx context.Context, token string) (*models.ExportFile, error)
}

// ReportHandler exposes final scores and appraisal reports.
type ReportHandler struct {
	scores  finalScoreService
	reports reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(scores finalScoreService, reports reportService) *ReportHandler {
	return &ReportHandler{scores: scores, reports: reports}
}

// FacultyFinalScore godoc
// @Summary Final score of a faculty member
// @Tags Reports
// @Produce json
// @Param dept path string true "Department"
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{dept}/{id}/final-score [get]
func (h *ReportHandler) FacultyFinalScore(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	score, err := h.scores.FacultyFinalScore(c.Request.Context(), claimsFromContext(c), dept, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score)
}

// DepartmentFinalScores godoc
// @Summary Department final scores
// @Description Faculty past verification with final scores and review counters
// @Tags Reports
// @Produce json
// @Param dept path string true "Department"
// @Success 200 {object} response.Envelope
// @Router /departments/{dept}/final-scores [get]
func (h *ReportHandler) DepartmentFinalScores(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	listing, err := h.scores.DepartmentFinalScores(c.Request.Context(), claimsFromContext(c), dept)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing)
}

// ExportFinalScores godoc
// @Summary Export department final scores
// @Tags Reports
// @Produce octet-stream
// @Param dept path string true "Department"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /departments/{dept}/final-scores/export [get]
func (h *ReportHandler) ExportFinalScores(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	file, err := h.scores.ExportDepartment(c.Request.Context(), claimsFromContext(c), dept, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

// GenerateReport godoc
// @Summary Appraisal report link
// @Description Renders the PDF when missing or stale and returns a signed download URL
// @Tags Reports
// @Produce json
// @Param dept path string true "Department"
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{dept}/{id}/report [post]
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	res, err := h.reports.Generate(c.Request.Context(), claimsFromContext(c), dept, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// ReportFields godoc
// @Summary Appraisal report field map
// @Tags Reports
// @Produce json
// @Param dept path string true "Department"
// @Param id path string true "Faculty ID"
// @Param format query string false "csv to download the filled report as CSV"
// @Success 200 {object} response.Envelope
// @Router /appraisals/{dept}/{id}/report/fields [get]
func (h *ReportHandler) ReportFields(c *gin.Context) {
	dept, ok := departmentParam(c)
	if !ok {
		return
	}
	fields, file, err := h.reports.Fields(c.Request.Context(), claimsFromContext(c), dept, c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if file != nil {
		response.Attachment(c, file.Filename, file.ContentType, file.Content)
		return
	}
	response.JSON(c, http.StatusOK, fields)
}

// DownloadReport godoc
// @Summary Download a rendered report
// @Tags Reports
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	file, err := h.reports.Download(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
