package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/patil-rushikesh/FDW-backend/internal/middleware"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
)

// Handlers groups every HTTP handler mounted by Register.
type Handlers struct {
	Auth      *AuthHandler
	Appraisal *AppraisalHandler
	Workflow  *WorkflowHandler
	Report    *ReportHandler
	Reviewer  *ReviewerHandler
	Metrics   *MetricsHandler
}

// Register mounts the API under prefix. authenticate guards every route
// except login, signed report downloads, health and metrics.
func Register(r *gin.Engine, prefix string, authenticate gin.HandlerFunc, h Handlers) {
	api := r.Group(prefix)

	api.GET("/health", h.Metrics.Health)
	api.GET("/metrics", h.Metrics.Prometheus)
	api.POST("/auth/login", h.Auth.Login)
	api.GET("/reports/download/:token", h.Report.DownloadReport)

	secured := api.Group("")
	secured.Use(authenticate)

	admin := middleware.RequireRoles(models.RoleAdmin)
	reviewers := middleware.RequireRoles(models.RoleAdmin, models.RoleHOD, models.RoleDean, models.RoleDirector)
	committee := middleware.RequireRoles(models.RoleAdmin, models.RoleHOD)
	verifiers := middleware.RequireRoles(models.RoleAdmin, models.RoleHOD, models.RoleDean, models.RoleVerifier)
	raters := middleware.RequireRoles(models.RoleAdmin, models.RoleHOD, models.RoleDean, models.RoleExternal)

	secured.GET("/auth/me", h.Auth.Me)
	secured.POST("/faculty", admin, h.Appraisal.CreateFaculty)
	secured.GET("/verifiers/:id/faculty", h.Reviewer.VerifierFaculty)

	departments := secured.Group("/departments/:dept")
	departments.GET("/faculty", reviewers, h.Appraisal.ListFaculty)
	departments.GET("/final-scores", reviewers, h.Report.DepartmentFinalScores)
	departments.GET("/final-scores/export", reviewers, h.Report.ExportFinalScores)
	departments.PUT("/verification-committee", committee, h.Reviewer.SetCommittee)
	departments.GET("/verification-committee", reviewers, h.Reviewer.GetCommittee)
	departments.DELETE("/verification-committee", committee, h.Reviewer.ClearCommittee)
	departments.POST("/externals", committee, h.Reviewer.CreateExternal)
	departments.GET("/externals", reviewers, h.Reviewer.ListExternals)
	departments.PUT("/external-assignments", committee, h.Reviewer.AssignExternals)
	departments.GET("/external-assignments", reviewers, h.Reviewer.ExternalAssignments)
	departments.GET("/external-assignments/:externalId", raters, h.Reviewer.ExternalAssignment)

	appraisals := secured.Group("/appraisals/:dept")
	appraisals.POST("/send-to-director", reviewers, h.Workflow.SendToDirector)
	appraisals.GET("/:id/sections/:section", h.Appraisal.GetSection)
	appraisals.PUT("/:id/sections/:section", h.Appraisal.SubmitSection)
	appraisals.POST("/:id/sections/:section/verify", verifiers, h.Appraisal.VerifySection)
	appraisals.GET("/:id/totals", h.Appraisal.Totals)
	appraisals.POST("/:id/actions/:action", h.Workflow.Transition)
	appraisals.POST("/:id/interaction/:role", raters, h.Workflow.SubmitRating)
	appraisals.GET("/:id/interaction", h.Workflow.InteractionSummary)
	appraisals.GET("/:id/final-score", h.Report.FacultyFinalScore)
	appraisals.POST("/:id/report", h.Report.GenerateReport)
	appraisals.GET("/:id/report/fields", h.Report.ReportFields)
}
