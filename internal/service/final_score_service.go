package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/patil-rushikesh/FDW-backend/internal/interaction"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/scoring"
	"github.com/patil-rushikesh/FDW-backend/internal/workflow"
	"github.com/patil-rushikesh/FDW-backend/pkg/export"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

// Export formats accepted by ExportDepartment.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

var finalScoreStatuses = []workflow.Status{
	workflow.StatusInteractionPending,
	workflow.StatusDone,
	workflow.StatusSentToDirector,
}

var finalScoreColumns = []string{
	"faculty_id", "name", "designation", "status",
	"interaction_average", "interaction_total_reviews",
	"verified_marks", "extra_marks_for_designation", "capped_verified_marks",
	"scaled_verified_marks", "scaled_interaction_marks", "total_marks", "is_capped",
}

var finalScoreLabels = map[string]string{
	"faculty_id":                  "Faculty ID",
	"name":                        "Name",
	"designation":                 "Designation",
	"status":                      "Status",
	"interaction_average":         "Interaction Avg",
	"interaction_total_reviews":   "Reviews",
	"verified_marks":              "Verified",
	"extra_marks_for_designation": "Bonus",
	"capped_verified_marks":       "Capped Verified",
	"scaled_verified_marks":       "Scaled Verified",
	"scaled_interaction_marks":    "Scaled Interaction",
	"total_marks":                 "Total",
	"is_capped":                   "Capped",
}

// FinalScoreService composes final scores from verified and interaction marks.
type FinalScoreService struct {
	store     *RecordStore
	directory identityLookup
	cache     *CacheService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	policy    scoring.Policy
	required  []interaction.Role
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// FinalScoreServiceOption customises the final score service.
type FinalScoreServiceOption func(*FinalScoreService)

// WithFinalScoreCache caches department listings for ttl.
func WithFinalScoreCache(cache *CacheService, ttl time.Duration) FinalScoreServiceOption {
	return func(s *FinalScoreService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithFinalScoreExporters overrides the CSV and PDF renderers.
func WithFinalScoreExporters(csv *export.CSVExporter, pdf *export.PDFExporter) FinalScoreServiceOption {
	return func(s *FinalScoreService) {
		if csv != nil {
			s.csv = csv
		}
		if pdf != nil {
			s.pdf = pdf
		}
	}
}

// NewFinalScoreService constructs the service.
func NewFinalScoreService(store *RecordStore, directory identityLookup, policy scoring.Policy, required []interaction.Role, logger *zap.Logger, opts ...FinalScoreServiceOption) *FinalScoreService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(required) == 0 {
		required = interaction.DefaultRequired
	}
	s := &FinalScoreService{
		store:     store,
		directory: directory,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(""),
		policy:    policy,
		required:  required,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FacultyFinalScore composes the final score of one faculty member.
func (s *FinalScoreService) FacultyFinalScore(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID string) (*models.FacultyFinalScore, error) {
	if err := authorizeRecordAccess(actor, dept, facultyID); err != nil {
		return nil, err
	}
	record, err := s.store.Load(ctx, dept, facultyID)
	if err != nil {
		return nil, err
	}
	identity, err := s.directory.Lookup(ctx, facultyID)
	if err != nil {
		return nil, err
	}
	score := s.compose(record, identity)
	return &score, nil
}

// DepartmentFinalScores lists every faculty member past verification with
// their final score and the department review counters.
func (s *FinalScoreService) DepartmentFinalScores(ctx context.Context, actor *models.JWTClaims, dept models.Department) (*models.DepartmentFinalScores, error) {
	if err := authorizeDepartment(actor, dept); err != nil {
		return nil, err
	}
	return Remember(ctx, s.cache, finalScoresCacheKey(dept), s.cacheTTL, func(ctx context.Context) (*models.DepartmentFinalScores, error) {
		return s.buildListing(ctx, dept)
	})
}

// ExportDepartment renders the department listing as CSV or PDF.
func (s *FinalScoreService) ExportDepartment(ctx context.Context, actor *models.JWTClaims, dept models.Department, format string) (*models.ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	listing, err := s.DepartmentFinalScores(ctx, actor, dept)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: finalScoreColumns, Labels: finalScoreLabels}
	for _, score := range listing.Faculty {
		dataset.Rows = append(dataset.Rows, finalScoreRow(score))
	}

	name := fmt.Sprintf("final_scores_%s", strings.ToLower(string(dept)))
	if format == FormatPDF {
		content, err := s.pdf.Render(dataset, fmt.Sprintf("%s Final Scores", dept))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render final scores")
		}
		return &models.ExportFile{Filename: name + ".pdf", ContentType: "application/pdf", Content: content}, nil
	}
	content, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render final scores")
	}
	return &models.ExportFile{Filename: name + ".csv", ContentType: "text/csv", Content: content}, nil
}

func (s *FinalScoreService) buildListing(ctx context.Context, dept models.Department) (*models.DepartmentFinalScores, error) {
	roster, err := s.store.Roster(ctx, dept)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(roster))
	for id := range roster {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	listing := &models.DepartmentFinalScores{Department: dept, Faculty: []models.FacultyFinalScore{}}
	for _, id := range ids {
		record, err := s.store.Load(ctx, dept, id)
		if err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				s.logger.Warn("roster entry without record", zap.String("department", string(dept)), zap.String("faculty_id", id))
				continue
			}
			return nil, err
		}
		if !statusIn(record.Status, finalScoreStatuses) {
			continue
		}
		identity, err := s.directory.Lookup(ctx, id)
		if err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				s.logger.Warn("faculty missing from directory", zap.String("faculty_id", id))
				continue
			}
			return nil, err
		}
		listing.Faculty = append(listing.Faculty, s.compose(record, identity))
	}
	listing.Summary = summarize(listing.Faculty)
	return listing, nil
}

func (s *FinalScoreService) compose(record *models.FacultyRecord, identity *models.Identity) models.FacultyFinalScore {
	aggregator := interaction.NewAggregator(record.Interaction, s.required)
	name := record.Name
	if name == "" {
		name = identity.Name
	}
	return models.FacultyFinalScore{
		FacultyID:            record.ID,
		Name:                 name,
		Department:           record.Department,
		Designation:          identity.Designation,
		Status:               record.Status,
		Interaction:          aggregator.Summary(),
		Breakdown:            scoring.ComposeFinalScore(record.GrandVerifiedMarks, identity.Designation, aggregator.Values(), s.policy),
		MissingVerifiedMarks: record.GrandVerifiedMarks <= 0,
	}
}

// summarize counts every record in exactly one of reviewed, not reviewed
// and partially reviewed. A record holding ratings that do not cover the
// required raters is partially reviewed however many ratings it has.
func summarize(scores []models.FacultyFinalScore) models.FinalScoreSummary {
	summary := models.FinalScoreSummary{TotalFaculty: len(scores)}
	for _, score := range scores {
		switch {
		case score.Interaction.ReviewStatus == interaction.ReviewCompleted:
			summary.TotalReviewed++
			summary.FinalMarksCalculated++
		case score.Interaction.TotalReviews == 0:
			summary.NotReviewed++
		default:
			summary.PartiallyReviewed++
		}
		if score.MissingVerifiedMarks {
			summary.MissingVerifiedMarks++
		}
		if score.Breakdown.ExtraMarks > 0 {
			summary.DesignationBonusGiven++
		}
		if score.Breakdown.IsCapped {
			summary.MarksCapped++
		}
	}
	return summary
}

func finalScoreRow(score models.FacultyFinalScore) map[string]string {
	b := score.Breakdown
	return map[string]string{
		"faculty_id":                  score.FacultyID,
		"name":                        score.Name,
		"designation":                 score.Designation,
		"status":                      string(score.Status),
		"interaction_average":         formatMarks(score.Interaction.Average),
		"interaction_total_reviews":   strconv.Itoa(score.Interaction.TotalReviews),
		"verified_marks":              formatMarks(b.VerifiedMarks),
		"extra_marks_for_designation": formatMarks(b.ExtraMarks),
		"capped_verified_marks":       formatMarks(b.CappedVerified),
		"scaled_verified_marks":       formatMarks(b.ScaledVerified),
		"scaled_interaction_marks":    formatMarks(b.ScaledInteraction),
		"total_marks":                 formatMarks(b.TotalMarks),
		"is_capped":                   strconv.FormatBool(b.IsCapped),
	}
}

func formatMarks(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
