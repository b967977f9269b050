package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patil-rushikesh/FDW-backend/internal/dto"
	"github.com/patil-rushikesh/FDW-backend/internal/interaction"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/scoring"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
	"github.com/patil-rushikesh/FDW-backend/pkg/export"
	"github.com/patil-rushikesh/FDW-backend/pkg/jobs"
	"github.com/patil-rushikesh/FDW-backend/pkg/storage"
)

// JobTypeReportRender identifies background report regeneration jobs.
const JobTypeReportRender = "report_render"

// Render outcomes recorded in metrics.
const (
	renderRendered = "rendered"
	renderReused   = "reused"
	renderOutdated = "outdated"
	renderFailed   = "failed"
)

var errReportOutdated = errors.New("record changed while the report was rendering")

type reportFiles interface {
	Save(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
	Exists(name string) bool
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type reportQueue interface {
	EnqueueUnique(job jobs.Job) error
}

// ReportJob is the payload of a report regeneration job.
type ReportJob struct {
	Department models.Department
	FacultyID  string
}

// ReportConfig tunes report URLs and retention.
type ReportConfig struct {
	APIPrefix       string
	RetainFor       time.Duration
	CleanupInterval time.Duration
}

// ReportService renders appraisal reports and serves them through signed URLs.
type ReportService struct {
	store     *RecordStore
	directory identityLookup
	files     reportFiles
	signer    *storage.SignedURLSigner
	pdf       *export.PDFExporter
	csv       *export.CSVExporter
	queue     reportQueue
	metrics   *MetricsService
	policy    scoring.Policy
	required  []interaction.Role
	cfg       ReportConfig
	logger    *zap.Logger
	now       func() time.Time
}

// ReportServiceOption customises the report service.
type ReportServiceOption func(*ReportService)

// WithReportQueue renders scheduled reports on a background queue instead of inline.
func WithReportQueue(queue reportQueue) ReportServiceOption {
	return func(s *ReportService) {
		s.queue = queue
	}
}

// WithReportMetrics counts render outcomes.
func WithReportMetrics(metrics *MetricsService) ReportServiceOption {
	return func(s *ReportService) {
		s.metrics = metrics
	}
}

// NewReportService constructs the service.
func NewReportService(store *RecordStore, directory identityLookup, files reportFiles, signer *storage.SignedURLSigner, pdf *export.PDFExporter, policy scoring.Policy, required []interaction.Role, cfg ReportConfig, logger *zap.Logger, opts ...ReportServiceOption) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("")
	}
	if cfg.RetainFor <= 0 {
		cfg.RetainFor = 7 * 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	s := &ReportService{
		store:     store,
		directory: directory,
		files:     files,
		signer:    signer,
		pdf:       pdf,
		csv:       export.NewCSVExporter(),
		policy:    policy,
		required:  required,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate returns a signed link to the record's PDF report, rendering it
// first when none exists or the record changed since the last render.
func (s *ReportService) Generate(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID string) (*dto.ReportResponse, error) {
	if err := authorizeRecordAccess(actor, dept, facultyID); err != nil {
		return nil, err
	}
	record, err := s.store.Load(ctx, dept, facultyID)
	if err != nil {
		return nil, err
	}

	name, regenerated := record.Documents.PDF, false
	if s.needsRender(record) {
		if name, err = s.render(ctx, record); err != nil {
			return nil, err
		}
		regenerated = true
	} else {
		s.metrics.RecordReportRender(renderReused)
	}

	token, expiresAt, err := s.signer.Sign(string(dept)+"/"+facultyID, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign report link")
	}
	return &dto.ReportResponse{
		FacultyID:   facultyID,
		URL:         fmt.Sprintf("%s/reports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		ExpiresAt:   expiresAt,
		Regenerated: regenerated,
	}, nil
}

// Fields returns the report field map of a record, or the filled template
// rendered as CSV when format is "csv".
func (s *ReportService) Fields(ctx context.Context, actor *models.JWTClaims, dept models.Department, facultyID, format string) (map[string]string, *models.ExportFile, error) {
	if err := authorizeRecordAccess(actor, dept, facultyID); err != nil {
		return nil, nil, err
	}
	record, err := s.store.Load(ctx, dept, facultyID)
	if err != nil {
		return nil, nil, err
	}
	identity, err := s.identity(ctx, record)
	if err != nil {
		return nil, nil, err
	}
	fields := BuildFieldMap(record, identity, s.policy, s.required)
	if !strings.EqualFold(format, FormatCSV) {
		return fields, nil, nil
	}
	doc, err := Fill(TemplateAppraisalReport, fields)
	if err != nil {
		return nil, nil, err
	}
	content, err := s.csv.RenderDocument(*doc)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report fields")
	}
	return fields, &models.ExportFile{
		Filename:    facultyID + "_appraisal.csv",
		ContentType: "text/csv",
		Content:     content,
	}, nil
}

// Download resolves a signed token to the stored report.
func (s *ReportService) Download(ctx context.Context, token string) (*models.ExportFile, error) {
	signed, err := s.signer.Verify(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	content, err := s.files.Read(signed.Path)
	if err != nil {
		s.logger.Warn("signed report missing", zap.String("path", signed.Path), zap.Error(err))
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report is no longer available, request a new link")
	}
	return &models.ExportFile{
		Filename:    path.Base(signed.Path),
		ContentType: "application/pdf",
		Content:     content,
	}, nil
}

// Schedule regenerates a record's report in the background. Failures are logged.
func (s *ReportService) Schedule(ctx context.Context, dept models.Department, facultyID string) {
	if s.queue == nil {
		if err := s.refresh(ctx, dept, facultyID); err != nil {
			s.logger.Warn("inline report render failed", zap.String("faculty_id", facultyID), zap.Error(err))
		}
		return
	}
	err := s.queue.EnqueueUnique(jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobTypeReportRender,
		Key:     string(dept) + "/" + facultyID,
		Payload: ReportJob{Department: dept, FacultyID: facultyID},
	})
	switch {
	case errors.Is(err, jobs.ErrDuplicate):
		s.logger.Debug("report render already pending", zap.String("faculty_id", facultyID))
	case err != nil:
		s.logger.Warn("failed to queue report render", zap.String("faculty_id", facultyID), zap.Error(err))
	}
}

// HandleJob is the queue handler for report regeneration.
func (s *ReportService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(ReportJob)
	if !ok {
		s.logger.Error("unexpected report job payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.refresh(ctx, payload.Department, payload.FacultyID)
}

// Cleanup removes report files older than the retention window.
func (s *ReportService) Cleanup() int {
	deleted, err := s.files.CleanupOlderThan(s.cfg.RetainFor)
	if err != nil {
		s.logger.Warn("report cleanup failed", zap.Error(err))
		return 0
	}
	if len(deleted) > 0 {
		s.logger.Info("expired reports removed", zap.Int("count", len(deleted)))
	}
	return len(deleted)
}

// StartCleanup runs Cleanup every CleanupInterval until ctx is done.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

func (s *ReportService) refresh(ctx context.Context, dept models.Department, facultyID string) error {
	record, err := s.store.Load(ctx, dept, facultyID)
	if err != nil {
		return err
	}
	if !s.needsRender(record) {
		return nil
	}
	_, err = s.render(ctx, record)
	return err
}

func (s *ReportService) needsRender(record *models.FacultyRecord) bool {
	return record.IsUpdated || record.Documents.PDF == "" || !s.files.Exists(record.Documents.PDF)
}

// render writes the PDF and records it on the record. The stale flag is only
// cleared when nobody wrote the record after the snapshot that was rendered.
func (s *ReportService) render(ctx context.Context, record *models.FacultyRecord) (string, error) {
	identity, err := s.identity(ctx, record)
	if err != nil {
		s.metrics.RecordReportRender(renderFailed)
		return "", err
	}
	doc, err := Fill(TemplateAppraisalReport, BuildFieldMap(record, identity, s.policy, s.required))
	if err != nil {
		s.metrics.RecordReportRender(renderFailed)
		return "", err
	}
	content, err := s.pdf.RenderDocument(*doc)
	if err != nil {
		s.metrics.RecordReportRender(renderFailed)
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	name, err := s.files.Save(reportFileName(record.Department, record.ID), content)
	if err != nil {
		s.metrics.RecordReportRender(renderFailed)
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}

	renderedVersion := record.Version
	generatedAt := s.now()
	_, err = s.store.Mutate(ctx, record.Department, record.ID, func(current *models.FacultyRecord) error {
		if current.Version != renderedVersion {
			return errReportOutdated
		}
		current.IsUpdated = false
		current.Documents = models.GeneratedDocuments{PDF: name, GeneratedAt: &generatedAt}
		return nil
	})
	switch {
	case errors.Is(err, errReportOutdated):
		s.metrics.RecordReportRender(renderOutdated)
		s.logger.Debug("report rendered from an outdated snapshot", zap.String("faculty_id", record.ID))
	case err != nil:
		s.metrics.RecordReportRender(renderFailed)
		s.logger.Warn("failed to record generated report", zap.String("faculty_id", record.ID), zap.Error(err))
	default:
		s.metrics.RecordReportRender(renderRendered)
	}
	return name, nil
}

// identity falls back to the record itself when the directory has no entry.
func (s *ReportService) identity(ctx context.Context, record *models.FacultyRecord) (*models.Identity, error) {
	identity, err := s.directory.Lookup(ctx, record.ID)
	if err == nil {
		return identity, nil
	}
	if errors.Is(err, appErrors.ErrNotFound) {
		s.logger.Warn("report for faculty missing from directory", zap.String("faculty_id", record.ID))
		return &models.Identity{ID: record.ID, Name: record.Name, Department: record.Department}, nil
	}
	return nil, err
}

func reportFileName(dept models.Department, facultyID string) string {
	return path.Join("reports", dept.Namespace(), facultyID+".pdf")
}
