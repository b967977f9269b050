package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patil-rushikesh/FDW-backend/internal/interaction"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/scoring"
	"github.com/patil-rushikesh/FDW-backend/internal/workflow"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
	"github.com/patil-rushikesh/FDW-backend/pkg/jobs"
	"github.com/patil-rushikesh/FDW-backend/pkg/storage"
)

type recordingReportQueue struct {
	mu   sync.Mutex
	jobs []jobs.Job
}

func (q *recordingReportQueue) EnqueueUnique(job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, existing := range q.jobs {
		if existing.Key == job.Key {
			return jobs.ErrDuplicate
		}
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type reportFixture struct {
	dir     string
	docs    *memoryDocuments
	store   *RecordStore
	metrics *MetricsService
	svc     *ReportService
}

func newReportFixture(t *testing.T, opts ...ReportServiceOption) *reportFixture {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	docs := newMemoryDocuments()
	store := NewRecordStore(docs, zap.NewNop())
	users := newStubUsers(&models.User{
		ID:          "FAC01",
		Name:        "Asha",
		Department:  models.DepartmentIT,
		Position:    "Associate Professor",
		Designation: "HOD",
	})
	metrics := NewMetricsService()
	opts = append(opts, WithReportMetrics(metrics))
	svc := NewReportService(store, NewDirectory(users), files, storage.NewSignedURLSigner("secret", time.Hour),
		nil, scoring.DefaultPolicy(), nil, ReportConfig{RetainFor: time.Hour}, zap.NewNop(), opts...)
	return &reportFixture{dir: dir, docs: docs, store: store, metrics: metrics, svc: svc}
}

func (f *reportFixture) seed(t *testing.T, isUpdated bool) {
	t.Helper()
	sections, err := scoring.Skeleton()
	require.NoError(t, err)
	sections[scoring.SectionA], _, err = scoring.Submit(scoring.SectionA, sections[scoring.SectionA], scoring.Document{
		"lectures_delivered": map[string]interface{}{"count": 10.0},
	})
	require.NoError(t, err)
	grand, err := scoring.CalculateGrandTotal(sections)
	require.NoError(t, err)
	f.docs.seed(t, models.DepartmentIT, "FAC01", models.FacultyRecord{
		ID:                 "FAC01",
		Name:               "Asha",
		Department:         models.DepartmentIT,
		Sections:           sections,
		GrandTotal:         grand,
		GrandVerifiedMarks: 600,
		Status:             workflow.StatusDone,
		Interaction: interaction.Marks{
			External:     &interaction.Rating{RaterID: "EXT1", Marks: 90},
			Dean:         &interaction.Rating{RaterID: "DEAN1", Marks: 80},
			HOD:          &interaction.Rating{RaterID: "HOD1", Marks: 70},
			ReviewStatus: interaction.ReviewCompleted,
		},
		IsUpdated: isUpdated,
	})
}

func tokenFromURL(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}

var itOwner = claims("FAC01", models.RoleFaculty, models.DepartmentIT)

func TestBuildFieldMapKeysAndFormatting(t *testing.T) {
	f := newReportFixture(t)
	f.seed(t, false)
	record, err := f.store.Load(context.Background(), models.DepartmentIT, "FAC01")
	require.NoError(t, err)

	fields := BuildFieldMap(record, &models.Identity{Position: "Associate Professor", Designation: "HOD"}, scoring.DefaultPolicy(), nil)

	for _, key := range []string{
		"faculty_id", "faculty_name", "department", "position", "designation", "status",
		"section_a_normalized", "grand_total", "grand_total_status", "grand_verified_marks",
		"interaction_average", "interaction_total_reviews", "extra_marks_for_designation",
		"verified_marks_with_bonus", "capped_verified_marks", "scaled_verified_marks",
		"scaled_interaction_marks", "calculated_total", "total_marks", "is_capped",
	} {
		assert.Contains(t, fields, key)
	}
	for _, letter := range scoring.Letters {
		prefix := strings.ToLower(string(letter))
		assert.Contains(t, fields, "section_"+prefix+"_total")
		assert.Contains(t, fields, "section_"+prefix+"_verified")
		for _, key := range scoring.CategoryKeys(letter) {
			assert.Contains(t, fields, prefix+"_"+key+"_marks")
			assert.Contains(t, fields, prefix+"_"+key+"_verified_marks")
		}
	}

	assert.Equal(t, "50.00", fields["a_lectures_delivered_marks"])
	assert.Equal(t, "50.00", fields["section_a_total"])
	assert.Equal(t, "61.11", fields["section_a_normalized"])
	assert.Equal(t, "50.00", fields["grand_total"])
	assert.Equal(t, "80.00", fields["interaction_average"])
	assert.Equal(t, "3", fields["interaction_total_reviews"])
	assert.Equal(t, "100.00", fields["extra_marks_for_designation"])
	assert.Equal(t, "595.00", fields["scaled_verified_marks"])
	assert.Equal(t, "715.00", fields["total_marks"])
	assert.Equal(t, "false", fields["is_capped"])

	doc, err := Fill(TemplateAppraisalReport, fields)
	require.NoError(t, err)
	assert.Equal(t, "Faculty Appraisal Report", doc.Title)
	assert.Len(t, doc.Groups, 1+len(scoring.Letters)+3)

	_, err = Fill("missing", fields)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestGenerateRendersOnceAndReusesFile(t *testing.T) {
	f := newReportFixture(t)
	f.seed(t, true)
	ctx := context.Background()

	first, err := f.svc.Generate(ctx, itOwner, models.DepartmentIT, "FAC01")
	require.NoError(t, err)
	assert.True(t, first.Regenerated)
	assert.True(t, strings.HasPrefix(first.URL, "/api/v1/reports/download/"))

	record, err := f.store.Load(ctx, models.DepartmentIT, "FAC01")
	require.NoError(t, err)
	assert.False(t, record.IsUpdated)
	assert.Equal(t, "reports/dept_it/FAC01.pdf", record.Documents.PDF)
	require.NotNil(t, record.Documents.GeneratedAt)

	second, err := f.svc.Generate(ctx, itOwner, models.DepartmentIT, "FAC01")
	require.NoError(t, err)
	assert.False(t, second.Regenerated)

	require.NoError(t, f.store.MarkStale(ctx, models.DepartmentIT, "FAC01"))
	third, err := f.svc.Generate(ctx, itOwner, models.DepartmentIT, "FAC01")
	require.NoError(t, err)
	assert.True(t, third.Regenerated)

	file, err := f.svc.Download(ctx, tokenFromURL(third.URL))
	require.NoError(t, err)
	assert.Equal(t, "FAC01.pdf", file.Filename)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))

	_, err = f.svc.Generate(ctx, claims("FAC02", models.RoleFaculty, models.DepartmentIT), models.DepartmentIT, "FAC01")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestGenerateKeepsStaleFlagWhenRecordChangedDuringRender(t *testing.T) {
	f := newReportFixture(t)
	f.seed(t, true)
	ctx := context.Background()

	f.docs.beforePut = f.docs.bumpVersion
	res, err := f.svc.Generate(ctx, itOwner, models.DepartmentIT, "FAC01")
	require.NoError(t, err)
	assert.True(t, res.Regenerated)

	record, err := f.store.Load(ctx, models.DepartmentIT, "FAC01")
	require.NoError(t, err)
	assert.True(t, record.IsUpdated)
	assert.Empty(t, record.Documents.PDF)
}

func TestDownloadRejectsBadTokens(t *testing.T) {
	f := newReportFixture(t)
	_, err := f.svc.Download(context.Background(), "not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	token, _, err := storage.NewSignedURLSigner("secret", time.Hour).Sign("IT/FAC01", "reports/dept_it/ghost.pdf")
	require.NoError(t, err)
	_, err = f.svc.Download(context.Background(), token)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestScheduleQueuesOncePerRecordAndHandlerRenders(t *testing.T) {
	queue := &recordingReportQueue{}
	f := newReportFixture(t, WithReportQueue(queue))
	f.seed(t, true)
	ctx := context.Background()

	f.svc.Schedule(ctx, models.DepartmentIT, "FAC01")
	f.svc.Schedule(ctx, models.DepartmentIT, "FAC01")
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeReportRender, queue.jobs[0].Type)

	require.NoError(t, f.svc.HandleJob(ctx, queue.jobs[0]))
	record, err := f.store.Load(ctx, models.DepartmentIT, "FAC01")
	require.NoError(t, err)
	assert.False(t, record.IsUpdated)
	assert.NotEmpty(t, record.Documents.PDF)
}

func TestCleanupRemovesExpiredReportsAndForcesRerender(t *testing.T) {
	f := newReportFixture(t)
	f.seed(t, true)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, itOwner, models.DepartmentIT, "FAC01")
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(f.dir, "reports", "dept_it", "FAC01.pdf"), past, past))

	assert.Equal(t, 1, f.svc.Cleanup())

	res, err := f.svc.Generate(ctx, itOwner, models.DepartmentIT, "FAC01")
	require.NoError(t, err)
	assert.True(t, res.Regenerated)
}
