package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/repository"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

const defaultMaxWriteRetries = 5

type documentStore interface {
	Get(ctx context.Context, key models.DocumentKey) (*models.StoredDocument, error)
	Put(ctx context.Context, doc *models.StoredDocument, opts models.PutOptions) error
	PutAll(ctx context.Context, docs []*models.StoredDocument, opts []models.PutOptions) error
	UpdateFields(ctx context.Context, key models.DocumentKey, fields map[string]interface{}) error
}

// RecordStore performs versioned read-modify-write cycles on department documents.
type RecordStore struct {
	docs       documentStore
	metrics    *MetricsService
	cache      *CacheService
	logger     *zap.Logger
	maxRetries int
	now        func() time.Time
}

// RecordStoreOption customises the record store.
type RecordStoreOption func(*RecordStore)

// WithStoreMetrics records store timings and conflicts.
func WithStoreMetrics(metrics *MetricsService) RecordStoreOption {
	return func(s *RecordStore) {
		s.metrics = metrics
	}
}

// WithStoreCache invalidates cached department listings after record writes.
func WithStoreCache(cache *CacheService) RecordStoreOption {
	return func(s *RecordStore) {
		s.cache = cache
	}
}

// WithMaxWriteRetries bounds compare-and-set retries.
func WithMaxWriteRetries(n int) RecordStoreOption {
	return func(s *RecordStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewRecordStore constructs a record store.
func NewRecordStore(docs documentStore, logger *zap.Logger, opts ...RecordStoreOption) *RecordStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RecordStore{
		docs:       docs,
		logger:     logger,
		maxRetries: defaultMaxWriteRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordMutation edits a record in place. Returning an error aborts without writing.
type RecordMutation func(record *models.FacultyRecord) error

// TeamMutation edits a record together with its department verification team.
type TeamMutation func(record *models.FacultyRecord, team models.VerificationTeam) error

// AssignmentMutation edits a record together with its department external assignments.
type AssignmentMutation func(record *models.FacultyRecord, assignments models.ExternalAssignments) error

// Load reads a faculty record.
func (s *RecordStore) Load(ctx context.Context, dept models.Department, facultyID string) (*models.FacultyRecord, error) {
	record, err := s.loadRecord(ctx, dept, facultyID)
	if err != nil {
		return nil, s.mapLoadError(err, "faculty record")
	}
	return record, nil
}

// Create inserts a new record; an existing record with the same id is a conflict.
func (s *RecordStore) Create(ctx context.Context, record *models.FacultyRecord) error {
	now := s.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	doc, err := encodeDocument(record.Department.Namespace(), record.ID, record)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode faculty record")
	}
	if err := s.put(ctx, doc, models.PutOptions{}); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("faculty %s already exists", record.ID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create faculty record")
	}
	record.Version = doc.Version
	s.invalidate(ctx, record.Department)
	return nil
}

// Mutate applies fn to the latest version of the record and writes it with a
// compare-and-set, re-reading and re-applying fn when another writer won.
func (s *RecordStore) Mutate(ctx context.Context, dept models.Department, facultyID string, fn RecordMutation) (*models.FacultyRecord, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		record, err := s.loadRecord(ctx, dept, facultyID)
		if err != nil {
			return nil, s.mapLoadError(err, "faculty record")
		}
		if err := fn(record); err != nil {
			return nil, err
		}
		record.UpdatedAt = s.now()
		doc, err := encodeDocument(dept.Namespace(), facultyID, record)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode faculty record")
		}
		err = s.put(ctx, doc, models.PutOptions{ExpectedVersion: record.Version})
		if err == nil {
			record.Version = doc.Version
			s.invalidate(ctx, dept)
			return record, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save faculty record")
		}
		s.conflict(facultyID, attempt)
	}
	return nil, s.exhausted(facultyID)
}

// MutateWithTeam applies fn to a record and the department verification team
// and commits both documents together.
func (s *RecordStore) MutateWithTeam(ctx context.Context, dept models.Department, facultyID string, fn TeamMutation) (*models.FacultyRecord, error) {
	return mutateWithDocument(ctx, s, dept, facultyID, models.DocVerificationTeam, func(record *models.FacultyRecord, team models.VerificationTeam) (models.VerificationTeam, error) {
		if team == nil {
			team = models.VerificationTeam{}
		}
		return team, fn(record, team)
	})
}

// MutateWithAssignments applies fn to a record and the department external
// assignments and commits both documents together.
func (s *RecordStore) MutateWithAssignments(ctx context.Context, dept models.Department, facultyID string, fn AssignmentMutation) (*models.FacultyRecord, error) {
	return mutateWithDocument(ctx, s, dept, facultyID, models.DocExternalAssignments, func(record *models.FacultyRecord, assignments models.ExternalAssignments) (models.ExternalAssignments, error) {
		if assignments == nil {
			assignments = models.ExternalAssignments{}
		}
		return assignments, fn(record, assignments)
	})
}

// MarkStale flags the generated documents of a record as out of date.
func (s *RecordStore) MarkStale(ctx context.Context, dept models.Department, facultyID string) error {
	start := time.Now()
	err := s.docs.UpdateFields(ctx, models.DocumentKey{Namespace: dept.Namespace(), ID: facultyID}, map[string]interface{}{
		"isUpdated": true,
	})
	s.metrics.ObserveStoreOperation("update_fields", time.Since(start))
	if err != nil {
		return s.mapLoadError(err, "faculty record")
	}
	s.invalidate(ctx, dept)
	return nil
}

// Roster returns the department roster, empty when none exists yet.
func (s *RecordStore) Roster(ctx context.Context, dept models.Department) (models.Roster, error) {
	roster, _, err := loadDocument[models.Roster](ctx, s, dept, models.DocRoster)
	if err != nil {
		return nil, err
	}
	if roster == nil {
		roster = models.Roster{}
	}
	return roster, nil
}

// UpdateRoster applies fn to the department roster.
func (s *RecordStore) UpdateRoster(ctx context.Context, dept models.Department, fn func(models.Roster) error) error {
	return mutateDocument(ctx, s, dept, models.DocRoster, func(roster models.Roster) (models.Roster, error) {
		if roster == nil {
			roster = models.Roster{}
		}
		return roster, fn(roster)
	})
}

// Team returns the department verification team, empty when unset.
func (s *RecordStore) Team(ctx context.Context, dept models.Department) (models.VerificationTeam, error) {
	team, _, err := loadDocument[models.VerificationTeam](ctx, s, dept, models.DocVerificationTeam)
	if err != nil {
		return nil, err
	}
	if team == nil {
		team = models.VerificationTeam{}
	}
	return team, nil
}

// UpdateTeam applies fn to the department verification team.
func (s *RecordStore) UpdateTeam(ctx context.Context, dept models.Department, fn func(models.VerificationTeam) (models.VerificationTeam, error)) error {
	return mutateDocument(ctx, s, dept, models.DocVerificationTeam, fn)
}

// Externals returns the department's external reviewers.
func (s *RecordStore) Externals(ctx context.Context, dept models.Department) ([]models.ExternalReviewer, error) {
	list, _, err := loadDocument[[]models.ExternalReviewer](ctx, s, dept, models.DocExternals)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.ExternalReviewer{}
	}
	return list, nil
}

// UpdateExternals applies fn to the external reviewer list.
func (s *RecordStore) UpdateExternals(ctx context.Context, dept models.Department, fn func([]models.ExternalReviewer) ([]models.ExternalReviewer, error)) error {
	return mutateDocument(ctx, s, dept, models.DocExternals, fn)
}

// ExternalAssignments returns the department's external reviewer assignments.
func (s *RecordStore) ExternalAssignments(ctx context.Context, dept models.Department) (models.ExternalAssignments, error) {
	assignments, _, err := loadDocument[models.ExternalAssignments](ctx, s, dept, models.DocExternalAssignments)
	if err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = models.ExternalAssignments{}
	}
	return assignments, nil
}

// UpdateExternalAssignments applies fn to the external reviewer assignments.
func (s *RecordStore) UpdateExternalAssignments(ctx context.Context, dept models.Department, fn func(models.ExternalAssignments) (models.ExternalAssignments, error)) error {
	return mutateDocument(ctx, s, dept, models.DocExternalAssignments, fn)
}

// loadDocument reads a department-level document. A missing document yields
// the zero value and version 0.
func loadDocument[T any](ctx context.Context, s *RecordStore, dept models.Department, id string) (T, int64, error) {
	var value T
	stored, err := s.get(ctx, models.DocumentKey{Namespace: dept.Namespace(), ID: id})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return value, 0, nil
		}
		return value, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load %s", id))
	}
	if err := json.Unmarshal(stored.Body, &value); err != nil {
		return value, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to decode %s", id))
	}
	return value, stored.Version, nil
}

// mutateDocument is the department-document counterpart of Mutate. Version 0
// means the document does not exist yet, so the write is insert-only.
func mutateDocument[T any](ctx context.Context, s *RecordStore, dept models.Department, id string, fn func(T) (T, error)) error {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		current, version, err := loadDocument[T](ctx, s, dept, id)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		doc, err := encodeDocument(dept.Namespace(), id, next)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to encode %s", id))
		}
		err = s.put(ctx, doc, models.PutOptions{ExpectedVersion: version})
		if err == nil {
			s.invalidate(ctx, dept)
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to save %s", id))
		}
		s.conflict(id, attempt)
	}
	return s.exhausted(id)
}

// mutateWithDocument commits a record and one department document with a
// single compare-and-set over both versions.
func mutateWithDocument[T any](ctx context.Context, s *RecordStore, dept models.Department, facultyID, docID string, fn func(*models.FacultyRecord, T) (T, error)) (*models.FacultyRecord, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		record, err := s.loadRecord(ctx, dept, facultyID)
		if err != nil {
			return nil, s.mapLoadError(err, "faculty record")
		}
		current, docVersion, err := loadDocument[T](ctx, s, dept, docID)
		if err != nil {
			return nil, err
		}
		next, err := fn(record, current)
		if err != nil {
			return nil, err
		}
		record.UpdatedAt = s.now()
		recordDoc, err := encodeDocument(dept.Namespace(), facultyID, record)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode faculty record")
		}
		doc, err := encodeDocument(dept.Namespace(), docID, next)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to encode %s", docID))
		}

		start := time.Now()
		err = s.docs.PutAll(ctx,
			[]*models.StoredDocument{recordDoc, doc},
			[]models.PutOptions{{ExpectedVersion: record.Version}, {ExpectedVersion: docVersion}})
		s.metrics.ObserveStoreOperation("put_all", time.Since(start))
		if err == nil {
			record.Version = recordDoc.Version
			s.invalidate(ctx, dept)
			return record, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save faculty record")
		}
		s.conflict(facultyID, attempt)
	}
	return nil, s.exhausted(facultyID)
}

func (s *RecordStore) loadRecord(ctx context.Context, dept models.Department, facultyID string) (*models.FacultyRecord, error) {
	stored, err := s.get(ctx, models.DocumentKey{Namespace: dept.Namespace(), ID: facultyID})
	if err != nil {
		return nil, err
	}
	var record models.FacultyRecord
	if err := json.Unmarshal(stored.Body, &record); err != nil {
		return nil, fmt.Errorf("decode faculty record %s: %w", facultyID, err)
	}
	record.Version = stored.Version
	return &record, nil
}

func (s *RecordStore) get(ctx context.Context, key models.DocumentKey) (*models.StoredDocument, error) {
	start := time.Now()
	doc, err := s.docs.Get(ctx, key)
	s.metrics.ObserveStoreOperation("get", time.Since(start))
	return doc, err
}

func (s *RecordStore) put(ctx context.Context, doc *models.StoredDocument, opts models.PutOptions) error {
	start := time.Now()
	err := s.docs.Put(ctx, doc, opts)
	s.metrics.ObserveStoreOperation("put", time.Since(start))
	return err
}

func (s *RecordStore) conflict(id string, attempt int) {
	s.metrics.RecordWriteConflict()
	s.logger.Debug("document version conflict, retrying", zap.String("id", id), zap.Int("attempt", attempt))
}

func (s *RecordStore) exhausted(id string) error {
	s.logger.Warn("document write retries exhausted", zap.String("id", id), zap.Int("retries", s.maxRetries))
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s was modified concurrently, retry the request", id))
}

func (s *RecordStore) mapLoadError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+what)
}

func (s *RecordStore) invalidate(ctx context.Context, dept models.Department) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, finalScoresCacheKey(dept))
}

func encodeDocument(namespace, id string, value interface{}) (*models.StoredDocument, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &models.StoredDocument{Namespace: namespace, ID: id, Body: body}, nil
}

func finalScoresCacheKey(dept models.Department) string {
	return "final_scores:" + dept.Namespace()
}
