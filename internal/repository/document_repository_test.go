package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/patil-rushikesh/FDW-backend/internal/models"
)

func newDocumentRepoMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewDocumentRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestDocumentRepositoryGet(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"namespace", "id", "body", "version", "updated_at"}).
		AddRow("dept_computer", "FAC01", []byte(`{"status":"pending"}`), 3, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT namespace, id, body, version, updated_at FROM documents")).
		WithArgs("dept_computer", "FAC01").
		WillReturnRows(rows)

	doc, err := repo.Get(context.Background(), models.DocumentKey{Namespace: "dept_computer", ID: "FAC01"})
	require.NoError(t, err)
	require.Equal(t, int64(3), doc.Version)
	require.JSONEq(t, `{"status":"pending"}`, string(doc.Body))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryGetMissing(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT namespace, id, body")).
		WithArgs("dept_it", "nobody").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), models.DocumentKey{Namespace: "dept_it", ID: "nobody"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryPutCompareAndSet(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents SET body = $3")).
		WithArgs("dept_it", "FAC01", []byte(`{}`), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(5, now))

	doc := &models.StoredDocument{Namespace: "dept_it", ID: "FAC01", Body: []byte(`{}`)}
	require.NoError(t, repo.Put(context.Background(), doc, models.PutOptions{ExpectedVersion: 4}))
	require.Equal(t, int64(5), doc.Version)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents SET body = $3")).
		WithArgs("dept_it", "FAC01", []byte(`{}`), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))

	err := repo.Put(context.Background(), doc, models.PutOptions{ExpectedVersion: 4})
	require.ErrorIs(t, err, ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryInsertOnlyConflicts(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (namespace, id) DO NOTHING")).
		WithArgs("dept_civil", "roster", []byte(`{}`)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))

	err := repo.Put(context.Background(), &models.StoredDocument{Namespace: "dept_civil", ID: "roster", Body: []byte(`{}`)}, models.PutOptions{})
	require.ErrorIs(t, err, ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpsert(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (namespace, id) DO UPDATE")).
		WithArgs("dept_civil", "externals", []byte(`[]`)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(2, time.Now()))

	doc := &models.StoredDocument{Namespace: "dept_civil", ID: "externals", Body: []byte(`[]`)}
	require.NoError(t, repo.Put(context.Background(), doc, models.PutOptions{Upsert: true}))
	require.Equal(t, int64(2), doc.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryPutAllRollsBackOnConflict(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents SET body = $3")).
		WithArgs("dept_entc", "FAC01", sqlmock.AnyArg(), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(3, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents SET body = $3")).
		WithArgs("dept_entc", "verification_team", sqlmock.AnyArg(), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))
	mock.ExpectRollback()

	record := &models.StoredDocument{Namespace: "dept_entc", ID: "FAC01", Body: []byte(`{}`), Version: 2}
	team := &models.StoredDocument{Namespace: "dept_entc", ID: "verification_team", Body: []byte(`{}`), Version: 7}
	err := repo.PutAll(context.Background(),
		[]*models.StoredDocument{record, team},
		[]models.PutOptions{{ExpectedVersion: 2}, {ExpectedVersion: 7}})
	require.ErrorIs(t, err, ErrVersionConflict)
	require.Equal(t, int64(2), record.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryPutAllCommits(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents SET body = $3")).
		WithArgs("dept_entc", "FAC01", sqlmock.AnyArg(), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(3, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE documents SET body = $3")).
		WithArgs("dept_entc", "verification_team", sqlmock.AnyArg(), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(8, time.Now()))
	mock.ExpectCommit()

	record := &models.StoredDocument{Namespace: "dept_entc", ID: "FAC01", Body: []byte(`{}`)}
	team := &models.StoredDocument{Namespace: "dept_entc", ID: "verification_team", Body: []byte(`{}`)}
	require.NoError(t, repo.PutAll(context.Background(),
		[]*models.StoredDocument{record, team},
		[]models.PutOptions{{ExpectedVersion: 2}, {ExpectedVersion: 7}}))
	require.Equal(t, int64(3), record.Version)
	require.Equal(t, int64(8), team.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateFields(t *testing.T) {
	repo, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET body = jsonb_set(jsonb_set(body, $3::text[], $4::jsonb, true), $5::text[], $6::jsonb, true)")).
		WithArgs("dept_it", "FAC01", sqlmock.AnyArg(), `true`, sqlmock.AnyArg(), `"done"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateFields(context.Background(), models.DocumentKey{Namespace: "dept_it", ID: "FAC01"}, map[string]interface{}{
		"status":    "done",
		"isUpdated": true,
	})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET body = jsonb_set")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.UpdateFields(context.Background(), models.DocumentKey{Namespace: "dept_it", ID: "ghost"}, map[string]interface{}{"status": "done"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
