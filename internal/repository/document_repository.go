package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/patil-rushikesh/FDW-backend/internal/models"
)

// ErrVersionConflict signals that a conditional write lost a race or the document already exists.
var ErrVersionConflict = errors.New("document version conflict")

// DocumentRepository persists JSON documents keyed by (namespace, id) in a JSONB table.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Get returns the document or sql.ErrNoRows.
func (r *DocumentRepository) Get(ctx context.Context, key models.DocumentKey) (*models.StoredDocument, error) {
	const query = `SELECT namespace, id, body, version, updated_at FROM documents WHERE namespace = $1 AND id = $2`
	var doc models.StoredDocument
	if err := r.db.GetContext(ctx, &doc, query, key.Namespace, key.ID); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Put writes doc according to opts and stores the new version on doc.
func (r *DocumentRepository) Put(ctx context.Context, doc *models.StoredDocument, opts models.PutOptions) error {
	return putDocument(ctx, r.db, doc, opts)
}

// PutAll applies compare-and-set writes to several documents in one transaction.
// Either every write lands or none does.
func (r *DocumentRepository) PutAll(ctx context.Context, docs []*models.StoredDocument, opts []models.PutOptions) (err error) {
	if len(docs) != len(opts) {
		return fmt.Errorf("put all: %d documents with %d options", len(docs), len(opts))
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put all: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	versions := make([]int64, len(docs))
	for i, doc := range docs {
		staged := *doc
		if err = putDocument(ctx, tx, &staged, opts[i]); err != nil {
			return err
		}
		versions[i] = staged.Version
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit put all: %w", err)
	}
	for i, doc := range docs {
		doc.Version = versions[i]
	}
	return nil
}

// UpdateFields sets dotted field paths inside a document without a version check.
func (r *DocumentRepository) UpdateFields(ctx context.Context, key models.DocumentKey, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	paths := make([]string, 0, len(fields))
	for path := range fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	expr := "body"
	args := []interface{}{key.Namespace, key.ID}
	for _, path := range paths {
		segments := strings.Split(path, ".")
		for _, segment := range segments {
			if segment == "" {
				return fmt.Errorf("update fields: empty segment in path %q", path)
			}
		}
		value, err := json.Marshal(fields[path])
		if err != nil {
			return fmt.Errorf("update fields: marshal %s: %w", path, err)
		}
		args = append(args, pq.Array(segments), string(value))
		expr = fmt.Sprintf("jsonb_set(%s, $%d::text[], $%d::jsonb, true)", expr, len(args)-1, len(args))
	}

	query := fmt.Sprintf(`UPDATE documents SET body = %s, version = version + 1, updated_at = NOW()
	WHERE namespace = $1 AND id = $2`, expr)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update fields %s/%s: %w", key.Namespace, key.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update fields rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func putDocument(ctx context.Context, q sqlx.ExtContext, doc *models.StoredDocument, opts models.PutOptions) error {
	var (
		query string
		args  []interface{}
	)
	body := []byte(doc.Body)
	switch {
	case opts.ExpectedVersion > 0:
		query = `UPDATE documents SET body = $3, version = version + 1, updated_at = NOW()
	WHERE namespace = $1 AND id = $2 AND version = $4 RETURNING version, updated_at`
		args = []interface{}{doc.Namespace, doc.ID, body, opts.ExpectedVersion}
	case opts.Upsert:
		query = `INSERT INTO documents (namespace, id, body, version, updated_at) VALUES ($1, $2, $3, 1, NOW())
	ON CONFLICT (namespace, id) DO UPDATE SET body = EXCLUDED.body, version = documents.version + 1, updated_at = NOW()
	RETURNING version, updated_at`
		args = []interface{}{doc.Namespace, doc.ID, body}
	default:
		query = `INSERT INTO documents (namespace, id, body, version, updated_at) VALUES ($1, $2, $3, 1, NOW())
	ON CONFLICT (namespace, id) DO NOTHING RETURNING version, updated_at`
		args = []interface{}{doc.Namespace, doc.ID, body}
	}

	row := q.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&doc.Version, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("put %s/%s: %w", doc.Namespace, doc.ID, ErrVersionConflict)
		}
		return fmt.Errorf("put %s/%s: %w", doc.Namespace, doc.ID, err)
	}
	return nil
}
