package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/repository"
)

// memoryDocuments mimics the JSONB document table including version checks.
type memoryDocuments struct {
	mu   sync.Mutex
	docs map[models.DocumentKey]models.StoredDocument

	// beforePut runs once per Put before the version check, letting tests
	// simulate a concurrent writer.
	beforePut func(key models.DocumentKey)
	putErr    error
	puts      int
}

func newMemoryDocuments() *memoryDocuments {
	return &memoryDocuments{docs: make(map[models.DocumentKey]models.StoredDocument)}
}

func (m *memoryDocuments) Get(ctx context.Context, key models.DocumentKey) (*models.StoredDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := doc
	copied.Body = append(json.RawMessage(nil), doc.Body...)
	return &copied, nil
}

func (m *memoryDocuments) Put(ctx context.Context, doc *models.StoredDocument, opts models.PutOptions) error {
	if hook := m.beforePut; hook != nil {
		m.beforePut = nil
		hook(doc.Key())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	return m.putLocked(doc, opts)
}

func (m *memoryDocuments) PutAll(ctx context.Context, docs []*models.StoredDocument, opts []models.PutOptions) error {
	if hook := m.beforePut; hook != nil {
		m.beforePut = nil
		hook(docs[0].Key())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, doc := range docs {
		current, ok := m.docs[doc.Key()]
		if !m.versionMatches(current, ok, opts[i]) {
			return repository.ErrVersionConflict
		}
	}
	for i, doc := range docs {
		if err := m.putLocked(doc, opts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryDocuments) UpdateFields(ctx context.Context, key models.DocumentKey, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		return sql.ErrNoRows
	}
	var body map[string]interface{}
	if err := json.Unmarshal(doc.Body, &body); err != nil {
		return err
	}
	for path, value := range fields {
		body[path] = value
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	doc.Body = raw
	doc.Version++
	m.docs[key] = doc
	return nil
}

func (m *memoryDocuments) versionMatches(current models.StoredDocument, exists bool, opts models.PutOptions) bool {
	switch {
	case opts.ExpectedVersion > 0:
		return exists && current.Version == opts.ExpectedVersion
	case opts.Upsert:
		return true
	default:
		return !exists
	}
}

func (m *memoryDocuments) putLocked(doc *models.StoredDocument, opts models.PutOptions) error {
	current, ok := m.docs[doc.Key()]
	if !m.versionMatches(current, ok, opts) {
		return repository.ErrVersionConflict
	}
	m.puts++
	doc.Version = current.Version + 1
	doc.UpdatedAt = time.Now().UTC()
	stored := *doc
	stored.Body = append(json.RawMessage(nil), doc.Body...)
	m.docs[doc.Key()] = stored
	return nil
}

func (m *memoryDocuments) seed(t *testing.T, dept models.Department, id string, value interface{}) {
	t.Helper()
	body, err := json.Marshal(value)
	require.NoError(t, err)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[models.DocumentKey{Namespace: dept.Namespace(), ID: id}] = models.StoredDocument{
		Namespace: dept.Namespace(),
		ID:        id,
		Body:      body,
		Version:   1,
	}
}

func (m *memoryDocuments) decode(t *testing.T, dept models.Department, id string, dest interface{}) int64 {
	t.Helper()
	doc, err := m.Get(context.Background(), models.DocumentKey{Namespace: dept.Namespace(), ID: id})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(doc.Body, dest))
	return doc.Version
}

// bumpVersion simulates another writer touching the document.
func (m *memoryDocuments) bumpVersion(key models.DocumentKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.docs[key]
	doc.Version++
	m.docs[key] = doc
}
