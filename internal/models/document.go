package models

import (
	"encoding/json"
	"time"
)

// DocumentKey addresses a stored document.
type DocumentKey struct {
	Namespace string
	ID        string
}

// StoredDocument is a JSON document row with its optimistic concurrency version.
type StoredDocument struct {
	Namespace string          `db:"namespace" json:"namespace"`
	ID        string          `db:"id" json:"id"`
	Body      json.RawMessage `db:"body" json:"body"`
	Version   int64           `db:"version" json:"version"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Key returns the address of the document.
func (d *StoredDocument) Key() DocumentKey {
	return DocumentKey{Namespace: d.Namespace, ID: d.ID}
}

// PutOptions controls how a document write is applied.
//
// ExpectedVersion > 0 performs a compare-and-set against the stored version.
// Otherwise Upsert replaces any existing document and a plain put only inserts.
type PutOptions struct {
	Upsert          bool
	ExpectedVersion int64
}
