package scoring

import (
	"encoding/json"
	"fmt"
)

// Document is a decoded JSON object as stored on a faculty record.
type Document map[string]interface{}

// Merge fills every key of defaults that is absent (or null) in incoming,
// recursing into nested objects. Keys present only in incoming are kept.
// Neither argument is modified.
func Merge(defaults, incoming Document) Document {
	out := make(Document, len(defaults)+len(incoming))
	for k, v := range incoming {
		out[k] = cloneValue(v)
	}
	for k, dv := range defaults {
		iv, ok := incoming[k]
		if !ok || iv == nil {
			out[k] = cloneValue(dv)
			continue
		}
		dm, dIsDoc := asDocument(dv)
		im, iIsDoc := asDocument(iv)
		if dIsDoc && iIsDoc {
			out[k] = Merge(dm, im)
		}
	}
	return out
}

// Overlay writes src onto dst recursively, replacing scalars and keeping
// dst keys that src does not mention. dst is modified in place.
func Overlay(dst, src Document) Document {
	if dst == nil {
		dst = make(Document, len(src))
	}
	for k, sv := range src {
		sm, sIsDoc := asDocument(sv)
		dm, dIsDoc := asDocument(dst[k])
		if sIsDoc && dIsDoc {
			dst[k] = Overlay(dm, sm)
			continue
		}
		dst[k] = cloneValue(sv)
	}
	return dst
}

// AsDocument converts a decoded JSON value into a Document when it is an object.
func AsDocument(v interface{}) (Document, bool) {
	return asDocument(v)
}

func asDocument(v interface{}) (Document, bool) {
	switch typed := v.(type) {
	case Document:
		return typed, true
	case map[string]interface{}:
		return Document(typed), true
	default:
		return nil, false
	}
}

func cloneValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case Document:
		return cloneDocument(typed)
	case map[string]interface{}:
		return cloneDocument(Document(typed))
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

// toDocument round-trips a typed record through JSON.
func toDocument(v interface{}) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDocument(doc Document, target interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSection, err)
	}
	return nil
}
