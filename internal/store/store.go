package store

import (
	"context"
	"errors"
)

// ErrNoIdentity is returned when an operation is attempted without a user.
var ErrNoIdentity = errors.New("no authenticated user identity")

// Document is one user's persisted state. Fields not named in a Merge are
// left untouched, so screens that own different fields never clobber each
// other.
type Document map[string]any

// DocumentStore persists one Document per user identity.
type DocumentStore interface {
	// Get returns the user's document. A missing document is an empty
	// Document and a nil error.
	Get(ctx context.Context, userID string) (Document, error)
	// Merge writes fields into the user's document, creating it if needed.
	Merge(ctx context.Context, userID string, fields Document) error
}

// Strings reads a string list field, tolerating the []any shape produced
// by JSON and DynamoDB decoding. Non-string elements are skipped.
func (d Document) Strings(field string) []string {
	switch v := d[field].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}
