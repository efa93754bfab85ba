// Package docstore defines the document-store collaborator contract the
// review core is written against. Implementations provide named collections
// of schemaless documents with equality filters, descending order-by,
// limits, partial updates, and live-query subscriptions.
package docstore

import (
	"context"
)

// Filter operators supported by all implementations.
const (
	OpEqual          = "=="
	OpGreaterOrEqual = ">="
	OpLessOrEqual    = "<="
)

// Filter is a single field predicate applied to a query.
type Filter struct {
	Field string
	Op    string
	Value any
}

// Query describes a collection query: conjunctive filters, an optional
// order-by field, and an optional result limit (0 means unlimited).
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Where appends an equality-or-range filter to the query.
func (q Query) Where(field, op string, value any) Query {
	q.Filters = append(q.Filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Snapshot is a read view of a single stored document.
type Snapshot interface {
	// ID returns the store-assigned document identifier.
	ID() string
	// DataTo decodes the document fields into target, which must be a
	// pointer to a struct.
	DataTo(target any) error
}

// Store is the injected document-store collaborator. All operations honor
// context cancellation. Fields tagged with serverTimestamp semantics (a zero
// time.Time value on insert) are populated by the store at write time.
type Store interface {
	// Insert adds a document to the collection and returns its new ID.
	Insert(ctx context.Context, collection string, doc any) (string, error)

	// Get fetches one document by ID. Returns pkg/errors.ErrNotFound when
	// no document exists under that ID.
	Get(ctx context.Context, collection, id string) (Snapshot, error)

	// Query returns all documents matching q, ordered per q.OrderBy.
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)

	// Update merges fields into an existing document, preserving untouched
	// fields. Returns pkg/errors.ErrNotFound for a missing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Subscribe opens a live query. The returned channel receives the full
	// current result set on every change, starting with the current state,
	// and is closed when ctx is cancelled. Slow consumers may miss
	// intermediate snapshots but always observe the latest state.
	Subscribe(ctx context.Context, collection string, q Query) (<-chan []Snapshot, error)

	// Ping verifies connectivity, for readiness checks.
	Ping(ctx context.Context) error

	// Close releases the underlying client.
	Close() error
}
