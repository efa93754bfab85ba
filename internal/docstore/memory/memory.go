// Package memory provides an in-memory document store for tests and local
// runs. It implements the same contract as the Firestore-backed store,
// including live-query subscriptions and server-assigned timestamps.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mamaereview/mamae-review/internal/docstore"
	"github.com/mamaereview/mamae-review/pkg/errors"
)

// zeroTime is how a zero time.Time marshals to JSON. Insert replaces it
// with the current time to emulate server-assigned timestamps.
const zeroTime = "0001-01-01T00:00:00Z"

type subscriber struct {
	collection string
	query      docstore.Query
	ch         chan []docstore.Snapshot
}

// Store is a thread-safe in-memory docstore.Store.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	subscribers map[*subscriber]struct{}
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		subscribers: make(map[*subscriber]struct{}),
	}
}

type snapshot struct {
	id   string
	data map[string]any
}

func (s *snapshot) ID() string { return s.id }

func (s *snapshot) DataTo(target any) error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Insert adds a document and returns its generated ID. Zero time fields are
// replaced with the current time, mirroring server timestamp behavior.
func (s *Store) Insert(ctx context.Context, collection string, doc any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fields, err := toFields(doc)
	if err != nil {
		return "", err
	}
	for k, v := range fields {
		if str, ok := v.(string); ok && str == zeroTime {
			fields[k] = time.Now().UTC().Format(time.RFC3339Nano)
		}
	}

	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]any)
	}
	s.collections[collection][id] = fields
	s.notifyLocked(collection)

	return id, nil
}

// Get fetches one document by ID.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.collections[collection][id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return &snapshot{id: id, data: cloneFields(fields)}, nil
}

// Query returns all documents matching q.
func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryLocked(collection, q), nil
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	normalized, err := toFields(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return errors.ErrNotFound
	}
	for k, v := range normalized {
		doc[k] = v
	}
	s.notifyLocked(collection)

	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return nil
	}
	delete(s.collections[collection], id)
	s.notifyLocked(collection)

	return nil
}

// Subscribe opens a live query. The channel carries the current result set
// immediately, then again after every mutation of the collection. The
// channel buffer holds one snapshot; when the consumer lags, stale snapshots
// are dropped in favor of the latest.
func (s *Store) Subscribe(ctx context.Context, collection string, q docstore.Query) (<-chan []docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &subscriber{
		collection: collection,
		query:      q,
		ch:         make(chan []docstore.Snapshot, 1),
	}

	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	sub.ch <- s.queryLocked(collection, q)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subscribers, sub)
		close(sub.ch)
		s.mu.Unlock()
	}()

	return sub.ch, nil
}

// Ping always succeeds for the in-memory store.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func (s *Store) queryLocked(collection string, q docstore.Query) []docstore.Snapshot {
	var results []docstore.Snapshot
	for id, fields := range s.collections[collection] {
		if matches(fields, q.Filters) {
			results = append(results, &snapshot{id: id, data: cloneFields(fields)})
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(results, func(i, j int) bool {
			a := results[i].(*snapshot).data[q.OrderBy]
			b := results[j].(*snapshot).data[q.OrderBy]
			if q.Desc {
				return less(b, a)
			}
			return less(a, b)
		})
	}

	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results
}

// notifyLocked pushes fresh result sets to every subscriber of the mutated
// collection. Sends never block: a pending stale snapshot is discarded so
// the consumer always sees the latest state. Callers must hold s.mu.
func (s *Store) notifyLocked(collection string) {
	for sub := range s.subscribers {
		if sub.collection != collection {
			continue
		}
		snaps := s.queryLocked(collection, sub.query)
		select {
		case sub.ch <- snaps:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snaps:
			default:
			}
		}
	}
}

func matches(fields map[string]any, filters []docstore.Filter) bool {
	for _, f := range filters {
		actual, ok := fields[f.Field]
		if !ok {
			return false
		}
		expected := normalize(f.Value)
		actual = normalize(actual)
		switch f.Op {
		case docstore.OpEqual:
			if actual != expected {
				return false
			}
		case docstore.OpGreaterOrEqual:
			if less(actual, expected) {
				return false
			}
		case docstore.OpLessOrEqual:
			if less(expected, actual) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// normalize coerces filter and document values into the comparable set the
// JSON encoding produces: float64 for numbers, RFC3339 strings for times.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// less compares two document values. Timestamp strings are compared as
// times because RFC3339Nano trims trailing zeros and does not sort
// lexicographically.
func less(a, b any) bool {
	a, b = normalize(a), normalize(b)
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && x < y
	case string:
		y, ok := b.(string)
		if !ok {
			return false
		}
		ta, errA := time.Parse(time.RFC3339Nano, x)
		tb, errB := time.Parse(time.RFC3339Nano, y)
		if errA == nil && errB == nil {
			return ta.Before(tb)
		}
		return x < y
	default:
		return false
	}
}

func toFields(doc any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fields, nil
}

func cloneFields(fields map[string]any) map[string]any {
	clone := make(map[string]any, len(fields))
	for k, v := range fields {
		clone[k] = v
	}
	return clone
}
