// Package firestore backs the document-store contract with Cloud Firestore.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mamaereview/mamae-review/internal/docstore"
	"github.com/mamaereview/mamae-review/pkg/errors"
)

// Config holds Firestore connection configuration.
type Config struct {
	ProjectID       string
	CredentialsFile string
}

// Store implements docstore.Store on top of a Firestore client.
type Store struct {
	client *firestore.Client
}

// New creates a Firestore-backed store. When CredentialsFile is empty the
// client falls back to application default credentials.
func New(ctx context.Context, cfg Config) (*Store, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// wrapErr maps gRPC status codes onto the shared error taxonomy so callers
// can distinguish missing documents and unreachable backends from other
// store failures.
func wrapErr(op string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return errors.ErrNotFound
	case codes.Unavailable:
		return fmt.Errorf("%s: %w", op, errors.ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type snapshot struct {
	doc *firestore.DocumentSnapshot
}

func (s *snapshot) ID() string { return s.doc.Ref.ID }

func (s *snapshot) DataTo(target any) error {
	if err := s.doc.DataTo(target); err != nil {
		return fmt.Errorf("decode document %s: %w", s.doc.Ref.ID, err)
	}
	return nil
}

// Insert adds a document with an auto-generated ID.
func (s *Store) Insert(ctx context.Context, collection string, doc any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, doc)
	if err != nil {
		return "", wrapErr(fmt.Sprintf("insert into %s", collection), err)
	}
	return ref.ID, nil
}

// Get fetches one document by ID.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Snapshot, error) {
	doc, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("get %s/%s", collection, id), err)
	}
	return &snapshot{doc: doc}, nil
}

// Query returns all documents matching q.
func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	iter := s.buildQuery(collection, q).Documents(ctx)
	defer iter.Stop()

	var results []docstore.Snapshot
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapErr(fmt.Sprintf("query %s", collection), err)
		}
		results = append(results, &snapshot{doc: doc})
	}
	return results, nil
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}

	_, err := s.client.Collection(collection).Doc(id).Update(ctx, updates)
	if err != nil {
		return wrapErr(fmt.Sprintf("update %s/%s", collection, id), err)
	}
	return nil
}

// Delete removes a document. Firestore treats deleting a missing document
// as a successful no-op, matching the contract.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return wrapErr(fmt.Sprintf("delete %s/%s", collection, id), err)
	}
	return nil
}

// Subscribe opens a Firestore snapshot listener. Each listener snapshot is
// expanded into the full current result set and forwarded on the returned
// channel, dropping stale sets when the consumer lags. The channel closes
// when ctx is cancelled or the listener fails.
func (s *Store) Subscribe(ctx context.Context, collection string, q docstore.Query) (<-chan []docstore.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	iter := s.buildQuery(collection, q).Snapshots(ctx)
	ch := make(chan []docstore.Snapshot, 1)

	go func() {
		defer close(ch)
		defer iter.Stop()

		for {
			snap, err := iter.Next()
			if err != nil {
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				return
			}
			results := make([]docstore.Snapshot, 0, len(docs))
			for _, doc := range docs {
				results = append(results, &snapshot{doc: doc})
			}
			select {
			case ch <- results:
			default:
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- results:
				default:
				}
			}
		}
	}()

	return ch, nil
}

// Ping verifies connectivity by listing collections.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collections(ctx).Next()
	if err != nil && err != iterator.Done {
		return fmt.Errorf("ping firestore: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) buildQuery(collection string, q docstore.Query) firestore.Query {
	fq := s.client.Collection(collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, f.Op, f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq
}
