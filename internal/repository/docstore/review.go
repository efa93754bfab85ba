package docstore

import (
	"context"
	"fmt"

	"github.com/mamaereview/mamae-review/internal/domain"
	store "github.com/mamaereview/mamae-review/internal/docstore"
)

const reviewCollection = "reviews"

// Document field names shared by both collections.
const (
	fieldName        = "name"
	fieldCategory    = "category"
	fieldDescription = "description"
	fieldPrice       = "price"
	fieldStoreName   = "store_name"
	fieldStoreURL    = "store_url"
	fieldImageURL    = "image_url"
	fieldRating      = "rating"
	fieldCreatedAt   = "created_at"
	fieldProductID   = "product_id"
	fieldAuthorID    = "author_id"
)

// ReviewRepository persists reviews in a document store.
type ReviewRepository struct {
	store store.Store
}

// NewReviewRepository creates a document-store-backed review repository.
func NewReviewRepository(s store.Store) *ReviewRepository {
	return &ReviewRepository{store: s}
}

// Create inserts a new review and reads back the server-assigned timestamp.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	id, err := r.store.Insert(ctx, reviewCollection, review)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	review.ID = id

	created, err := r.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("read back review %s: %w", id, err)
	}
	review.CreatedAt = created.CreatedAt

	return nil
}

// GetByID fetches one review.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	snap, err := r.store.Get(ctx, reviewCollection, id)
	if err != nil {
		return nil, err
	}

	var review domain.Review
	if err := snap.DataTo(&review); err != nil {
		return nil, err
	}
	review.ID = snap.ID()
	return &review, nil
}

// ListByProduct returns all reviews for a product ordered by creation time
// descending, or rating descending when sortBy is "rating".
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID, sortBy string) ([]*domain.Review, error) {
	snaps, err := r.store.Query(ctx, reviewCollection, reviewQuery(productID, sortBy))
	if err != nil {
		return nil, fmt.Errorf("list reviews for product %s: %w", productID, err)
	}
	return decodeReviews(snaps)
}

// HasReviewed reports whether the user already has a review on the product.
func (r *ReviewRepository) HasReviewed(ctx context.Context, productID, userID string) (bool, error) {
	q := store.Query{Limit: 1}.
		Where(fieldProductID, store.OpEqual, productID).
		Where(fieldAuthorID, store.OpEqual, userID)

	snaps, err := r.store.Query(ctx, reviewCollection, q)
	if err != nil {
		return false, fmt.Errorf("check existing review: %w", err)
	}
	return len(snaps) > 0, nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, reviewCollection, id)
}

// Subscribe opens a live query on the product's reviews. Each store
// snapshot is decoded and forwarded; the returned channel closes when the
// store channel does.
func (r *ReviewRepository) Subscribe(ctx context.Context, productID, sortBy string) (<-chan []*domain.Review, error) {
	in, err := r.store.Subscribe(ctx, reviewCollection, reviewQuery(productID, sortBy))
	if err != nil {
		return nil, fmt.Errorf("subscribe to reviews for product %s: %w", productID, err)
	}

	out := make(chan []*domain.Review, 1)
	go func() {
		defer close(out)
		for snaps := range in {
			reviews, err := decodeReviews(snaps)
			if err != nil {
				continue
			}
			select {
			case out <- reviews:
			default:
				select {
				case <-out:
				default:
				}
				select {
				case out <- reviews:
				default:
				}
			}
		}
	}()

	return out, nil
}

func reviewQuery(productID, sortBy string) store.Query {
	q := store.Query{OrderBy: fieldCreatedAt, Desc: true}
	if sortBy == domain.ReviewSortRating {
		q.OrderBy = fieldRating
	}
	return q.Where(fieldProductID, store.OpEqual, productID)
}

func decodeReviews(snaps []store.Snapshot) ([]*domain.Review, error) {
	reviews := make([]*domain.Review, 0, len(snaps))
	for _, snap := range snaps {
		var review domain.Review
		if err := snap.DataTo(&review); err != nil {
			return nil, err
		}
		review.ID = snap.ID()
		reviews = append(reviews, &review)
	}
	return reviews, nil
}
