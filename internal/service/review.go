package service

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	apperrors "github.com/mamaereview/mamae-review/pkg/errors"
	"github.com/mamaereview/mamae-review/pkg/pagination"

	"github.com/mamaereview/mamae-review/internal/domain"
	"github.com/mamaereview/mamae-review/internal/repository"
	"github.com/mamaereview/mamae-review/internal/stats"
)

// SubmitReviewInput holds the parameters for submitting a review. AuthorID
// and AuthorName come from the authenticated identity, never from the
// request body.
type SubmitReviewInput struct {
	ProductID  string
	Rating     float64
	Comment    string
	AuthorID   string
	AuthorName string
}

// ReviewListResult contains one page of reviews plus aggregate statistics
// over the product's full review set.
type ReviewListResult struct {
	Reviews []*domain.Review   `json:"reviews"`
	Stats   domain.ReviewStats `json:"stats"`

	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// ReviewSnapshot is one delivery of a live review subscription: the full
// current review set and its statistics.
type ReviewSnapshot struct {
	Reviews []*domain.Review   `json:"reviews"`
	Stats   domain.ReviewStats `json:"stats"`
}

// ReviewService implements the business logic for review operations.
type ReviewService struct {
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	rating   *RatingService
	events   Publisher
	logger   *slog.Logger
}

// NewReviewService creates a review service. events may be nil.
func NewReviewService(
	reviews repository.ReviewRepository,
	products repository.ProductRepository,
	rating *RatingService,
	events Publisher,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		products: products,
		rating:   rating,
		events:   events,
		logger:   logger,
	}
}

// HasReviewed reports whether the user already has a review on the product.
func (s *ReviewService) HasReviewed(ctx context.Context, productID, userID string) (bool, error) {
	if productID == "" {
		return false, apperrors.InvalidInput("product_id is required")
	}
	if userID == "" {
		return false, apperrors.InvalidInput("user_id is required")
	}
	return s.reviews.HasReviewed(ctx, productID, userID)
}

// SubmitReview creates a review and synchronously recomputes the product's
// rating. A user may review each product at most once; the check-then-insert
// sequence leaves a narrow race window that the store does not close, so a
// duplicate slipping through is an accepted, rare condition. A recompute
// failure after a successful insert is logged, not returned: the stored
// rating is stale until the next review mutation, which the concurrency
// model accepts as self-healing.
func (s *ReviewService) SubmitReview(ctx context.Context, input *SubmitReviewInput) (*domain.Review, error) {
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if input.AuthorID == "" {
		return nil, apperrors.InvalidInput("author identity is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}
	if n := utf8.RuneCountInString(input.Comment); n < 10 || n > 500 {
		return nil, apperrors.InvalidInput("comment must be between 10 and 500 characters")
	}

	if _, err := s.products.GetByID(ctx, input.ProductID); err != nil {
		return nil, fmt.Errorf("load product %s: %w", input.ProductID, err)
	}

	reviewed, err := s.reviews.HasReviewed(ctx, input.ProductID, input.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if reviewed {
		return nil, apperrors.AlreadyExists("you have already reviewed this product")
	}

	review := &domain.Review{
		ProductID:  input.ProductID,
		Rating:     input.Rating,
		Comment:    input.Comment,
		AuthorID:   input.AuthorID,
		AuthorName: input.AuthorName,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	reviewsSubmittedTotal.Inc()

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.String("author_id", review.AuthorID),
		slog.Float64("rating", review.Rating),
	)

	if _, err := s.rating.Recompute(ctx, input.ProductID); err != nil {
		s.logger.ErrorContext(ctx, "rating recompute failed, rating is stale",
			slog.String("product_id", input.ProductID),
			slog.String("error", err.Error()),
		)
	}

	if s.events != nil {
		if err := s.events.PublishReviewCreated(ctx, review); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish review.created",
				slog.String("review_id", review.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return review, nil
}

// ListReviews returns one page of a product's reviews, sorted by creation
// time (default) or rating, along with statistics over the full set.
func (s *ReviewService) ListReviews(ctx context.Context, productID, sortBy string, params pagination.Params) (*ReviewListResult, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if !domain.IsValidReviewSort(sortBy) {
		return nil, apperrors.InvalidInput("sort must be one of: recent, rating")
	}

	all, err := s.reviews.ListByProduct(ctx, productID, sortBy)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	page, total := pagination.Slice(all, params)
	meta := pagination.NewResult(page, total, params)

	return &ReviewListResult{
		Reviews:    page,
		Stats:      stats.Compute(all),
		TotalCount: meta.TotalCount,
		Page:       meta.Page,
		PerPage:    meta.PerPage,
		TotalPages: meta.TotalPages,
	}, nil
}

// DeleteReview removes a review. Only the review's author may delete it;
// anyone else gets a write-rejected error. The product rating is recomputed
// afterwards, except when the deleted review was the product's last one, in
// which case the stored rating is left as is.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, userID string) error {
	if reviewID == "" {
		return apperrors.InvalidInput("review_id is required")
	}

	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("load review %s: %w", reviewID, err)
	}
	if review.AuthorID != userID {
		return apperrors.Forbidden("only the review author can delete it")
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("delete review %s: %w", reviewID, err)
	}

	reviewsDeletedTotal.Inc()

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("product_id", review.ProductID),
		slog.String("author_id", review.AuthorID),
	)

	if _, err := s.rating.Recompute(ctx, review.ProductID); err != nil {
		s.logger.ErrorContext(ctx, "rating recompute failed, rating is stale",
			slog.String("product_id", review.ProductID),
			slog.String("error", err.Error()),
		)
	}

	if s.events != nil {
		if err := s.events.PublishReviewDeleted(ctx, review); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish review.deleted",
				slog.String("review_id", reviewID),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// Watch opens a live subscription on a product's reviews. Every change to
// the review set delivers a fresh snapshot carrying the full current result
// set and its statistics. The returned channel closes when ctx is
// cancelled.
func (s *ReviewService) Watch(ctx context.Context, productID, sortBy string) (<-chan ReviewSnapshot, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if !domain.IsValidReviewSort(sortBy) {
		return nil, apperrors.InvalidInput("sort must be one of: recent, rating")
	}

	in, err := s.reviews.Subscribe(ctx, productID, sortBy)
	if err != nil {
		return nil, fmt.Errorf("subscribe to reviews: %w", err)
	}

	out := make(chan ReviewSnapshot, 1)
	go func() {
		defer close(out)
		for reviews := range in {
			snapshot := ReviewSnapshot{
				Reviews: reviews,
				Stats:   stats.Compute(reviews),
			}
			select {
			case out <- snapshot:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
