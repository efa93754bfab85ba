package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mamaereview/mamae-review/internal/repository"
	"github.com/mamaereview/mamae-review/internal/stats"
)

// RatingService recomputes a product's derived rating from its reviews.
type RatingService struct {
	products repository.ProductRepository
	reviews  repository.ReviewRepository
	cache    Cache
	events   Publisher
	logger   *slog.Logger
}

// NewRatingService creates a rating service. cache and events may be nil.
func NewRatingService(
	products repository.ProductRepository,
	reviews repository.ReviewRepository,
	cache Cache,
	events Publisher,
	logger *slog.Logger,
) *RatingService {
	return &RatingService{
		products: products,
		reviews:  reviews,
		cache:    cache,
		events:   events,
		logger:   logger,
	}
}

// Recompute reads every review of the product and writes the mean rating,
// rounded half-up to one decimal, back onto the product. An empty review
// set leaves the stored rating untouched. The rating write is
// last-writer-wins: concurrent recomputations may briefly undercount, and
// the next review mutation corrects the value.
func (s *RatingService) Recompute(ctx context.Context, productID string) (float64, error) {
	reviews, err := s.reviews.ListByProduct(ctx, productID, "")
	if err != nil {
		return 0, fmt.Errorf("recompute rating for product %s: %w", productID, err)
	}

	if len(reviews) == 0 {
		s.logger.DebugContext(ctx, "no reviews, rating left unchanged",
			slog.String("product_id", productID),
		)
		return 0, nil
	}

	average := stats.Compute(reviews).Average
	if err := s.products.UpdateRating(ctx, productID, average); err != nil {
		return 0, fmt.Errorf("write rating for product %s: %w", productID, err)
	}

	ratingRecomputationsTotal.Inc()

	s.logger.InfoContext(ctx, "product rating recomputed",
		slog.String("product_id", productID),
		slog.Float64("rating", average),
		slog.Int("review_count", len(reviews)),
	)

	s.invalidateFeed(ctx)

	if s.events != nil {
		if err := s.events.PublishRatingUpdated(ctx, productID, average); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish rating update",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}

	return average, nil
}

func (s *RatingService) invalidateFeed(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, feedCachePrefix); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate feed cache",
			slog.String("error", err.Error()),
		)
	}
}
