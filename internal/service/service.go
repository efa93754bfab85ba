// Package service implements the business logic: product CRUD and feed,
// review submission with the one-review-per-user rule, rating aggregation,
// and live review subscriptions.
package service

import (
	"context"
	"time"

	"github.com/mamaereview/mamae-review/internal/domain"
)

// Publisher is the outbound domain-event surface. A nil Publisher disables
// events; publish failures are logged and never fail the triggering
// operation.
type Publisher interface {
	PublishProductCreated(ctx context.Context, product *domain.Product) error
	PublishProductUpdated(ctx context.Context, product *domain.Product) error
	PublishProductDeleted(ctx context.Context, id string) error
	PublishRatingUpdated(ctx context.Context, productID string, rating float64) error
	PublishReviewCreated(ctx context.Context, review *domain.Review) error
	PublishReviewDeleted(ctx context.Context, review *domain.Review) error
}

// Cache is the byte-oriented cache the feed uses. A nil Cache disables
// caching; cache failures degrade to uncached reads.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}
