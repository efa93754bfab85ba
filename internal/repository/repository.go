// Package repository defines the persistence interfaces the services depend
// on. Implementations live in subpackages; tests substitute testify mocks.
package repository

import (
	"context"

	"github.com/mamaereview/mamae-review/internal/domain"
)

// ProductRepository persists products. List pushes the category filter and
// sort order down to the store; substring search and min-rating filtering
// happen in the service layer.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, category, sortBy string) ([]*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	UpdateRating(ctx context.Context, id string, rating float64) error
	Delete(ctx context.Context, id string) error
}

// ReviewRepository persists reviews. Subscribe delivers the full current
// review set for a product on every change until ctx is cancelled.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	ListByProduct(ctx context.Context, productID, sortBy string) ([]*domain.Review, error)
	HasReviewed(ctx context.Context, productID, userID string) (bool, error)
	Delete(ctx context.Context, id string) error
	Subscribe(ctx context.Context, productID, sortBy string) (<-chan []*domain.Review, error)
}
