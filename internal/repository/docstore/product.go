package docstore

import (
	"context"
	"fmt"

	"github.com/mamaereview/mamae-review/internal/domain"
	store "github.com/mamaereview/mamae-review/internal/docstore"
)

const productCollection = "products"

// ProductRepository persists products in a document store.
type ProductRepository struct {
	store store.Store
}

// NewProductRepository creates a document-store-backed product repository.
func NewProductRepository(s store.Store) *ProductRepository {
	return &ProductRepository{store: s}
}

// Create inserts a new product. The store assigns the ID and creation
// timestamp; the derived rating always starts at zero.
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	product.Rating = 0

	id, err := r.store.Insert(ctx, productCollection, product)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	product.ID = id

	// Read back to pick up the server-assigned timestamp.
	created, err := r.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("read back product %s: %w", id, err)
	}
	product.CreatedAt = created.CreatedAt

	return nil
}

// GetByID fetches one product.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	snap, err := r.store.Get(ctx, productCollection, id)
	if err != nil {
		return nil, err
	}

	var product domain.Product
	if err := snap.DataTo(&product); err != nil {
		return nil, err
	}
	product.ID = snap.ID()
	return &product, nil
}

// List returns products, optionally restricted to a category, ordered by
// rating or creation time descending.
func (r *ProductRepository) List(ctx context.Context, category, sortBy string) ([]*domain.Product, error) {
	q := store.Query{OrderBy: fieldCreatedAt, Desc: true}
	if sortBy == domain.FeedSortRating {
		q.OrderBy = fieldRating
	}
	if category != "" {
		q = q.Where(fieldCategory, store.OpEqual, category)
	}

	snaps, err := r.store.Query(ctx, productCollection, q)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products := make([]*domain.Product, 0, len(snaps))
	for _, snap := range snaps {
		var product domain.Product
		if err := snap.DataTo(&product); err != nil {
			return nil, err
		}
		product.ID = snap.ID()
		products = append(products, &product)
	}
	return products, nil
}

// Update rewrites the owner-editable fields. ID, owner, creation time, and
// the derived rating are never touched here.
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	fields := map[string]any{
		fieldName:        product.Name,
		fieldCategory:    product.Category,
		fieldDescription: product.Description,
		fieldPrice:       product.Price,
		fieldStoreName:   product.StoreName,
		fieldStoreURL:    product.StoreURL,
		fieldImageURL:    product.ImageURL,
	}
	if err := r.store.Update(ctx, productCollection, product.ID, fields); err != nil {
		return err
	}
	return nil
}

// UpdateRating writes only the derived rating field.
func (r *ProductRepository) UpdateRating(ctx context.Context, id string, rating float64) error {
	return r.store.Update(ctx, productCollection, id, map[string]any{fieldRating: rating})
}

// Delete removes a product. Its reviews are intentionally left in place.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, productCollection, id)
}
