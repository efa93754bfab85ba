package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/mamaereview/mamae-review/pkg/errors"
	"github.com/mamaereview/mamae-review/pkg/pagination"

	"github.com/mamaereview/mamae-review/internal/domain"
	"github.com/mamaereview/mamae-review/internal/repository"
)

const feedCachePrefix = "feed:"

// CreateProductInput holds the parameters for creating a product. OwnerID
// and OwnerName come from the authenticated identity.
type CreateProductInput struct {
	Name        string
	Category    string
	Description string
	Price       float64
	StoreName   string
	StoreURL    string
	ImageURL    string
	OwnerID     string
	OwnerName   string
}

// UpdateProductInput holds the owner-editable product fields. Nil pointers
// leave the stored value unchanged.
type UpdateProductInput struct {
	Name        *string
	Category    *string
	Description *string
	Price       *float64
	StoreName   *string
	StoreURL    *string
	ImageURL    *string
}

// FeedFilter narrows the product feed. Search matches case-insensitive
// substrings of the product name and store name.
type FeedFilter struct {
	Search    string
	Category  string
	MinRating float64
	SortBy    string
}

// ProductService implements the business logic for product operations.
type ProductService struct {
	products repository.ProductRepository
	cache    Cache
	cacheTTL time.Duration
	events   Publisher
	logger   *slog.Logger
}

// NewProductService creates a product service. cache and events may be nil.
func NewProductService(
	products repository.ProductRepository,
	cache Cache,
	cacheTTL time.Duration,
	events Publisher,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		products: products,
		cache:    cache,
		cacheTTL: cacheTTL,
		events:   events,
		logger:   logger,
	}
}

// CreateProduct registers a new product. The derived rating starts at zero
// regardless of input.
func (s *ProductService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if !domain.IsValidCategory(input.Category) {
		return nil, apperrors.InvalidInput("invalid category")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must be non-negative")
	}
	if input.OwnerID == "" {
		return nil, apperrors.InvalidInput("owner identity is required")
	}

	product := &domain.Product{
		Name:        input.Name,
		Category:    input.Category,
		Description: input.Description,
		Price:       input.Price,
		StoreName:   input.StoreName,
		StoreURL:    input.StoreURL,
		ImageURL:    input.ImageURL,
		OwnerID:     input.OwnerID,
		OwnerName:   input.OwnerName,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("category", product.Category),
		slog.String("owner_id", product.OwnerID),
	)

	s.invalidateFeed(ctx)
	if s.events != nil {
		if err := s.events.PublishProductCreated(ctx, product); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish product.created",
				slog.String("product_id", product.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return product, nil
}

// GetProduct fetches one product by ID.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	return s.products.GetByID(ctx, id)
}

// UpdateProduct applies owner edits to a product. The derived rating, the
// owner, and the creation time cannot be changed.
func (s *ProductService) UpdateProduct(ctx context.Context, id, userID string, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", id, err)
	}
	if product.OwnerID != userID {
		return nil, apperrors.Forbidden("only the product owner can update it")
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Category != nil {
		if !domain.IsValidCategory(*input.Category) {
			return nil, apperrors.InvalidInput("invalid category")
		}
		product.Category = *input.Category
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperrors.InvalidInput("price must be non-negative")
		}
		product.Price = *input.Price
	}
	if input.StoreName != nil {
		product.StoreName = *input.StoreName
	}
	if input.StoreURL != nil {
		product.StoreURL = *input.StoreURL
	}
	if input.ImageURL != nil {
		product.ImageURL = *input.ImageURL
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", id),
	)

	s.invalidateFeed(ctx)
	if s.events != nil {
		if err := s.events.PublishProductUpdated(ctx, product); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish product.updated",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	return product, nil
}

// DeleteProduct removes a product. Its reviews are left in place; they are
// unreachable through the product routes once the product is gone.
func (s *ProductService) DeleteProduct(ctx context.Context, id, userID string) error {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load product %s: %w", id, err)
	}
	if product.OwnerID != userID {
		return apperrors.Forbidden("only the product owner can delete it")
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
	)

	s.invalidateFeed(ctx)
	if s.events != nil {
		if err := s.events.PublishProductDeleted(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish product.deleted",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// Feed returns one page of the product feed. The category filter and sort
// are pushed down to the store; search and min-rating run in process. Pages
// are cached with a short TTL and invalidated on any product or rating
// mutation.
func (s *ProductService) Feed(ctx context.Context, filter FeedFilter, params pagination.Params) (*pagination.Result[*domain.Product], error) {
	if filter.Category != "" && !domain.IsValidCategory(filter.Category) {
		return nil, apperrors.InvalidInput("invalid category")
	}
	if !domain.IsValidFeedSort(filter.SortBy) {
		return nil, apperrors.InvalidInput("sort must be one of: recent, rating")
	}
	if filter.MinRating < 0 || filter.MinRating > 5 {
		return nil, apperrors.InvalidInput("min_rating must be between 0 and 5")
	}

	key := feedCacheKey(filter, params)
	if s.cache != nil {
		if data, found, err := s.cache.Get(ctx, key); err == nil && found {
			var cached pagination.Result[*domain.Product]
			if err := json.Unmarshal(data, &cached); err == nil {
				feedCacheHitsTotal.Inc()
				return &cached, nil
			}
		}
		feedCacheMissesTotal.Inc()
	}

	products, err := s.products.List(ctx, filter.Category, filter.SortBy)
	if err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}

	matched := products[:0:0]
	search := strings.ToLower(filter.Search)
	for _, p := range products {
		if p.Rating < filter.MinRating {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.StoreName), search) {
			continue
		}
		matched = append(matched, p)
	}

	page, total := pagination.Slice(matched, params)
	result := pagination.NewResult(page, total, params)

	if s.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
				s.logger.WarnContext(ctx, "failed to cache feed page",
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return &result, nil
}

func (s *ProductService) invalidateFeed(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, feedCachePrefix); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate feed cache",
			slog.String("error", err.Error()),
		)
	}
}

func feedCacheKey(filter FeedFilter, params pagination.Params) string {
	return fmt.Sprintf("%s%s:%s:%.1f:%s:%d:%d",
		feedCachePrefix,
		strings.ToLower(filter.Search),
		filter.Category,
		filter.MinRating,
		filter.SortBy,
		params.Page,
		params.PerPage,
	)
}
