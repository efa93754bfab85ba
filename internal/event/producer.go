package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mamaereview/mamae-review/internal/domain"
	pkgkafka "github.com/mamaereview/mamae-review/pkg/kafka"
)

// Kafka topic constants for review and product domain events.
const (
	TopicProductCreated       = "mamaereview.product.created"
	TopicProductUpdated       = "mamaereview.product.updated"
	TopicProductDeleted       = "mamaereview.product.deleted"
	TopicProductRatingUpdated = "mamaereview.product.rating_updated"
	TopicReviewCreated        = "mamaereview.review.created"
	TopicReviewDeleted        = "mamaereview.review.deleted"
)

// Aggregate type constants.
const (
	AggregateTypeProduct = "product"
	AggregateTypeReview  = "review"
)

// Source identifier for events originating from this service.
const SourceReviewService = "mamae-review"

// ProductData is the payload for product.created and product.updated events.
type ProductData struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	StoreName string  `json:"store_name"`
	OwnerID   string  `json:"owner_id"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// RatingUpdatedData is the payload for a product.rating_updated event.
type RatingUpdatedData struct {
	ProductID string  `json:"product_id"`
	Rating    float64 `json:"rating"`
}

// ReviewData is the payload for review.created and review.deleted events.
type ReviewData struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Rating    float64 `json:"rating"`
	AuthorID  string  `json:"author_id"`
}

// Producer publishes domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publishProduct(ctx, TopicProductCreated, product)
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publishProduct(ctx, TopicProductUpdated, product)
}

func (p *Producer) publishProduct(ctx context.Context, topic string, product *domain.Product) error {
	data := ProductData{
		ID:        product.ID,
		Name:      product.Name,
		Category:  product.Category,
		Price:     product.Price,
		StoreName: product.StoreName,
		OwnerID:   product.OwnerID,
	}

	event, err := pkgkafka.NewEvent(topic, product.ID, AggregateTypeProduct, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published product event",
		slog.String("topic", topic),
		slog.String("product_id", product.ID),
	)

	return nil
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string) error {
	data := ProductDeletedData{ID: id}

	event, err := pkgkafka.NewEvent(TopicProductDeleted, id, AggregateTypeProduct, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create product.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductDeleted, event); err != nil {
		return fmt.Errorf("publish product.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.deleted event",
		slog.String("product_id", id),
	)

	return nil
}

// PublishRatingUpdated publishes a product.rating_updated event after a
// recomputation writes a new derived rating.
func (p *Producer) PublishRatingUpdated(ctx context.Context, productID string, rating float64) error {
	data := RatingUpdatedData{ProductID: productID, Rating: rating}

	event, err := pkgkafka.NewEvent(TopicProductRatingUpdated, productID, AggregateTypeProduct, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create product.rating_updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductRatingUpdated, event); err != nil {
		return fmt.Errorf("publish product.rating_updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.rating_updated event",
		slog.String("product_id", productID),
		slog.Float64("rating", rating),
	)

	return nil
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return p.publishReview(ctx, TopicReviewCreated, review)
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, review *domain.Review) error {
	return p.publishReview(ctx, TopicReviewDeleted, review)
}

func (p *Producer) publishReview(ctx context.Context, topic string, review *domain.Review) error {
	data := ReviewData{
		ID:        review.ID,
		ProductID: review.ProductID,
		Rating:    review.Rating,
		AuthorID:  review.AuthorID,
	}

	event, err := pkgkafka.NewEvent(topic, review.ID, AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published review event",
		slog.String("topic", topic),
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
	)

	return nil
}
