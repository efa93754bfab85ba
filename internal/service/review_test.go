package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mamaereview/mamae-review/pkg/errors"
	"github.com/mamaereview/mamae-review/pkg/pagination"

	"github.com/mamaereview/mamae-review/internal/domain"
)

func newTestReviewService(reviews *mockReviewRepository, products *mockProductRepository, events Publisher) *ReviewService {
	logger := newTestLogger()
	rating := NewRatingService(products, reviews, nil, nil, logger)
	return NewReviewService(reviews, products, rating, events, logger)
}

func validSubmitInput() *SubmitReviewInput {
	return &SubmitReviewInput{
		ProductID:  "prod-1",
		Rating:     4.5,
		Comment:    "Produto excelente, recomendo para todas as mães.",
		AuthorID:   "user-1",
		AuthorName: "Ana",
	}
}

func TestSubmitReview_Success(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newTestReviewService(reviews, products, nil)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(&domain.Product{ID: "prod-1"}, nil)
	reviews.On("HasReviewed", ctx, "prod-1", "user-1").Return(false, nil)
	reviews.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Run(func(args mock.Arguments) {
		r := args.Get(1).(*domain.Review)
		r.ID = "rev-1"
		r.CreatedAt = time.Now().UTC()
	}).Return(nil)
	// Synchronous recompute after the insert.
	reviews.On("ListByProduct", ctx, "prod-1", "").Return(ratingOnly(4.5), nil)
	products.On("UpdateRating", ctx, "prod-1", 4.5).Return(nil)

	review, err := svc.SubmitReview(ctx, validSubmitInput())

	require.NoError(t, err)
	assert.Equal(t, "rev-1", review.ID)
	assert.Equal(t, "user-1", review.AuthorID)
	assert.Equal(t, "Ana", review.AuthorName)
	assert.Equal(t, 4.5, review.Rating)
	reviews.AssertExpectations(t)
	products.AssertExpectations(t)
}

// Comment length limits count characters, not bytes. A 300-character
// accented comment is 600 bytes and must still be accepted.
func TestSubmitReview_AccentedCommentCountedInCharacters(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newTestReviewService(reviews, products, nil)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(&domain.Product{ID: "prod-1"}, nil)
	reviews.On("HasReviewed", ctx, "prod-1", "user-1").Return(false, nil)
	reviews.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Run(func(args mock.Arguments) {
		r := args.Get(1).(*domain.Review)
		r.ID = "rev-1"
		r.CreatedAt = time.Now().UTC()
	}).Return(nil)
	reviews.On("ListByProduct", ctx, "prod-1", "").Return(ratingOnly(4.5), nil)
	products.On("UpdateRating", ctx, "prod-1", 4.5).Return(nil)

	input := validSubmitInput()
	input.Comment = strings.Repeat("ó", 300)

	review, err := svc.SubmitReview(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, "rev-1", review.ID)
	reviews.AssertExpectations(t)
}

func TestSubmitReview_DuplicateRejectedBeforeInsert(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newTestReviewService(reviews, products, nil)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(&domain.Product{ID: "prod-1"}, nil)
	reviews.On("HasReviewed", ctx, "prod-1", "user-1").Return(true, nil)

	_, err := svc.SubmitReview(ctx, validSubmitInput())

	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	products.AssertNotCalled(t, "UpdateRating", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitReview_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitReviewInput)
	}{
		{"missing product", func(in *SubmitReviewInput) { in.ProductID = "" }},
		{"missing author", func(in *SubmitReviewInput) { in.AuthorID = "" }},
		{"rating too low", func(in *SubmitReviewInput) { in.Rating = 0.5 }},
		{"rating too high", func(in *SubmitReviewInput) { in.Rating = 5.5 }},
		{"comment too short", func(in *SubmitReviewInput) { in.Comment = "curto" }},
		{"comment too long", func(in *SubmitReviewInput) { in.Comment = strings.Repeat("a", 501) }},
		{"accented comment too long", func(in *SubmitReviewInput) { in.Comment = strings.Repeat("ã", 501) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reviews := new(mockReviewRepository)
			products := new(mockProductRepository)
			svc := newTestReviewService(reviews, products, nil)

			input := validSubmitInput()
			tt.mutate(input)

			_, err := svc.SubmitReview(context.Background(), input)

			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitReview_UnknownProduct(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newTestReviewService(reviews, products, nil)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(nil, apperrors.ErrNotFound)

	_, err := svc.SubmitReview(ctx, validSubmitInput())

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmitReview_InsertFailureLeavesNoReview(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newTestReviewService(reviews, products, nil)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(&domain.Product{ID: "prod-1"}, nil)
	reviews.On("HasReviewed", ctx, "prod-1", "user-1").Return(false, nil)
	reviews.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(fmt.Errorf("store down"))

	_, err := svc.SubmitReview(ctx, validSubmitInput())

	assert.Error(t, err)
	// No rating recompute after a failed insert.
	products.AssertNotCalled(t, "UpdateRating", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitReview_RecomputeFailureStillSucceeds(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newTestReviewService(reviews, products, nil)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(&domain.Product{ID: "prod-1"}, nil)
	reviews.On("HasReviewed", ctx, "prod-1", "user-1").Return(false, nil)
	reviews.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)
	reviews.On("ListByProduct", ctx, "prod-1", "").Return(nil, fmt.Errorf("store down"))

	review, err := svc.SubmitReview(ctx, validSubmitInput())

	require.NoError(t, err)
	assert.NotNil(t, review)
}

func TestSubmitReview_PublishesEvent(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	events := new(mockPublisher)
	svc := newTestReviewService(reviews, products, events)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(&domain.Product{ID: "prod-1"}, nil)
	reviews.On("HasReviewed", ctx, "prod-1", "user-1").Return(false, nil)
	reviews.On("Create", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)
	reviews.On("ListByProduct", ctx, "prod-1", "").Return(ratingOnly(4.5), nil)
	products.On("UpdateRating", ctx, "prod-1", 4.5).Return(nil)
	events.On("PublishReviewCreated", ctx, mock.AnythingOfType("*domain.Review")).Return(nil)

	_, err := svc.SubmitReview(ctx, validSubmitInput())

	require.NoError(t, err)
	events.AssertExpectations(t)
}

func TestHasReviewed(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newTestReviewService(reviews, products, nil)
	ctx := context.Background()

	reviews.On("HasReviewed", ctx, "prod-1", "user-1").Return(true, nil)

	has, err := svc.HasReviewed(ctx, "prod-1", "user-1")

	require.NoError(t, err)
	assert.True(t, has)
}

func TestListReviews_PaginatesAndComputesStats(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newTestReviewService(reviews, products, nil)
	ctx := context.Background()

	reviews.On("ListByProduct", ctx, "prod-1", domain.ReviewSortRecent).
		Return(ratingOnly(5, 4, 3), nil)

	result, err := svc.ListReviews(ctx, "prod-1", domain.ReviewSortRecent, pagination.Params{Page: 1, PerPage: 2})

	require.NoError(t, err)
	assert.Len(t, result.Reviews, 2)
	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, 2, result.TotalPages)
	// Stats cover the full set, not just the page.
	assert.Equal(t, 4.0, result.Stats.Average)
	assert.Equal(t, 3, result.Stats.Total)
}

func TestListReviews_InvalidSort(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newTestReviewService(reviews, products, nil)

	_, err := svc.ListReviews(context.Background(), "prod-1", "oldest", pagination.DefaultParams())

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestDeleteReview_AuthorOnly(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newTestReviewService(reviews, products, nil)
	ctx := context.Background()

	reviews.On("GetByID", ctx, "rev-1").Return(&domain.Review{
		ID: "rev-1", ProductID: "prod-1", AuthorID: "user-1",
	}, nil)

	err := svc.DeleteReview(ctx, "rev-1", "someone-else")

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	reviews.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteReview_RecomputesRating(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newTestReviewService(reviews, products, nil)
	ctx := context.Background()

	reviews.On("GetByID", ctx, "rev-1").Return(&domain.Review{
		ID: "rev-1", ProductID: "prod-1", AuthorID: "user-1", Rating: 2,
	}, nil)
	reviews.On("Delete", ctx, "rev-1").Return(nil)
	reviews.On("ListByProduct", ctx, "prod-1", "").Return(ratingOnly(5, 4), nil)
	products.On("UpdateRating", ctx, "prod-1", 4.5).Return(nil)

	err := svc.DeleteReview(ctx, "rev-1", "user-1")

	require.NoError(t, err)
	reviews.AssertExpectations(t)
	products.AssertExpectations(t)
}

func TestDeleteReview_LastReviewLeavesRating(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newTestReviewService(reviews, products, nil)
	ctx := context.Background()

	reviews.On("GetByID", ctx, "rev-1").Return(&domain.Review{
		ID: "rev-1", ProductID: "prod-1", AuthorID: "user-1",
	}, nil)
	reviews.On("Delete", ctx, "rev-1").Return(nil)
	reviews.On("ListByProduct", ctx, "prod-1", "").Return(ratingOnly(), nil)

	err := svc.DeleteReview(ctx, "rev-1", "user-1")

	require.NoError(t, err)
	products.AssertNotCalled(t, "UpdateRating", mock.Anything, mock.Anything, mock.Anything)
}

func TestWatch_DeliversSnapshotsWithStats(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newTestReviewService(reviews, products, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := make(chan []*domain.Review, 2)
	reviews.On("Subscribe", ctx, "prod-1", domain.ReviewSortRecent).Return(source, nil)

	ch, err := svc.Watch(ctx, "prod-1", domain.ReviewSortRecent)
	require.NoError(t, err)

	source <- ratingOnly(5, 4, 3)

	select {
	case snapshot := <-ch:
		assert.Len(t, snapshot.Reviews, 3)
		assert.Equal(t, 4.0, snapshot.Stats.Average)
		assert.Equal(t, 3, snapshot.Stats.Total)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	close(source)

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should close when the source closes")
	case <-time.After(time.Second):
		t.Fatal("channel did not close")
	}
}

func TestWatch_InvalidSort(t *testing.T) {
	reviews := new(mockReviewRepository)
	products := new(mockProductRepository)
	svc := newTestReviewService(reviews, products, nil)

	_, err := svc.Watch(context.Background(), "prod-1", "oldest")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
