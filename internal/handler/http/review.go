package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mamaereview/mamae-review/pkg/httputil"
	"github.com/mamaereview/mamae-review/pkg/middleware"
	"github.com/mamaereview/mamae-review/pkg/pagination"
	"github.com/mamaereview/mamae-review/pkg/validator"

	"github.com/mamaereview/mamae-review/internal/service"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// SubmitReviewRequest is the JSON request body for submitting a review.
type SubmitReviewRequest struct {
	Rating  float64 `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string  `json:"comment" validate:"required,min=10,max=500"`
}

// --- Handlers ---

// ListReviews handles GET /api/v1/products/{productId}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListReviews(r.Context(),
		chi.URLParam(r, "productId"),
		r.URL.Query().Get("sort"),
		pagination.FromRequest(r),
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// SubmitReview handles POST /api/v1/products/{productId}/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SubmitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.SubmitReviewInput{
		ProductID:  chi.URLParam(r, "productId"),
		Rating:     req.Rating,
		Comment:    req.Comment,
		AuthorID:   middleware.UserIDFromContext(r.Context()),
		AuthorName: middleware.UserNameFromContext(r.Context()),
	}

	review, err := h.service.SubmitReview(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// HasReviewed handles GET /api/v1/products/{productId}/reviews/mine
func (h *ReviewHandler) HasReviewed(w http.ResponseWriter, r *http.Request) {
	has, err := h.service.HasReviewed(r.Context(),
		chi.URLParam(r, "productId"),
		middleware.UserIDFromContext(r.Context()),
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]bool{"has_reviewed": has},
	})
}

// DeleteReview handles DELETE /api/v1/reviews/{reviewId}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteReview(r.Context(),
		chi.URLParam(r, "reviewId"),
		middleware.UserIDFromContext(r.Context()),
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StreamReviews handles GET /api/v1/products/{productId}/reviews/stream
//
// The response is a server-sent event stream. Every change to the product's
// review set delivers one "snapshot" event carrying the full current review
// list and its statistics. The stream ends when the client disconnects.
func (h *ReviewHandler) StreamReviews(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INTERNAL_ERROR", Message: "streaming unsupported"},
		})
		return
	}

	ctx := r.Context()
	snapshots, err := h.service.Watch(ctx,
		chi.URLParam(r, "productId"),
		r.URL.Query().Get("sort"),
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			data, err := json.Marshal(snapshot)
			if err != nil {
				h.logger.ErrorContext(ctx, "failed to encode review snapshot",
					slog.String("error", err.Error()),
				)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
