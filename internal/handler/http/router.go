package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mamaereview/mamae-review/pkg/health"
	"github.com/mamaereview/mamae-review/pkg/middleware"

	"github.com/mamaereview/mamae-review/internal/service"
)

const serviceName = "mamae-review"

// NewRouter creates a chi router with all routes registered. authMiddleware
// guards every mutating endpoint plus the per-user review lookup; listing,
// reading, and the review stream are public.
func NewRouter(
	productService *service.ProductService,
	reviewService *service.ReviewService,
	healthHandler *health.Handler,
	authMiddleware func(http.Handler) http.Handler,
	corsConfig middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	productHandler := NewProductHandler(productService, logger)
	reviewHandler := NewReviewHandler(reviewService, logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		// Public read surface. Short browser cache on product reads;
		// review listings stay uncached so fresh reviews show up immediately.
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.With(middleware.CacheControl(30)).Get("/", productHandler.Feed)
			r.With(middleware.CacheControl(30)).Get("/{productId}", productHandler.GetProduct)
			r.Get("/{productId}/reviews", reviewHandler.ListReviews)
		})

		// SSE stream; no JSON content-type enforcement here.
		r.Get("/{productId}/reviews/stream", reviewHandler.StreamReviews)

		// Authenticated surface
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(authMiddleware)
			r.Use(middleware.RequestLogger(logger))

			r.Post("/", productHandler.CreateProduct)
			r.Put("/{productId}", productHandler.UpdateProduct)
			r.Delete("/{productId}", productHandler.DeleteProduct)
			r.Post("/{productId}/reviews", reviewHandler.SubmitReview)
			r.Get("/{productId}/reviews/mine", reviewHandler.HasReviewed)
		})
	})

	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(authMiddleware)
		r.Use(middleware.RequestLogger(logger))

		r.Delete("/{reviewId}", reviewHandler.DeleteReview)
	})

	return r
}
