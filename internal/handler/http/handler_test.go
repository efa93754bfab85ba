package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaereview/mamae-review/pkg/health"
	"github.com/mamaereview/mamae-review/pkg/middleware"

	"github.com/mamaereview/mamae-review/internal/docstore/memory"
	"github.com/mamaereview/mamae-review/internal/domain"
	repodocstore "github.com/mamaereview/mamae-review/internal/repository/docstore"
	"github.com/mamaereview/mamae-review/internal/service"
)

// Test tokens understood by the fake validator.
var testUsers = map[string]*middleware.Claims{
	"token-maria": {UserID: "user-maria", Name: "Maria"},
	"token-ana":   {UserID: "user-ana", Name: "Ana"},
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()

	productRepo := repodocstore.NewProductRepository(store)
	reviewRepo := repodocstore.NewReviewRepository(store)

	ratingService := service.NewRatingService(productRepo, reviewRepo, nil, nil, logger)
	productService := service.NewProductService(productRepo, nil, time.Minute, nil, logger)
	reviewService := service.NewReviewService(reviewRepo, productRepo, ratingService, nil, logger)

	auth := middleware.Auth(func(token string) (*middleware.Claims, error) {
		if claims, ok := testUsers[token]; ok {
			return claims, nil
		}
		return nil, fmt.Errorf("unknown token")
	})

	return NewRouter(productService, reviewService, health.NewHandler(), auth, middleware.DefaultCORSConfig(), logger)
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createProduct(t *testing.T, router http.Handler) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/products", "token-maria", map[string]any{
		"name":       "Air Fryer Philco 4L",
		"category":   "eletrodomesticos",
		"price":      349.90,
		"store_name": "Magalu",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data domain.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.ID)
	return resp.Data.ID
}

func submitReview(t *testing.T, router http.Handler, productID, token string, rating float64) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, router, http.MethodPost, "/api/v1/products/"+productID+"/reviews", token, map[string]any{
		"rating":  rating,
		"comment": "Produto muito bom, chegou rápido e bem embalado.",
	})
}

func TestCreateProduct_RequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/products", "", map[string]any{
		"name": "x", "category": "casa", "store_name": "y",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateProduct_ValidationError(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/products", "token-maria", map[string]any{
		"name":       "Produto sem categoria válida",
		"category":   "veiculos",
		"store_name": "Loja",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestCreateAndGetProduct(t *testing.T) {
	router := newTestRouter(t)

	id := createProduct(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/products/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data domain.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Air Fryer Philco 4L", resp.Data.Name)
	assert.Equal(t, "user-maria", resp.Data.OwnerID)
	assert.Zero(t, resp.Data.Rating)
}

func TestGetProduct_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/products/missing", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProduct_OnlyOwner(t *testing.T) {
	router := newTestRouter(t)
	id := createProduct(t, router)

	rec := doJSON(t, router, http.MethodPut, "/api/v1/products/"+id, "token-ana", map[string]any{
		"name": "Nome alterado",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteProduct_OwnerSucceeds(t *testing.T) {
	router := newTestRouter(t)
	id := createProduct(t, router)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/products/"+id, "token-maria", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeed_SearchAndPagination(t *testing.T) {
	router := newTestRouter(t)
	createProduct(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/products?search=philco", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []domain.Product `json:"data"`
		TotalCount int              `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalCount)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products?search=inexistente", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.TotalCount)
}

func TestSubmitReview_UpdatesProductRating(t *testing.T) {
	router := newTestRouter(t)
	id := createProduct(t, router)

	rec := submitReview(t, router, id, "token-ana", 4)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = submitReview(t, router, id, "token-maria", 5)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data domain.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4.5, resp.Data.Rating)
}

func TestSubmitReview_DuplicateRejected(t *testing.T) {
	router := newTestRouter(t)
	id := createProduct(t, router)

	rec := submitReview(t, router, id, "token-ana", 4)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = submitReview(t, router, id, "token-ana", 5)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ALREADY_EXISTS")
}

func TestSubmitReview_AcceptsLongAccentedComment(t *testing.T) {
	router := newTestRouter(t)
	id := createProduct(t, router)

	// 300 characters but 600 bytes; length limits count characters.
	rec := doJSON(t, router, http.MethodPost, "/api/v1/products/"+id+"/reviews", "token-ana", map[string]any{
		"rating":  4,
		"comment": strings.Repeat("ó", 300),
	})

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestSubmitReview_ShortCommentRejected(t *testing.T) {
	router := newTestRouter(t)
	id := createProduct(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/products/"+id+"/reviews", "token-ana", map[string]any{
		"rating":  4,
		"comment": "curto",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestListReviews_WithStats(t *testing.T) {
	router := newTestRouter(t)
	id := createProduct(t, router)

	require.Equal(t, http.StatusCreated, submitReview(t, router, id, "token-ana", 5).Code)
	require.Equal(t, http.StatusCreated, submitReview(t, router, id, "token-maria", 3).Code)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/products/"+id+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reviews []domain.Review    `json:"reviews"`
		Stats   domain.ReviewStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Reviews, 2)
	assert.Equal(t, 4.0, resp.Stats.Average)
	assert.Equal(t, 2, resp.Stats.Total)
	assert.Equal(t, 1, resp.Stats.Distribution[5])
	assert.Equal(t, 1, resp.Stats.Distribution[3])
}

func TestHasReviewed(t *testing.T) {
	router := newTestRouter(t)
	id := createProduct(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/products/"+id+"/reviews/mine", "token-ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"has_reviewed":false`)

	require.Equal(t, http.StatusCreated, submitReview(t, router, id, "token-ana", 4).Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/products/"+id+"/reviews/mine", "token-ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"has_reviewed":true`)
}

func TestDeleteReview_AuthorOnly(t *testing.T) {
	router := newTestRouter(t)
	id := createProduct(t, router)

	rec := submitReview(t, router, id, "token-ana", 4)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data domain.Review `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/reviews/"+created.Data.ID, "token-maria", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/reviews/"+created.Data.ID, "token-ana", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSubmitReview_WrongContentType(t *testing.T) {
	router := newTestRouter(t)
	id := createProduct(t, router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/"+id+"/reviews",
		strings.NewReader("rating=4"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer token-ana")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestStreamReviews_DeliversSnapshots(t *testing.T) {
	router := newTestRouter(t)
	id := createProduct(t, router)
	require.Equal(t, http.StatusCreated, submitReview(t, router, id, "token-ana", 5).Code)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id+"/reviews/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		router.ServeHTTP(rec, req)
	}()

	// Give the stream time to deliver the initial snapshot, then disconnect.
	time.Sleep(100 * time.Millisecond)
	cancel()
	wg.Wait()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: snapshot")
	assert.Contains(t, rec.Body.String(), `"average":5`)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
