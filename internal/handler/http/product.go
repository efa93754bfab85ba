package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mamaereview/mamae-review/pkg/httputil"
	"github.com/mamaereview/mamae-review/pkg/middleware"
	"github.com/mamaereview/mamae-review/pkg/pagination"
	"github.com/mamaereview/mamae-review/pkg/validator"

	"github.com/mamaereview/mamae-review/internal/service"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Category    string  `json:"category" validate:"required,oneof=eletronicos eletrodomesticos moda cosmeticos casa alimentos brinquedos livros outros"`
	Description string  `json:"description" validate:"max=2000"`
	Price       float64 `json:"price" validate:"gte=0"`
	StoreName   string  `json:"store_name" validate:"required,max=120"`
	StoreURL    string  `json:"store_url" validate:"omitempty,url"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url"`
}

// UpdateProductRequest is the JSON request body for updating a product.
// Absent fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=120"`
	Category    *string  `json:"category" validate:"omitempty,oneof=eletronicos eletrodomesticos moda cosmeticos casa alimentos brinquedos livros outros"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	StoreName   *string  `json:"store_name" validate:"omitempty,max=120"`
	StoreURL    *string  `json:"store_url" validate:"omitempty,url"`
	ImageURL    *string  `json:"image_url" validate:"omitempty,url"`
}

// --- Handlers ---

// Feed handles GET /api/v1/products
func (h *ProductHandler) Feed(w http.ResponseWriter, r *http.Request) {
	filter := service.FeedFilter{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
		SortBy:   r.URL.Query().Get("sort"),
	}
	if v := r.URL.Query().Get("min_rating"); v != "" {
		min, err := strconv.ParseFloat(v, 64)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "min_rating must be a number"},
			})
			return
		}
		filter.MinRating = min
	}

	result, err := h.service.Feed(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetProduct handles GET /api/v1/products/{productId}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateProductRequest
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

	input := &service.CreateProductInput{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Price:       req.Price,
		StoreName:   req.StoreName,
		StoreURL:    req.StoreURL,
		ImageURL:    req.ImageURL,
		OwnerID:     middleware.UserIDFromContext(r.Context()),
		OwnerName:   middleware.UserNameFromContext(r.Context()),
	}

	product, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// UpdateProduct handles PUT /api/v1/products/{productId}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateProductRequest
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

	input := &service.UpdateProductInput{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Price:       req.Price,
		StoreName:   req.StoreName,
		StoreURL:    req.StoreURL,
		ImageURL:    req.ImageURL,
	}

	product, err := h.service.UpdateProduct(r.Context(),
		chi.URLParam(r, "productId"),
		middleware.UserIDFromContext(r.Context()),
		input,
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/products/{productId}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteProduct(r.Context(),
		chi.URLParam(r, "productId"),
		middleware.UserIDFromContext(r.Context()),
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
