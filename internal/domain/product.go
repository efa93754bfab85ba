package domain

import (
	"time"
)

// Product category constants.
const (
	CategoryEletronicos      = "eletronicos"
	CategoryEletrodomesticos = "eletrodomesticos"
	CategoryModa             = "moda"
	CategoryCosmeticos       = "cosmeticos"
	CategoryCasa             = "casa"
	CategoryAlimentos        = "alimentos"
	CategoryBrinquedos       = "brinquedos"
	CategoryLivros           = "livros"
	CategoryOutros           = "outros"
)

// Feed sort constants.
const (
	FeedSortRecent = "recent"
	FeedSortRating = "rating"
)

// Product represents a user-submitted item eligible for review. The Rating
// field is derived from the product's reviews and is never set by clients.
type Product struct {
	ID          string    `json:"id" firestore:"-"`
	Name        string    `json:"name" firestore:"name"`
	Category    string    `json:"category" firestore:"category"`
	Description string    `json:"description" firestore:"description"`
	Price       float64   `json:"price" firestore:"price"`
	StoreName   string    `json:"store_name" firestore:"store_name"`
	StoreURL    string    `json:"store_url,omitempty" firestore:"store_url"`
	ImageURL    string    `json:"image_url,omitempty" firestore:"image_url"`
	OwnerID     string    `json:"owner_id" firestore:"owner_id"`
	OwnerName   string    `json:"owner_name" firestore:"owner_name"`
	Rating      float64   `json:"rating" firestore:"rating"`
	CreatedAt   time.Time `json:"created_at" firestore:"created_at,serverTimestamp"`
}

// ValidCategories returns the set of valid product categories.
func ValidCategories() []string {
	return []string{
		CategoryEletronicos,
		CategoryEletrodomesticos,
		CategoryModa,
		CategoryCosmeticos,
		CategoryCasa,
		CategoryAlimentos,
		CategoryBrinquedos,
		CategoryLivros,
		CategoryOutros,
	}
}

// IsValidCategory checks whether the given category string is a valid product category.
func IsValidCategory(category string) bool {
	for _, c := range ValidCategories() {
		if c == category {
			return true
		}
	}
	return false
}

// ValidFeedSorts returns the set of valid feed sort values.
func ValidFeedSorts() []string {
	return []string{FeedSortRecent, FeedSortRating}
}

// IsValidFeedSort checks whether the given sort string is a valid feed sort.
// The empty string is valid and means the default (most recent first).
func IsValidFeedSort(sortBy string) bool {
	if sortBy == "" {
		return true
	}
	for _, s := range ValidFeedSorts() {
		if s == sortBy {
			return true
		}
	}
	return false
}
