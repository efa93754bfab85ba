package domain

import (
	"time"
)

// Review sort constants.
const (
	ReviewSortRecent = "recent"
	ReviewSortRating = "rating"
)

// Review represents one user's rating and comment for one product. A review
// is immutable after creation; the only permitted mutation is deletion by
// its author.
type Review struct {
	ID         string    `json:"id" firestore:"-"`
	ProductID  string    `json:"product_id" firestore:"product_id"`
	Rating     float64   `json:"rating" firestore:"rating"`
	Comment    string    `json:"comment" firestore:"comment"`
	AuthorID   string    `json:"author_id" firestore:"author_id"`
	AuthorName string    `json:"author_name" firestore:"author_name"`
	CreatedAt  time.Time `json:"created_at" firestore:"created_at,serverTimestamp"`
}

// ReviewStats contains aggregate review statistics for a product. It is
// computed in memory and never persisted.
type ReviewStats struct {
	Average      float64     `json:"average"`
	Total        int         `json:"total"`
	Distribution map[int]int `json:"distribution"`
}

// ValidReviewSorts returns the set of valid review sort values.
func ValidReviewSorts() []string {
	return []string{ReviewSortRecent, ReviewSortRating}
}

// IsValidReviewSort checks whether the given sort string is a valid review
// sort. The empty string is valid and means the default (most recent first).
func IsValidReviewSort(sortBy string) bool {
	if sortBy == "" {
		return true
	}
	for _, s := range ValidReviewSorts() {
		if s == sortBy {
			return true
		}
	}
	return false
}
