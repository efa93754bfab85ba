package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCategories_ContainsAll(t *testing.T) {
	categories := ValidCategories()
	expected := []string{
		CategoryEletronicos, CategoryEletrodomesticos, CategoryModa,
		CategoryCosmeticos, CategoryCasa, CategoryAlimentos,
		CategoryBrinquedos, CategoryLivros, CategoryOutros,
	}
	assert.ElementsMatch(t, expected, categories)
}

func TestIsValidCategory_ValidCategories(t *testing.T) {
	for _, c := range ValidCategories() {
		assert.True(t, IsValidCategory(c), "expected %q to be valid", c)
	}
}

func TestIsValidCategory_Invalid(t *testing.T) {
	assert.False(t, IsValidCategory("unknown"))
	assert.False(t, IsValidCategory(""))
	assert.False(t, IsValidCategory("ELETRONICOS"))
}

func TestIsValidFeedSort(t *testing.T) {
	assert.True(t, IsValidFeedSort(""))
	assert.True(t, IsValidFeedSort(FeedSortRecent))
	assert.True(t, IsValidFeedSort(FeedSortRating))
	assert.False(t, IsValidFeedSort("price"))
	assert.False(t, IsValidFeedSort("RECENT"))
}

func TestIsValidReviewSort(t *testing.T) {
	assert.True(t, IsValidReviewSort(""))
	assert.True(t, IsValidReviewSort(ReviewSortRecent))
	assert.True(t, IsValidReviewSort(ReviewSortRating))
	assert.False(t, IsValidReviewSort("oldest"))
}

func TestProduct_RatingIsDerived(t *testing.T) {
	p := Product{Name: "Air Fryer", Category: CategoryEletrodomesticos}
	assert.Zero(t, p.Rating)
	assert.True(t, p.CreatedAt.IsZero())
}
