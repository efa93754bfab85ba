// Package stats computes aggregate review statistics. Everything in this
// package is pure: it reads nothing but its arguments and cannot fail.
package stats

import (
	"math"

	"github.com/mamaereview/mamae-review/internal/domain"
)

// Compute derives the average rating, total count, and star histogram for a
// set of reviews. The average is rounded half-up to one decimal place and is
// 0 for an empty input. Each review is bucketed by rounding its rating
// half-up to the nearest integer star, so 2.5 counts as 3 stars and 4.5 as
// 5 stars. Ratings that fall outside [1,5] after rounding are excluded from
// the histogram but still contribute to the average and total.
func Compute(reviews []*domain.Review) domain.ReviewStats {
	s := domain.ReviewStats{
		Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	if len(reviews) == 0 {
		return s
	}

	var sum float64
	for _, r := range reviews {
		sum += r.Rating
		bucket := int(math.Round(r.Rating))
		if bucket >= 1 && bucket <= 5 {
			s.Distribution[bucket]++
		}
	}

	s.Total = len(reviews)
	s.Average = Round1(sum / float64(len(reviews)))
	return s
}

// Round1 rounds half-up to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
