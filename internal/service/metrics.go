package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviews_submitted_total",
		Help: "Total number of reviews successfully submitted.",
	})

	reviewsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviews_deleted_total",
		Help: "Total number of reviews deleted by their authors.",
	})

	ratingRecomputationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rating_recomputations_total",
		Help: "Total number of product rating recomputations.",
	})

	feedCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_cache_hits_total",
		Help: "Total number of feed requests served from cache.",
	})

	feedCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_cache_misses_total",
		Help: "Total number of feed requests that missed the cache.",
	})
)
