package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	guessesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapguess_guesses_total",
			Help: "Total number of scored guesses by similarity mode and outcome.",
		},
		[]string{"mode", "outcome"}, // outcome: correct, incorrect
	)

	terminalResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapguess_terminal_responses_total",
			Help: "Guess requests answered without scoring because the session is over.",
		},
		[]string{"status"},
	)

	hintsRevealedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapguess_hints_revealed_total",
		Help: "Total number of revealed hints.",
	})

	puzzleCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapguess_puzzle_cache_lookups_total",
			Help: "Puzzle resolver cache lookups by result.",
		},
		[]string{"result"}, // hit, miss
	)

	providerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapguess_provider_failures_total",
			Help: "Embedding and judge provider failures by stage.",
		},
		[]string{"stage"}, // guess_embedding, judge, authoring_batch, authoring_answer
	)

	guessSimilarity = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapguess_guess_similarity",
		Help:    "Distribution of best similarity scores for guesses.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})
)
