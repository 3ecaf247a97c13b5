package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// fetchAttempts counts individual fetch attempts, including internal
	// retries.
	fetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unitscout_fetch_attempts_total",
		Help: "The total number of page fetch attempts dispatched.",
	})
	// fetchSuccesses counts attempt cycles that produced a page.
	fetchSuccesses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unitscout_fetch_successes_total",
		Help: "The total number of pages fetched successfully.",
	})
	// fetchFailures counts exhausted attempt cycles by failure class.
	fetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unitscout_fetch_failures_total",
		Help: "The total number of fetch cycles that failed, by class.",
	}, []string{"class"})
	// renderPromotions counts probes that had to escalate to the headless
	// renderer.
	renderPromotions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unitscout_render_promotions_total",
		Help: "The total number of fetches promoted from probe to render.",
	})
)
