package submission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spmb",
		Subsystem: "intake",
		Name:      "submissions_total",
		Help:      "Total number of accepted submissions broken down by track.",
	}, []string{"track"})

	regNumCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spmb",
		Subsystem: "intake",
		Name:      "registration_number_collisions_total",
		Help:      "Total number of generated registration numbers that were already taken.",
	})

	retriesExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spmb",
		Subsystem: "intake",
		Name:      "retries_exhausted_total",
		Help:      "Total number of submissions rejected because no free registration number was found.",
	})

	reviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spmb",
		Subsystem: "review",
		Name:      "status_changes_total",
		Help:      "Total number of submission status changes broken down by new status.",
	}, []string{"status"})
)

func recordSubmission(track string) {
	if track == "" {
		track = "unknown"
	}
	submissionsTotal.With(prometheus.Labels{"track": track}).Inc()
}
