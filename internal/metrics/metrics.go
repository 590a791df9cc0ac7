// Package metrics counts repository outcomes for Prometheus.
//
// Every repository call ends in exactly one observation:
//
//	easychef_repository_operations_total{operation="get_profile", outcome="ok"}
//	easychef_repository_operations_total{operation="sign_in", outcome="unauthorized"}
//
// outcome is "ok" or the apperror.Kind of the failure, so a dashboard can tell
// a network outage (transport) from users mistyping passwords (unauthorized).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sakif/easychef/internal/apperror"
)

// OutcomeOK labels a successful operation.
const OutcomeOK = "ok"

// Repository holds the repository-layer collectors.
// A nil *Repository is valid and records nothing.
type Repository struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewRepository registers the collectors on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated from the default registry.
func NewRepository(reg prometheus.Registerer) *Repository {
	f := promauto.With(reg)
	return &Repository{
		operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "easychef_repository_operations_total",
				Help: "Repository operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "easychef_repository_operation_duration_seconds",
				Help:    "Duration of repository operations, including the store round trip.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// Observe records one finished operation. err nil means success.
func (r *Repository) Observe(operation string, start time.Time, err error) {
	if r == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = apperror.Kind(err)
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
