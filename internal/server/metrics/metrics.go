// Package metrics holds the Prometheus collectors of the auth service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gophauth"

type Metrics struct {
	// PairsIssued counts issued credential pairs by origin: register, login,
	// rotate or password.
	PairsIssued *prometheus.CounterVec

	// RotationsRejected counts failed rotations by error category.
	RotationsRejected *prometheus.CounterVec

	// RecordsRevoked counts renewal records revoked by bulk revocation.
	RecordsRevoked prometheus.Counter

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. Passing prometheus.DefaultRegisterer
// exposes them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PairsIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_issued_total",
			Help:      "The total number of issued credential pairs",
		}, []string{"origin"}),
		RotationsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rotations_rejected_total",
			Help:      "The total number of rejected renewal token rotations",
		}, []string{"reason"}),
		RecordsRevoked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renewal_records_revoked_total",
			Help:      "The total number of renewal records revoked in bulk",
		}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "The total number of HTTP requests by route and status code",
		}, []string{"route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "The HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// NewNop returns collectors registered on a private registry, for tests and
// tools that do not export metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
