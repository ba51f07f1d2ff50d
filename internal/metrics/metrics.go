// Package metrics holds the prometheus counters for catalog mutations,
// local persistence failures and remote sync operations. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// Sync results.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Metrics holds the registered collectors.
type Metrics struct {
	mutations       *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	syncOps         *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_mutations_total",
				Help: "Catalog mutations that changed at least one record.",
			},
			[]string{"op"},
		),
		persistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_persist_failures_total",
				Help: "Local storage writes that failed.",
			},
			[]string{"key"},
		),
		syncOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shelf_sync_total",
				Help: "Remote sync operations by outcome.",
			},
			[]string{"op", "result"},
		),
	}

	for _, c := range []prometheus.Collector{m.mutations, m.persistFailures, m.syncOps} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Mutation counts n changed records for op.
func (m *Metrics) Mutation(op string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.mutations.WithLabelValues(op).Add(float64(n))
}

// PersistFailure counts a failed write of key.
func (m *Metrics) PersistFailure(key string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(key).Inc()
}

// Sync counts one remote operation, classifying err.
func (m *Metrics) Sync(op string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	switch {
	case err == nil:
	case errors.Is(err, types.ErrRemoteNotFound):
		result = ResultNotFound
	default:
		result = ResultError
	}
	m.syncOps.WithLabelValues(op, result).Inc()
}
