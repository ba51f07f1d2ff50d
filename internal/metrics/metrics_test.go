package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

func TestMetrics(t *testing.T) {
	// Use a fresh registry for each test to avoid duplicate registration.
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Mutation("remove", 2)
	m.Mutation("remove", 1)
	m.Mutation("restore", 0)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.mutations.WithLabelValues("remove")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.mutations.WithLabelValues("restore")))

	m.PersistFailure(types.KeyItems)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistFailures.WithLabelValues(types.KeyItems)))

	m.Sync("pull", nil)
	m.Sync("pull", fmt.Errorf("get: %w", types.ErrRemoteNotFound))
	m.Sync("push", errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncOps.WithLabelValues("pull", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncOps.WithLabelValues("pull", ResultNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncOps.WithLabelValues("push", ResultError)))
}

func TestMetricsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Mutation("add", 1)
		m.PersistFailure(types.KeyItems)
		m.Sync("push", nil)
	})
}
