package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/easychef/internal/apperror"
)

func TestObserve_CountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRepository(reg)

	m.Observe("get_profile", time.Now(), nil)
	m.Observe("get_profile", time.Now(), nil)
	m.Observe("get_profile", time.Now(), apperror.Transport("select", errors.New("dial tcp: refused")))
	m.Observe("sign_in", time.Now(), apperror.Unauthorized("invalid login credentials"))
	m.Observe("sign_in", time.Now(), context.DeadlineExceeded)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("get_profile", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("get_profile", "transport")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("sign_in", "unauthorized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("sign_in", "canceled")))

	n, err := testutil.GatherAndCount(reg, "easychef_repository_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one histogram series per operation")
}

func TestObserve_NilIsNoop(t *testing.T) {
	var m *Repository
	assert.NotPanics(t, func() { m.Observe("sign_out", time.Now(), nil) })
}

func TestNewRepository_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRepository(reg)
	assert.Panics(t, func() { NewRepository(reg) })
}
