package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Submission(ResultSuccess)
	m.Submission(ResultBlocked)
	m.Upload("DNI", ResultSuccess)
	m.StatusChange("finalizado")
	m.Deletion()
	m.SignIn(ResultError)
	m.Notice(ResultSuccess)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues(ResultBlocked)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("DNI", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deletions))

	_, err = New(reg)
	assert.Error(t, err, "second registration on the same registry fails")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Submission(ResultSuccess)
		m.Upload("Otro", ResultError)
		m.StatusChange("pendiente")
		m.Deletion()
		m.SignIn(ResultSuccess)
		m.Notice(ResultError)
	})
}
