package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetricsApp(t *testing.T) (*fiber.App, *PrometheusMiddleware, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	pm, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(pm.Handler())
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/metrics", ok)
	app.Get("/api/forms/:id", ok)
	app.Delete("/api/admin/submissions/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Post("/api/forms/:id/submit", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "missing fields")
	})
	return app, pm, reg
}

func TestPrometheusMiddleware_CountsByRoutePattern(t *testing.T) {
	app, pm, _ := newMetricsApp(t)

	tests := []struct {
		method, target, pattern, status string
	}{
		{"GET", "/api/forms/2f1c9a", "/api/forms/:id", "200"},
		{"GET", "/api/forms/77aa01", "/api/forms/:id", "200"},
		{"DELETE", "/api/admin/submissions/9", "/api/admin/submissions/:id", "204"},
		{"POST", "/api/forms/2f1c9a/submit", "/api/forms/:id/submit", "400"},
	}
	for _, tt := range tests {
		_, err := app.Test(httptest.NewRequest(tt.method, tt.target, nil))
		require.NoError(t, err)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.requestCount.WithLabelValues("GET", "/api/forms/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.requestCount.WithLabelValues("DELETE", "/api/admin/submissions/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.requestCount.WithLabelValues("POST", "/api/forms/:id/submit", "400")))
	// one histogram series per method and pattern
	assert.Equal(t, 3, testutil.CollectAndCount(pm.requestDuration))
}

func TestPrometheusMiddleware_LabelsSurviveLaterRequests(t *testing.T) {
	app, pm, reg := newMetricsApp(t)

	_, err := app.Test(httptest.NewRequest("POST", "/api/forms/x/submit", nil))
	require.NoError(t, err)
	// a later request reuses the pooled request buffers
	for _, target := range []string{"/nope/123", "/api/forms/y"} {
		_, err = app.Test(httptest.NewRequest("GET", target, nil))
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(pm.requestCount.WithLabelValues("POST", "/api/forms/:id/submit", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.requestCount.WithLabelValues("GET", "/api/forms/:id", "200")))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "method" {
					assert.Contains(t, []string{"GET", "POST"}, lp.GetValue())
				}
			}
		}
	}
}

func TestPrometheusMiddleware_SkipsMetricsEndpoint(t *testing.T) {
	app, _, reg := newMetricsApp(t)

	_, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		assert.Empty(t, mf.GetMetric(), mf.GetName())
	}
}

func TestPrometheusMiddleware_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	_, err = NewPrometheusMiddleware(reg)
	assert.Error(t, err)
}
