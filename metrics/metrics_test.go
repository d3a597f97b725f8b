package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStatus(t *testing.T) {
	m := InitMetrics(prometheus.NewRegistry())

	m.ObserveStatus("/api/v2/posts", 201)
	m.ObserveStatus("/api/v2/posts", 200)
	m.ObserveStatus("/api/v2/posts", 404)
	m.ObserveStatus("/api/v2/posts", 502)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SuccessfulRequests.WithLabelValues("/api/v2/posts")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BadRequests.WithLabelValues("/api/v2/posts")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ServerErrors.WithLabelValues("/api/v2/posts")))
}

func TestInitMetricsRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := InitMetrics(reg)
	m.PostsCreated.Inc()
	m.LikeToggles.WithLabelValues("true").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "posts_created")
	assert.Contains(t, names, "like_toggles")

	assert.Panics(t, func() { InitMetrics(reg) }, "registering twice panics")
}
