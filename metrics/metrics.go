package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	SuccessfulRequests *prometheus.CounterVec
	BadRequests        *prometheus.CounterVec
	ServerErrors       *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	PostsCreated       prometheus.Counter
	LikeToggles        *prometheus.CounterVec
	RepliesCreated     prometheus.Counter
	FollowToggles      *prometheus.CounterVec
	SignIns            *prometheus.CounterVec
}

// InitMetrics creates the collectors and registers them with reg. A nil
// registerer uses the default prometheus registry.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		SuccessfulRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_request",
				Help: "Total number of successful (2xx/3xx) HTTP requests",
			},
			[]string{"path"},
		),
		BadRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unsuccessful_request",
				Help: "Total number of unsuccessful (4xx) HTTP requests",
			},
			[]string{"path"},
		),
		ServerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "failed_request",
				Help: "Total number of failed (5xx) HTTP requests",
			},
			[]string{"path"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		PostsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "posts_created",
				Help: "Total number of posts created",
			},
		),
		LikeToggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "like_toggles",
				Help: "Total number of like toggles by resulting state",
			},
			[]string{"liked"},
		),
		RepliesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "replies_created",
				Help: "Total number of replies created",
			},
		),
		FollowToggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "follow_toggles",
				Help: "Total number of follow toggles by resulting state",
			},
			[]string{"followed"},
		),
		SignIns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sign_ins",
				Help: "Total number of issued sessions by method",
			},
			[]string{"method"},
		),
	}

	reg.MustRegister(
		m.SuccessfulRequests,
		m.BadRequests,
		m.ServerErrors,
		m.RequestDuration,
		m.PostsCreated,
		m.LikeToggles,
		m.RepliesCreated,
		m.FollowToggles,
		m.SignIns,
	)

	return m
}

// ObserveStatus counts a finished request in the bucket for its status.
func (m *Metrics) ObserveStatus(path string, status int) {
	switch {
	case status >= 500:
		m.ServerErrors.WithLabelValues(path).Inc()
	case status >= 400:
		m.BadRequests.WithLabelValues(path).Inc()
	default:
		m.SuccessfulRequests.WithLabelValues(path).Inc()
	}
}
