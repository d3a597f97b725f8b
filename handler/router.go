package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"social-service/internal/httpx"
	"social-service/metrics"
	"social-service/middleware"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type RouterDeps struct {
	Posts          *PostHandler
	Users          *UserHandler
	Auth           *middleware.Authenticator
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Health         map[string]HealthCheck
	RequestTimeout time.Duration
	Log            logrus.FieldLogger
}

// NewRouter builds the HTTP API.
func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recover(deps.Log),
		middleware.Logging(deps.Log, deps.Metrics),
	)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthHandler(deps.Health)).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v2").Subrouter()
	api.Use(middleware.Timeout(deps.RequestTimeout))

	required := deps.Auth.Required
	optional := deps.Auth.Optional

	posts := api.PathPrefix("/posts").Subrouter()
	posts.Handle("", required(http.HandlerFunc(deps.Posts.CreatePost))).Methods(http.MethodPost)
	posts.Handle("/feed", optional(http.HandlerFunc(deps.Posts.Feed))).Methods(http.MethodGet)
	posts.Handle("/feed/following", required(http.HandlerFunc(deps.Posts.FollowedFeed))).Methods(http.MethodGet)
	posts.Handle("/{id}/like", required(http.HandlerFunc(deps.Posts.ToggleLike))).Methods(http.MethodPut)
	posts.Handle("/{id}/reply", required(http.HandlerFunc(deps.Posts.Reply))).Methods(http.MethodPost)
	posts.HandleFunc("/{id}/replies", deps.Posts.ListReplies).Methods(http.MethodGet)

	users := api.PathPrefix("/users").Subrouter()
	users.HandleFunc("/signup", deps.Users.SignUp).Methods(http.MethodPost)
	users.HandleFunc("/signin", deps.Users.SignIn).Methods(http.MethodPost)
	users.Handle("/verify", required(http.HandlerFunc(deps.Users.VerifyAccess))).Methods(http.MethodGet)
	users.Handle("/signout", required(http.HandlerFunc(deps.Users.SignOut))).Methods(http.MethodPost)
	users.Handle("/update", required(http.HandlerFunc(deps.Users.UpdateUser))).Methods(http.MethodPut)
	users.Handle("/{id}/follow", required(http.HandlerFunc(deps.Users.ToggleFollow))).Methods(http.MethodPut)
	users.HandleFunc("/auth/google", deps.Users.GoogleAuth).Methods(http.MethodGet)
	users.HandleFunc("/auth/google/callback", deps.Users.GoogleCallback).Methods(http.MethodGet)

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := make(map[string]string, len(checks))
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				healthy = false
				continue
			}
			status[name] = "ok"
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		httpx.JSON(w, code, httpx.Envelope{Success: healthy, Data: status})
	}
}
