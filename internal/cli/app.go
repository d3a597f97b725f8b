package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"social-service/config"
	"social-service/handler"
	"social-service/internal/oauth"
	"social-service/internal/server"
	"social-service/internal/session"
	"social-service/internal/storage"
	"social-service/internal/store"
	"social-service/internal/validation"
	"social-service/metrics"
	"social-service/middleware"
	natsClient "social-service/nats"
	"social-service/pkg/jwt"
	"social-service/publisher"
	"social-service/repository"
	"social-service/repository/memory"
	"social-service/service"
)

// app is the fully wired service.
type app struct {
	router http.Handler
	checks map[string]server.Check
	// closers run in reverse order on shutdown.
	closers []func(ctx context.Context) error
	log     logrus.FieldLogger
}

type repositories struct {
	posts   repository.PostRepository
	replies repository.ReplyRepository
	users   repository.UserRepository
}

// buildApp connects every backend and wires the HTTP API. With inMemory set
// the records, media and sessions live in process.
func buildApp(ctx context.Context, cfg *config.Config, log *logrus.Logger, inMemory bool, reg prometheus.Registerer, gatherer prometheus.Gatherer) (_ *app, err error) {
	a := &app{checks: map[string]server.Check{}, log: log}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	repos, err := a.connectStore(ctx, cfg, inMemory)
	if err != nil {
		return nil, err
	}

	objects, err := a.connectStorage(ctx, cfg, inMemory)
	if err != nil {
		return nil, err
	}

	redisClient, err := a.connectRedis(ctx, cfg, inMemory)
	if err != nil {
		return nil, err
	}
	sessions := session.NewStore(redisClient)

	events := publisher.NewEventPublisher(a.connectNATS(cfg), log)

	tokens := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	m := metrics.InitMetrics(reg)
	v := validation.New()

	posts := service.NewPostService(service.PostServiceDeps{
		Posts:       repos.posts,
		Replies:     repos.replies,
		Users:       repos.users,
		Storage:     objects,
		Publisher:   events,
		AudioBucket: cfg.S3.PostAudioBucket,
		Options:     service.FeedOptionsFromConfig(cfg.Feed),
		Log:         log.WithField("component", "posts"),
	})
	users := service.NewUserService(service.UserServiceDeps{
		Users:         repos.users,
		Storage:       objects,
		Tokens:        tokens,
		Revoker:       sessions,
		Publisher:     events,
		ProfileBucket: cfg.S3.ProfileImageBucket,
		BcryptCost:    cfg.Auth.BcryptCost,
		Log:           log.WithField("component", "users"),
	})
	oauthSvc := service.NewOAuthService(service.OAuthServiceDeps{
		Users:       repos.users,
		Provider:    oauth.NewGoogleProvider(cfg.Google),
		States:      sessions,
		Tokens:      tokens,
		FrontendURL: cfg.Google.FrontendURL,
		StateTTL:    cfg.Google.StateTTL,
		Log:         log.WithField("component", "oauth"),
	})

	health := make(map[string]handler.HealthCheck, len(a.checks))
	for name, check := range a.checks {
		health[name] = handler.HealthCheck(check)
	}

	a.router = handler.NewRouter(handler.RouterDeps{
		Posts: handler.NewPostHandler(posts, v, m, log),
		Users: handler.NewUserHandler(users, oauthSvc, v, m, handler.CookieConfig{
			Name:   cfg.Auth.CookieName,
			MaxAge: cfg.Auth.TokenExpiry,
		}, log),
		Auth:           middleware.NewAuthenticator(tokens, sessions, cfg.Auth.CookieName, log),
		Metrics:        m,
		Gatherer:       gatherer,
		Health:         health,
		RequestTimeout: cfg.Server.RequestTimeout,
		Log:            log,
	})

	return a, nil
}

func (a *app) connectStore(ctx context.Context, cfg *config.Config, inMemory bool) (*repositories, error) {
	if inMemory {
		st := memory.NewStore()
		a.log.Warn("Using in-memory record store")
		return &repositories{posts: st, replies: st, users: st}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
	defer cancel()

	db, err := store.NewConnection(connectCtx, store.Config{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
		MaxPoolSize:    cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	a.checks["mongo"] = db.HealthCheck
	a.log.WithField("database", cfg.Mongo.Database).Info("Successfully connected to database")

	return &repositories{
		posts:   repository.NewPostRepository(db),
		replies: repository.NewReplyRepository(db),
		users:   repository.NewUserRepository(db),
	}, nil
}

func (a *app) connectStorage(ctx context.Context, cfg *config.Config, inMemory bool) (service.ObjectStorage, error) {
	if inMemory {
		a.log.Warn("Using in-memory object storage")
		return storage.NewMemoryStorage(), nil
	}

	client, err := storage.NewS3Client(ctx, cfg.S3)
	if err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{
		"region":        cfg.S3.Region,
		"audio_bucket":  cfg.S3.PostAudioBucket,
		"images_bucket": cfg.S3.ProfileImageBucket,
	}).Info("S3 storage configured")
	return storage.NewS3Storage(client, cfg.S3), nil
}

func (a *app) connectRedis(ctx context.Context, cfg *config.Config, inMemory bool) (*redis.Client, error) {
	addr := cfg.Redis.Addr
	if inMemory {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start embedded redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			mr.Close()
			return nil
		})
		addr = mr.Addr()
		a.log.WithField("addr", addr).Warn("Using embedded redis")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	a.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return client, nil
}

// connectNATS returns nil when NATS is disabled or unreachable; events are
// then only logged.
func (a *app) connectNATS(cfg *config.Config) publisher.Bus {
	if cfg.NATS.URL == "" {
		a.log.Warn("NATS disabled, events will only be logged")
		return nil
	}

	client, err := natsClient.NewClient(natsClient.Config{
		URL:           cfg.NATS.URL,
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWait,
		ClientID:      cfg.NATS.ClientID,
	}, a.log)
	if err != nil {
		a.log.WithError(err).Warn("Failed to connect to NATS, events will only be logged")
		return nil
	}

	a.closers = append(a.closers, func(context.Context) error {
		client.Close()
		return nil
	})
	a.checks["nats"] = func(context.Context) error {
		if !client.Healthy() {
			return errors.New("nats connection is down")
		}
		return nil
	}
	a.log.Info("NATS client initialized successfully")
	return client
}

// Close releases every backend in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
