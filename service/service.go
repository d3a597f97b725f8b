package service

import (
	"context"
	"math"
	"time"

	"social-service/config"
	"social-service/events"
	"social-service/internal/storage"
)

// maxToggleAttempts bounds retries when a conditional update loses a race
// with a concurrent toggle of the same membership.
const maxToggleAttempts = 5

// ObjectStorage stores uploaded media.
type ObjectStorage interface {
	Upload(ctx context.Context, obj storage.Object) (string, error)
	Delete(ctx context.Context, bucket, locator string) error
}

// EventPublisher emits domain events. Failures never fail a request.
type EventPublisher interface {
	PublishPostCreated(event events.PostCreatedEvent) error
	PublishPostLiked(event events.PostLikedEvent) error
	PublishPostReplied(event events.PostRepliedEvent) error
	PublishUserFollowed(event events.UserFollowedEvent) error
}

type TokenIssuer interface {
	Generate(userID string) (string, error)
}

type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

type StateStore interface {
	NewState(ctx context.Context, ttl time.Duration) (string, error)
	ConsumeState(ctx context.Context, state string) (bool, error)
}

// FeedOptions controls pagination reporting for feeds and reply lists.
type FeedOptions struct {
	DefaultPageSize  int64
	CountMode        string
	EmptyPageIsError bool
}

func FeedOptionsFromConfig(cfg config.FeedConfig) FeedOptions {
	return FeedOptions{
		DefaultPageSize:  int64(cfg.DefaultPageSize),
		CountMode:        cfg.CountMode,
		EmptyPageIsError: cfg.EmptyPageIsError,
	}
}

// TotalCount converts a raw match count into the reported totalCount. In
// pages mode it is count/pageSize rounded half up, never below 1.
func TotalCount(mode string, count, pageSize int64) int64 {
	if mode == config.CountModeTotal {
		return count
	}
	if pageSize < 1 {
		pageSize = 1
	}
	pages := int64(math.Round(float64(count) / float64(pageSize)))
	if pages == 0 {
		return 1
	}
	return pages
}
