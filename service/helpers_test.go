package service

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"social-service/config"
	"social-service/events"
	"social-service/internal/logger"
	"social-service/internal/storage"
	models "social-service/model"
	"social-service/pkg/jwt"
	"social-service/repository/memory"
)

var (
	testAudio = "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString([]byte("ID3 fake mp3"))
	testImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG fake"))
)

type recordingPublisher struct {
	mu       sync.Mutex
	created  []events.PostCreatedEvent
	liked    []events.PostLikedEvent
	replied  []events.PostRepliedEvent
	followed []events.UserFollowedEvent
	err      error
}

func (p *recordingPublisher) PublishPostCreated(e events.PostCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return p.err
}

func (p *recordingPublisher) PublishPostLiked(e events.PostLikedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.liked = append(p.liked, e)
	return p.err
}

func (p *recordingPublisher) PublishPostReplied(e events.PostRepliedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replied = append(p.replied, e)
	return p.err
}

func (p *recordingPublisher) PublishUserFollowed(e events.UserFollowedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.followed = append(p.followed, e)
	return p.err
}

type fixture struct {
	store     *memory.Store
	objects   *storage.MemoryStorage
	publisher *recordingPublisher
	tokens    *jwt.Manager
	posts     *PostService
	users     *UserService
}

func newFixture(t *testing.T, opts FeedOptions) *fixture {
	t.Helper()

	f := &fixture{
		store:     memory.NewStore(),
		objects:   storage.NewMemoryStorage(),
		publisher: &recordingPublisher{},
		tokens:    jwt.NewManager("test-secret", time.Hour),
	}
	f.posts = NewPostService(PostServiceDeps{
		Posts:       f.store,
		Replies:     f.store,
		Users:       f.store,
		Storage:     f.objects,
		Publisher:   f.publisher,
		AudioBucket: "post-audios",
		Options:     opts,
		Log:         logger.Discard(),
	})
	f.users = NewUserService(UserServiceDeps{
		Users:         f.store,
		Storage:       f.objects,
		Tokens:        f.tokens,
		Publisher:     f.publisher,
		ProfileBucket: "profile-images",
		BcryptCost:    4,
		Log:           logger.Discard(),
	})
	return f
}

func defaultOptions() FeedOptions {
	return FeedOptions{DefaultPageSize: 20, CountMode: config.CountModePages, EmptyPageIsError: true}
}

func (f *fixture) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := f.store.CreateUser(context.Background(), &models.User{
		FullName: email,
		Username: email,
		Email:    email,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) createPost(t *testing.T, author *models.User, at time.Time) *models.Post {
	t.Helper()
	post, err := f.store.CreatePost(context.Background(), &models.Post{
		AuthorID:  author.ID,
		Text:      "post at " + at.Format(time.RFC3339),
		CreatedAt: at,
	})
	require.NoError(t, err)
	return post
}
