package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-service/config"
	"social-service/internal/apperror"
	models "social-service/model"
	"social-service/repository"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFeedOrderAndPagination(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	author := f.createUser(t, "author@example.com")
	for i := 0; i < 7; i++ {
		f.createPost(t, author, base.Add(time.Duration(i)*time.Minute))
	}

	page, err := f.posts.Feed(ctx, nil, models.Page{Number: 0, Size: 3})
	require.NoError(t, err)
	require.Len(t, page.Posts, 3)
	for i := 1; i < len(page.Posts); i++ {
		assert.False(t, page.Posts[i].CreatedAt.After(page.Posts[i-1].CreatedAt), "posts must be newest first")
	}
	assert.Equal(t, base.Add(6*time.Minute), page.Posts[0].CreatedAt)
	assert.Equal(t, int64(2), page.TotalCount, "round(7/3)")
	assert.Equal(t, "author@example.com", page.Posts[0].Author.Username)

	last, err := f.posts.Feed(ctx, nil, models.Page{Number: 3, Size: 3})
	require.NoError(t, err)
	require.Len(t, last.Posts, 1)
	assert.Equal(t, base, last.Posts[0].CreatedAt)
}

func TestFeedEmptyPage(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, defaultOptions())
	_, err := f.posts.Feed(ctx, nil, models.Page{Number: 1})
	assert.True(t, apperror.IsNotFound(err))
	assert.Contains(t, err.Error(), "No feed posts found")

	author := f.createUser(t, "a@example.com")
	f.createPost(t, author, base)
	_, err = f.posts.Feed(ctx, nil, models.Page{Number: 2, Size: 1})
	assert.True(t, apperror.IsNotFound(err), "a page past the end is NotFound too")

	lenient := newFixture(t, FeedOptions{DefaultPageSize: 20, CountMode: config.CountModeTotal})
	page, err := lenient.posts.Feed(ctx, nil, models.Page{Number: 1})
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.Equal(t, int64(0), page.TotalCount)
}

func TestPageFarPastTheEndIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultOptions())
	author := f.createUser(t, "author@example.com")
	post := f.createPost(t, author, time.Now())
	_, err := f.posts.Reply(ctx, author.ID, post.ID, "first")
	require.NoError(t, err)

	huge := models.Page{Number: 1 << 62, Size: 20}

	assert.NotPanics(t, func() {
		_, err = f.posts.Feed(ctx, nil, huge)
	})
	assert.True(t, apperror.IsNotFound(err), "got %v", err)

	_, err = f.posts.FollowedFeed(ctx, author.ID, huge)
	assert.True(t, apperror.IsNotFound(err), "got %v", err)

	_, err = f.posts.ListReplies(ctx, post.ID, huge)
	assert.True(t, apperror.IsNotFound(err), "got %v", err)
}

func TestFeedViewerState(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	author := f.createUser(t, "author@example.com")
	viewer := f.createUser(t, "viewer@example.com")
	post := f.createPost(t, author, base)

	_, err := f.users.ToggleFollow(ctx, viewer.ID, author.ID)
	require.NoError(t, err)
	_, err = f.posts.ToggleLike(ctx, viewer.ID, post.ID)
	require.NoError(t, err)

	page, err := f.posts.Feed(ctx, &viewer.ID, models.Page{Number: 1})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.True(t, page.Posts[0].Liked)
	assert.True(t, page.Posts[0].Author.Followed)

	anon, err := f.posts.Feed(ctx, nil, models.Page{Number: 1})
	require.NoError(t, err)
	assert.False(t, anon.Posts[0].Liked)
	assert.False(t, anon.Posts[0].Author.Followed)
}

func TestFollowedFeed(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	followed := f.createUser(t, "followed@example.com")
	other := f.createUser(t, "other@example.com")
	viewer := f.createUser(t, "viewer@example.com")
	f.createPost(t, followed, base)
	f.createPost(t, other, base.Add(time.Minute))

	_, err := f.posts.FollowedFeed(ctx, viewer.ID, models.Page{Number: 1})
	assert.True(t, apperror.IsNotFound(err), "following nobody yields an empty feed")

	_, err = f.users.ToggleFollow(ctx, viewer.ID, followed.ID)
	require.NoError(t, err)

	page, err := f.posts.FollowedFeed(ctx, viewer.ID, models.Page{Number: 1})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, followed.ID, page.Posts[0].Author.ID)
	assert.True(t, page.Posts[0].Author.Followed)
	assert.False(t, page.Posts[0].Liked)

	_, err = f.posts.FollowedFeed(ctx, primitive.NewObjectID(), models.Page{Number: 1})
	assert.True(t, apperror.IsNotFound(err))
}

func TestToggleLikeParity(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	author := f.createUser(t, "author@example.com")
	viewer := f.createUser(t, "viewer@example.com")
	post := f.createPost(t, author, base)

	for n := 1; n <= 4; n++ {
		res, err := f.posts.ToggleLike(ctx, viewer.ID, post.ID)
		require.NoError(t, err)
		assert.Equal(t, n%2 == 1, res.Liked)

		stored, err := f.store.GetPostByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, n%2 == 1, models.ContainsID(stored.LikerIDs, viewer.ID))
		assert.LessOrEqual(t, len(stored.LikerIDs), 1)
	}
	assert.Len(t, f.publisher.liked, 4)
}

func TestToggleLikeConcurrent(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	author := f.createUser(t, "author@example.com")
	viewer := f.createUser(t, "viewer@example.com")
	post := f.createPost(t, author, base)

	const calls = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.posts.ToggleLike(ctx, viewer.ID, post.ID); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	stored, err := f.store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, successes%2 == 1, models.ContainsID(stored.LikerIDs, viewer.ID))
	assert.LessOrEqual(t, len(stored.LikerIDs), 1)
}

func TestToggleLikeMissingPost(t *testing.T) {
	f := newFixture(t, defaultOptions())
	_, err := f.posts.ToggleLike(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	assert.True(t, apperror.IsNotFound(err))
	assert.Contains(t, err.Error(), "Post not found")
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	author := f.createUser(t, "author@example.com")

	post, err := f.posts.CreatePost(ctx, models.CreatePostInput{AuthorID: author.ID, Text: "listen", Audio: testAudio})
	require.NoError(t, err)

	assert.Equal(t, author.ID, post.AuthorID)
	assert.Equal(t, "listen", post.Text)
	obj, ok := f.objects.Get(post.AudioRef)
	require.True(t, ok)
	assert.Equal(t, "post-audios", obj.Bucket)
	assert.Equal(t, "audio/mp3", obj.ContentType)
	assert.True(t, obj.Public)
	assert.Equal(t, []byte("ID3 fake mp3"), obj.Body)
	require.Len(t, f.publisher.created, 1)
	assert.Equal(t, post.ID.Hex(), f.publisher.created[0].PostID)
}

func TestCreatePostInvalidAudio(t *testing.T) {
	f := newFixture(t, defaultOptions())
	_, err := f.posts.CreatePost(context.Background(), models.CreatePostInput{AuthorID: primitive.NewObjectID(), Audio: testImage})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, 0, f.objects.Len())
}

func TestCreatePostUploadFailure(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.objects.FailUpload = errors.New("bucket unavailable")

	_, err := f.posts.CreatePost(context.Background(), models.CreatePostInput{AuthorID: primitive.NewObjectID(), Audio: testAudio})
	assert.Equal(t, apperror.KindUpstreamFailure, apperror.KindOf(err))

	count, err := f.store.CountPosts(context.Background(), repository.PostFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

type failingPostRepo struct {
	repository.PostRepository
	createErr error
	appendErr error
}

func (r *failingPostRepo) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.PostRepository.CreatePost(ctx, post)
}

func (r *failingPostRepo) AppendReply(ctx context.Context, postID, replyID primitive.ObjectID) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	return r.PostRepository.AppendReply(ctx, postID, replyID)
}

func TestCreatePostRemovesUploadWhenStoreFails(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.posts.posts = &failingPostRepo{PostRepository: f.store, createErr: errors.New("write concern error")}

	_, err := f.posts.CreatePost(context.Background(), models.CreatePostInput{AuthorID: primitive.NewObjectID(), Audio: testAudio})
	require.Error(t, err)
	assert.Equal(t, 0, f.objects.Len(), "orphaned upload must be deleted")
	assert.Empty(t, f.publisher.created)
}

func TestCreatePostPublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t, defaultOptions())
	f.publisher.err = errors.New("nats down")

	_, err := f.posts.CreatePost(context.Background(), models.CreatePostInput{AuthorID: primitive.NewObjectID(), Audio: testAudio})
	assert.NoError(t, err)
}

func TestReplyAndListReplies(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	author := f.createUser(t, "author@example.com")
	replier := f.createUser(t, "replier@example.com")
	post := f.createPost(t, author, base)

	_, err := f.posts.ListReplies(ctx, post.ID, models.Page{Number: 1})
	assert.True(t, apperror.IsNotFound(err))
	assert.Contains(t, err.Error(), "No Comments for this Post found")

	first, err := f.posts.Reply(ctx, replier.ID, post.ID, "first")
	require.NoError(t, err)
	assert.Equal(t, "replier@example.com", first.Username)
	assert.Equal(t, post.ID, first.PostID)

	time.Sleep(2 * time.Millisecond)
	second, err := f.posts.Reply(ctx, replier.ID, post.ID, "second")
	require.NoError(t, err)

	stored, err := f.store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{first.ID, second.ID}, stored.ReplyIDs)

	page, err := f.posts.ListReplies(ctx, post.ID, models.Page{Number: 0})
	require.NoError(t, err)
	require.Len(t, page.Replies, 2)
	assert.Equal(t, "second", page.Replies[0].Text)
	assert.Equal(t, int64(1), page.TotalCount)
	assert.Len(t, f.publisher.replied, 2)
}

func TestReplyMissingPost(t *testing.T) {
	f := newFixture(t, defaultOptions())
	replier := f.createUser(t, "replier@example.com")

	_, err := f.posts.Reply(context.Background(), replier.ID, primitive.NewObjectID(), "hi")
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.posts.ListReplies(context.Background(), primitive.NewObjectID(), models.Page{})
	assert.True(t, apperror.IsNotFound(err))
}

func TestReplyRemovedWhenAttachFails(t *testing.T) {
	f := newFixture(t, defaultOptions())
	ctx := context.Background()
	author := f.createUser(t, "author@example.com")
	post := f.createPost(t, author, base)
	f.posts.posts = &failingPostRepo{PostRepository: f.store, appendErr: errors.New("timeout")}

	_, err := f.posts.Reply(ctx, author.ID, post.ID, "hi")
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))

	count, err := f.store.CountByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
