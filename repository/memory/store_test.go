package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-service/internal/apperror"
	models "social-service/model"
	"social-service/repository"
)

func TestConditionalLikeUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	post, err := s.CreatePost(ctx, &models.Post{AuthorID: primitive.NewObjectID()})
	require.NoError(t, err)
	viewer := primitive.NewObjectID()

	changed, err := s.AddLike(ctx, post.ID, viewer)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.AddLike(ctx, post.ID, viewer)
	require.NoError(t, err)
	assert.False(t, changed, "second add must not duplicate")

	stored, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, stored.LikerIDs, 1)

	changed, err = s.RemoveLike(ctx, post.ID, viewer)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.RemoveLike(ctx, post.ID, viewer)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestConcurrentAddLikeKeepsSet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	post, err := s.CreatePost(ctx, &models.Post{AuthorID: primitive.NewObjectID()})
	require.NoError(t, err)
	viewer := primitive.NewObjectID()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddLike(ctx, post.ID, viewer)
		}()
	}
	wg.Wait()

	stored, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{viewer}, stored.LikerIDs)
}

func TestListPostsOrderAndJoin(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	author, err := s.CreateUser(ctx, &models.User{Email: "a@example.com", Username: "a@example.com", PasswordHash: "secret"})
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.CreatePost(ctx, &models.Post{AuthorID: author.ID, CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	page, err := s.ListPosts(ctx, repository.PostFilter{}, models.Page{Number: 1, Size: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	for i := 1; i < len(page); i++ {
		assert.True(t, page[i-1].CreatedAt.After(page[i].CreatedAt))
	}
	require.NotNil(t, page[0].Author)
	assert.Equal(t, author.ID, page[0].Author.ID)

	rest, err := s.ListPosts(ctx, repository.PostFilter{}, models.Page{Number: 2, Size: 3})
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	far, err := s.ListPosts(ctx, repository.PostFilter{}, models.Page{Number: 1 << 62, Size: 20})
	require.NoError(t, err)
	assert.Empty(t, far)

	none, err := s.ListPosts(ctx, repository.PostFilter{Restricted: true}, models.Page{Number: 1, Size: 3})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateUserConflict(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, err := s.CreateUser(ctx, &models.User{Email: "a@example.com", Username: "a@example.com"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, &models.User{Email: "a@example.com", Username: "other"})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	post, err := s.CreatePost(ctx, &models.Post{AuthorID: primitive.NewObjectID()})
	require.NoError(t, err)

	post.LikerIDs = append(post.LikerIDs, primitive.NewObjectID())

	stored, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.LikerIDs)
}
