package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-service/internal/store"
	models "social-service/model"
)

const PostNotFound = "Post not found"

// AuthorExcludedFields are never joined onto posts.
var AuthorExcludedFields = []string{
	"password", "ip", "createdAt", "updatedAt", "__v",
	"google_access_token", "google_refresh_token",
}

// PostFilter selects posts. When Restricted is set only posts whose author
// is in Authors match, so an empty Authors list matches nothing.
type PostFilter struct {
	Authors    []primitive.ObjectID
	Restricted bool
}

type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) (*models.Post, error)
	GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	CountPosts(ctx context.Context, filter PostFilter) (int64, error)
	ListPosts(ctx context.Context, filter PostFilter, page models.Page) ([]models.PostWithAuthor, error)
	// AddLike adds userID to the post's likers only if absent and reports
	// whether the post changed.
	AddLike(ctx context.Context, postID, userID primitive.ObjectID) (bool, error)
	// RemoveLike removes userID only if present and reports whether the post
	// changed.
	RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (bool, error)
	AppendReply(ctx context.Context, postID, replyID primitive.ObjectID) error
}

type postRepository struct {
	posts *store.Collection[models.Post]
	feed  *store.Collection[models.PostWithAuthor]
}

func NewPostRepository(db *store.DB) PostRepository {
	coll := db.Collection(store.PostsCollection)
	return &postRepository{
		posts: store.NewCollection[models.Post](coll),
		feed:  store.NewCollection[models.PostWithAuthor](coll),
	}
}

func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	if post.LikerIDs == nil {
		post.LikerIDs = []primitive.ObjectID{}
	}
	if post.ReplyIDs == nil {
		post.ReplyIDs = []primitive.ObjectID{}
	}

	id, err := r.posts.Create(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	post.ID = id
	return post, nil
}

func (r *postRepository) GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	return r.posts.FindByID(ctx, id, PostNotFound)
}

func (r *postRepository) CountPosts(ctx context.Context, filter PostFilter) (int64, error) {
	return r.posts.Count(ctx, postQuery(filter))
}

func (r *postRepository) ListPosts(ctx context.Context, filter PostFilter, page models.Page) ([]models.PostWithAuthor, error) {
	join := &store.Join{
		From:         store.UsersCollection,
		LocalField:   "postedBy",
		ForeignField: "_id",
		As:           "author",
		Exclude:      AuthorExcludedFields,
	}
	sort := bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

	posts, err := r.feed.FetchPage(ctx, postQuery(filter), sort, page, join)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (r *postRepository) AddLike(ctx context.Context, postID, userID primitive.ObjectID) (bool, error) {
	filter, update := likeUpdate(postID, userID, true, time.Now().UTC())
	return r.posts.UpdateOne(ctx, filter, update)
}

func (r *postRepository) RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (bool, error) {
	filter, update := likeUpdate(postID, userID, false, time.Now().UTC())
	return r.posts.UpdateOne(ctx, filter, update)
}

// likeUpdate builds a conditional update that only matches when the flip
// is still pending, so a lost race matches nothing instead of flipping twice.
func likeUpdate(postID, userID primitive.ObjectID, like bool, now time.Time) (bson.M, bson.M) {
	if like {
		return bson.M{"_id": postID, "likes": bson.M{"$ne": userID}},
			bson.M{
				"$addToSet": bson.M{"likes": userID},
				"$set":      bson.M{"updatedAt": now},
			}
	}
	return bson.M{"_id": postID, "likes": userID},
		bson.M{
			"$pull": bson.M{"likes": userID},
			"$set":  bson.M{"updatedAt": now},
		}
}

func (r *postRepository) AppendReply(ctx context.Context, postID, replyID primitive.ObjectID) error {
	update := bson.M{
		"$push": bson.M{"replies": replyID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	if _, err := r.posts.Update(ctx, postID, update, PostNotFound); err != nil {
		return fmt.Errorf("failed to append reply: %w", err)
	}
	return nil
}

func postQuery(filter PostFilter) bson.M {
	if !filter.Restricted {
		return bson.M{}
	}
	authors := filter.Authors
	if authors == nil {
		authors = []primitive.ObjectID{}
	}
	return bson.M{"postedBy": bson.M{"$in": authors}}
}
