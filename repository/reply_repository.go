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

type ReplyRepository interface {
	CreateReply(ctx context.Context, reply *models.Reply) (*models.Reply, error)
	DeleteReply(ctx context.Context, id primitive.ObjectID) error
	CountByPost(ctx context.Context, postID primitive.ObjectID) (int64, error)
	ListByPost(ctx context.Context, postID primitive.ObjectID, page models.Page) ([]models.Reply, error)
}

type replyRepository struct {
	replies *store.Collection[models.Reply]
}

func NewReplyRepository(db *store.DB) ReplyRepository {
	return &replyRepository{
		replies: store.NewCollection[models.Reply](db.Collection(store.RepliesCollection)),
	}
}

func (r *replyRepository) CreateReply(ctx context.Context, reply *models.Reply) (*models.Reply, error) {
	now := time.Now().UTC()
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = now
	}
	reply.UpdatedAt = now

	id, err := r.replies.Create(ctx, reply)
	if err != nil {
		return nil, fmt.Errorf("failed to create reply: %w", err)
	}
	reply.ID = id
	return reply, nil
}

func (r *replyRepository) DeleteReply(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.replies.Raw().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete reply: %w", err)
	}
	return nil
}

func (r *replyRepository) CountByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	return r.replies.Count(ctx, bson.M{"postId": postID})
}

func (r *replyRepository) ListByPost(ctx context.Context, postID primitive.ObjectID, page models.Page) ([]models.Reply, error) {
	sort := bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	replies, err := r.replies.FetchPage(ctx, bson.M{"postId": postID}, sort, page, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	return replies, nil
}
