package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Reply struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	PostID     primitive.ObjectID `json:"postId" bson:"postId"`
	AuthorID   primitive.ObjectID `json:"userId" bson:"userId"`
	Text       string             `json:"text" bson:"text"`
	Username   string             `json:"username,omitempty" bson:"username,omitempty"`
	ProfilePic string             `json:"userProfilePic,omitempty" bson:"userProfilePic,omitempty"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type ReplyPage struct {
	Replies    []Reply `json:"comments"`
	TotalCount int64   `json:"totalCount"`
}
