package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Post struct {
	ID        primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	AuthorID  primitive.ObjectID   `json:"postedBy" bson:"postedBy"`
	Text      string               `json:"text,omitempty" bson:"text,omitempty"`
	AudioRef  string               `json:"audio,omitempty" bson:"audio,omitempty"`
	LikerIDs  []primitive.ObjectID `json:"likes" bson:"likes"`
	ReplyIDs  []primitive.ObjectID `json:"replies" bson:"replies"`
	CreatedAt time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// PostWithAuthor is a stored post joined with its author's public summary.
type PostWithAuthor struct {
	Post   `bson:",inline"`
	Author *UserSummary `json:"postedBy" bson:"author"`
}

// FeedPost is a post as returned to a particular viewer.
type FeedPost struct {
	ID        primitive.ObjectID   `json:"_id"`
	Author    FeedAuthor           `json:"postedBy"`
	Text      string               `json:"text,omitempty"`
	AudioRef  string               `json:"audio,omitempty"`
	LikerIDs  []primitive.ObjectID `json:"likes"`
	ReplyIDs  []primitive.ObjectID `json:"replies"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
	Liked     bool                 `json:"liked"`
}

// FeedAuthor is the author summary with the viewer's follow state.
type FeedAuthor struct {
	UserSummary
	Followed bool `json:"followed"`
}

type FeedPage struct {
	Posts      []FeedPost `json:"feedPosts"`
	TotalCount int64      `json:"totalCount"`
}

type CreatePostInput struct {
	AuthorID primitive.ObjectID
	Text     string
	Audio    string
}

type LikeResult struct {
	Liked bool `json:"liked"`
}
