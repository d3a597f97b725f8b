package events

import (
	"time"
)

const (
	PostCreated  = "post.created"
	PostLiked    = "post.liked"
	PostReplied  = "post.replied"
	UserFollowed = "user.followed"
)

// Subjects lists every subject the service publishes.
var Subjects = []string{PostCreated, PostLiked, PostReplied, UserFollowed}

// Event payloads
type PostCreatedEvent struct {
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text,omitempty"`
	AudioRef  string    `json:"audio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PostLikedEvent is published for both likes and unlikes.
type PostLikedEvent struct {
	PostID     string    `json:"post_id"`
	UserID     string    `json:"user_id"`
	Liked      bool      `json:"liked"`
	OccurredAt time.Time `json:"occurred_at"`
}

type PostRepliedEvent struct {
	PostID    string    `json:"post_id"`
	ReplyID   string    `json:"reply_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFollowedEvent is published for both follows and unfollows.
type UserFollowedEvent struct {
	FollowerID string    `json:"follower_id"`
	FolloweeID string    `json:"followee_id"`
	Followed   bool      `json:"followed"`
	OccurredAt time.Time `json:"occurred_at"`
}
