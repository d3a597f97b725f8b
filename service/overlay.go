package service

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "social-service/model"
)

// ApplyViewerState projects a joined post into what viewer sees. liked is
// viewer membership in the post's likers and followed is viewer membership
// in the author's followers, or always true for the followed-only feed. An
// anonymous viewer (nil) sees both as false. The input is never modified.
func ApplyViewerState(post models.PostWithAuthor, viewer *primitive.ObjectID, followedFeed bool) models.FeedPost {
	out := models.FeedPost{
		ID:        post.ID,
		Text:      post.Text,
		AudioRef:  post.AudioRef,
		LikerIDs:  copyIDs(post.LikerIDs),
		ReplyIDs:  copyIDs(post.ReplyIDs),
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}

	if post.Author != nil {
		out.Author.UserSummary = *post.Author
		out.Author.FollowerIDs = copyIDs(post.Author.FollowerIDs)
		out.Author.FollowingIDs = copyIDs(post.Author.FollowingIDs)
	} else {
		out.Author.ID = post.AuthorID
		out.Author.FollowerIDs = []primitive.ObjectID{}
		out.Author.FollowingIDs = []primitive.ObjectID{}
	}

	if viewer == nil {
		return out
	}

	out.Liked = models.ContainsID(post.LikerIDs, *viewer)
	if followedFeed {
		out.Author.Followed = true
	} else if post.Author != nil {
		out.Author.Followed = models.ContainsID(post.Author.FollowerIDs, *viewer)
	}
	return out
}

func copyIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}
