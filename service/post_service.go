package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-service/events"
	"social-service/internal/apperror"
	"social-service/internal/media"
	"social-service/internal/storage"
	models "social-service/model"
	"social-service/repository"
)

const audioContentType = "audio/mp3"

type PostService struct {
	posts       repository.PostRepository
	replies     repository.ReplyRepository
	users       repository.UserRepository
	storage     ObjectStorage
	publisher   EventPublisher
	audioBucket string
	opts        FeedOptions
	log         logrus.FieldLogger
}

type PostServiceDeps struct {
	Posts       repository.PostRepository
	Replies     repository.ReplyRepository
	Users       repository.UserRepository
	Storage     ObjectStorage
	Publisher   EventPublisher
	AudioBucket string
	Options     FeedOptions
	Log         logrus.FieldLogger
}

func NewPostService(deps PostServiceDeps) *PostService {
	if deps.Options.DefaultPageSize < 1 {
		deps.Options.DefaultPageSize = 20
	}
	return &PostService{
		posts:       deps.Posts,
		replies:     deps.Replies,
		users:       deps.Users,
		storage:     deps.Storage,
		publisher:   deps.Publisher,
		audioBucket: deps.AudioBucket,
		opts:        deps.Options,
		log:         deps.Log,
	}
}

// CreatePost uploads the audio clip and stores the post. The uploaded
// object is removed again if the post cannot be stored.
func (s *PostService) CreatePost(ctx context.Context, in models.CreatePostInput) (*models.Post, error) {
	file, err := media.Parse(in.Audio, "audio")
	if err != nil {
		return nil, apperror.Validation("audio must be a base64 encoded audio data URI")
	}

	locator, err := s.storage.Upload(ctx, storage.Object{
		Bucket:      s.audioBucket,
		Key:         media.Key(in.AuthorID.Hex(), file.Extension()),
		Body:        file.Data,
		ContentType: audioContentType,
		Public:      true,
	})
	if err != nil {
		return nil, apperror.Upstream("failed to upload audio", err)
	}

	post, err := s.posts.CreatePost(ctx, &models.Post{
		AuthorID: in.AuthorID,
		Text:     in.Text,
		AudioRef: locator,
	})
	if err != nil {
		s.discardUpload(s.audioBucket, locator)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"post_id": post.ID.Hex(),
		"user_id": in.AuthorID.Hex(),
	}).Info("Post created")

	if err := s.publisher.PublishPostCreated(events.PostCreatedEvent{
		PostID:    post.ID.Hex(),
		UserID:    in.AuthorID.Hex(),
		Text:      post.Text,
		AudioRef:  post.AudioRef,
		CreatedAt: post.CreatedAt,
	}); err != nil {
		s.log.WithError(err).Warn("Failed to publish post created event")
	}

	return post, nil
}

// Feed returns one page of all posts, newest first, as seen by viewer.
// viewer may be nil for anonymous requests.
func (s *PostService) Feed(ctx context.Context, viewer *primitive.ObjectID, page models.Page) (*models.FeedPage, error) {
	return s.assemble(ctx, repository.PostFilter{}, viewer, page, false)
}

// FollowedFeed returns one page of posts by authors the viewer follows.
func (s *PostService) FollowedFeed(ctx context.Context, viewerID primitive.ObjectID, page models.Page) (*models.FeedPage, error) {
	viewer, err := s.users.GetUserByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	filter := repository.PostFilter{Authors: viewer.FollowingIDs, Restricted: true}
	return s.assemble(ctx, filter, &viewerID, page, true)
}

func (s *PostService) assemble(ctx context.Context, filter repository.PostFilter, viewer *primitive.ObjectID, page models.Page, followedFeed bool) (*models.FeedPage, error) {
	page = page.Normalize(s.opts.DefaultPageSize)

	count, err := s.posts.CountPosts(ctx, filter)
	if err != nil {
		return nil, apperror.Internal("failed to count posts", err)
	}

	raw, err := s.posts.ListPosts(ctx, filter, page)
	if err != nil {
		return nil, apperror.Internal("failed to fetch posts", err)
	}

	if len(raw) == 0 && s.opts.EmptyPageIsError {
		return nil, apperror.NotFound("No feed posts found")
	}

	posts := make([]models.FeedPost, 0, len(raw))
	for _, p := range raw {
		posts = append(posts, ApplyViewerState(p, viewer, followedFeed))
	}

	return &models.FeedPage{
		Posts:      posts,
		TotalCount: TotalCount(s.opts.CountMode, count, page.Size),
	}, nil
}

// ToggleLike flips viewer membership in the post's likers. Each call that
// returns successfully performs exactly one flip, so N calls leave the
// viewer liking the post iff N is odd.
func (s *PostService) ToggleLike(ctx context.Context, viewerID, postID primitive.ObjectID) (*models.LikeResult, error) {
	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		post, err := s.posts.GetPostByID(ctx, postID)
		if err != nil {
			return nil, err
		}

		liked := models.ContainsID(post.LikerIDs, viewerID)
		var changed bool
		if liked {
			changed, err = s.posts.RemoveLike(ctx, postID, viewerID)
		} else {
			changed, err = s.posts.AddLike(ctx, postID, viewerID)
		}
		if err != nil {
			return nil, apperror.Internal("failed to update likes", err)
		}
		if !changed {
			continue
		}

		result := &models.LikeResult{Liked: !liked}
		if err := s.publisher.PublishPostLiked(events.PostLikedEvent{
			PostID:     postID.Hex(),
			UserID:     viewerID.Hex(),
			Liked:      result.Liked,
			OccurredAt: time.Now().UTC(),
		}); err != nil {
			s.log.WithError(err).Warn("Failed to publish post liked event")
		}
		return result, nil
	}

	return nil, apperror.Conflict("Post was modified concurrently, try again")
}

// Reply attaches a new reply by viewer to the post.
func (s *PostService) Reply(ctx context.Context, viewerID, postID primitive.ObjectID, text string) (*models.Reply, error) {
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}

	author, err := s.users.GetUserByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	reply, err := s.replies.CreateReply(ctx, &models.Reply{
		PostID:     postID,
		AuthorID:   viewerID,
		Text:       text,
		Username:   author.Username,
		ProfilePic: author.ProfilePicRef,
	})
	if err != nil {
		return nil, apperror.Internal("failed to create reply", err)
	}

	if err := s.posts.AppendReply(ctx, postID, reply.ID); err != nil {
		if delErr := s.replies.DeleteReply(context.Background(), reply.ID); delErr != nil {
			s.log.WithError(delErr).WithField("reply_id", reply.ID.Hex()).Error("Failed to remove orphaned reply")
		}
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.Internal("failed to attach reply", err)
	}

	if err := s.publisher.PublishPostReplied(events.PostRepliedEvent{
		PostID:    postID.Hex(),
		ReplyID:   reply.ID.Hex(),
		UserID:    viewerID.Hex(),
		Text:      reply.Text,
		CreatedAt: reply.CreatedAt,
	}); err != nil {
		s.log.WithError(err).Warn("Failed to publish post replied event")
	}

	return reply, nil
}

// ListReplies returns one page of a post's replies, newest first.
func (s *PostService) ListReplies(ctx context.Context, postID primitive.ObjectID, page models.Page) (*models.ReplyPage, error) {
	if _, err := s.posts.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}

	page = page.Normalize(s.opts.DefaultPageSize)

	count, err := s.replies.CountByPost(ctx, postID)
	if err != nil {
		return nil, apperror.Internal("failed to count replies", err)
	}

	replies, err := s.replies.ListByPost(ctx, postID, page)
	if err != nil {
		return nil, apperror.Internal("failed to fetch replies", err)
	}

	if len(replies) == 0 && s.opts.EmptyPageIsError {
		return nil, apperror.NotFound("No Comments for this Post found")
	}

	return &models.ReplyPage{
		Replies:    replies,
		TotalCount: TotalCount(s.opts.CountMode, count, page.Size),
	}, nil
}

// discardUpload deletes an object whose record was never stored. It does
// not use the request context, which may already be cancelled.
func (s *PostService) discardUpload(bucket, locator string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.storage.Delete(ctx, bucket, locator); err != nil {
		s.log.WithError(err).WithField("object", locator).Error("Failed to remove orphaned upload")
	}
}
