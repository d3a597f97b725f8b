// Package memory holds in-process repositories used by tests and by the
// server when started without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-service/internal/apperror"
	models "social-service/model"
	"social-service/repository"
)

// Store implements PostRepository, ReplyRepository and UserRepository.
type Store struct {
	mu      sync.RWMutex
	posts   map[primitive.ObjectID]*models.Post
	replies map[primitive.ObjectID]*models.Reply
	users   map[primitive.ObjectID]*models.User
	now     func() time.Time
}

var (
	_ repository.PostRepository  = (*Store)(nil)
	_ repository.ReplyRepository = (*Store)(nil)
	_ repository.UserRepository  = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		posts:   make(map[primitive.ObjectID]*models.Post),
		replies: make(map[primitive.ObjectID]*models.Reply),
		users:   make(map[primitive.ObjectID]*models.User),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := clonePost(post)
	stored.ID = primitive.NewObjectID()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	stored.UpdatedAt = stored.CreatedAt
	s.posts[stored.ID] = stored

	out := clonePost(stored)
	return out, nil
}

func (s *Store) GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, apperror.NotFound(repository.PostNotFound)
	}
	return clonePost(post), nil
}

func (s *Store) CountPosts(ctx context.Context, filter repository.PostFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.matchingPosts(filter))), nil
}

func (s *Store) ListPosts(ctx context.Context, filter repository.PostFilter, page models.Page) ([]models.PostWithAuthor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matching := s.matchingPosts(filter)
	sort.Slice(matching, func(i, j int) bool {
		if matching[i].CreatedAt.Equal(matching[j].CreatedAt) {
			return matching[i].ID.Hex() > matching[j].ID.Hex()
		}
		return matching[i].CreatedAt.After(matching[j].CreatedAt)
	})

	out := make([]models.PostWithAuthor, 0, page.Size)
	for _, post := range window(matching, page) {
		joined := models.PostWithAuthor{Post: *clonePost(post)}
		if author, ok := s.users[post.AuthorID]; ok {
			summary := cloneUser(author).Summary()
			joined.Author = &summary
		}
		out = append(out, joined)
	}
	return out, nil
}

func (s *Store) AddLike(ctx context.Context, postID, userID primitive.ObjectID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok || models.ContainsID(post.LikerIDs, userID) {
		return false, nil
	}
	post.LikerIDs = append(post.LikerIDs, userID)
	post.UpdatedAt = s.now()
	return true, nil
}

func (s *Store) RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok || !models.ContainsID(post.LikerIDs, userID) {
		return false, nil
	}
	post.LikerIDs = without(post.LikerIDs, userID)
	post.UpdatedAt = s.now()
	return true, nil
}

func (s *Store) AppendReply(ctx context.Context, postID, replyID primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return apperror.NotFound(repository.PostNotFound)
	}
	post.ReplyIDs = append(post.ReplyIDs, replyID)
	post.UpdatedAt = s.now()
	return nil
}

func (s *Store) CreateReply(ctx context.Context, reply *models.Reply) (*models.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *reply
	stored.ID = primitive.NewObjectID()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	stored.UpdatedAt = stored.CreatedAt
	s.replies[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *Store) DeleteReply(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.replies, id)
	return nil
}

func (s *Store) CountByPost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.repliesOf(postID))), nil
}

func (s *Store) ListByPost(ctx context.Context, postID primitive.ObjectID, page models.Page) ([]models.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	replies := s.repliesOf(postID)
	sort.Slice(replies, func(i, j int) bool {
		if replies[i].CreatedAt.Equal(replies[j].CreatedAt) {
			return replies[i].ID.Hex() > replies[j].ID.Hex()
		}
		return replies[i].CreatedAt.After(replies[j].CreatedAt)
	})

	out := make([]models.Reply, 0, page.Size)
	for _, reply := range window(replies, page) {
		out = append(out, *reply)
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return nil, apperror.Conflict("User already exists")
		}
	}

	stored := cloneUser(user)
	stored.ID = primitive.NewObjectID()
	stored.CreatedAt = s.now()
	stored.UpdatedAt = stored.CreatedAt
	s.users[stored.ID] = stored

	return cloneUser(stored), nil
}

func (s *Store) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, apperror.NotFound(repository.UserNotFound)
	}
	return cloneUser(user), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			return cloneUser(user), nil
		}
	}
	return nil, apperror.NotFound(repository.EmailNotFound)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			return cloneUser(user), nil
		}
	}
	return nil, apperror.NotFound(repository.UserNotFound)
}

func (s *Store) UpdateUser(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, apperror.NotFound(repository.UserNotFound)
	}
	if patch.Username != nil {
		for otherID, other := range s.users {
			if otherID != id && strings.EqualFold(other.Username, *patch.Username) {
				return nil, apperror.Conflict("Username already exist")
			}
		}
		user.Username = *patch.Username
	}
	if patch.FullName != nil {
		user.FullName = *patch.FullName
	}
	if patch.PasswordHash != nil {
		user.PasswordHash = *patch.PasswordHash
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}
	if patch.Age != nil {
		user.Age = *patch.Age
	}
	if patch.ProfilePicRef != nil {
		user.ProfilePicRef = *patch.ProfilePicRef
	}
	user.UpdatedAt = s.now()

	return cloneUser(user), nil
}

func (s *Store) SetGoogleTokens(ctx context.Context, email, accessToken, refreshToken string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email != email {
			continue
		}
		user.GoogleAccessToken = accessToken
		if refreshToken != "" {
			user.GoogleRefreshToken = refreshToken
		}
		user.UpdatedAt = s.now()
		return cloneUser(user), nil
	}
	return nil, apperror.NotFound(repository.EmailNotFound)
}

func (s *Store) AddToFollowSet(ctx context.Context, userID primitive.ObjectID, field string, member primitive.ObjectID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.followSet(userID, field)
	if err != nil || set == nil {
		return false, err
	}
	if models.ContainsID(*set, member) {
		return false, nil
	}
	*set = append(*set, member)
	return true, nil
}

func (s *Store) RemoveFromFollowSet(ctx context.Context, userID primitive.ObjectID, field string, member primitive.ObjectID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.followSet(userID, field)
	if err != nil || set == nil {
		return false, err
	}
	if !models.ContainsID(*set, member) {
		return false, nil
	}
	*set = without(*set, member)
	return true, nil
}

// followSet returns nil without error when the user does not exist, the
// same outcome as an unmatched conditional update.
func (s *Store) followSet(userID primitive.ObjectID, field string) (*[]primitive.ObjectID, error) {
	user, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	switch field {
	case repository.FollowersField:
		return &user.FollowerIDs, nil
	case repository.FollowingField:
		return &user.FollowingIDs, nil
	default:
		return nil, fmt.Errorf("unknown follow field %q", field)
	}
}

func (s *Store) matchingPosts(filter repository.PostFilter) []*models.Post {
	out := make([]*models.Post, 0, len(s.posts))
	for _, post := range s.posts {
		if filter.Restricted && !models.ContainsID(filter.Authors, post.AuthorID) {
			continue
		}
		out = append(out, post)
	}
	return out
}

func (s *Store) repliesOf(postID primitive.ObjectID) []*models.Reply {
	var out []*models.Reply
	for _, reply := range s.replies {
		if reply.PostID == postID {
			out = append(out, reply)
		}
	}
	return out
}

func window[T any](items []T, page models.Page) []T {
	start := page.Skip()
	if start < 0 || start >= int64(len(items)) {
		return nil
	}
	end := start + page.Size
	if end < start || end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[start:end]
}

func without(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

func clonePost(p *models.Post) *models.Post {
	out := *p
	out.LikerIDs = append([]primitive.ObjectID{}, p.LikerIDs...)
	out.ReplyIDs = append([]primitive.ObjectID{}, p.ReplyIDs...)
	return &out
}

func cloneUser(u *models.User) *models.User {
	out := *u
	out.FollowerIDs = append([]primitive.ObjectID{}, u.FollowerIDs...)
	out.FollowingIDs = append([]primitive.ObjectID{}, u.FollowingIDs...)
	return &out
}
