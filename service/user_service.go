package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"social-service/events"
	"social-service/internal/apperror"
	"social-service/internal/media"
	"social-service/internal/storage"
	models "social-service/model"
	"social-service/repository"
)

type UserService struct {
	users         repository.UserRepository
	storage       ObjectStorage
	tokens        TokenIssuer
	revoker       TokenRevoker
	publisher     EventPublisher
	profileBucket string
	bcryptCost    int
	log           logrus.FieldLogger
}

type UserServiceDeps struct {
	Users         repository.UserRepository
	Storage       ObjectStorage
	Tokens        TokenIssuer
	Revoker       TokenRevoker
	Publisher     EventPublisher
	ProfileBucket string
	BcryptCost    int
	Log           logrus.FieldLogger
}

func NewUserService(deps UserServiceDeps) *UserService {
	cost := deps.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &UserService{
		users:         deps.Users,
		storage:       deps.Storage,
		tokens:        deps.Tokens,
		revoker:       deps.Revoker,
		publisher:     deps.Publisher,
		profileBucket: deps.ProfileBucket,
		bcryptCost:    cost,
		log:           deps.Log,
	}
}

// SignUp registers an email/password account. The username starts out as
// the email address.
func (s *UserService) SignUp(ctx context.Context, in models.SignUpInput) (*models.AuthResult, error) {
	email := normalizeEmail(in.Email)

	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, apperror.Conflict("User already exists")
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var picture string
	if in.ProfilePic != "" {
		picture, err = s.uploadProfilePic(ctx, in.ProfilePic)
		if err != nil {
			return nil, err
		}
	}

	user, err := s.users.CreateUser(ctx, &models.User{
		FullName:      in.FullName,
		Username:      email,
		Email:         email,
		PasswordHash:  hash,
		Age:           in.Age,
		Phone:         in.Phone,
		ProfilePicRef: picture,
		Lat:           in.Lat,
		Long:          in.Long,
		IP:            in.IP,
	})
	if err != nil {
		if picture != "" {
			s.discardUpload(s.profileBucket, picture)
		}
		return nil, err
	}

	s.log.WithField("user_id", user.ID.Hex()).Info("User signed up")
	return s.authenticate(user)
}

// SignIn checks the password of an email/password account.
func (s *UserService) SignIn(ctx context.Context, in models.SignInInput) (*models.AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		return nil, err
	}

	if !user.HasPassword() {
		return nil, apperror.InvalidOperation("This account uses Google sign-in")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.InvalidOperation("Password Incorrect")
	}

	return s.authenticate(user)
}

// VerifyAccess returns the current user together with the token presented.
func (s *UserService) VerifyAccess(ctx context.Context, userID primitive.ObjectID, token string) (*models.AuthResult, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{User: user.Profile(), Token: token}, nil
}

// SignOut revokes a token until its expiry.
func (s *UserService) SignOut(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.revoker == nil || tokenID == "" {
		return nil
	}
	if err := s.revoker.Revoke(ctx, tokenID, expiresAt); err != nil {
		return apperror.Upstream("failed to revoke token", err)
	}
	return nil
}

// UpdateUser changes only the provided fields. A new profile picture is
// stored before the record changes and the previous one is removed after.
func (s *UserService) UpdateUser(ctx context.Context, userID primitive.ObjectID, in models.UpdateUserInput) (*models.UserProfile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	patch := models.UserPatch{
		FullName: in.FullName,
		Bio:      in.Bio,
		Age:      in.Age,
	}

	if in.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*in.Username))
		// Email-shaped usernames are reserved for the default username of
		// the account owning that email.
		if strings.Contains(username, "@") && username != user.Email {
			return nil, apperror.Validation("Username cannot contain @")
		}
		if username != user.Username {
			existing, err := s.users.GetUserByUsername(ctx, username)
			switch {
			case err == nil && existing.ID != user.ID:
				return nil, apperror.Conflict("Username already exist")
			case err != nil && !apperror.IsNotFound(err):
				return nil, err
			}
		}
		patch.Username = &username
	}

	if in.Password != nil {
		hash, err := s.hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}

	var picture string
	if in.ProfilePic != nil {
		picture, err = s.uploadProfilePic(ctx, *in.ProfilePic)
		if err != nil {
			return nil, err
		}
		patch.ProfilePicRef = &picture
	}

	if patch.IsEmpty() {
		profile := user.Profile()
		return &profile, nil
	}

	updated, err := s.users.UpdateUser(ctx, userID, patch)
	if err != nil {
		if picture != "" {
			s.discardUpload(s.profileBucket, picture)
		}
		return nil, err
	}

	if picture != "" && user.ProfilePicRef != "" {
		s.discardUpload(s.profileBucket, user.ProfilePicRef)
	}

	profile := updated.Profile()
	return &profile, nil
}

// ToggleFollow makes current follow target, or stop following it. Both
// sides of the relation are written with conditional updates; when the
// second write fails the first is reverted.
func (s *UserService) ToggleFollow(ctx context.Context, currentID, targetID primitive.ObjectID) (*models.FollowResult, error) {
	if currentID == targetID {
		return nil, apperror.InvalidOperation("You cannot follow/unfollow yourself")
	}

	if _, err := s.users.GetUserByID(ctx, targetID); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		current, err := s.users.GetUserByID(ctx, currentID)
		if err != nil {
			return nil, err
		}

		following := current.IsFollowing(targetID)
		changed, err := s.setFollowing(ctx, currentID, targetID, !following)
		if err != nil {
			return nil, err
		}
		if !changed {
			continue
		}

		result := &models.FollowResult{Followed: !following}
		s.log.WithFields(logrus.Fields{
			"follower_id": currentID.Hex(),
			"followee_id": targetID.Hex(),
			"followed":    result.Followed,
		}).Info("Follow state changed")

		if err := s.publisher.PublishUserFollowed(events.UserFollowedEvent{
			FollowerID: currentID.Hex(),
			FolloweeID: targetID.Hex(),
			Followed:   result.Followed,
			OccurredAt: time.Now().UTC(),
		}); err != nil {
			s.log.WithError(err).Warn("Failed to publish user followed event")
		}
		return result, nil
	}

	return nil, apperror.Conflict("Follow state was modified concurrently, try again")
}

// setFollowing writes the pair (current.following, target.followers). It
// reports false when current's side already had the requested state.
func (s *UserService) setFollowing(ctx context.Context, currentID, targetID primitive.ObjectID, follow bool) (bool, error) {
	apply := s.users.RemoveFromFollowSet
	revert := s.users.AddToFollowSet
	if follow {
		apply, revert = revert, apply
	}

	changed, err := apply(ctx, currentID, repository.FollowingField, targetID)
	if err != nil {
		return false, apperror.Internal("failed to update following", err)
	}
	if !changed {
		return false, nil
	}

	if _, err := apply(ctx, targetID, repository.FollowersField, currentID); err != nil {
		if _, revertErr := revert(context.Background(), currentID, repository.FollowingField, targetID); revertErr != nil {
			s.log.WithError(revertErr).WithFields(logrus.Fields{
				"follower_id": currentID.Hex(),
				"followee_id": targetID.Hex(),
			}).Error("Failed to revert partial follow update")
		}
		return false, apperror.Upstream("failed to update followers", err)
	}
	return true, nil
}

func (s *UserService) authenticate(user *models.User) (*models.AuthResult, error) {
	token, err := s.tokens.Generate(user.ID.Hex())
	if err != nil {
		return nil, apperror.Internal("failed to generate token", err)
	}
	return &models.AuthResult{User: user.Profile(), Token: token}, nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperror.Validation("password must be at most 72 bytes")
		}
		return "", apperror.Internal("failed to hash password", err)
	}
	return string(hash), nil
}

func (s *UserService) uploadProfilePic(ctx context.Context, dataURI string) (string, error) {
	file, err := media.Parse(dataURI, "image")
	if err != nil {
		return "", apperror.Validation("profilePic must be a base64 encoded image data URI")
	}

	locator, err := s.storage.Upload(ctx, storage.Object{
		Bucket:      s.profileBucket,
		Key:         media.Key("", file.Extension()),
		Body:        file.Data,
		ContentType: "image/" + file.Extension(),
		Public:      true,
	})
	if err != nil {
		return "", apperror.Upstream("failed to upload profile picture", err)
	}
	return locator, nil
}

func (s *UserService) discardUpload(bucket, locator string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.storage.Delete(ctx, bucket, locator); err != nil {
		s.log.WithError(err).WithField("object", locator).Warn("Failed to remove stored object")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
