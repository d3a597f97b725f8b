package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-service/internal/apperror"
	"social-service/internal/store"
	models "social-service/model"
)

const (
	UserNotFound  = "User not found"
	EmailNotFound = "Email Not Found"
)

// Follow-set fields of a user document.
const (
	FollowersField = "followers"
	FollowingField = "following"
)

type UserRepository interface {
	// CreateUser fails with Conflict when the email or username is taken.
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error)
	SetGoogleTokens(ctx context.Context, email, accessToken, refreshToken string) (*models.User, error)
	// AddToFollowSet adds member to the user's followers or following set
	// only if absent and reports whether the user changed.
	AddToFollowSet(ctx context.Context, userID primitive.ObjectID, field string, member primitive.ObjectID) (bool, error)
	// RemoveFromFollowSet removes member only if present and reports whether
	// the user changed.
	RemoveFromFollowSet(ctx context.Context, userID primitive.ObjectID, field string, member primitive.ObjectID) (bool, error)
}

type userRepository struct {
	users *store.Collection[models.User]
}

func NewUserRepository(db *store.DB) UserRepository {
	return &userRepository{
		users: store.NewCollection[models.User](db.Collection(store.UsersCollection)),
	}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.FollowerIDs == nil {
		user.FollowerIDs = []primitive.ObjectID{}
	}
	if user.FollowingIDs == nil {
		user.FollowingIDs = []primitive.ObjectID{}
	}

	id, err := r.users.Create(ctx, user)
	if err != nil {
		if apperror.IsConflict(err) {
			return nil, apperror.Conflict("User already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id
	return user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.users.FindByID(ctx, id, UserNotFound)
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.users.FindOne(ctx, bson.M{"email": email}, EmailNotFound)
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.users.FindOne(ctx, bson.M{"username": username}, UserNotFound)
}

func (r *userRepository) UpdateUser(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.FullName != nil {
		set["fullName"] = *patch.FullName
	}
	if patch.Username != nil {
		set["username"] = *patch.Username
	}
	if patch.PasswordHash != nil {
		set["password"] = *patch.PasswordHash
	}
	if patch.Bio != nil {
		set["bio"] = *patch.Bio
	}
	if patch.Age != nil {
		set["age"] = *patch.Age
	}
	if patch.ProfilePicRef != nil {
		set["profilePic"] = *patch.ProfilePicRef
	}

	user, err := r.users.Update(ctx, id, bson.M{"$set": set}, UserNotFound)
	if err != nil {
		if apperror.IsConflict(err) {
			return nil, apperror.Conflict("Username already exist")
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) SetGoogleTokens(ctx context.Context, email, accessToken, refreshToken string) (*models.User, error) {
	set := bson.M{
		"google_access_token": accessToken,
		"updatedAt":           time.Now().UTC(),
	}
	if refreshToken != "" {
		set["google_refresh_token"] = refreshToken
	}
	return r.users.UpdateWhere(ctx, bson.M{"email": email}, bson.M{"$set": set}, EmailNotFound)
}

func (r *userRepository) AddToFollowSet(ctx context.Context, userID primitive.ObjectID, field string, member primitive.ObjectID) (bool, error) {
	if err := checkFollowField(field); err != nil {
		return false, err
	}
	filter, update := followSetUpdate(userID, field, member, true)
	return r.users.UpdateOne(ctx, filter, update)
}

func (r *userRepository) RemoveFromFollowSet(ctx context.Context, userID primitive.ObjectID, field string, member primitive.ObjectID) (bool, error) {
	if err := checkFollowField(field); err != nil {
		return false, err
	}
	filter, update := followSetUpdate(userID, field, member, false)
	return r.users.UpdateOne(ctx, filter, update)
}

func followSetUpdate(userID primitive.ObjectID, field string, member primitive.ObjectID, add bool) (bson.M, bson.M) {
	if add {
		return bson.M{"_id": userID, field: bson.M{"$ne": member}},
			bson.M{"$addToSet": bson.M{field: member}}
	}
	return bson.M{"_id": userID, field: member},
		bson.M{"$pull": bson.M{field: member}}
}

func checkFollowField(field string) error {
	if field != FollowersField && field != FollowingField {
		return fmt.Errorf("unknown follow field %q", field)
	}
	return nil
}
