package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID                 primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	FullName           string               `json:"fullName" bson:"fullName"`
	Username           string               `json:"username" bson:"username"`
	Email              string               `json:"email" bson:"email"`
	PasswordHash       string               `json:"-" bson:"password,omitempty"`
	Age                int                  `json:"age" bson:"age"`
	Phone              string               `json:"phone,omitempty" bson:"phone,omitempty"`
	ProfilePicRef      string               `json:"profilePic,omitempty" bson:"profilePic,omitempty"`
	Bio                string               `json:"bio,omitempty" bson:"bio,omitempty"`
	FollowerIDs        []primitive.ObjectID `json:"followers" bson:"followers"`
	FollowingIDs       []primitive.ObjectID `json:"following" bson:"following"`
	IP                 string               `json:"-" bson:"ip,omitempty"`
	Lat                float64              `json:"lat,omitempty" bson:"lat,omitempty"`
	Long               float64              `json:"long,omitempty" bson:"long,omitempty"`
	GoogleAccessToken  string               `json:"-" bson:"google_access_token,omitempty"`
	GoogleRefreshToken string               `json:"-" bson:"google_refresh_token,omitempty"`
	CreatedAt          time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// IsFollowing reports whether u follows target.
func (u *User) IsFollowing(target primitive.ObjectID) bool {
	return ContainsID(u.FollowingIDs, target)
}

// Profile returns the user without credentials, OAuth tokens or IP.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:           u.ID,
		FullName:     u.FullName,
		Username:     u.Username,
		Email:        u.Email,
		Age:          u.Age,
		Phone:        u.Phone,
		ProfilePic:   u.ProfilePicRef,
		Bio:          u.Bio,
		FollowerIDs:  nonNil(u.FollowerIDs),
		FollowingIDs: nonNil(u.FollowingIDs),
		Lat:          u.Lat,
		Long:         u.Long,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// Summary returns the author view joined onto posts.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		FullName:     u.FullName,
		Username:     u.Username,
		Email:        u.Email,
		Age:          u.Age,
		Phone:        u.Phone,
		ProfilePic:   u.ProfilePicRef,
		Bio:          u.Bio,
		FollowerIDs:  nonNil(u.FollowerIDs),
		FollowingIDs: nonNil(u.FollowingIDs),
		Lat:          u.Lat,
		Long:         u.Long,
	}
}

type UserProfile struct {
	ID           primitive.ObjectID   `json:"_id"`
	FullName     string               `json:"fullName"`
	Username     string               `json:"username"`
	Email        string               `json:"email"`
	Age          int                  `json:"age"`
	Phone        string               `json:"phone,omitempty"`
	ProfilePic   string               `json:"profilePic,omitempty"`
	Bio          string               `json:"bio,omitempty"`
	FollowerIDs  []primitive.ObjectID `json:"followers"`
	FollowingIDs []primitive.ObjectID `json:"following"`
	Lat          float64              `json:"lat,omitempty"`
	Long         float64              `json:"long,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// UserSummary is the author projection: no password, IP, OAuth tokens or
// audit timestamps.
type UserSummary struct {
	ID           primitive.ObjectID   `json:"_id" bson:"_id"`
	FullName     string               `json:"fullName" bson:"fullName"`
	Username     string               `json:"username" bson:"username"`
	Email        string               `json:"email" bson:"email"`
	Age          int                  `json:"age" bson:"age"`
	Phone        string               `json:"phone,omitempty" bson:"phone,omitempty"`
	ProfilePic   string               `json:"profilePic,omitempty" bson:"profilePic,omitempty"`
	Bio          string               `json:"bio,omitempty" bson:"bio,omitempty"`
	FollowerIDs  []primitive.ObjectID `json:"followers" bson:"followers"`
	FollowingIDs []primitive.ObjectID `json:"following" bson:"following"`
	Lat          float64              `json:"lat,omitempty" bson:"lat,omitempty"`
	Long         float64              `json:"long,omitempty" bson:"long,omitempty"`
}

// AuthResult is returned by every flow that issues a token.
type AuthResult struct {
	User  UserProfile `json:"user"`
	Token string      `json:"token"`
}

type SignUpInput struct {
	FullName   string
	Email      string
	Password   string
	Age        int
	Phone      string
	ProfilePic string
	Lat        float64
	Long       float64
	IP         string
}

type SignInInput struct {
	Email    string
	Password string
}

// UpdateUserInput carries only the fields the caller wants changed.
type UpdateUserInput struct {
	FullName   *string
	Username   *string
	Password   *string
	Bio        *string
	Age        *int
	ProfilePic *string
}

// UserPatch is the set of stored fields an update touches.
type UserPatch struct {
	FullName      *string
	Username      *string
	PasswordHash  *string
	Bio           *string
	Age           *int
	ProfilePicRef *string
}

func (p UserPatch) IsEmpty() bool {
	return p.FullName == nil && p.Username == nil && p.PasswordHash == nil &&
		p.Bio == nil && p.Age == nil && p.ProfilePicRef == nil
}

type FollowResult struct {
	Followed bool `json:"followed"`
}

// GoogleProfile is the subset of the Google account used to create users.
type GoogleProfile struct {
	Name         string
	Email        string
	Picture      string
	Age          int
	AccessToken  string
	RefreshToken string
}

// ContainsID reports membership by ObjectID equality.
func ContainsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func nonNil(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}
