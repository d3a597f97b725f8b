package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-service/internal/apperror"
)

func strPtr(s string) *string { return &s }

func TestStruct(t *testing.T) {
	v := New()
	audio := "data:audio/mpeg;base64,SUQz"

	tests := []struct {
		name    string
		req     interface{}
		wantErr string
	}{
		{"valid post", CreatePostRequest{Text: "hi", Audio: audio}, ""},
		{"post without audio", CreatePostRequest{Text: "hi"}, "audio is required"},
		{"post with plain text audio", CreatePostRequest{Audio: "hello"}, "audio must be a base64 data URI"},
		{"empty reply", ReplyRequest{}, "text is required"},
		{"negative page", PageQuery{Page: -1}, "page must be greater than or equal to 0"},
		{"page too large", PageQuery{Page: 1 << 62}, "page must be less than or equal to 1000000"},
		{"last allowed page", PageQuery{Page: 1000000}, ""},
		{"limit too large", PageQuery{Limit: 1000}, "limit must be less than or equal to 100"},
		{"valid sign up", SignUpRequest{FullName: "A", Email: "a@example.com", Password: "secret1", Age: 30}, ""},
		{"bad email", SignUpRequest{FullName: "A", Email: "nope", Password: "secret1", Age: 30}, "email must be a valid email"},
		{"short password", SignInRequest{Email: "a@example.com"}, "password is required"},
		{"update nothing", UpdateUserRequest{}, ""},
		{"short username", UpdateUserRequest{Username: strPtr("ab")}, "username must be at least 3 characters"},
		{"bad id", IDParam{ID: "xyz"}, "id must be a valid id"},
		{"good id", IDParam{ID: primitive.NewObjectID().Hex()}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestObjectID(t *testing.T) {
	id := primitive.NewObjectID()
	got, err := ObjectID("postId", id.Hex())
	assert.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ObjectID("postId", "123")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}
