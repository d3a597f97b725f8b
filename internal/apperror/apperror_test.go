package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"validation", Validation("bad"), http.StatusBadRequest},
		{"not found", NotFound("missing"), http.StatusNotFound},
		{"conflict", Conflict("dup"), http.StatusConflict},
		{"invalid operation", InvalidOperation("self"), http.StatusBadRequest},
		{"unauthenticated", Unauthenticated("no token"), http.StatusUnauthorized},
		{"upstream", Upstream("s3", errors.New("boom")), http.StatusBadGateway},
		{"internal", Internal("db", errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
			assert.False(t, tt.err.Success)
		})
	}
}

func TestGRPCStatus(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("Post not found"))

	assert.Equal(t, codes.NotFound, status.Code(err))

	st, ok := status.FromError(NotFound("Post not found"))
	assert.True(t, ok)
	assert.Equal(t, "Post not found", st.Message())
}

func TestFrom(t *testing.T) {
	foreign := errors.New("connection reset")
	got := From(foreign)

	assert.Equal(t, KindInternal, got.Kind)
	assert.ErrorIs(t, got, foreign)

	known := Conflict("User already exists")
	assert.Same(t, known, From(fmt.Errorf("ctx: %w", known)))
	assert.Nil(t, From(nil))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("x: %w", NotFound("gone"))))
	assert.False(t, IsNotFound(Conflict("dup")))
	assert.True(t, IsConflict(Conflict("dup")))
	assert.Equal(t, KindValidation, KindOf(Validation("bad")))
}
