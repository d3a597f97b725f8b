package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-service/internal/apperror"
	"social-service/internal/httpx"
	"social-service/pkg/jwt"
)

// ContextKey type for context keys
type ContextKey string

const (
	UserIDKey ContextKey = "user_id"
	ClaimsKey ContextKey = "claims"
	TokenKey  ContextKey = "token"
)

type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Authenticator resolves the caller from a bearer token or the session
// cookie.
type Authenticator struct {
	tokens     TokenVerifier
	revoked    RevocationChecker
	cookieName string
	log        logrus.FieldLogger
}

// NewAuthenticator creates the middleware. A nil revocation checker accepts
// every validly signed token.
func NewAuthenticator(tokens TokenVerifier, revoked RevocationChecker, cookieName string, log logrus.FieldLogger) *Authenticator {
	return &Authenticator{
		tokens:     tokens,
		revoked:    revoked,
		cookieName: cookieName,
		log:        log,
	}
}

// Required rejects requests without a valid token.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := a.authorize(r)
		if err != nil {
			httpx.Error(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional attaches the caller when a token is presented and continues
// anonymously when none is. A presented but invalid token is still rejected.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.extractToken(r) == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx, err := a.authorize(r)
		if err != nil {
			httpx.Error(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authorize verifies the token and returns the request context carrying the
// caller.
func (a *Authenticator) authorize(r *http.Request) (context.Context, error) {
	token := a.extractToken(r)
	if token == "" {
		return nil, apperror.Unauthenticated("authorization token is not provided")
	}

	claims, err := a.tokens.Verify(token)
	if err != nil {
		a.log.WithError(err).WithField("path", r.URL.Path).Debug("Rejected token")
		return nil, apperror.Unauthenticated("invalid token")
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, apperror.Unauthenticated("invalid token subject")
	}

	if a.revoked != nil {
		revoked, err := a.revoked.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			return nil, apperror.Upstream("failed to check session", err)
		}
		if revoked {
			return nil, apperror.Unauthenticated("token has been revoked")
		}
	}

	ctx := context.WithValue(r.Context(), UserIDKey, userID)
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	ctx = context.WithValue(ctx, TokenKey, token)
	return ctx, nil
}

func (a *Authenticator) extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
		return ""
	}
	if a.cookieName == "" {
		return ""
	}
	cookie, err := r.Cookie(a.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// GetUserIDFromContext extracts user ID from context
func GetUserIDFromContext(ctx context.Context) (primitive.ObjectID, error) {
	userID, ok := ctx.Value(UserIDKey).(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("user ID not found in context")
	}
	return userID, nil
}

// ViewerFromContext returns the caller for optional-auth routes, or nil.
func ViewerFromContext(ctx context.Context) *primitive.ObjectID {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil
	}
	return &userID
}

func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*jwt.Claims)
	return claims, ok
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}
