package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"social-service/internal/apperror"
	"social-service/internal/oauth"
	models "social-service/model"
	"social-service/repository"
)

// OAuthService runs the Google sign-in flow.
type OAuthService struct {
	users       repository.UserRepository
	provider    oauth.Provider
	states      StateStore
	tokens      TokenIssuer
	frontendURL string
	stateTTL    time.Duration
	log         logrus.FieldLogger
}

type OAuthServiceDeps struct {
	Users       repository.UserRepository
	Provider    oauth.Provider
	States      StateStore
	Tokens      TokenIssuer
	FrontendURL string
	StateTTL    time.Duration
	Log         logrus.FieldLogger
}

func NewOAuthService(deps OAuthServiceDeps) *OAuthService {
	ttl := deps.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &OAuthService{
		users:       deps.Users,
		provider:    deps.Provider,
		states:      deps.States,
		tokens:      deps.Tokens,
		frontendURL: deps.FrontendURL,
		stateTTL:    ttl,
		log:         deps.Log,
	}
}

// GoogleAuthURL issues a one-time state and returns the consent page URL.
func (s *OAuthService) GoogleAuthURL(ctx context.Context) (string, error) {
	state, err := s.states.NewState(ctx, s.stateTTL)
	if err != nil {
		return "", apperror.Upstream("failed to start google sign-in", err)
	}
	return s.provider.AuthCodeURL(state), nil
}

// GoogleCallback completes the flow and always returns a frontend redirect
// URL; the error, if any, explains a status=400 redirect.
func (s *OAuthService) GoogleCallback(ctx context.Context, code, state, ip string) (string, error) {
	ok, err := s.states.ConsumeState(ctx, state)
	if err != nil {
		return s.redirectURL(http.StatusBadRequest, ""), apperror.Upstream("failed to verify oauth state", err)
	}
	if !ok {
		return s.redirectURL(http.StatusBadRequest, ""), apperror.Validation("invalid or expired oauth state")
	}

	profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return s.redirectURL(http.StatusBadRequest, ""), apperror.Upstream("google sign-in failed", err)
	}
	email := normalizeEmail(profile.Email)
	if email == "" {
		return s.redirectURL(http.StatusBadRequest, ""), apperror.Validation("google account has no email")
	}

	user, err := s.users.CreateUser(ctx, &models.User{
		FullName:           profile.Name,
		Username:           email,
		Email:              email,
		Age:                profile.Age,
		ProfilePicRef:      profile.Picture,
		GoogleAccessToken:  profile.AccessToken,
		GoogleRefreshToken: profile.RefreshToken,
		IP:                 ip,
	})
	if apperror.IsConflict(err) {
		user, err = s.users.SetGoogleTokens(ctx, email, profile.AccessToken, profile.RefreshToken)
	}
	if err != nil {
		return s.redirectURL(http.StatusBadRequest, ""), err
	}

	token, err := s.tokens.Generate(user.ID.Hex())
	if err != nil {
		return s.redirectURL(http.StatusBadRequest, ""), apperror.Internal("failed to generate token", err)
	}

	s.log.WithField("user_id", user.ID.Hex()).Info("User signed in with google")
	return s.redirectURL(http.StatusOK, token), nil
}

// FailureURL is the frontend redirect for a callback that cannot proceed.
func (s *OAuthService) FailureURL() string {
	return s.redirectURL(http.StatusBadRequest, "")
}

func (s *OAuthService) redirectURL(status int, token string) string {
	q := url.Values{}
	q.Set("status", strconv.Itoa(status))
	if token != "" {
		q.Set("token", token)
	}
	return s.frontendURL + "/auth/callback?" + q.Encode()
}
