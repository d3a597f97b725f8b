package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"social-service/internal/apperror"
	"social-service/internal/httpx"
	"social-service/internal/validation"
	"social-service/metrics"
	"social-service/middleware"
	models "social-service/model"
	"social-service/service"
)

// CookieConfig describes the session cookie set next to the returned token.
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
}

type UserHandler struct {
	users    *service.UserService
	oauth    *service.OAuthService
	validate *validation.Validator
	metrics  *metrics.Metrics
	cookie   CookieConfig
	log      logrus.FieldLogger
}

func NewUserHandler(users *service.UserService, oauth *service.OAuthService, v *validation.Validator, m *metrics.Metrics, cookie CookieConfig, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{
		users:    users,
		oauth:    oauth,
		validate: v,
		metrics:  m,
		cookie:   cookie,
		log:      log,
	}
}

func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req validation.SignUpRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		httpx.Error(w, err)
		return
	}

	res, err := h.users.SignUp(r.Context(), models.SignUpInput{
		FullName:   req.FullName,
		Email:      req.Email,
		Password:   req.Password,
		Age:        req.Age,
		Phone:      req.Phone,
		ProfilePic: req.ProfilePic,
		Lat:        req.Lat,
		Long:       req.Long,
		IP:         clientIP(r),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.metrics.SignIns.WithLabelValues("signup").Inc()
	h.setSessionCookie(w, r, res.Token)
	httpx.Success(w, http.StatusCreated, res, "User created")
}

func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req validation.SignInRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		httpx.Error(w, err)
		return
	}

	res, err := h.users.SignIn(r.Context(), models.SignInInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.metrics.SignIns.WithLabelValues("password").Inc()
	h.setSessionCookie(w, r, res.Token)
	httpx.Success(w, http.StatusOK, res, "Signed in")
}

func (h *UserHandler) VerifyAccess(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	res, err := h.users.VerifyAccess(r.Context(), userID, middleware.TokenFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, res, "")
}

func (h *UserHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpx.Error(w, apperror.Unauthenticated("authentication required"))
		return
	}

	if err := h.users.SignOut(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		h.fail(w, r, err)
		return
	}

	h.clearSessionCookie(w, r)
	httpx.Success(w, http.StatusOK, nil, "Signed out")
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	var req validation.UpdateUserRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		httpx.Error(w, err)
		return
	}

	profile, err := h.users.UpdateUser(r.Context(), userID, models.UpdateUserInput{
		FullName:   req.FullName,
		Username:   req.Username,
		Password:   req.Password,
		Bio:        req.Bio,
		Age:        req.Age,
		ProfilePic: req.ProfilePic,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, profile, "User updated")
}

func (h *UserHandler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	targetID, err := pathID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	res, err := h.users.ToggleFollow(r.Context(), userID, targetID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.metrics.FollowToggles.WithLabelValues(strconv.FormatBool(res.Followed)).Inc()
	msg := "User unfollowed"
	if res.Followed {
		msg = "User followed"
	}
	httpx.Success(w, http.StatusOK, res, msg)
}

// GoogleAuth redirects to the Google consent page.
func (h *UserHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.oauth.GoogleAuthURL(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback always redirects to the frontend; failures carry
// status=400 and no token.
func (h *UserHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := validation.GoogleCallbackQuery{Code: q.Get("code"), State: q.Get("state")}
	if errParam := q.Get("error"); errParam != "" {
		h.log.WithField("error", errParam).Warn("Google sign-in was not granted")
		http.Redirect(w, r, h.oauth.FailureURL(), http.StatusFound)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.log.WithError(err).Warn("Invalid Google callback")
		http.Redirect(w, r, h.oauth.FailureURL(), http.StatusFound)
		return
	}

	redirect, err := h.oauth.GoogleCallback(r.Context(), req.Code, req.State, clientIP(r))
	if err != nil {
		h.log.WithError(err).WithField("request_id", middleware.RequestIDFromContext(r.Context())).Warn("Google sign-in failed")
	} else {
		h.metrics.SignIns.WithLabelValues("google").Inc()
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (h *UserHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	if h.cookie.Name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *UserHandler) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	if h.cookie.Name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *UserHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := httpx.Error(w, err)
	if appErr.HTTPStatus() >= http.StatusInternalServerError {
		h.log.WithError(err).WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": middleware.RequestIDFromContext(r.Context()),
		}).Error("User request failed")
	}
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
