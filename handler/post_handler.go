package handler

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"social-service/internal/httpx"
	"social-service/internal/validation"
	"social-service/metrics"
	"social-service/middleware"
	models "social-service/model"
	"social-service/service"
)

type PostHandler struct {
	posts    *service.PostService
	validate *validation.Validator
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

func NewPostHandler(posts *service.PostService, v *validation.Validator, m *metrics.Metrics, log logrus.FieldLogger) *PostHandler {
	return &PostHandler{
		posts:    posts,
		validate: v,
		metrics:  m,
		log:      log,
	}
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	var req validation.CreatePostRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		httpx.Error(w, err)
		return
	}

	post, err := h.posts.CreatePost(r.Context(), models.CreatePostInput{
		AuthorID: userID,
		Text:     req.Text,
		Audio:    req.Audio,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.metrics.PostsCreated.Inc()
	httpx.Success(w, http.StatusCreated, post, "Post created")
}

// Feed lists every post; the caller is optional.
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r, h.validate)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	feed, err := h.posts.Feed(r.Context(), middleware.ViewerFromContext(r.Context()), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, feed, "")
}

func (h *PostHandler) FollowedFeed(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	page, err := pageFromQuery(r, h.validate)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	feed, err := h.posts.FollowedFeed(r.Context(), userID, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, feed, "")
}

func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	postID, err := pathID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	res, err := h.posts.ToggleLike(r.Context(), userID, postID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.metrics.LikeToggles.WithLabelValues(strconv.FormatBool(res.Liked)).Inc()
	msg := "Post unliked"
	if res.Liked {
		msg = "Post liked"
	}
	httpx.Success(w, http.StatusOK, res, msg)
}

func (h *PostHandler) Reply(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	postID, err := pathID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	var req validation.ReplyRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		httpx.Error(w, err)
		return
	}

	reply, err := h.posts.Reply(r.Context(), userID, postID, req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.metrics.RepliesCreated.Inc()
	httpx.Success(w, http.StatusCreated, reply, "Reply added")
}

func (h *PostHandler) ListReplies(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	page, err := pageFromQuery(r, h.validate)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	replies, err := h.posts.ListReplies(r.Context(), postID, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, replies, "")
}

func (h *PostHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := httpx.Error(w, err)
	if appErr.HTTPStatus() >= http.StatusInternalServerError {
		h.log.WithError(err).WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": middleware.RequestIDFromContext(r.Context()),
		}).Error("Post request failed")
	}
}
