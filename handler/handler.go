package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-service/internal/apperror"
	"social-service/internal/validation"
	"social-service/middleware"
	models "social-service/model"
)

// maxBodyBytes bounds request bodies; base64 audio is the largest payload.
const maxBodyBytes = 25 << 20

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, v *validation.Validator, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperror.Validation("request body is required")
		case errors.As(err, &tooLarge):
			return apperror.Validation("request body is too large")
		default:
			return apperror.Validation("invalid request body")
		}
	}
	return v.Struct(dst)
}

// pageFromQuery reads page and limit. Page 0 means the first page and a
// missing limit means the configured default.
func pageFromQuery(r *http.Request, v *validation.Validator) (models.Page, error) {
	q := validation.PageQuery{}
	for name, dst := range map[string]*int64{"page": &q.Page, "limit": &q.Limit} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.Page{}, apperror.Validation(name + " must be a number")
		}
		*dst = n
	}
	if err := v.Struct(q); err != nil {
		return models.Page{}, err
	}
	return models.Page{Number: q.Page, Size: q.Limit}, nil
}

// callerID returns the authenticated user of the request.
func callerID(r *http.Request) (primitive.ObjectID, error) {
	id, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		return primitive.NilObjectID, apperror.Unauthenticated("authentication required")
	}
	return id, nil
}

func pathID(r *http.Request, name string) (primitive.ObjectID, error) {
	return validation.ObjectID(name, mux.Vars(r)[name])
}

// clientIP prefers the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
