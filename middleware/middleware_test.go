package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-service/internal/logger"
	"social-service/metrics"
	"social-service/pkg/jwt"
)

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return f.revoked[tokenID], f.err
}

func whoami(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFromContext(r.Context())
	if viewer == nil {
		_, _ = w.Write([]byte("anonymous"))
		return
	}
	_, _ = w.Write([]byte(viewer.Hex()))
}

func TestAuthenticator(t *testing.T) {
	tokens := jwt.NewManager("secret", time.Hour)
	userID := primitive.NewObjectID()
	token, err := tokens.Generate(userID.Hex())
	require.NoError(t, err)
	revokedToken, err := tokens.Generate(userID.Hex())
	require.NoError(t, err)
	revokedClaims, err := tokens.Verify(revokedToken)
	require.NoError(t, err)
	badSubject, err := tokens.Generate("not-an-object-id")
	require.NoError(t, err)

	auth := NewAuthenticator(tokens, &fakeRevocations{revoked: map[string]bool{revokedClaims.ID: true}}, "jwt", logger.Discard())

	tests := []struct {
		name       string
		optional   bool
		setup      func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{"bearer header", false, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, userID.Hex()},
		{"cookie", false, func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: token}) }, http.StatusOK, userID.Hex()},
		{"missing token", false, func(r *http.Request) {}, http.StatusUnauthorized, ""},
		{"malformed header", false, func(r *http.Request) { r.Header.Set("Authorization", "Token "+token) }, http.StatusUnauthorized, ""},
		{"bad signature", false, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token+"x") }, http.StatusUnauthorized, ""},
		{"revoked", false, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+revokedToken) }, http.StatusUnauthorized, ""},
		{"subject not an id", false, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+badSubject) }, http.StatusUnauthorized, ""},
		{"optional anonymous", true, func(r *http.Request) {}, http.StatusOK, "anonymous"},
		{"optional with token", true, func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, userID.Hex()},
		{"optional invalid token", true, func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := auth.Required(http.HandlerFunc(whoami))
			if tt.optional {
				h = auth.Optional(http.HandlerFunc(whoami))
			}

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
				return
			}
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAuthenticatorRevocationStoreDown(t *testing.T) {
	tokens := jwt.NewManager("secret", time.Hour)
	token, err := tokens.Generate(primitive.NewObjectID().Hex())
	require.NoError(t, err)
	auth := NewAuthenticator(tokens, &fakeRevocations{err: errors.New("redis down")}, "jwt", logger.Discard())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	auth.Required(http.HandlerFunc(whoami)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestContextHelpers(t *testing.T) {
	_, err := GetUserIDFromContext(context.Background())
	assert.Error(t, err)
	assert.Nil(t, ViewerFromContext(context.Background()))
	assert.Empty(t, TokenFromContext(context.Background()))
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)
}

func TestRequestIDAndLogging(t *testing.T) {
	m := metrics.InitMetrics(prometheus.NewRegistry())
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	r := mux.NewRouter()
	r.Use(RequestID, Logging(log, m))
	r.HandleFunc("/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "given-id")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "given-id", rec.Header().Get(RequestIDHeader))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BadRequests.WithLabelValues("/posts/{id}")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SuccessfulRequests.WithLabelValues("/ok")))
	assert.Contains(t, buf.String(), `"request_id":"given-id"`)
	assert.Contains(t, buf.String(), `"path":"/posts/abc"`)
}

func TestTimeoutSetsDeadline(t *testing.T) {
	var hasDeadline bool
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, hasDeadline)
}

func TestRecover(t *testing.T) {
	h := Recover(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}
