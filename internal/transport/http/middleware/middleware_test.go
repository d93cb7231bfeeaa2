package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-catalog/internal/app"
)

type stubVerifier map[string]app.Identity

func (s stubVerifier) Verify(token string) (app.Identity, error) {
	id, ok := s[token]
	if !ok {
		return app.Identity{}, app.ErrInvalidToken
	}
	return id, nil
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := NewAuthenticator(stubVerifier{"good": {UserID: 7, Username: "alice"}})
	r := gin.New()
	r.GET("/me", auth.Wrap(func(c *gin.Context, id app.Identity) {
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "username": id.Username})
	}))
	return r
}

func TestAuthenticator_PassesIdentity(t *testing.T) {
	r := newAuthRouter()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["user_id"])
	assert.Equal(t, "alice", body["username"])
}

func TestAuthenticator_Rejects(t *testing.T) {
	r := newAuthRouter()
	cases := map[string]string{
		"":           "missing authorization header",
		"Basic abc":  "invalid authorization scheme",
		"Bearer bad": "invalid or expired token",
		"Bearer":     "invalid authorization scheme",
	}
	for header, msg := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.JSONEq(t, `{"message":"`+msg+`"}`, w.Body.String(), header)
	}
}

func TestAccessLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(AccessLog(zerolog.New(&buf)))
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("db down"))
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "/boom", entry["path"])
	assert.Equal(t, float64(500), entry["status"])
	assert.Contains(t, entry["error"], "db down")
}
