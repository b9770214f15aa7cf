package httpkit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/apperr"
)

type jwtConfig string

func (s jwtConfig) GetJWTAccessSecret() string { return string(s) }

const secret = jwtConfig("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func protectedEngine() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(secret), func(c *gin.Context) {
		id, ok := MustGetIdentity(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": id.UserID(), "admin": id.HasRole("admin")})
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	valid := sign(t, jwt.MapClaims{"sub": "user-1", "type": "access", "roles": []string{"admin"}, "exp": time.Now().Add(time.Hour).Unix()})
	refresh := sign(t, jwt.MapClaims{"sub": "user-1", "type": "refresh"})
	noSubject := sign(t, jwt.MapClaims{"type": "access"})

	tests := []struct {
		name   string
		target string
		header string
		status int
	}{
		{"bearer", "/me", "Bearer " + valid, http.StatusOK},
		{"query token", "/me?token=" + valid, "", http.StatusOK},
		{"missing", "/me", "", http.StatusUnauthorized},
		{"wrong type", "/me", "Bearer " + refresh, http.StatusUnauthorized},
		{"no subject", "/me", "Bearer " + noSubject, http.StatusUnauthorized},
		{"garbage", "/me", "Bearer abc", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			protectedEngine().ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestAuthRequiredSetsIdentity(t *testing.T) {
	token := sign(t, jwt.MapClaims{"sub": "user-1", "type": "access", "roles": []any{"admin"}})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	protectedEngine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"user-1","admin":true}`, w.Body.String())
}

func TestHandleErrorEnvelope(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   apperr.Code
	}{
		{apperr.NotFound("document not found"), http.StatusNotFound, apperr.CodeNotFound},
		{apperr.InvalidIdentifier("x"), http.StatusBadRequest, apperr.CodeInvalidIdentifierFormat},
		{apperr.Unacknowledged("nope"), http.StatusServiceUnavailable, apperr.CodeUnacknowledged},
		{errors.New("boom"), http.StatusInternalServerError, apperr.CodeUnknown},
	}
	for _, tc := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		require.True(t, HandleError(c, tc.err))

		assert.Equal(t, tc.status, w.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, tc.code, body.Code)
		assert.NotEmpty(t, body.Error)
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.False(t, HandleError(c, nil))
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(NewIPRateLimiter(rate.Limit(0.001), 2, nil).RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRateLimitSweepsIdleClients(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1, nil)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))
	assert.Equal(t, 2, l.Tracked())

	clock = clock.Add(11 * time.Minute)
	assert.True(t, l.allow("10.0.0.3"))
	assert.Equal(t, 1, l.Tracked())
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestMustGetIdentityAnonymous(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	_, ok := MustGetIdentity(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, GetIdentity(c).Authenticated())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestIDKey)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
}
