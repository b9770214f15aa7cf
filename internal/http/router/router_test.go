package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/Ruben-boon/CPM-crm-system-sub001/internal/http"
	"github.com/Ruben-boon/CPM-crm-system-sub001/platform/logger"
)

const testSecret = "router-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testConfig struct {
	allowAll bool
}

func (testConfig) GetHTTPAddr() string        { return ":0" }
func (c testConfig) GetCORSAllowAll() bool    { return c.allowAll }
func (testConfig) GetCORSOrigins() []string   { return []string{"http://crm.local"} }
func (c testConfig) GetCORSAllowCreds() bool  { return !c.allowAll }
func (testConfig) GetJWTAccessSecret() string { return testSecret }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"success": true}) }
	ctx.Protected.GET("/ping", ok)
	ctx.Admin.GET("/ping", ok)
}

func newApp(health apphttp.HealthChecker, cfg testConfig) *gin.Engine {
	return New(&apphttp.App{
		Config:  cfg,
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{pingModule{}},
	})
}

func token(t *testing.T, roles ...string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "user-1", "type": "access", "roles": roles}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func serve(engine *gin.Engine, method, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.Header.Set("Origin", "http://crm.local")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := serve(newApp(pinger{}, testConfig{}), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = serve(newApp(pinger{err: errors.New("down")}, testConfig{}), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, w.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	w := serve(newApp(nil, testConfig{}), http.MethodGet, "/api/v1/nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.Contains(t, w.Body.String(), `"code":"NotFound"`)
}

func TestRouteGroups(t *testing.T) {
	engine := newApp(nil, testConfig{})

	tests := []struct {
		name   string
		target string
		bearer string
		status int
	}{
		{"protected without token", "/api/v1/ping", "", http.StatusUnauthorized},
		{"protected with token", "/api/v1/ping", token(t), http.StatusOK},
		{"admin without role", "/api/v1/admin/ping", token(t, "agent"), http.StatusForbidden},
		{"admin with role", "/api/v1/admin/ping", token(t, "admin"), http.StatusOK},
		{"query token", "/api/v1/ping?token=" + token(t), "", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(engine, http.MethodGet, tc.target, tc.bearer)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}

func TestCORSAndHeaders(t *testing.T) {
	w := serve(newApp(nil, testConfig{}), http.MethodGet, "/api/health", "")
	assert.Equal(t, "http://crm.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(newApp(nil, testConfig{allowAll: true}), http.MethodGet, "/api/health", "")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
