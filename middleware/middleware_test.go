package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurowell/neurowell/config"
	"github.com/neurowell/neurowell/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(t *testing.T) {
	t.Helper()
	config.Set(config.AppConfig{JWTSecret: "middleware-test-secret", TokenTTL: time.Hour, RateLimitPerMinute: 120})
	utils.UseRedis(nil)
}

func protectedRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(ctx *gin.Context) {
		id, _ := UserID(ctx)
		ctx.String(http.StatusOK, id+"|"+ctx.GetString(ContextEmailKey))
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	setup(t)
	token, _, err := utils.GenerateToken("user-1", "u@example.com", time.Hour)
	require.NoError(t, err)

	revoked, exp, err := utils.GenerateToken("user-2", "r@example.com", time.Hour)
	require.NoError(t, err)
	utils.BlacklistToken(revoked, exp)

	config.Set(config.AppConfig{JWTSecret: "some-other-secret-value"})
	forged, _, err := utils.GenerateToken("user-1", "u@example.com", time.Hour)
	require.NoError(t, err)
	setup(t)

	cases := []struct {
		name   string
		prep   func(r *http.Request)
		status int
		body   string
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: utils.SessionCookie, Value: token}) }, http.StatusOK, "user-1|u@example.com"},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, "user-1|u@example.com"},
		{"missing", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc.def.ghi") }, http.StatusUnauthorized, ""},
		{"wrong signature", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: utils.SessionCookie, Value: forged}) }, http.StatusUnauthorized, ""},
		{"revoked", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+revoked) }, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.prep(req)
			w := httptest.NewRecorder()
			protectedRouter().ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestPageGate(t *testing.T) {
	r := gin.New()
	r.Use(PageGate())
	r.GET("/*path", func(ctx *gin.Context) { ctx.String(http.StatusOK, "page") })

	cases := []struct {
		path     string
		cookie   bool
		redirect bool
	}{
		{"/home", false, true},
		{"/home/activities", false, true},
		{"/auth/onboard", false, true},
		{"/auth/onboarding/step2", false, true},
		{"/home", true, false},
		{"/auth/onboard", true, false},
		{"/auth", false, false},
		{"/homepage", false, false},
		{"/", false, false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.cookie {
			req.AddCookie(&http.Cookie{Name: utils.SessionCookie, Value: "anything"})
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if tc.redirect {
			assert.Equal(t, http.StatusFound, w.Code, tc.path)
			assert.Equal(t, SignInPath, w.Header().Get("Location"), tc.path)
		} else {
			assert.Equal(t, http.StatusOK, w.Code, tc.path)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	setup(t)
	r := gin.New()
	// 2 per minute gives a burst of 1
	r.GET("/x", RateLimitMiddleware("test-limit", 2), func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, do("10.0.0.2"))
}
