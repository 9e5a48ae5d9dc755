package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/recruitment-portal/internal/config"
	"github.com/stemsi/recruitment-portal/internal/model"
	"github.com/stemsi/recruitment-portal/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memorySessions struct {
	sessions map[string]string
}

func (m *memorySessions) SetSession(_ context.Context, id, jti string, _ time.Duration) error {
	m.sessions[id] = jti
	return nil
}
func (m *memorySessions) GetSession(_ context.Context, id string) (string, error) {
	return m.sessions[id], nil
}
func (m *memorySessions) DeleteSession(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}
func (m *memorySessions) LoginAttempts(context.Context, string) (int64, error) { return 0, nil }
func (m *memorySessions) IncrLoginAttempts(context.Context, string, time.Duration) (int64, error) {
	return 0, nil
}
func (m *memorySessions) ResetLoginAttempts(context.Context, string) error { return nil }

func newAuth() *service.AuthService {
	cfg := &config.Config{JWTSecret: "mw-secret", JWTExpiry: time.Hour, BcryptCost: 4}
	return service.NewAuthService(cfg, &memorySessions{sessions: map[string]string{}})
}

func protected(chain []gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append(chain, func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).UserID)
	})
	r.GET("/p", handlers...)
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireCandidateJWT(t *testing.T) {
	auth := newAuth()
	ctx := context.Background()
	r := protected(RequireCandidateJWT(auth))

	candidate, err := auth.IssueToken(ctx, model.Principal{ID: "c1", Email: "c1@example.com"})
	require.NoError(t, err)
	admin, err := auth.IssueToken(ctx, model.Principal{ID: "a1", Email: "a1@example.com", Admin: true})
	require.NoError(t, err)

	w := get(r, "/p", candidate)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", w.Body.String())

	w = get(r, "/p?token="+candidate, "")
	assert.Equal(t, http.StatusOK, w.Code, "query token fallback")

	w = get(r, "/p", admin)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "CANDIDATE_ACCESS_ONLY")

	w = get(r, "/p", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_REQUIRED")

	w = get(r, "/p", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_INVALID")
}

func TestCheckSingleSession_NewerLoginWins(t *testing.T) {
	auth := newAuth()
	ctx := context.Background()
	r := protected(RequireCandidateJWT(auth))

	old, err := auth.IssueToken(ctx, model.Principal{ID: "c1"})
	require.NoError(t, err)
	fresh, err := auth.IssueToken(ctx, model.Principal{ID: "c1"})
	require.NoError(t, err)

	w := get(r, "/p", old)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_INVALIDATED")

	assert.Equal(t, http.StatusOK, get(r, "/p", fresh).Code)

	require.NoError(t, auth.RevokeSession(ctx, "c1"))
	assert.Equal(t, http.StatusUnauthorized, get(r, "/p", fresh).Code)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "buckets are per key")

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"))

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()
}

func TestRateLimiter_Middleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 1, time.Minute)
	r := gin.New()
	r.GET("/x", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, get(r, "/x", "").Code)
	w := get(r, "/x", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestBrotli(t *testing.T) {
	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{Quality: 5, MinLength: 64}))
	long := strings.Repeat("recruitment ", 200)
	r.GET("/long", func(c *gin.Context) { c.String(http.StatusOK, long) })
	r.GET("/short", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/long", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, "br", w.Header().Get("Content-Encoding"))
	body, err := io.ReadAll(brotli.NewReader(w.Body))
	require.NoError(t, err)
	assert.Equal(t, long, string(body))

	req = httptest.NewRequest(http.MethodGet, "/short", nil)
	req.Header.Set("Accept-Encoding", "br")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/long", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, long, w.Body.String())
}

func TestCacheHeaders(t *testing.T) {
	r := gin.New()
	r.GET("/q", CacheControl(300), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/s", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, "private, max-age=300", get(r, "/q", "").Header().Get("Cache-Control"))
	assert.Equal(t, "no-store", get(r, "/s", "").Header().Get("Cache-Control"))
}
