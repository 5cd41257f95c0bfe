package middleware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/testutil"
	"github.com/cppla/yatube/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCachePageServesStoredBytes(t *testing.T) {
	testutil.UseConfig(t)
	t.Cleanup(func() { utils.InvalidateByPrefix(middleware.IndexCachePrefix) })

	calls := 0
	r := gin.New()
	r.GET("/", middleware.CachePage(middleware.IndexCachePrefix, 20*time.Second), func(c *gin.Context) {
		calls++
		c.String(http.StatusOK, "render %d", calls)
	})

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return w
	}

	first := get()
	assert.Equal(t, "render 1", first.Body.String())
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := get()
	assert.Equal(t, "render 1", second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)

	utils.InvalidateByPrefix(middleware.IndexCachePrefix)
	assert.Equal(t, "render 2", get().Body.String())
}

func TestCachePageSkipsErrors(t *testing.T) {
	testutil.UseConfig(t)
	t.Cleanup(func() { utils.InvalidateByPrefix("errs") })

	calls := 0
	r := gin.New()
	r.GET("/", middleware.CachePage("errs", time.Minute), func(c *gin.Context) {
		calls++
		c.String(http.StatusInternalServerError, "boom")
	})
	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	assert.Equal(t, 2, calls)
}

func TestLoginRequiredRedirects(t *testing.T) {
	testutil.UseConfig(t)
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "leo")

	r := gin.New()
	r.Use(middleware.CurrentUser(db))
	r.GET("/create/", middleware.LoginRequired(), func(c *gin.Context) {
		c.String(http.StatusOK, middleware.Viewer(c).Username)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/create/", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=%2Fcreate%2F", w.Header().Get("Location"))

	token, err := utils.GenerateToken(user.ID, user.Username, 0, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/create/", nil)
	req.AddCookie(&http.Cookie{Name: config.Get().SessionCookieName, Value: token})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "leo", w.Body.String())

	utils.RevokeToken(token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code, "revoked sessions are anonymous")
}

func TestAuthRequiredBearer(t *testing.T) {
	testutil.UseConfig(t)
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "leo")

	r := gin.New()
	r.Use(middleware.CurrentUser(db))
	r.GET("/api/me", middleware.AuthRequired(), func(c *gin.Context) {
		c.String(http.StatusOK, fmt.Sprint(middleware.ViewerID(c)))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := utils.GenerateToken(user.ID, user.Username, 0, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fmt.Sprint(user.ID), w.Body.String())
}

func TestStaleSessionVersionIsAnonymous(t *testing.T) {
	testutil.UseConfig(t)
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "leo")

	r := gin.New()
	r.Use(middleware.CurrentUser(db))
	r.GET("/api/me", middleware.AuthRequired(), func(c *gin.Context) {
		c.String(http.StatusOK, fmt.Sprint(middleware.ViewerID(c)))
	})
	call := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	old, err := utils.GenerateToken(user.ID, user.Username, 0, time.Hour)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, call(old))

	require.NoError(t, db.Model(user).Update("session_version", 1).Error)
	assert.Equal(t, http.StatusUnauthorized, call(old))

	current, err := utils.GenerateToken(user.ID, user.Username, 1, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, call(current))
}

func TestRateLimit(t *testing.T) {
	testutil.UseConfig(t, func(c *config.AppConfig) { c.RateLimitPerMinute = 2 })
	r := gin.New()
	r.POST("/", middleware.RateLimitMiddleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestPageViewRecorder(t *testing.T) {
	testutil.UseConfig(t)
	db := testutil.NewDB(t)

	r := gin.New()
	r.Use(middleware.PageViewRecorder(db))
	r.GET("/about/tech/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/api/v1/posts", func(c *gin.Context) { c.String(http.StatusOK, "[]") })

	for _, path := range []string{"/about/tech/", "/about/tech/", "/api/v1/posts", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	var views []models.PageView
	require.NoError(t, db.Find(&views).Error)
	require.Len(t, views, 1)
	assert.Equal(t, "/about/tech/", views[0].Path)
	assert.Equal(t, int64(2), views[0].Count)
}
