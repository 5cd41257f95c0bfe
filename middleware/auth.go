package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

const (
	// ContextUserKey holds the authenticated *models.User in Gin context.
	ContextUserKey = "viewer"
	// ContextTokenKey holds the raw session token of the request.
	ContextTokenKey = "session_token"
)

// LoginURL is where anonymous users are sent for pages that need an account.
const LoginURL = "/auth/login/"

// CurrentUser resolves the session cookie or bearer token into a user.
// Anonymous requests pass through unchanged.
func CurrentUser(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := requestToken(ctx)
		if token == "" {
			ctx.Next()
			return
		}
		claims, err := utils.ParseToken(token)
		if err != nil {
			ctx.Next()
			return
		}
		var user models.User
		if err := db.WithContext(ctx.Request.Context()).First(&user, claims.UserID).Error; err != nil {
			ctx.Next()
			return
		}
		if claims.Version != user.SessionVersion {
			ctx.Next()
			return
		}
		ctx.Set(ContextUserKey, &user)
		ctx.Set(ContextTokenKey, token)
		ctx.Next()
	}
}

// LoginRequired redirects anonymous users to the login page, remembering where they were going.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if Viewer(ctx) == nil {
			ctx.Redirect(http.StatusFound, LoginURL+"?next="+url.QueryEscape(ctx.Request.URL.RequestURI()))
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// AuthRequired rejects anonymous API requests with 401.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if Viewer(ctx) == nil {
			if requestToken(ctx) == "" {
				utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication credentials were not provided")
			} else {
				utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			}
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// Viewer returns the authenticated user or nil.
func Viewer(ctx *gin.Context) *models.User {
	if v, ok := ctx.Get(ContextUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// ViewerID returns the authenticated user's id, 0 for anonymous requests.
func ViewerID(ctx *gin.Context) uint {
	if u := Viewer(ctx); u != nil {
		return u.ID
	}
	return 0
}

// SessionToken returns the token the request authenticated with.
func SessionToken(ctx *gin.Context) string {
	return ctx.GetString(ContextTokenKey)
}

// StartSession issues a token for user and stores it in the session cookie.
func StartSession(ctx *gin.Context, user *models.User) (string, error) {
	cfg := config.Get()
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	token, err := utils.GenerateToken(user.ID, user.Username, user.SessionVersion, ttl)
	if err != nil {
		return "", err
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(cfg.SessionCookieName, token, int(ttl.Seconds()), "/", "", strings.HasPrefix(cfg.SiteURL, "https://"), true)
	ctx.Set(ContextUserKey, user)
	ctx.Set(ContextTokenKey, token)
	return token, nil
}

// EndSession revokes the current token and clears the cookie.
func EndSession(ctx *gin.Context) {
	cfg := config.Get()
	if token := SessionToken(ctx); token != "" {
		utils.RevokeToken(token)
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(cfg.SessionCookieName, "", -1, "/", "", strings.HasPrefix(cfg.SiteURL, "https://"), true)
	ctx.Set(ContextUserKey, nil)
	ctx.Set(ContextTokenKey, "")
}

func requestToken(ctx *gin.Context) string {
	if h := ctx.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := ctx.Cookie(config.Get().SessionCookieName); err == nil {
		return c
	}
	return ""
}
