package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/controllers"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/templates"
	"github.com/cppla/yatube/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
// A nil mailer falls back to SMTP or the log depending on configuration.
func SetupRouter(db *gorm.DB, mailer utils.MailSender) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	if mailer == nil {
		mailer = utils.DefaultMailer()
	}

	r := gin.New()
	// Access log goes to its own rolling file when GinPath is set
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	if len(cfg.AllowedOrigins) > 0 {
		corsCfg := cors.Config{
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}
		if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
			corsCfg.AllowAllOrigins = true
			corsCfg.AllowCredentials = false
		} else {
			corsCfg.AllowOrigins = cfg.AllowedOrigins
		}
		r.Use(cors.New(corsCfg))
	}

	r.Use(middleware.CurrentUser(db))
	// Record PV after each request
	r.Use(middleware.PageViewRecorder(db))

	r.HTMLRender = templates.MustNew()
	r.Static("/media", cfg.MediaRoot)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	postService := services.NewPostService(db)
	followService := services.NewFollowService(db, postService)
	accountService := services.NewAccountService(db)

	postController := controllers.NewPostController(postService, followService)
	followController := controllers.NewFollowController(followService)
	authController := controllers.NewAuthController(accountService, mailer)
	apiController := controllers.NewAPIController(postService, followService, accountService)
	statsController := controllers.NewStatsController(db)

	indexTTL := time.Duration(cfg.IndexCacheSeconds) * time.Second
	r.GET("/", middleware.CachePage(middleware.IndexCachePrefix, indexTTL), postController.Index)
	r.GET("/group/:slug/", postController.GroupPosts)
	r.GET("/profile/:username/", postController.Profile)
	r.GET("/posts/:post_id/", postController.PostDetail)

	members := r.Group("", middleware.LoginRequired())
	form(members, "/create/", postController.PostCreate)
	form(members, "/posts/:post_id/edit/", postController.PostEdit)
	members.POST("/posts/:post_id/comment/", postController.AddComment)
	members.GET("/follow/", followController.FollowIndex)
	form(members, "/profile/:username/follow/", followController.ProfileFollow)
	form(members, "/profile/:username/unfollow/", followController.ProfileUnfollow)

	auth := r.Group("/auth")
	form(auth, "/signup/", middleware.RateLimitMiddleware(), authController.Signup)
	form(auth, "/login/", middleware.RateLimitMiddleware(), authController.Login)
	form(auth, "/logout/", authController.Logout)
	form(auth, "/password_change/", middleware.LoginRequired(), authController.PasswordChange)
	auth.GET("/password_change/done/", middleware.LoginRequired(), authController.PasswordChangeDone)
	form(auth, "/password_reset/", middleware.RateLimitMiddleware(), authController.PasswordReset)
	auth.GET("/password_reset/done/", authController.PasswordResetDone)
	form(auth, "/reset/:uidb64/:token/", authController.PasswordResetConfirm)
	auth.GET("/reset/done/", authController.PasswordResetComplete)
	auth.GET("/oauth/:provider/login/", authController.OAuthLogin)
	auth.GET("/oauth/:provider/callback/", authController.OAuthCallback)

	r.GET("/about/author/", controllers.AboutAuthor)
	r.GET("/about/tech/", controllers.AboutTech)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/token", apiController.IssueToken)
	authGroup.POST("/logout", middleware.AuthRequired(), apiController.RevokeToken)

	api.GET("/posts", apiController.ListPosts)
	api.GET("/posts/:post_id", apiController.GetPost)
	api.GET("/groups", apiController.ListGroups)
	api.GET("/groups/:slug/posts", apiController.GroupPosts)
	api.GET("/users/:username/posts", apiController.UserPosts)
	// Public stats endpoint
	api.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/posts", apiController.CreatePost)
	protected.POST("/posts/:post_id/comments", apiController.CreateComment)
	protected.GET("/follow", apiController.Feed)
	protected.POST("/profile/:username/follow", apiController.Follow)
	protected.DELETE("/profile/:username/follow", apiController.Unfollow)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		controllers.NotFound(ctx)
	})

	return r
}

// form registers a page that shows a form on GET and handles it on POST.
func form(g gin.IRoutes, path string, handlers ...gin.HandlerFunc) {
	g.GET(path, handlers...)
	g.POST(path, handlers...)
}
