package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// APIController exposes the blog over JSON under /api/v1.
type APIController struct {
	posts    *services.PostService
	follows  *services.FollowService
	accounts *services.AccountService
}

func NewAPIController(posts *services.PostService, follows *services.FollowService, accounts *services.AccountService) *APIController {
	return &APIController{posts: posts, follows: follows, accounts: accounts}
}

type pagination struct {
	Page        int   `json:"page"`
	NumPages    int   `json:"num_pages"`
	Count       int64 `json:"count"`
	PageSize    int   `json:"page_size"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

func pageData(pg *services.Page[models.Post]) gin.H {
	return gin.H{
		"posts": pg.Items,
		"pagination": pagination{
			Page:        pg.Number,
			NumPages:    pg.NumPages,
			Count:       pg.Count,
			PageSize:    pg.PageSize,
			HasNext:     pg.HasNext(),
			HasPrevious: pg.HasPrevious(),
		},
	}
}

// apiFail maps service errors onto the JSON envelope.
func apiFail(ctx *gin.Context, err error, notFoundCode int) {
	var verrs services.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		utils.ValidationError(ctx, verrs)
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, notFoundCode, "not found")
	case errors.Is(err, services.ErrNotAuthor):
		utils.Error(ctx, http.StatusForbidden, 40301, "only the author may do that")
	case errors.Is(err, services.ErrSelfFollow):
		utils.Error(ctx, http.StatusBadRequest, 40011, "you cannot follow yourself")
	default:
		utils.Sugar.Errorw("api request failed", "path", ctx.Request.URL.Path, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "internal error")
	}
}

// IssueToken exchanges a username and password for a bearer token.
func (a *APIController) IssueToken(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	user, err := a.accounts.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if errors.Is(err, services.ErrBadLogin) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if err != nil {
		apiFail(ctx, err, 40402)
		return
	}
	token, err := middleware.StartSession(ctx, user)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": user})
}

// RevokeToken blacklists the bearer token until it expires.
func (a *APIController) RevokeToken(ctx *gin.Context) {
	middleware.EndSession(ctx)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

func (a *APIController) ListPosts(ctx *gin.Context) {
	pg, err := a.posts.ListAll(ctx.Request.Context(), ctx.Query("page"))
	if err != nil {
		apiFail(ctx, err, 40401)
		return
	}
	utils.Success(ctx, pageData(pg))
}

// GetPost returns a post with its comments and the author's post count.
func (a *APIController) GetPost(ctx *gin.Context) {
	id, ok := postID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}
	d, err := a.posts.Detail(ctx.Request.Context(), id)
	if err != nil {
		apiFail(ctx, err, 40401)
		return
	}
	utils.Success(ctx, gin.H{
		"post":               d.Post,
		"comments":           d.Comments,
		"author_posts_count": d.AuthorPostCount,
	})
}

func (a *APIController) ListGroups(ctx *gin.Context) {
	groups, err := a.posts.Groups(ctx.Request.Context())
	if err != nil {
		apiFail(ctx, err, 40403)
		return
	}
	utils.Success(ctx, gin.H{"groups": groups})
}

func (a *APIController) GroupPosts(ctx *gin.Context) {
	group, pg, err := a.posts.ListByGroup(ctx.Request.Context(), ctx.Param("slug"), ctx.Query("page"))
	if err != nil {
		apiFail(ctx, err, 40403)
		return
	}
	data := pageData(pg)
	data["group"] = group
	utils.Success(ctx, data)
}

func (a *APIController) UserPosts(ctx *gin.Context) {
	author, pg, err := a.posts.ListByAuthor(ctx.Request.Context(), ctx.Param("username"), ctx.Query("page"))
	if err != nil {
		apiFail(ctx, err, 40402)
		return
	}
	data := pageData(pg)
	data["author"] = author
	utils.Success(ctx, data)
}

// CreatePost publishes a text post as the token's user.
func (a *APIController) CreatePost(ctx *gin.Context) {
	var req struct {
		Text    string `json:"text" binding:"required"`
		GroupID *uint  `json:"group_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(ctx, map[string][]string{"text": {"This field is required."}})
		return
	}
	post, err := a.posts.Create(ctx.Request.Context(), middleware.Viewer(ctx), services.PostInput{
		Text:    req.Text,
		GroupID: req.GroupID,
	})
	if err != nil {
		apiFail(ctx, err, 40403)
		return
	}
	utils.Created(ctx, gin.H{"post": post})
}

func (a *APIController) CreateComment(ctx *gin.Context) {
	id, ok := postID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	comment, err := a.posts.AddComment(ctx.Request.Context(), middleware.ViewerID(ctx), id, strings.TrimSpace(req.Text))
	if err != nil {
		apiFail(ctx, err, 40401)
		return
	}
	utils.Created(ctx, gin.H{"comment": comment})
}

// Feed lists posts by the authors the token's user follows.
func (a *APIController) Feed(ctx *gin.Context) {
	pg, err := a.follows.Feed(ctx.Request.Context(), middleware.ViewerID(ctx), ctx.Query("page"))
	if err != nil {
		apiFail(ctx, err, 40402)
		return
	}
	utils.Success(ctx, pageData(pg))
}

func (a *APIController) Follow(ctx *gin.Context) {
	author, created, err := a.follows.Follow(ctx.Request.Context(), middleware.ViewerID(ctx), ctx.Param("username"))
	if err != nil {
		apiFail(ctx, err, 40402)
		return
	}
	utils.Success(ctx, gin.H{"author": author.Username, "following": true, "created": created})
}

func (a *APIController) Unfollow(ctx *gin.Context) {
	author, deleted, err := a.follows.Unfollow(ctx.Request.Context(), middleware.ViewerID(ctx), ctx.Param("username"))
	if err != nil {
		apiFail(ctx, err, 40402)
		return
	}
	utils.Success(ctx, gin.H{"author": author.Username, "following": false, "deleted": deleted})
}
