package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/services"
)

// PostController serves the post listings, detail page and the post and comment forms.
type PostController struct {
	posts   *services.PostService
	follows *services.FollowService
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService, follows *services.FollowService) *PostController {
	return &PostController{posts: posts, follows: follows}
}

// Index lists every post, newest first.
func (p *PostController) Index(ctx *gin.Context) {
	pg, err := p.posts.ListAll(ctx.Request.Context(), ctx.Query("page"))
	if err != nil {
		serverError(ctx, err)
		return
	}
	page(ctx, http.StatusOK, "posts/index.html", gin.H{"page_obj": pg, "show_group": true})
}

// GroupPosts lists the posts of one group.
func (p *PostController) GroupPosts(ctx *gin.Context) {
	group, pg, err := p.posts.ListByGroup(ctx.Request.Context(), ctx.Param("slug"), ctx.Query("page"))
	if errors.Is(err, services.ErrNotFound) {
		NotFound(ctx)
		return
	}
	if err != nil {
		serverError(ctx, err)
		return
	}
	page(ctx, http.StatusOK, "posts/group_list.html", gin.H{"group": group, "page_obj": pg})
}

// Profile lists the posts of one author together with follow information.
func (p *PostController) Profile(ctx *gin.Context) {
	rctx := ctx.Request.Context()
	author, pg, err := p.posts.ListByAuthor(rctx, ctx.Param("username"), ctx.Query("page"))
	if errors.Is(err, services.ErrNotFound) {
		NotFound(ctx)
		return
	}
	if err != nil {
		serverError(ctx, err)
		return
	}
	stats, err := p.follows.Stats(rctx, author.ID)
	if err != nil {
		serverError(ctx, err)
		return
	}
	following := false
	if viewerID := middleware.ViewerID(ctx); viewerID != 0 && viewerID != author.ID {
		if following, err = p.follows.IsFollowing(rctx, viewerID, author.ID); err != nil {
			serverError(ctx, err)
			return
		}
	}
	page(ctx, http.StatusOK, "posts/profile.html", gin.H{
		"author":       author,
		"page_obj":     pg,
		"posts_count":  pg.Count,
		"following":    following,
		"follow_stats": stats,
		"show_group":   true,
	})
}

// PostDetail shows one post with its comments.
func (p *PostController) PostDetail(ctx *gin.Context) {
	id, ok := postID(ctx)
	if !ok {
		NotFound(ctx)
		return
	}
	detail, err := p.posts.Detail(ctx.Request.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		NotFound(ctx)
		return
	}
	if err != nil {
		serverError(ctx, err)
		return
	}
	page(ctx, http.StatusOK, "posts/post_detail.html", gin.H{
		"post":        &detail.Post,
		"comments":    detail.Comments,
		"posts_count": detail.AuthorPostCount,
	})
}

// PostCreate shows and handles the new post form.
func (p *PostController) PostCreate(ctx *gin.Context) {
	if ctx.Request.Method != http.MethodPost {
		p.renderPostForm(ctx, postForm{}, services.ValidationErrors{}, nil)
		return
	}

	var form postForm
	errs := bindForm(ctx, &form)
	in, imgErrs := postInput(ctx, form)
	merge(errs, imgErrs)
	if len(errs) > 0 {
		p.renderPostForm(ctx, form, errs, nil)
		return
	}

	viewer := middleware.Viewer(ctx)
	_, err := p.posts.Create(ctx.Request.Context(), viewer, in)
	var verrs services.ValidationErrors
	if errors.As(err, &verrs) {
		p.renderPostForm(ctx, form, verrs, nil)
		return
	}
	if err != nil {
		serverError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, profileURL(viewer.Username))
}

// PostEdit shows and handles the edit form. Anyone but the author is sent back to the post.
func (p *PostController) PostEdit(ctx *gin.Context) {
	id, ok := postID(ctx)
	if !ok {
		NotFound(ctx)
		return
	}
	rctx := ctx.Request.Context()
	post, err := p.posts.Get(rctx, id)
	if errors.Is(err, services.ErrNotFound) {
		NotFound(ctx)
		return
	}
	if err != nil {
		serverError(ctx, err)
		return
	}
	if post.AuthorID != middleware.ViewerID(ctx) {
		ctx.Redirect(http.StatusFound, postURL(post.ID))
		return
	}

	if ctx.Request.Method != http.MethodPost {
		form := postForm{Text: post.Text}
		if post.GroupID != nil {
			form.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
		}
		p.renderPostForm(ctx, form, services.ValidationErrors{}, post)
		return
	}

	var form postForm
	errs := bindForm(ctx, &form)
	in, imgErrs := postInput(ctx, form)
	merge(errs, imgErrs)
	if len(errs) > 0 {
		p.renderPostForm(ctx, form, errs, post)
		return
	}

	_, err = p.posts.Edit(rctx, middleware.ViewerID(ctx), id, in)
	var verrs services.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		p.renderPostForm(ctx, form, verrs, post)
		return
	case errors.Is(err, services.ErrNotAuthor):
	case errors.Is(err, services.ErrNotFound):
		NotFound(ctx)
		return
	case err != nil:
		serverError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, postURL(id))
}

// AddComment stores a comment and returns to the post. Invalid comments are dropped.
func (p *PostController) AddComment(ctx *gin.Context) {
	id, ok := postID(ctx)
	if !ok {
		NotFound(ctx)
		return
	}
	if _, err := p.posts.Get(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			NotFound(ctx)
		} else {
			serverError(ctx, err)
		}
		return
	}
	var form commentForm
	if errs := bindForm(ctx, &form); len(errs) > 0 {
		ctx.Redirect(http.StatusFound, postURL(id))
		return
	}
	_, err := p.posts.AddComment(ctx.Request.Context(), middleware.ViewerID(ctx), id, form.Text)
	var verrs services.ValidationErrors
	switch {
	case errors.Is(err, services.ErrNotFound):
		NotFound(ctx)
		return
	case errors.As(err, &verrs):
	case err != nil:
		serverError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, postURL(id))
}

func (p *PostController) renderPostForm(ctx *gin.Context, form postForm, errs services.ValidationErrors, post *models.Post) {
	groups, err := p.posts.Groups(ctx.Request.Context())
	if err != nil {
		serverError(ctx, err)
		return
	}
	data := gin.H{"form": form, "errors": errs, "groups": groups, "is_edit": post != nil}
	if post != nil {
		data["post"] = post
	}
	page(ctx, http.StatusOK, "posts/create_post.html", data)
}

func postID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("post_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func postURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}
