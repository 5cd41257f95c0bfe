package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
)

// FollowController handles subscriptions between authors and the personal feed.
type FollowController struct {
	follows *services.FollowService
}

func NewFollowController(follows *services.FollowService) *FollowController {
	return &FollowController{follows: follows}
}

// FollowIndex lists posts of the authors the viewer follows.
func (f *FollowController) FollowIndex(ctx *gin.Context) {
	pg, err := f.follows.Feed(ctx.Request.Context(), middleware.ViewerID(ctx), ctx.Query("page"))
	if err != nil {
		serverError(ctx, err)
		return
	}
	page(ctx, http.StatusOK, "posts/follow.html", gin.H{"page_obj": pg, "show_group": true})
}

// ProfileFollow subscribes the viewer to an author. Repeats and self-follows change nothing.
func (f *FollowController) ProfileFollow(ctx *gin.Context) {
	username := ctx.Param("username")
	_, _, err := f.follows.Follow(ctx.Request.Context(), middleware.ViewerID(ctx), username)
	switch {
	case errors.Is(err, services.ErrNotFound):
		NotFound(ctx)
		return
	case errors.Is(err, services.ErrSelfFollow):
	case err != nil:
		serverError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, profileURL(username))
}

// ProfileUnfollow removes the subscription if there is one.
func (f *FollowController) ProfileUnfollow(ctx *gin.Context) {
	username := ctx.Param("username")
	_, _, err := f.follows.Unfollow(ctx.Request.Context(), middleware.ViewerID(ctx), username)
	if errors.Is(err, services.ErrNotFound) {
		NotFound(ctx)
		return
	}
	if err != nil {
		serverError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, profileURL(username))
}
