package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/utils"
)

// page renders an HTML page with the values every layout needs.
func page(ctx *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["template"] = name
	data["year"] = time.Now().Year()
	data["query"] = ctx.Request.URL.Query()
	data["path"] = ctx.Request.URL.Path
	if v := middleware.Viewer(ctx); v != nil {
		data["viewer"] = v
	}
	ctx.HTML(status, name, data)
}

// NotFound renders the 404 page.
func NotFound(ctx *gin.Context) {
	page(ctx, http.StatusNotFound, "core/404.html", nil)
}

// serverError logs err and renders the 500 page.
func serverError(ctx *gin.Context, err error) {
	utils.Sugar.Errorw("request failed", "path", ctx.Request.URL.Path, "err", err)
	page(ctx, http.StatusInternalServerError, "core/500.html", nil)
}
