package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AboutAuthor renders the static page about the site author.
func AboutAuthor(ctx *gin.Context) {
	page(ctx, http.StatusOK, "about/author.html", nil)
}

// AboutTech renders the static page about the technologies used.
func AboutTech(ctx *gin.Context) {
	page(ctx, http.StatusOK, "about/tech.html", nil)
}
