package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// StatsController provides site statistics such as counts and today's page views.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the site.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	var userCount, postCount, commentCount, groupCount, pageViews int64

	// a failing count reports 0 instead of failing the whole endpoint
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		userCount = 0
	}
	if err := db.Model(&models.Post{}).Count(&postCount).Error; err != nil {
		postCount = 0
	}
	if err := db.Model(&models.Comment{}).Count(&commentCount).Error; err != nil {
		commentCount = 0
	}
	if err := db.Model(&models.Group{}).Count(&groupCount).Error; err != nil {
		groupCount = 0
	}

	if err := db.Model(&models.PageView{}).
		Where("date = ?", models.PageViewDay(time.Now())).
		Select("COALESCE(SUM(count),0)").
		Scan(&pageViews).Error; err != nil {
		pageViews = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":       userCount,
		"post_count":       postCount,
		"comment_count":    commentCount,
		"group_count":      groupCount,
		"page_views_today": pageViews,
	})
}
