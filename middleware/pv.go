package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

var pageViewSkipPrefixes = []string{"/api/", "/static/", "/media/"}

// PageViewRecorder counts successful GET page loads per day and path.
func PageViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet {
			return
		}
		if status := c.Writer.Status(); status < 200 || status >= 300 {
			return
		}
		path := c.Request.URL.Path
		if !isPagePath(path) {
			return
		}

		now := time.Now()
		// one row per (day, path); concurrent hits increment in place
		err := db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": now}),
		}).Create(&models.PageView{Date: models.PageViewDay(now), Path: path, Count: 1}).Error
		if err != nil {
			utils.Sugar.Debugf("record page view %s: %v", path, err)
		}
	}
}

func isPagePath(path string) bool {
	if path == "/health" {
		return false
	}
	for _, p := range pageViewSkipPrefixes {
		if strings.HasPrefix(path, p) {
			return false
		}
	}
	return true
}
