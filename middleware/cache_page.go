package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/utils"
)

// IndexCachePrefix namespaces cached renders of the front page.
const IndexCachePrefix = "index_page"

type bodyCaptureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CachePage serves GET responses from the cache for ttl. Entries are keyed by
// viewer and request URI, so logged-in users never see each other's pages.
// Only 200 responses are stored.
func CachePage(prefix string, ttl time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet || ttl <= 0 {
			ctx.Next()
			return
		}
		key := fmt.Sprintf("%s:%d:%s", prefix, ViewerID(ctx), ctx.Request.URL.RequestURI())
		if b, ok := utils.CacheGetBytes(key); ok {
			ctx.Header("X-Cache", "HIT")
			ctx.Data(http.StatusOK, "text/html; charset=utf-8", b)
			ctx.Abort()
			return
		}

		w := &bodyCaptureWriter{ResponseWriter: ctx.Writer}
		ctx.Writer = w
		ctx.Header("X-Cache", "MISS")
		ctx.Next()

		if w.Status() == http.StatusOK && w.body.Len() > 0 {
			utils.CacheSetBytes(key, w.body.Bytes(), ttl)
		}
	}
}
