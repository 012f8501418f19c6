package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP server with all routes configured. uiDir is
// served as a static single-page app with an index.html fallback.
func NewServer(handler *Handler, uiDir string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, uiDir)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, uiDir string) {
	api := r.Group("/api")
	{
		api.GET("/feeds", handler.GetFeeds)
		api.POST("/feeds", handler.CreateFeed)
		api.GET("/posts", handler.GetPosts)
		api.POST("/sync", handler.TriggerSync)
		api.GET("/push/key", handler.GetPushKey)
		api.POST("/push/subscriptions", handler.CreateSubscription)
	}

	r.GET("/health", handler.GetHealth)

	// Everything else is the web UI, with index.html as SPA fallback
	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
			return
		}

		file := filepath.Join(uiDir, filepath.Clean("/"+path))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}

		c.File(filepath.Join(uiDir, "index.html"))
	})
}
