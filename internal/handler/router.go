package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chat-relay/internal/config"
	"chat-relay/internal/metrics"
	"chat-relay/internal/model"
	"chat-relay/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

const indexPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Chat relay</title></head>
<body>
<h1>Chat relay is running</h1>
<p>POST <code>/chat</code> with <code>{"message": "..."}</code>.</p>
</body>
</html>
`

// NewRouter wires middleware and routes. collector may be nil.
func NewRouter(cfg *config.Config, chatHandler *ChatHandler, collector *metrics.Collector) *gin.Engine {
	router := gin.New()

	router.Use(requestID())
	router.Use(accessLog())
	router.Use(gin.CustomRecovery(recoverJSON))
	router.Use(corsMiddleware(cfg.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, model.HealthResponse{OK: true})
	})
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "alive")
	})
	router.GET("/", index(cfg.Static.Dir))

	if chatHandler.chat != nil {
		router.POST("/chat", chatHandler.Chat)
	}
	if chatHandler.help != nil {
		router.POST("/help", chatHandler.Help)
	}

	if collector != nil && cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(collector.Handler()))
	}

	if cfg.Static.Dir != "" {
		files := http.FileServer(gin.Dir(cfg.Static.Dir, false))
		router.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Not found"})
				return
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	}

	return router
}

// probePaths answer every caller. cors rejects a foreign origin with 403,
// so for these paths such requests skip cors and just get no CORS headers.
var probePaths = map[string]bool{"/health": true, "/ping": true}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	cc := corsConfig(cfg)
	handler := cors.New(cc)
	if cc.AllowAllOrigins {
		return handler
	}

	allowed := make(map[string]bool, len(cc.AllowOrigins))
	for _, origin := range cc.AllowOrigins {
		allowed[strings.ToLower(origin)] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && probePaths[c.Request.URL.Path] && !allowed[strings.ToLower(origin)] {
			return
		}
		handler(c)
	}
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:     cfg.AllowedMethods,
		AllowHeaders:     cfg.AllowedHeaders,
		ExposeHeaders:    cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           time.Duration(cfg.MaxAge) * time.Second,
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			cc.AllowAllOrigins = true
			return cc
		}
	}
	cc.AllowOrigins = cfg.AllowedOrigins
	return cc
}

// index serves <dir>/index.html when present, else a placeholder page.
func index(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dir != "" {
			path := filepath.Join(dir, "index.html")
			if st, err := os.Stat(path); err == nil && !st.IsDir() {
				c.File(path)
				return
			}
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexPage))
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logger.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request completed with server error")
			return
		}
		entry.Info("request completed")
	}
}

func recoverJSON(c *gin.Context, recovered any) {
	logger.Errorf("panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Internal server error"})
}
