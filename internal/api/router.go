package api

import (
	"net/http"
	"time"

	"github.com/content-lifecycle-api/internal/auth"
	"github.com/content-lifecycle-api/internal/config"
	"github.com/content-lifecycle-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))
	router.Use(authMiddleware(cfg.Auth.Token))

	// Handlers
	articleHandler := NewArticleHandler(services, log)

	// Health check
	router.GET("/health", healthCheck)

	// API v1
	v1 := router.Group("/v1")
	{
		articles := v1.Group("/articles")
		{
			articles.GET("", articleHandler.ListArticles)
			articles.GET("/:idOrAlias", articleHandler.GetArticle)
			articles.GET("/:idOrAlias/nav", articleHandler.GetNav)
			articles.POST("/:idOrAlias/hits", articleHandler.Hit)

			authed := articles.Group("", requireAuthenticated())
			{
				authed.POST("", articleHandler.CreateArticle)
				authed.PUT("/:idOrAlias", articleHandler.UpdateArticle)
				authed.DELETE("/:idOrAlias", articleHandler.DeleteArticle)
				authed.POST("/batch-delete", articleHandler.BatchDelete)
				authed.GET("/:idOrAlias/edit", articleHandler.GetArticleForEdit)
			}
		}

		admin := v1.Group("/admin", requireAuthenticated())
		{
			admin.POST("/reindex", articleHandler.Reindex)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "content-lifecycle-api",
	})
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// requestIDMiddleware tags every request with a correlation id
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("request_id", c.GetString("request_id")).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// authMiddleware marks the request context as authenticated when the bearer
// token matches the configured one. Session management stays outside this
// service; the flag only drives the visibility rules.
func authMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticated := false
		if token != "" {
			header := c.GetHeader("Authorization")
			authenticated = header == "Bearer "+token
		}
		ctx := auth.WithAuthenticated(c.Request.Context(), authenticated)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// requireAuthenticated guards the write and admin surface
func requireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.IsAuthenticated(c.Request.Context()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}
		c.Next()
	}
}
