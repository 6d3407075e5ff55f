package http

import (
	"github.com/gin-gonic/gin"

	"github.com/platewise/resolver/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	if cfg.Server.ClientRPS > 0 {
		v1.Use(RateLimitMiddleware(cfg.Server.ClientRPS, cfg.Server.ClientBurst))
	}
	{
		v1.POST("/resolve", handler.ResolveItem)
		v1.POST("/resolve/batch", handler.ResolveBatch)
	}

	return router
}
