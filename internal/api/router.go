package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/location-replay-go/internal/config"
	"github.com/jengzang/location-replay-go/internal/handler"
	"github.com/jengzang/location-replay-go/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, replayHandler *handler.ReplayHandler, limiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	}

	// API 路由组
	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter))
	{
		// 健康检查
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"message": "Location replay API is running",
			})
		})

		providers := api.Group("/providers")
		{
			providers.GET("", replayHandler.GetProviders)
			providers.GET("/:index", replayHandler.GetProvider)
			providers.GET("/:index/summary", replayHandler.GetSummary)
		}

		api.GET("/agents", replayHandler.GetAgents)
		api.GET("/samples", replayHandler.GetSamples)

		sim := api.Group("/simulation")
		{
			sim.GET("", replayHandler.GetStatus)
			sim.POST("/tick", middleware.JWTAuth(cfg.JWTSecret), replayHandler.Tick)
		}
	}

	return r
}
