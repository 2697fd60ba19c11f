package router

import (
	"net/http"

	"github.com/cuongbtq/editor-bot/internal/api/handler"
	"github.com/cuongbtq/editor-bot/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const WebhookPath = "/telegram/webhook"

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(observability.HTTPMetricsMiddleware())
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "editor-bot",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.OnUpdate != nil {
		r.POST(WebhookPath, handler.NewWebhookHandler(deps).Receive)
	}

	admin := handler.NewAdminHandler(deps)

	v1 := r.Group("/api/v1/admin", AdminAuthMiddleware(deps.AdminToken))
	{
		// GET /api/v1/admin/jobs - List jobs with filtering and pagination
		v1.GET("/jobs", admin.ListJobs)

		// GET /api/v1/admin/jobs/:job_id - Get job details
		v1.GET("/jobs/:job_id", admin.GetJob)

		v1.GET("/settings", admin.GetSettings)
		v1.PUT("/settings/:key", admin.UpdateSetting)

		v1.GET("/stats", admin.GetStats)

		// POST /api/v1/admin/keys/reload - Re-read provider keys from the environment
		v1.POST("/keys/reload", admin.ReloadKeys)
	}

	return r
}
