package api

import (
	"github.com/RishiKendai/argus/internal/config"
	"github.com/RishiKendai/argus/internal/detector"
	"github.com/RishiKendai/argus/internal/repository"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	cfg *config.Config,
	det *detector.Detector,
	reportsRepo *repository.ReportsRepository,
) *gin.Engine {
	router := gin.Default()

	// Create handler
	handler := NewHandler(cfg, det, reportsRepo)

	// Create rate limiter
	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	// Middleware
	router.Use(ErrorHandlerMiddleware())

	// Health endpoint (no auth)
	router.GET("/health", handler.Health)

	// API routes (with auth and rate limiting)
	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/submissions", handler.Ingest)
		api.GET("/submissions/:id", handler.GetSubmission)
		api.GET("/submissions/:id/fragments/:other", handler.GetFragments)
		api.GET("/matrix", handler.GetMatrix)
		api.GET("/clusters", handler.GetClusters)
		api.GET("/metadata/range", handler.RangeBySimilarity)
		api.POST("/reports", handler.GenerateReport)
		api.GET("/reports/latest", handler.GetLatestReport)
	}

	return router
}
