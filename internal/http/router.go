// Package http exposes persisted assessment results over a read-only JSON API.
package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter creates and configures the Gin router. An empty allowedOrigins
// allows every origin.
func SetupRouter(reader ResultReader, allowedOrigins []string) *gin.Engine {
	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	// Create handler.
	handler := NewHandler(reader)

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.GET("/results", handler.ListLocations)
	v1.GET("/results/:location", handler.ListDates)
	v1.GET("/results/:location/:date", handler.GetResult)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	return router
}
