package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(s.log))
	router.Use(corsMiddleware(s.config.AllowedOrigins))

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/health/metrics", s.handleMetrics)

		api.GET("/records", s.handleListRecords)
		api.GET("/records/:id", s.handleGetRecord)
		api.DELETE("/records/:id", s.handleDeleteRecord)

		api.POST("/segment", s.handleSegment)
		api.GET("/dataset", s.handleDataset)
	}

	return router
}

// corsMiddleware allows the configured origins; a single "*" allows all
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		MaxAge:       time.Hour,
	}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cors.New(cfg)
}

// loggingMiddleware logs every request with its status and latency
func loggingMiddleware(log Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infof("%s %s from %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.ClientIP(), c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	router := s.setupRoutes()

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.log.Infof("🚀 ECG segmenter server starting on %s", addr)
	s.log.Infof("   Catalog: %s", s.config.DBPath)
	s.log.Infof("   Samples: %s", s.config.SampleDir)
	s.log.Infof("   CORS Origins: %v", s.config.AllowedOrigins)
	s.log.Infof("Endpoints:")
	s.log.Infof("   GET    /health                  - Health check")
	s.log.Infof("   GET    /api/health/metrics      - Catalog metrics")
	s.log.Infof("   GET    /api/records             - List cataloged records")
	s.log.Infof("   GET    /api/records/{id}        - Get record by ID")
	s.log.Infof("   DELETE /api/records/{id}        - Delete record and its windows")
	s.log.Infof("   POST   /api/segment             - Segment a database or record")
	s.log.Infof("   GET    /api/dataset             - Load summary of the sample root")

	return http.ListenAndServe(addr, router)
}
