package server

import (
	"github.com/gin-gonic/gin"

	"github.com/jaki95/dj-cue-converter/config"
	"github.com/jaki95/dj-cue-converter/internal/convert"
	"github.com/jaki95/dj-cue-converter/internal/job"
	"github.com/jaki95/dj-cue-converter/internal/storage"
)

// Server handles HTTP requests for playlist conversions
type Server struct {
	cfg        *config.Config
	router     *gin.Engine
	jobManager *job.Manager
	storage    storage.Storage
	converter  *convert.Converter
}

// New creates a new HTTP server instance
func New(cfg *config.Config, store storage.Storage) *Server {
	s := &Server{
		cfg:        cfg,
		router:     gin.Default(),
		jobManager: job.NewManager(),
		storage:    store,
		converter:  convert.NewConverter(cfg.ConvertOptions()),
	}
	s.setupRoutes(s.router)
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes(router *gin.Engine) {
	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", s.health)

	api := router.Group("/api/v1")
	{
		api.POST("/convert", s.convertPlaylist)
		api.GET("/files", s.listFiles)
		api.GET("/jobs", s.listJobs)
		api.GET("/jobs/:id", s.getJobStatus)
		api.DELETE("/jobs/:id", s.cancelJob)
		api.GET("/jobs/:id/download", s.downloadResult)
	}
}

// Start starts the HTTP server
func (s *Server) Start(port string) error {
	return s.router.Run(":" + port)
}
