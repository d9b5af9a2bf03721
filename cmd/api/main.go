// Command api serves a small read-mostly HTTP API over the reconciliation
// storage: run history, aggregate stats, and on-demand batch runs.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/eshaffer321/amazon-recon-backend/internal/application/service"
	"github.com/eshaffer321/amazon-recon-backend/internal/domain/ledger"
	"github.com/eshaffer321/amazon-recon-backend/internal/infrastructure/config"
	"github.com/eshaffer321/amazon-recon-backend/internal/infrastructure/storage"
	"github.com/eshaffer321/amazon-recon-backend/internal/observability"
)

type APIServer struct {
	repo    storage.Repository
	service *service.ReconService
	logger  *slog.Logger
}

func NewAPIServer(repo storage.Repository, svc *service.ReconService, logger *slog.Logger) *APIServer {
	return &APIServer{
		repo:    repo,
		service: svc,
		logger:  logger,
	}
}

func (s *APIServer) getStats(c *gin.Context) {
	stats, err := s.repo.GetStats()
	if err != nil {
		s.logger.Error("Failed to fetch stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *APIServer) getRuns(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := s.repo.ListMatchRuns(limit)
	if err != nil {
		s.logger.Error("Failed to fetch runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (s *APIServer) getRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	run, err := s.repo.GetMatchRun(id)
	if err != nil {
		s.logger.Error("Failed to fetch run", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

type runRequest struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

func (s *APIServer) startRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end dates are required"})
		return
	}

	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date"})
		return
	}
	end, err := time.Parse("2006-01-02", req.End)
	if err != nil || end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date"})
		return
	}

	report, path, err := s.service.RunBatch(ledger.DateRange{Start: start, End: end})
	if err != nil {
		s.logger.Error("Batch run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Batch run failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":      report.ProcessingMetadata.RunID,
		"summary":     report.Summary,
		"report_path": path,
	})
}

func main() {
	_ = godotenv.Load()

	cfg := config.LoadOrEnv()
	logger := observability.NewLogger(cfg.Observability.Logging)

	repo, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	svc, err := service.NewReconService(repo, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize recon service", "error", err)
		os.Exit(1)
	}

	server := NewAPIServer(repo, svc, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health"},
	}))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:8080"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api")
	{
		api.GET("/stats", server.getStats)
		api.GET("/runs", server.getRuns)
		api.GET("/runs/:id", server.getRun)
		api.POST("/runs", server.startRun)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info("Starting API server", "port", port)
	if err := router.Run(":" + port); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
