package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/miradorstack/mirador-copilot/internal/models"
	"github.com/miradorstack/mirador-copilot/internal/workflow"
)

// JobController is the workflow surface exposed by the transports.
type JobController interface {
	StartAnalysis(ctx context.Context, input models.IncidentInput) (string, error)
	GetStatus(jobID string) (models.Job, error)
	ListJobs() []models.Job
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// HTTPHandler serves the JSON incident API.
type HTTPHandler struct {
	logger     *slog.Logger
	controller JobController
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(logger *slog.Logger, controller JobController) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HTTPHandler{logger: logger, controller: controller}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/", h.root)
	router.GET("/health", h.health)

	incidents := router.Group("/api/v1/incidents")
	incidents.POST("", h.createIncident)
	incidents.GET("", h.listIncidents)
	incidents.GET("/:id", h.getIncident)

	return router
}

// NewHTTPHandler wraps the router with CORS for the allowed origins.
func NewHTTPHandler(logger *slog.Logger, controller JobController, origins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(NewRouter(logger, controller))
}

func (h *HTTPHandler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to AI Operations Copilot API"})
}

func (h *HTTPHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) createIncident(c *gin.Context) {
	var input models.IncidentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: err.Error()})
		return
	}
	if input.Description == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "description is required"})
		return
	}

	jobID, err := h.controller.StartAnalysis(c.Request.Context(), input)
	if err != nil {
		h.logger.Error("start analysis failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, errorResponse{Detail: err.Error()})
		return
	}

	job, err := h.controller.GetStatus(jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Detail: err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (h *HTTPHandler) getIncident(c *gin.Context) {
	job, err := h.controller.GetStatus(c.Param("id"))
	if errors.Is(err, workflow.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Detail: "Incident job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Detail: err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *HTTPHandler) listIncidents(c *gin.Context) {
	jobs := h.controller.ListJobs()
	if jobs == nil {
		jobs = []models.Job{}
	}
	c.JSON(http.StatusOK, jobs)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.LogAttrs(c.Request.Context(), level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}
