package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskdesk/internal/chat"
	"taskdesk/internal/reminder"
	"taskdesk/internal/share"
	"taskdesk/internal/storage"
	"taskdesk/internal/tasks"
)

var errReadOnlyShare = errors.New("shared task lists are read-only")

// Options carries the collaborators the HTTP server is built from.
type Options struct {
	Store     *tasks.Store
	Chat      *chat.Router
	Prefs     storage.KV
	Alerts    *reminder.Feed
	Logger    *slog.Logger
	StaticDir string
	PublicURL string
	Now       func() time.Time
}

// Server provides HTTP handlers for the task manager frontend.
type Server struct {
	engine    *gin.Engine
	store     *tasks.Store
	chat      *chat.Router
	prefs     storage.KV
	alerts    *reminder.Feed
	logger    *slog.Logger
	staticDir string
	publicURL string
	now       func() time.Time
}

// New constructs the HTTP server with routes and middleware configured.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Alerts == nil {
		opts.Alerts = reminder.NewFeed(0)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz", "/api/alerts"))

	srv := &Server{
		engine:    router,
		store:     opts.Store,
		chat:      opts.Chat,
		prefs:     opts.Prefs,
		alerts:    opts.Alerts,
		logger:    opts.Logger,
		staticDir: opts.StaticDir,
		publicURL: opts.PublicURL,
		now:       opts.Now,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		tasksGroup := api.Group("/tasks")
		{
			tasksGroup.GET("", s.handleListTasks)
			tasksGroup.POST("", s.denyShared, s.handleCreateTask)
			tasksGroup.POST("/quick", s.denyShared, s.handleQuickTask)
			tasksGroup.PUT("/:id", s.denyShared, s.handleUpdateTask)
			tasksGroup.DELETE("/:id", s.denyShared, s.handleDeleteTask)
			tasksGroup.POST("/:id/complete", s.denyShared, s.handleCompleteTask)
			tasksGroup.POST("/:id/progress", s.denyShared, s.handleAddProgress)
		}

		api.GET("/stats", s.handleStats)
		api.GET("/export", s.handleExport)
		api.POST("/import", s.denyShared, s.handleImport)
		api.POST("/share", s.denyShared, s.handleCreateShare)
		api.POST("/chat", s.denyShared, s.handleChat)
		api.GET("/preferences", s.handleGetPreferences)
		api.PUT("/preferences", s.handleUpdatePreferences)
		api.GET("/alerts", s.handleAlerts)
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// denyShared rejects writes made while viewing a shared snapshot. Only a
// token that decodes counts; anything else is ignored as on reads.
func (s *Server) denyShared(c *gin.Context) {
	token := c.Query(share.QueryParam)
	if token == "" {
		c.Next()
		return
	}
	if _, err := share.Decode(token, s.now()); err != nil {
		c.Next()
		return
	}
	s.respondError(c, http.StatusForbidden, errReadOnlyShare)
	c.Abort()
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tasks.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	} else {
		s.logger.Debug("request rejected", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
