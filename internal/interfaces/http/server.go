// Package http exposes the workflow engine over a JSON API.
// Handlers only translate requests; all rules live in the application layer.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/design-bureau/internal/application/service"
	"github.com/garyjia/design-bureau/internal/application/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// FolderRetrier re-runs failed folder jobs
type FolderRetrier interface {
	RetryFailed(ctx context.Context) (int, error)
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     Logger
}

// NewServer creates a new HTTP server. folders may be nil, in which case the
// retry route is not registered.
func NewServer(
	config ServerConfig,
	engine workflow.WorkflowEngine,
	payments service.PaymentService,
	folders FolderRetrier,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: NewHandlers(engine, payments, folders, logger),
		logger:   logger,
	}

	server.router.Use(gin.Recovery())
	server.router.Use(server.loggingMiddleware())
	server.setupRoutes()

	return server
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	{
		api.POST("/contracts", h.CreateContract)
		api.GET("/contracts/:id", h.GetContract)
		api.PATCH("/contracts/:id", h.UpdateContract)
		api.DELETE("/contracts/:id", h.DeleteContract)
		api.GET("/contracts/:id/history", h.GetHistory)
		api.GET("/contracts/:id/payments", h.GetPayments)
		api.GET("/contracts/:id/cards/:pipeline", h.GetCardByContract)

		api.GET("/cards/:id", h.GetCard)
		api.POST("/cards/:id/move", h.MoveCard)
		api.GET("/cards/:id/executors", h.ListAssignments)
		api.POST("/cards/:id/executors", h.AssignExecutor)
		api.POST("/cards/:id/executors/reassign", h.ReassignExecutor)
		api.PUT("/cards/:id/roles", h.AssignRole)
		api.PUT("/cards/:id/approval-stages", h.SetApprovalStages)
		api.POST("/cards/:id/approval-stages/:stage/complete", h.CompleteApprovalStage)

		api.POST("/assignments/:id/submit", h.SubmitStage)
		api.POST("/assignments/:id/accept", h.AcceptStage)

		api.POST("/payments/:id/paid", h.MarkPaid)
		api.PUT("/payments/:id/manual-amount", h.SetManualAmount)
		api.POST("/payments/:id/cancel", h.CancelPayment)

		if h.folders != nil {
			api.POST("/folders/retry", h.RetryFolders)
		}
	}
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
