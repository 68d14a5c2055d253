package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/design-bureau/internal/application/dispatcher"
	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/application/service"
	"github.com/garyjia/design-bureau/internal/application/workflow"
	"github.com/garyjia/design-bureau/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/design-bureau/internal/infrastructure/worker"
	bureauhttp "github.com/garyjia/design-bureau/internal/interfaces/http"
	"github.com/garyjia/design-bureau/pkg/database"
	"go.uber.org/zap"
)

// Container holds every component of the running bureau.
type Container struct {
	config *Config
	logger *zap.Logger

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc

	conn         *database.DB
	store        *sqlite.DB
	repositories *RepositoryBundle

	transport  port.FolderTransport
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle
	folderSync *worker.FolderSyncWorker
	engine     workflow.WorkflowEngine
	workers    *worker.Manager
	server     *bureauhttp.Server
}

// RepositoryBundle holds all repositories.
type RepositoryBundle struct {
	Contracts   port.ContractRepository
	Cards       port.CardRepository
	Assignments port.AssignmentRepository
	Employees   port.EmployeeRepository
	History     port.HistoryRepository
	Payments    port.PaymentRepository
	Rates       port.RateRepository
	FolderJobs  port.FolderJobRepository
}

// ServiceBundle holds the application services.
type ServiceBundle struct {
	Payments      service.PaymentService
	Notifications service.NotificationService
}

// HealthStatus reports component health.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth is the health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer validates cfg and returns an unstarted container.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order and starts the
// background workers. The HTTP server is built but not listening; call
// Server().Start to serve.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initTransport(); err != nil {
		return fmt.Errorf("failed to initialize folder transport: %w", err)
	}
	c.logger.Info("Folder transport initialized", zap.String("backend", c.config.Folders.Backend))

	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	if err := c.initWorkflow(); err != nil {
		return fmt.Errorf("failed to initialize workflow: %w", err)
	}
	c.logger.Info("Workflow engine initialized")

	if err := c.initWorkers(); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized and started")

	c.server = ProvideServer(&c.config.Server, c.engine, c.services.Payments, c.folderSync, c.logger)

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close shuts components down in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}
	c.logger.Info("Closing container")

	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop server: %w", err))
		}
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	set := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}

	switch {
	case c.conn == nil:
		set("database", ComponentHealth{Message: "not initialized"})
	default:
		if err := c.conn.Ping(); err != nil {
			set("database", ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			set("database", ComponentHealth{Healthy: true})
		}
	}

	if c.workers == nil {
		set("workers", ComponentHealth{Message: "not initialized"})
	} else {
		set("workers", ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("worker count: %d", c.workers.Count()),
		})
	}

	if c.folderSync != nil {
		stats := c.folderSync.Stats()
		set("folder_sync", ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("queued=%d succeeded=%d failed=%d", stats.Queued, stats.Succeeded, stats.Failed),
		})
	}

	if c.dispatcher == nil {
		set("dispatcher", ComponentHealth{Message: "not initialized"})
	} else {
		set("dispatcher", ComponentHealth{Healthy: true})
	}

	return status
}

func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.conn = bundle.Conn
	c.store = bundle.Store

	repos, err := ProvideRepositories(c.store, c.logger)
	if err != nil {
		_ = c.conn.Close()
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initTransport() error {
	transport, err := ProvideTransport(c.ctx, c.config, c.logger)
	if err != nil {
		return err
	}
	c.transport = transport
	return nil
}

func (c *Container) initServices() error {
	c.dispatcher = ProvideDispatcher(c.logger)

	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.store,
		Sender:     ProvideMessageSender(&c.config.Lark, c.logger),
		Dispatcher: c.dispatcher,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

func (c *Container) initWorkflow() error {
	c.folderSync = ProvideFolderSync(&c.config.Folders, c.repositories, c.transport, c.dispatcher, c.logger)

	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:      c.repositories,
		Payments:   c.services.Payments,
		TxManager:  c.store,
		Dispatcher: c.dispatcher,
		FolderSync: c.folderSync,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.engine = engine
	return nil
}

func (c *Container) initWorkers() error {
	c.workers = worker.NewManager(c.logger)
	c.workers.Register(c.folderSync)

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	return nil
}

// Engine returns the workflow engine.
func (c *Container) Engine() workflow.WorkflowEngine {
	return c.engine
}

// Payments returns the payment service.
func (c *Container) Payments() service.PaymentService {
	return c.services.Payments
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// FolderSync returns the folder sync worker.
func (c *Container) FolderSync() *worker.FolderSyncWorker {
	return c.folderSync
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Server returns the HTTP server.
func (c *Container) Server() *bureauhttp.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// zapLoggerAdapter adapts zap.Logger to the key-value Logger interfaces of
// the service, dispatcher and http packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
