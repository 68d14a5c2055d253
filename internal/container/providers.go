package container

import (
	"context"
	"fmt"

	"github.com/garyjia/design-bureau/internal/application/dispatcher"
	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/application/service"
	"github.com/garyjia/design-bureau/internal/application/workflow"
	"github.com/garyjia/design-bureau/internal/infrastructure/external/lark"
	"github.com/garyjia/design-bureau/internal/infrastructure/persistence/repository"
	"github.com/garyjia/design-bureau/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/design-bureau/internal/infrastructure/storage"
	"github.com/garyjia/design-bureau/internal/infrastructure/worker"
	bureauhttp "github.com/garyjia/design-bureau/internal/interfaces/http"
	"github.com/garyjia/design-bureau/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds the raw connection and the transaction-aware store.
type DatabaseBundle struct {
	Conn  *database.DB
	Store *sqlite.DB
}

// ProvideDatabase opens the database and applies the schema.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.InitSchema(conn, logger); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DatabaseBundle{
		Conn:  conn,
		Store: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories on one store.
func ProvideRepositories(store *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	return &RepositoryBundle{
		Contracts:   repository.NewContractRepository(store, logger),
		Cards:       repository.NewCardRepository(store, logger),
		Assignments: repository.NewAssignmentRepository(store, logger),
		Employees:   repository.NewEmployeeRepository(store, logger),
		History:     repository.NewHistoryRepository(store, logger),
		Payments:    repository.NewPaymentRepository(store, logger),
		Rates:       repository.NewRateRepository(store, logger),
		FolderJobs:  repository.NewFolderJobRepository(store, logger),
	}, nil
}

// ProvideTransport builds the folder transport for the configured backend.
func ProvideTransport(ctx context.Context, cfg *Config, logger *zap.Logger) (port.FolderTransport, error) {
	switch cfg.Folders.Backend {
	case BackendMinio:
		t, err := storage.NewMinioFolderTransport(ctx, storage.MinioConfig{
			Endpoint:     cfg.Minio.Endpoint,
			AccessKey:    cfg.Minio.AccessKey,
			SecretKey:    cfg.Minio.SecretKey,
			Bucket:       cfg.Minio.Bucket,
			Prefix:       cfg.Minio.Prefix,
			UseSSL:       cfg.Minio.UseSSL,
			MaxAttempts:  cfg.Minio.RetryAttempts,
			InitialDelay: cfg.Minio.RetryDelay,
		}, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	case BackendLocal:
		t, err := storage.NewLocalFolderTransport(cfg.Folders.LocalRoot, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown folder backend %q", cfg.Folders.Backend)
	}
}

// ProvideMessageSender returns the Lark messenger, or a logging sender when
// Lark is disabled.
func ProvideMessageSender(cfg *LarkConfig, logger *zap.Logger) port.MessageSender {
	if !cfg.Enabled {
		logger.Info("Lark disabled, notifications will only be logged")
		return lark.NewLogSender(logger)
	}
	client := lark.NewSDKClient(lark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		Timeout:   cfg.APITimeout,
	})
	return lark.NewMessenger(client, logger)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}))
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Sender     port.MessageSender
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

// ProvideServices creates the payment and notification services and
// subscribes the notification handlers.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	payments := service.NewPaymentService(
		deps.Repos.Payments,
		deps.Repos.Rates,
		deps.TxManager,
		serviceLogger,
	)

	notifications := service.NewNotificationService(
		deps.Repos.Contracts,
		deps.Repos.Employees,
		deps.Sender,
		serviceLogger,
	)
	notifications.Register(deps.Dispatcher)

	return &ServiceBundle{
		Payments:      payments,
		Notifications: notifications,
	}, nil
}

// ProvideFolderSync creates the folder sync worker.
func ProvideFolderSync(cfg *FoldersConfig, repos *RepositoryBundle, transport port.FolderTransport, d dispatcher.Dispatcher, logger *zap.Logger) *worker.FolderSyncWorker {
	syncCfg := worker.DefaultFolderSyncConfig()
	if cfg.Workers > 0 {
		syncCfg.Workers = cfg.Workers
	}
	if cfg.JobTimeout > 0 {
		syncCfg.JobTimeout = cfg.JobTimeout
	}
	return worker.NewFolderSyncWorker(syncCfg, repos.FolderJobs, repos.Contracts, transport, d, logger)
}

// WorkflowDeps holds dependencies for creating the workflow engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	Payments   service.PaymentService
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	FolderSync port.FolderSynchronizer
	Logger     *zap.Logger
}

// ProvideWorkflowEngine creates the workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.WorkflowEngine, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	return workflow.NewEngine(
		workflow.Repositories{
			Contracts:   deps.Repos.Contracts,
			Cards:       deps.Repos.Cards,
			Assignments: deps.Repos.Assignments,
			Employees:   deps.Repos.Employees,
			History:     deps.Repos.History,
		},
		deps.Payments,
		deps.TxManager,
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithFolderSync(deps.FolderSync),
		workflow.WithLogger(&zapLoggerAdapter{logger: deps.Logger}),
	), nil
}

// ProvideServer creates the HTTP server without starting it.
func ProvideServer(cfg *ServerConfig, engine workflow.WorkflowEngine, payments service.PaymentService, folders bureauhttp.FolderRetrier, logger *zap.Logger) *bureauhttp.Server {
	return bureauhttp.NewServer(bureauhttp.ServerConfig{
		Host:         cfg.Host,
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, engine, payments, folders, &zapLoggerAdapter{logger: logger})
}
