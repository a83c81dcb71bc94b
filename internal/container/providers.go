package container

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/trash-inspection/internal/application/dispatcher"
	"github.com/garyjia/trash-inspection/internal/application/port"
	"github.com/garyjia/trash-inspection/internal/application/service"
	"github.com/garyjia/trash-inspection/internal/infrastructure/external/backoffice"
	"github.com/garyjia/trash-inspection/internal/infrastructure/external/eform"
	"github.com/garyjia/trash-inspection/internal/infrastructure/lock"
	"github.com/garyjia/trash-inspection/internal/infrastructure/metrics"
	"github.com/garyjia/trash-inspection/internal/infrastructure/persistence/repository"
	"github.com/garyjia/trash-inspection/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/trash-inspection/internal/infrastructure/worker"
	"github.com/garyjia/trash-inspection/migrations"
	"github.com/garyjia/trash-inspection/pkg/database"
	"github.com/garyjia/trash-inspection/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Database       *database.DB
	TransactionMgr *sqldb.DB
}

// ExternalBundle holds the clients for systems outside the service.
type ExternalBundle struct {
	Forms      port.FormClient
	BackOffice port.BackOfficeClient
}

// ProvideDatabase opens the configured database and applies the embedded
// migrations for its driver unless SkipMigrations is set.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Driver:          cfg.Driver,
		Path:            cfg.Path,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if !cfg.SkipMigrations {
		migrator := database.NewMigrator(db, logger)
		if err := migrator.RunMigrationsFS(migrations.FS, db.Driver); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DatabaseBundle{
		Database:       db,
		TransactionMgr: sqldb.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Case:       repository.NewCaseRepository(sqlDB, logger),
		Inspection: repository.NewInspectionRepository(sqlDB, logger),
		Queue:      repository.NewEventQueueRepository(sqlDB, logger),
	}, nil
}

// ProvideExternalClients creates the eForm and back-office clients.
// The back-office authenticator is resolved here, once per process.
func ProvideExternalClients(eformCfg *EformConfig, boCfg *BackOfficeConfig, logger *zap.Logger) (*ExternalBundle, error) {
	if eformCfg == nil || boCfg == nil {
		return nil, fmt.Errorf("external client config is required")
	}

	forms, err := eform.NewClient(eform.Config{
		BaseURL:         eformCfg.BaseURL,
		APIKey:          eformCfg.APIKey,
		Timeout:         eformCfg.Timeout,
		InitialInterval: eformCfg.RetryInitialInterval,
		MaxElapsedTime:  eformCfg.RetryMaxElapsed,
	}, logger.Named("eform"))
	if err != nil {
		return nil, fmt.Errorf("failed to create eform client: %w", err)
	}

	backOffice, err := ProvideBackOfficeClient(boCfg, logger)
	if err != nil {
		return nil, err
	}

	return &ExternalBundle{
		Forms:      forms,
		BackOffice: backOffice,
	}, nil
}

// ProvideBackOfficeClient creates the SOAP client for the back-office endpoint.
func ProvideBackOfficeClient(cfg *BackOfficeConfig, logger *zap.Logger) (*backoffice.Client, error) {
	client, err := backoffice.NewClient(backoffice.Config{
		Endpoint:  cfg.Endpoint,
		Namespace: cfg.Namespace,
		Operation: cfg.Operation,
		Timeout:   cfg.Timeout,
		Auth: backoffice.AuthConfig{
			Mode:     cfg.AuthMode,
			Domain:   cfg.Domain,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	}, logger.Named("backoffice"))
	if err != nil {
		return nil, fmt.Errorf("failed to create back office client: %w", err)
	}
	return client, nil
}

// ServiceDeps contains dependencies for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	External   *ExternalBundle
	Queue      *QueueConfig
	Form       *FormConfig
	BackOffice *BackOfficeConfig
	Metrics    service.Metrics
	Logger     *zap.Logger
}

// ProvideServices creates the application services and the event handlers that use them.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.External == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Form == nil || deps.BackOffice == nil {
		return nil, fmt.Errorf("form and back office config are required")
	}

	log := utils.NewKeyValueLogger(deps.Logger)

	transitions := service.NewTransitionService(deps.Repos.Case, deps.Repos.Inspection, log)
	extractor := service.NewFormExtractor(service.ExtractorConfig{
		ApprovalLabel: deps.Form.ApprovalLabel,
		CommentLabel:  deps.Form.CommentLabel,
	})
	retraction := service.NewRetractionService(
		deps.Repos.Case,
		deps.External.Forms,
		transitions,
		deps.TxManager,
		deps.Metrics,
		log,
	)
	notifications := service.NewNotificationService(
		deps.External.BackOffice,
		deps.Repos.Inspection,
		deps.TxManager,
		deps.BackOffice.Timeout,
		deps.Metrics,
		log,
	)

	lockCfg := lock.DefaultConfig()
	if deps.Queue != nil && deps.Queue.CaseLockRetries > 0 {
		lockCfg.MaxRetry = deps.Queue.CaseLockRetries
	}
	if deps.Queue != nil && deps.Queue.CaseLockMaxDelay > 0 {
		lockCfg.MaxDelay = float64(deps.Queue.CaseLockMaxDelay.Nanoseconds())
	}

	handlers := service.NewEventHandlers(service.HandlerDeps{
		Cases:         deps.Repos.Case,
		Inspections:   deps.Repos.Inspection,
		TxManager:     deps.TxManager,
		Forms:         deps.External.Forms,
		Locker:        lock.NewCaseLocker(lockCfg),
		Transitions:   transitions,
		Extractor:     extractor,
		Retraction:    retraction,
		Notifications: notifications,
		Logger:        log,
	})

	return &ServiceBundle{
		Transitions:   transitions,
		Extractor:     extractor,
		Retraction:    retraction,
		Notifications: notifications,
		Handlers:      handlers,
	}, nil
}

// ProvideDispatcher creates the event dispatcher with all handlers registered.
func ProvideDispatcher(handlers *service.EventHandlers, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if handlers == nil {
		return nil, fmt.Errorf("event handlers are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	d := dispatcher.NewDispatcher(dispatcher.WithLogger(utils.NewKeyValueLogger(logger)))
	if err := handlers.Register(d); err != nil {
		return nil, fmt.Errorf("failed to register event handlers: %w", err)
	}
	return d, nil
}

// WorkerDeps contains dependencies for creating workers.
type WorkerDeps struct {
	Queue      port.EventQueue
	Dispatcher dispatcher.Dispatcher
	QueueCfg   *QueueConfig
	Metrics    *metrics.Recorder
	Logger     *zap.Logger
}

// ProvideWorkers creates the queue worker and registers it with a manager.
// Workers are not started here.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil || deps.Queue == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.QueueCfg == nil {
		return nil, fmt.Errorf("queue config is required")
	}

	cfg := deps.QueueCfg
	queueWorker := worker.NewQueueWorker(
		worker.QueueWorkerConfig{
			NumberOfWorkers:      cfg.NumberOfWorkers,
			MaxParallelism:       int64(cfg.MaxParallelism),
			PollInterval:         cfg.PollInterval,
			BatchSize:            cfg.BatchSize,
			LeaseDuration:        cfg.LeaseDuration,
			MaxAttempts:          cfg.MaxAttempts,
			RetryInitialInterval: cfg.RetryInitialInterval,
			RetryMaxInterval:     cfg.RetryMaxInterval,
			StatsInterval:        cfg.StatsInterval,
		},
		deps.Queue,
		deps.Dispatcher,
		deps.Metrics,
		deps.Logger.Named("queue"),
	)

	manager := worker.NewWorkerManager(deps.Logger)
	manager.Register(queueWorker)
	return manager, nil
}
