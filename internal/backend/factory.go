package backend

import (
	"context"
	"fmt"

	"tazzio/internal/amqp"
	"tazzio/internal/log"
	"tazzio/internal/services"
	"tazzio/internal/storage"
	"tazzio/internal/store"
	"tazzio/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		remote store.Remote
		ping   func(context.Context) error
	)
	switch config.Type {
	case MemoryBackend:
		remote = f.createMemoryBackend(config)
	case SQLiteBackend, PostgresBackend:
		repo, err := f.createSQLBackend(ctx, config)
		if err != nil {
			return nil, err
		}
		remote, ping = repo, repo.Ping
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	publisher := f.createPublisher(config)
	svc := services.NewRemoteService(remote, publisher, f.logger)

	f.logger.Info("Initialized backend",
		log.FieldBackend, config.Type.String(),
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Remote:  svc,
		Cleanup: svc.Close,
		Ping:    ping,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) *memory.Store {
	var opts []memory.Option
	if config.SessionTTL > 0 {
		opts = append(opts, memory.WithSessionTTL(config.SessionTTL))
	}
	if config.BcryptCost > 0 {
		opts = append(opts, memory.WithBcryptCost(config.BcryptCost))
	}
	f.logger.Warn("Using in-memory backend, data is lost on restart")
	return memory.New(opts...)
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, config Config) (*storage.Repository, error) {
	cfg := storage.Config{
		Dialect:    storage.DialectSQLite,
		DSN:        config.SQLiteDBPath,
		SessionTTL: config.SessionTTL,
		BcryptCost: config.BcryptCost,
		Logger:     f.logger,
	}
	if config.Type == PostgresBackend {
		cfg.Dialect = storage.DialectPostgres
		cfg.DSN = config.DatabaseURL
	}
	repo, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", config.Type, err)
	}
	return repo, nil
}

// createPublisher returns nil when AMQP is not configured or unreachable;
// the backend then works without events.
func (f *DefaultFactory) createPublisher(config Config) services.Publisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
