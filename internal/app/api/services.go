package api

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/idgen"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/lock"
	ordersmemory "github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/memory"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/notify"
	ordersobs "github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/observability"
	orderspostgres "github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/persistence/postgres"
	pdfrender "github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/render/pdf"
	ordersapp "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
	"github.com/Apurer/order-lifecycle-api/internal/platform/migrations"
	platformobservability "github.com/Apurer/order-lifecycle-api/internal/platform/observability"
	platformpostgres "github.com/Apurer/order-lifecycle-api/internal/platform/postgres"
	platformredis "github.com/Apurer/order-lifecycle-api/internal/platform/redis"
)

// OrderStack is the assembled order service plus the pieces callers may extend.
type OrderStack struct {
	// Core is the undecorated application service. Hooks are attached here.
	Core *ordersapp.Service
	// Service is Core wrapped with tracing, metrics and logging.
	Service ports.Service

	cleanups []func()
}

// AddHook registers a post-commit hook on the core service.
func (s *OrderStack) AddHook(hook ordersapp.PostCommitHook) {
	s.Core.AddHook(hook)
}

// Close releases connections in reverse order of acquisition.
func (s *OrderStack) Close() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
}

func (s *OrderStack) onClose(fn func()) {
	s.cleanups = append(s.cleanups, fn)
}

// BuildOrderStack wires storage, locking, id generation and rendering from cfg.
// Postgres and Redis are optional; when unset the in-process adapters are used.
func BuildOrderStack(ctx context.Context, cfg Config, instruments *platformobservability.Instruments) (*OrderStack, error) {
	logger := instruments.Component("orders")
	stack := &OrderStack{}

	ids, err := idgen.NewSnowflake(cfg.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("configure order ids: %w", err)
	}

	repo, blobs, idem := buildStorage(ctx, cfg, logger, stack)
	locker := buildLocker(ctx, cfg, logger, stack)

	stack.Core = ordersapp.NewService(
		ordersapp.Dependencies{
			Repository: repo,
			IDs:        ids,
			Locker:     locker,
			Blobs:      blobs,
			Renderer:   pdfrender.NewRenderer(),
		},
		ordersapp.WithPolicy(domain.Policy{AllowCancelAfterShipment: cfg.AllowCancelAfterShipment}),
		ordersapp.WithSettings(ordersapp.Settings{
			LockWait:       cfg.LockWait,
			RenderTimeout:  cfg.RenderTimeout,
			MaxUploadBytes: cfg.MaxUploadBytes,
			SellerName:     cfg.SellerName,
		}),
		ordersapp.WithIdempotencyStore(idem),
		ordersapp.WithLogger(logger),
	)
	stack.Service = ordersobs.New(
		stack.Core,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)
	return stack, nil
}

func buildStorage(ctx context.Context, cfg Config, logger *slog.Logger, stack *OrderStack) (ports.Repository, ports.BlobStore, ports.IdempotencyStore) {
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory order repository and blob store")
		return ordersmemory.NewRepository(), ordersmemory.NewBlobStore(), ordersmemory.NewIdempotencyStore()
	}
	db, err := platformpostgres.Connect(ctx, platformpostgres.Options{
		DSN:          cfg.PostgresDSN,
		MaxOpenConns: cfg.PostgresMaxConns,
	})
	if err != nil {
		logger.Warn("failed to connect to postgres, falling back to memory", slog.String("error", err.Error()))
		return ordersmemory.NewRepository(), ordersmemory.NewBlobStore(), ordersmemory.NewIdempotencyStore()
	}
	if err := migrations.Run(db); err != nil {
		logger.Warn("failed to migrate order schema, falling back to memory", slog.String("error", err.Error()))
		closeDB(db)
		return ordersmemory.NewRepository(), ordersmemory.NewBlobStore(), ordersmemory.NewIdempotencyStore()
	}
	stack.onClose(func() { closeDB(db) })
	logger.Info("order repository configured with postgres")
	return orderspostgres.NewRepository(db), orderspostgres.NewBlobStore(db), orderspostgres.NewIdempotencyStore(db)
}

func buildLocker(ctx context.Context, cfg Config, logger *slog.Logger, stack *OrderStack) ports.Locker {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, using process-local order locks")
		return lock.NewKeyedMutex()
	}
	client, err := platformredis.Connect(ctx, platformredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("failed to connect to redis, using process-local order locks", slog.String("error", err.Error()))
		return lock.NewKeyedMutex()
	}
	stack.onClose(func() { _ = client.Close() })
	logger.Info("order locks configured with redis", slog.String("addr", cfg.RedisAddr))
	return lock.NewRedisLocker(client, 0)
}

// BuildNotificationSender publishes to Kafka when brokers are configured and logs otherwise.
func BuildNotificationSender(cfg Config, logger *slog.Logger) (ports.NotificationSender, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return notify.NewLogSender(logger), func() {}
	}
	sender, err := notify.NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaNotificationTopic, logger)
	if err != nil {
		logger.Warn("failed to connect to kafka, logging notifications instead", slog.String("error", err.Error()))
		return notify.NewLogSender(logger), func() {}
	}
	logger.Info("notifications published to kafka", slog.String("topic", cfg.KafkaNotificationTopic))
	return sender, func() { _ = sender.Close() }
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
