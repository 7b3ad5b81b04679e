package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Apurer/order-lifecycle-api/internal/app/api"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
	platformobservability "github.com/Apurer/order-lifecycle-api/internal/platform/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN not set; in-memory reservations die with the API process, nothing to purge")
	}
	instruments, shutdown, err := platformobservability.Init(ctx, "order-reservation-purger")
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()
	logger := instruments.Logger

	stack, err := api.BuildOrderStack(ctx, cfg, instruments)
	if err != nil {
		log.Fatalf("failed to build order service: %v", err)
	}
	defer stack.Close()

	if cfg.ReservationPurgeInterval <= 0 {
		if err := purge(ctx, stack.Service, cfg.ReservationTTL, logger); err != nil {
			log.Fatalf("failed to purge reservations: %v", err)
		}
		return
	}

	ticker := time.NewTicker(cfg.ReservationPurgeInterval)
	defer ticker.Stop()
	for {
		if err := purge(ctx, stack.Service, cfg.ReservationTTL, logger); err != nil {
			logger.Error("reservation purge failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func purge(ctx context.Context, service ports.Service, ttl time.Duration, logger *slog.Logger) error {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	expired, err := service.ExpireReservations(runCtx, ttl)
	if err != nil {
		return err
	}
	logger.Info("reservation purge completed", slog.Int("expired", expired), slog.Duration("ttl", ttl))
	return nil
}
