package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	orderserver "github.com/Apurer/order-lifecycle-api/go"
	ordersworkflows "github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
	platformmetrics "github.com/Apurer/order-lifecycle-api/internal/platform/metrics"
	platformobservability "github.com/Apurer/order-lifecycle-api/internal/platform/observability"
	platformtemporal "github.com/Apurer/order-lifecycle-api/internal/platform/temporal"
)

const serviceName = "order-lifecycle-api"

// Run boots the order lifecycle HTTP API with observability, storage, hooks and workflows wired.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	stack, err := BuildOrderStack(ctx, cfg, instruments)
	if err != nil {
		return err
	}
	defer stack.Close()

	sender, closeSender := BuildNotificationSender(cfg, instruments.Component("notifications"))
	defer closeSender()
	notifications := ordersapp.NewNotificationHook(sender, logger)
	stack.AddHook(notifications)
	defer notifications.Wait()

	if cfg.AutoInvoiceOnCapture {
		var invoiceWorkflows ports.InvoiceWorkflows = ordersworkflows.NewInlineInvoiceWorkflows(stack.Service)
		temporalClient, err := platformtemporal.Dial(platformtemporal.ClientConfig{
			Address:   cfg.TemporalAddress,
			Namespace: cfg.TemporalNamespace,
			Disabled:  cfg.TemporalDisabled,
		}, instruments.Tracer("temporal-client"), logger)
		if err != nil {
			logger.Warn("Temporal workflows unavailable, generating auto invoices inline", slog.String("error", err.Error()))
		} else {
			defer temporalClient.Close()
			invoiceWorkflows = ordersworkflows.NewTemporalInvoiceWorkflows(temporalClient)
			logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
		}
		autoInvoice := ordersapp.NewAutoInvoiceHook(invoiceWorkflows, logger)
		stack.AddHook(autoInvoice)
		defer autoInvoice.Wait()
	}

	httpMetrics := platformmetrics.NewHTTPMetrics("orders")
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName), httpMetrics.Middleware())
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(httpMetrics.Handler()))
	orderserver.NewRouterWithGinEngine(router, orderserver.ApiHandleFunctions{
		OrderAPI:   orderserver.NewOrderAPI(stack.Service),
		InvoiceAPI: orderserver.NewInvoiceAPI(stack.Service, cfg.MaxUploadBytes),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("order lifecycle API listening", slog.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("order lifecycle API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down order lifecycle API")
		return server.Shutdown(shutdownCtx)
	}
}
