package workflows

import (
	"context"
	"errors"
	"fmt"

	oteltrace "go.opentelemetry.io/otel/trace"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	ordersapp "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application"
	ordertypes "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application/types"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
	orderworkflows "github.com/Apurer/order-lifecycle-api/internal/platform/temporal/workflows/orders"
)

var (
	_ ports.InvoiceWorkflows = (*TemporalInvoiceWorkflows)(nil)
	_ ports.InvoiceWorkflows = (*InlineInvoiceWorkflows)(nil)
)

// workflowStarter is the subset of client.Client used to start invoice workflows.
type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// TemporalInvoiceWorkflows starts invoice workflows on a Temporal cluster.
type TemporalInvoiceWorkflows struct {
	client    workflowStarter
	taskQueue string
}

// NewTemporalInvoiceWorkflows wires a Temporal client into the orchestrator.
func NewTemporalInvoiceWorkflows(c client.Client) *TemporalInvoiceWorkflows {
	return &TemporalInvoiceWorkflows{client: c, taskQueue: orderworkflows.AutoInvoiceTaskQueue}
}

// GenerateAutoInvoice starts the auto invoice workflow and returns once it is
// accepted. The workflow id is derived from the order so a second dispatch
// for the same order is absorbed by Temporal.
func (o *TemporalInvoiceWorkflows) GenerateAutoInvoice(ctx context.Context, orderID, actor string) error {
	if o == nil || o.client == nil {
		return errors.New("temporal invoice workflows not configured")
	}
	options := client.StartWorkflowOptions{
		ID:                    AutoInvoiceWorkflowID(orderID),
		TaskQueue:             o.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}
	_, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		orderworkflows.AutoInvoiceWorkflow,
		orderworkflows.AutoInvoiceWorkflowInput{OrderID: orderID, Actor: actor, TraceID: workflowTraceID(ctx)},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return nil
		}
		return err
	}
	return nil
}

// AutoInvoiceWorkflowID is the deterministic workflow id for an order's auto invoice.
func AutoInvoiceWorkflowID(orderID string) string {
	return fmt.Sprintf("order-auto-invoice-%s", orderID)
}

// InlineInvoiceWorkflows executes the service directly without Temporal, useful for tests or dev fallbacks.
type InlineInvoiceWorkflows struct {
	service ports.Service
}

// NewInlineInvoiceWorkflows wraps the order service for synchronous execution.
func NewInlineInvoiceWorkflows(service ports.Service) *InlineInvoiceWorkflows {
	return &InlineInvoiceWorkflows{service: service}
}

// GenerateAutoInvoice delegates to the application service. An invoice that
// already exists is not an error.
func (o *InlineInvoiceWorkflows) GenerateAutoInvoice(ctx context.Context, orderID, actor string) error {
	if o == nil || o.service == nil {
		return errors.New("inline invoice workflows not configured")
	}
	_, err := o.service.GenerateAutoInvoice(ctx, ordertypes.GenerateInvoiceInput{OrderID: orderID, Actor: actor})
	if errors.Is(err, ordersapp.ErrAlreadyExists) {
		return nil
	}
	return err
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
