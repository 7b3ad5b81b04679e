package orders

import (
	"go.temporal.io/sdk/workflow"

	orderactivities "github.com/Apurer/order-lifecycle-api/internal/platform/temporal/activities/orders"
	"github.com/Apurer/order-lifecycle-api/internal/platform/temporal/sequences"
)

const (
	// AutoInvoiceWorkflowName is the public identifier for registering the workflow.
	AutoInvoiceWorkflowName = "orders.workflows.AutoInvoice"
	// AutoInvoiceTaskQueue is the queue consumed by the worker generating invoices.
	AutoInvoiceTaskQueue = "ORDER_INVOICES"
)

// AutoInvoiceWorkflowInput captures the order whose invoice should be produced.
type AutoInvoiceWorkflowInput struct {
	OrderID string
	Actor   string
	TraceID string
}

// AutoInvoiceWorkflow produces the system invoice of an order, typically after payment capture.
func AutoInvoiceWorkflow(ctx workflow.Context, input AutoInvoiceWorkflowInput) (*orderactivities.GenerateAutoInvoiceResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("AutoInvoiceWorkflow started", withTraceID(input.TraceID, "orderId", input.OrderID)...)
	result, err := sequences.RunAutoInvoiceSequence(ctx, orderactivities.GenerateAutoInvoiceInput{
		OrderID: input.OrderID,
		Actor:   input.Actor,
	})
	if err != nil {
		logger.Error("AutoInvoiceWorkflow failed", withTraceID(input.TraceID, "orderId", input.OrderID, "error", err)...)
		return nil, err
	}
	logger.Info("AutoInvoiceWorkflow completed", withTraceID(input.TraceID, "orderId", input.OrderID, "invoiceNumber", result.InvoiceNumber)...)
	return result, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
