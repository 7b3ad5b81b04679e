package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	orderactivities "github.com/Apurer/order-lifecycle-api/internal/platform/temporal/activities/orders"
)

// RunAutoInvoiceSequence executes the activity that renders and stores an order's auto invoice.
// Rendering is retried with backoff; a concurrent generation surfaces as a retryable conflict.
func RunAutoInvoiceSequence(ctx workflow.Context, input orderactivities.GenerateAutoInvoiceInput) (*orderactivities.GenerateAutoInvoiceResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("auto invoice sequence started", "orderId", input.OrderID)
	options := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    6,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	var result orderactivities.GenerateAutoInvoiceResult
	err := workflow.ExecuteActivity(ctx, orderactivities.GenerateAutoInvoiceActivityName, input).Get(ctx, &result)
	if err != nil {
		logger.Error("auto invoice sequence failed", "orderId", input.OrderID, "error", err)
		return nil, err
	}
	logger.Info("auto invoice sequence completed", "orderId", input.OrderID, "invoiceNumber", result.InvoiceNumber, "alreadyExisted", result.AlreadyExisted)
	return &result, nil
}
