//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "order-lifecycle-api"
	ConsumerName = "admin-console"

	StateOrdersBaseline = "orders baseline"
	StateOrderPending   = "order 1001 is pending"
	StateOrderMissing   = "no order 404404"
)

const (
	ExistingOrderID = "1001"
	MissingOrderID  = "404404"
	AdminActor      = "admin-7"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the admin console consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleCreateOrderPayload is the order the consumer places in every interaction.
func ExampleCreateOrderPayload() map[string]any {
	return map[string]any{
		"customerId": "cust-pact",
		"items": []map[string]any{
			{"sku": "LAMP-1", "name": "Desk Lamp", "quantity": 2, "unitPrice": "12.50"},
		},
		"shippingMethod": "express",
		"shippingCost":   "4.00",
		"paymentMethod":  "card",
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
