//go:build pact
// +build pact

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	pacttest "github.com/Apurer/order-lifecycle-api/test/pact"

	"github.com/gin-gonic/gin"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	orderserver "github.com/Apurer/order-lifecycle-api/go"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/lock"
	ordersmemory "github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/memory"
	ordersobs "github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/observability"
	pdfrender "github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/render/pdf"
	ordersapp "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application"
	ordertypes "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application/types"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

func TestOrderLifecycleProviderPact(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	verifier := pactprovider.NewVerifier()
	stateHandlers := models.StateHandlers{
		pacttest.StateOrdersBaseline: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(pacttest.ExistingOrderID)
			return nil, nil
		},
		pacttest.StateOrderPending: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(pacttest.ExistingOrderID)
			if setup {
				return nil, app.seedOrder()
			}
			return nil, nil
		},
		pacttest.StateOrderMissing: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(pacttest.ExistingOrderID)
			return nil, nil
		},
	}

	err := verifier.VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers:   stateHandlers,
		BeforeEach: func() error {
			app.reset(pacttest.ExistingOrderID)
			return nil
		},
	})
	require.NoError(t, err)
}

// nextID hands out a fixed order id so interactions can address the seeded order.
type nextID struct {
	mu sync.Mutex
	id string
}

func (n *nextID) NewOrderID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.id
}

type contractProviderApp struct {
	mu      sync.RWMutex
	router  *gin.Engine
	service ports.Service
	server  *httptest.Server
}

func newContractProviderApp(t testing.TB) *contractProviderApp {
	t.Helper()
	app := &contractProviderApp{}
	app.reset(pacttest.ExistingOrderID)
	app.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.mu.RLock()
		router := app.router
		app.mu.RUnlock()
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(app.server.Close)
	return app
}

// reset swaps in a fresh in-memory service so each interaction starts empty.
func (a *contractProviderApp) reset(id string) {
	service := ordersobs.New(ordersapp.NewService(ordersapp.Dependencies{
		Repository: ordersmemory.NewRepository(),
		IDs:        &nextID{id: id},
		Locker:     lock.NewKeyedMutex(),
		Blobs:      ordersmemory.NewBlobStore(),
		Renderer:   pdfrender.NewRenderer(),
	}))
	router := gin.New()
	router.Use(gin.Recovery())
	router = orderserver.NewRouterWithGinEngine(router, orderserver.ApiHandleFunctions{
		OrderAPI:   orderserver.NewOrderAPI(service),
		InvoiceAPI: orderserver.NewInvoiceAPI(service, 0),
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	a.router = router
	a.service = service
}

func (a *contractProviderApp) seedOrder() error {
	a.mu.RLock()
	service := a.service
	a.mu.RUnlock()
	_, err := service.CreateOrder(context.Background(), ordertypes.CreateOrderInput{
		CustomerID: "cust-pact",
		Items: []ordertypes.ItemInput{
			{SKU: "LAMP-1", Name: "Desk Lamp", Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
		},
		ShippingMethod: "express",
		ShippingCost:   decimal.RequireFromString("4.00"),
		PaymentMethod:  "card",
		Actor:          pacttest.AdminActor,
	})
	return err
}
