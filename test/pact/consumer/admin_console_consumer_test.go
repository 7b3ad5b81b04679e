//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	pacttest "github.com/Apurer/order-lifecycle-api/test/pact"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"
)

type orderPayload struct {
	ID          string `json:"id"`
	OrderNumber string `json:"orderNumber"`
	Status      string `json:"status"`
}

type invoicePayload struct {
	Kind          string `json:"kind"`
	InvoiceNumber string `json:"invoiceNumber"`
	DownloadPath  string `json:"downloadPath"`
}

type problemDetail struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Status        int    `json:"status"`
	Detail        string `json:"detail"`
	CurrentStatus string `json:"currentStatus"`
	TargetStatus  string `json:"targetStatus"`
}

type apiError struct {
	problem problemDetail
}

func (e apiError) Error() string {
	msg := e.problem.Title
	if msg == "" {
		msg = "api error"
	}
	if e.problem.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.problem.Detail)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.problem.Status)
}

func TestAdminConsoleContract(t *testing.T) {
	t.Helper()
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	orderBody := matchers.Map{
		"id":          matchers.Like(pacttest.ExistingOrderID),
		"orderNumber": matchers.Like("ORD-" + pacttest.ExistingOrderID),
		"customerId":  matchers.Like("cust-pact"),
		"status":      matchers.Term("pending", "pending|confirmed|processing|shipped|delivered|cancelled|refunded"),
		"pricing": matchers.Like(map[string]any{
			"total": "29",
		}),
		"timeline": matchers.ArrayMinLike(map[string]any{
			"event":   matchers.Like("order_created"),
			"message": matchers.Like("Order placed"),
		}, 1),
	}

	pact.AddInteraction().
		Given(pacttest.StateOrdersBaseline).
		UponReceiving("a request to place an order").
		WithRequest("POST", "/api/v1/orders", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.Header("X-Actor-ID", matchers.S(pacttest.AdminActor))
			b.JSONBody(pacttest.ExampleCreateOrderPayload())
		}).
		WillRespondWith(http.StatusCreated, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(orderBody)
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderPending).
		UponReceiving("a request to fetch an existing order").
		WithRequest("GET", "/api/v1/orders/"+pacttest.ExistingOrderID).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(orderBody)
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderMissing).
		UponReceiving("a request for a missing order").
		WithRequest("GET", "/api/v1/orders/"+pacttest.MissingOrderID).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/not-found"),
				"title":  matchers.S("Resource Not Found"),
				"status": matchers.Like(http.StatusNotFound),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderPending).
		UponReceiving("a request to skip straight to delivered").
		WithRequest("PUT", "/api/v1/orders/"+pacttest.ExistingOrderID+"/status", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.Header("X-Actor-ID", matchers.S(pacttest.AdminActor))
			b.JSONBody(map[string]any{"status": "delivered"})
		}).
		WillRespondWith(http.StatusBadRequest, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(matchers.Map{
				"type":          matchers.S("/problems/invalid-transition"),
				"status":        matchers.Like(http.StatusBadRequest),
				"currentStatus": matchers.S("pending"),
				"targetStatus":  matchers.S("delivered"),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderPending).
		UponReceiving("a request to generate the auto invoice").
		WithRequest("POST", "/api/v1/orders/"+pacttest.ExistingOrderID+"/invoice/generate", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("X-Actor-ID", matchers.S(pacttest.AdminActor))
		}).
		WillRespondWith(http.StatusCreated, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"kind":          matchers.S("auto_generated"),
				"invoiceNumber": matchers.Term("INV-AUTO-"+pacttest.ExistingOrderID, "^INV-AUTO-.+"),
				"issuedBy":      matchers.Like(pacttest.AdminActor),
				"contentType":   matchers.S("application/pdf"),
				"downloadPath":  matchers.S("/api/v1/orders/" + pacttest.ExistingOrderID + "/invoice/auto_generated"),
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		client := newConsoleClient(config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		created, err := client.PlaceOrder(ctx, pacttest.ExampleCreateOrderPayload())
		if err != nil {
			return fmt.Errorf("place order: %w", err)
		}
		if created.ID == "" || created.Status != "pending" {
			return fmt.Errorf("expected a pending order with an id, got %+v", created)
		}

		fetched, err := client.GetOrder(ctx, pacttest.ExistingOrderID)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if fetched.ID != pacttest.ExistingOrderID {
			return fmt.Errorf("expected order %s, got %+v", pacttest.ExistingOrderID, fetched)
		}

		_, err = client.GetOrder(ctx, pacttest.MissingOrderID)
		if apiErr, ok := err.(apiError); !ok || apiErr.problem.Status != http.StatusNotFound {
			return fmt.Errorf("expected 404 for order %s, got %v", pacttest.MissingOrderID, err)
		}

		err = client.UpdateStatus(ctx, pacttest.ExistingOrderID, "delivered")
		apiErr, ok := err.(apiError)
		if !ok || apiErr.problem.CurrentStatus != "pending" || apiErr.problem.TargetStatus != "delivered" {
			return fmt.Errorf("expected invalid transition pending -> delivered, got %v", err)
		}

		invoice, err := client.GenerateInvoice(ctx, pacttest.ExistingOrderID)
		if err != nil {
			return fmt.Errorf("generate invoice: %w", err)
		}
		if invoice.Kind != "auto_generated" || invoice.DownloadPath == "" {
			return fmt.Errorf("unexpected invoice %+v", invoice)
		}
		return nil
	})
	require.NoError(t, err)
}

type consoleClient struct {
	baseURL    string
	httpClient *http.Client
}

func newConsoleClient(config pactconsumer.MockServerConfig) *consoleClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	client := &http.Client{Transport: transport, Timeout: 10 * time.Second}
	return &consoleClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		httpClient: client,
	}
}

func (c *consoleClient) PlaceOrder(ctx context.Context, payload map[string]any) (*orderPayload, error) {
	var out orderPayload
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *consoleClient) GetOrder(ctx context.Context, id string) (*orderPayload, error) {
	var out orderPayload
	if err := c.do(ctx, http.MethodGet, "/api/v1/orders/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *consoleClient) UpdateStatus(ctx context.Context, id, status string) error {
	return c.do(ctx, http.MethodPut, "/api/v1/orders/"+id+"/status", map[string]any{"status": status}, nil)
}

func (c *consoleClient) GenerateInvoice(ctx context.Context, id string) (*invoicePayload, error) {
	var out invoicePayload
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders/"+id+"/invoice/generate", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *consoleClient) do(ctx context.Context, method, path string, body any, out any) error {
	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("X-Actor-ID", pacttest.AdminActor)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(res)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func decodeAPIError(res *http.Response) error {
	var problem problemDetail
	_ = json.NewDecoder(res.Body).Decode(&problem)
	if problem.Status == 0 {
		problem.Status = res.StatusCode
	}
	return apiError{problem: problem}
}
