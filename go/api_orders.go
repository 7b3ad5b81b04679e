package orderserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	ordermapper "github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/http/mapper"
	ordertypes "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application/types"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
	apierrors "github.com/Apurer/order-lifecycle-api/internal/shared/errors"
)

const (
	// ActorHeader carries the authenticated caller id set by the gateway.
	ActorHeader = "X-Actor-ID"
	// IdempotencyKeyHeader lets clients retry order placement safely.
	IdempotencyKeyHeader = "Idempotency-Key"
)

// OrderAPI wires HTTP transport with the orders bounded context service.
type OrderAPI struct {
	service ports.Service
}

// NewOrderAPI creates an OrderAPI backed by the provided service.
func NewOrderAPI(service ports.Service) OrderAPI {
	return OrderAPI{service: service}
}

// Post /api/v1/orders
// Places a new order
func (api *OrderAPI) CreateOrder(c *gin.Context) {
	var payload ordermapper.CreateOrder
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	input := ordermapper.ToCreateOrderInput(payload, actorFrom(c))
	input.IdempotencyKey = strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	order, err := api.service.CreateOrder(c.Request.Context(), input)
	if err != nil {
		respondOrderServiceError(c, err)
		return
	}
	c.Header("Location", BasePath+"/orders/"+order.ID())
	c.JSON(http.StatusCreated, ordermapper.FromDomainOrder(order))
}

// Get /api/v1/orders
// Lists orders, newest first
func (api *OrderAPI) ListOrders(c *gin.Context) {
	input := ordertypes.ListOrdersInput{Status: strings.TrimSpace(c.Query("status"))}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondProblem(c, apierrors.ErrBadRequest.WithDetail("limit must be a non-negative integer"))
			return
		}
		input.Limit = limit
	}
	orders, err := api.service.ListOrders(c.Request.Context(), input)
	if err != nil {
		respondOrderServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrders(orders))
}

// Get /api/v1/orders/:orderId
// Returns the full order snapshot
func (api *OrderAPI) GetOrder(c *gin.Context) {
	order, err := api.service.GetOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondOrderServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrder(order))
}

// Put /api/v1/orders/:orderId/status
// Requests a status transition
func (api *OrderAPI) UpdateOrderStatus(c *gin.Context) {
	var payload ordermapper.StatusUpdate
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	input := ordermapper.ToTransitionInput(c.Param("orderId"), payload, actorFrom(c))
	order, err := api.service.RequestTransition(c.Request.Context(), input)
	if err != nil {
		respondOrderServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrder(order))
}

// Post /api/v1/orders/:orderId/notes
// Adds an internal admin note
func (api *OrderAPI) AddOrderNote(c *gin.Context) {
	var payload ordermapper.NewNote
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := api.service.AddAdminNote(c.Request.Context(), ordertypes.AdminNoteInput{
		OrderID: c.Param("orderId"),
		Text:    payload.Note,
		Author:  actorFrom(c),
	})
	if err != nil {
		respondOrderServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ordermapper.FromDomainOrder(order))
}

// Post /api/v1/orders/:orderId/shipping-events
// Carrier webhook
func (api *OrderAPI) AppendShippingEvent(c *gin.Context) {
	var payload ordermapper.CarrierEvent
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := api.service.AppendShippingEvent(c.Request.Context(), ordermapper.ToShippingEventInput(c.Param("orderId"), payload))
	if err != nil {
		respondOrderServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ordermapper.FromDomainOrder(order))
}

// Post /api/v1/orders/:orderId/payments
// Payment gateway webhook
func (api *OrderAPI) RecordPaymentAttempt(c *gin.Context) {
	var payload ordermapper.PaymentCallback
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBindError(c, err)
		return
	}
	input := ordermapper.ToPaymentAttemptInput(c.Param("orderId"), payload, actorFrom(c))
	order, err := api.service.RecordPaymentAttempt(c.Request.Context(), input)
	if err != nil {
		respondOrderServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrder(order))
}

func actorFrom(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(ActorHeader))
}
