package orderserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// BasePath prefixes every order route.
const BasePath = "/api/v1"

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine adds the routes to an existing gin engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	group := router.Group(BasePath)
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		switch route.Method {
		case http.MethodGet:
			group.GET(route.Pattern, route.HandlerFunc)
		case http.MethodPost:
			group.POST(route.Pattern, route.HandlerFunc)
		case http.MethodPut:
			group.PUT(route.Pattern, route.HandlerFunc)
		case http.MethodDelete:
			group.DELETE(route.Pattern, route.HandlerFunc)
		}
	}
	return router
}

// DefaultHandleFunc answers routes whose handler is not wired.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

type ApiHandleFunctions struct {
	// Routes for the OrderAPI part of the API
	OrderAPI OrderAPI
	// Routes for the InvoiceAPI part of the API
	InvoiceAPI InvoiceAPI
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	return []Route{
		{
			"CreateOrder",
			http.MethodPost,
			"/orders",
			handleFunctions.OrderAPI.CreateOrder,
		},
		{
			"ListOrders",
			http.MethodGet,
			"/orders",
			handleFunctions.OrderAPI.ListOrders,
		},
		{
			"GetOrder",
			http.MethodGet,
			"/orders/:orderId",
			handleFunctions.OrderAPI.GetOrder,
		},
		{
			"UpdateOrderStatus",
			http.MethodPut,
			"/orders/:orderId/status",
			handleFunctions.OrderAPI.UpdateOrderStatus,
		},
		{
			"AddOrderNote",
			http.MethodPost,
			"/orders/:orderId/notes",
			handleFunctions.OrderAPI.AddOrderNote,
		},
		{
			"AppendShippingEvent",
			http.MethodPost,
			"/orders/:orderId/shipping-events",
			handleFunctions.OrderAPI.AppendShippingEvent,
		},
		{
			"RecordPaymentAttempt",
			http.MethodPost,
			"/orders/:orderId/payments",
			handleFunctions.OrderAPI.RecordPaymentAttempt,
		},
		{
			"ListInvoices",
			http.MethodGet,
			"/orders/:orderId/invoices",
			handleFunctions.InvoiceAPI.ListInvoices,
		},
		{
			"GenerateInvoice",
			http.MethodPost,
			"/orders/:orderId/invoice/generate",
			handleFunctions.InvoiceAPI.GenerateInvoice,
		},
		{
			"UploadInvoice",
			http.MethodPost,
			"/orders/:orderId/invoice/upload",
			handleFunctions.InvoiceAPI.UploadInvoice,
		},
		{
			"DeleteAdminInvoice",
			http.MethodDelete,
			"/orders/:orderId/invoice/admin",
			handleFunctions.InvoiceAPI.DeleteAdminInvoice,
		},
		{
			"DownloadInvoice",
			http.MethodGet,
			"/orders/:orderId/invoice/:kind",
			handleFunctions.InvoiceAPI.DownloadInvoice,
		},
	}
}
