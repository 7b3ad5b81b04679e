package orderserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	ordermapper "github.com/Apurer/order-lifecycle-api/internal/domains/orders/adapters/http/mapper"
	ordertypes "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application/types"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
	apierrors "github.com/Apurer/order-lifecycle-api/internal/shared/errors"
)

// DefaultMaxUploadBytes bounds admin invoice uploads when no limit is configured.
const DefaultMaxUploadBytes int64 = 5 << 20

// InvoiceAPI serves the auto and admin invoice slots of an order.
type InvoiceAPI struct {
	service        ports.Service
	maxUploadBytes int64
}

// NewInvoiceAPI creates an InvoiceAPI. A non-positive limit uses DefaultMaxUploadBytes.
func NewInvoiceAPI(service ports.Service, maxUploadBytes int64) InvoiceAPI {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return InvoiceAPI{service: service, maxUploadBytes: maxUploadBytes}
}

// Get /api/v1/orders/:orderId/invoices
// Lists invoice references
func (api *InvoiceAPI) ListInvoices(c *gin.Context) {
	orderID := c.Param("orderId")
	refs, err := api.service.ListInvoices(c.Request.Context(), orderID)
	if err != nil {
		respondOrderServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromInvoiceReferences(orderID, refs))
}

// Post /api/v1/orders/:orderId/invoice/generate
// Generates the auto invoice once
func (api *InvoiceAPI) GenerateInvoice(c *gin.Context) {
	orderID := c.Param("orderId")
	invoice, err := api.service.GenerateAutoInvoice(c.Request.Context(), ordertypes.GenerateInvoiceInput{
		OrderID: orderID,
		Actor:   actorFrom(c),
	})
	if err != nil {
		respondOrderServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ordermapper.FromInvoiceReference(orderID, invoice))
}

// Post /api/v1/orders/:orderId/invoice/upload
// Replaces the admin invoice with an uploaded PDF
func (api *InvoiceAPI) UploadInvoice(c *gin.Context) {
	orderID := c.Param("orderId")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, api.maxUploadBytes+(1<<20))
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondProblem(c, apierrors.ErrPayloadTooLarge.WithDetail(fmt.Sprintf("upload exceeds %d bytes", api.maxUploadBytes)))
			return
		}
		respondProblem(c, apierrors.ErrBadRequest.WithDetail("multipart field 'file' is required"))
		return
	}
	if file.Size > api.maxUploadBytes {
		respondProblem(c, apierrors.ErrPayloadTooLarge.WithDetail(fmt.Sprintf("upload exceeds %d bytes", api.maxUploadBytes)))
		return
	}
	src, err := file.Open()
	if err != nil {
		respondProblem(c, apierrors.ErrBadRequest.WithDetail("uploaded file is unreadable"))
		return
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, api.maxUploadBytes+1))
	if err != nil {
		respondProblem(c, apierrors.ErrBadRequest.WithDetail("uploaded file is unreadable"))
		return
	}

	invoice, err := api.service.UploadAdminInvoice(c.Request.Context(), ordertypes.UploadAdminInvoiceInput{
		OrderID:       orderID,
		InvoiceNumber: strings.TrimSpace(c.PostForm("invoiceNumber")),
		Notes:         c.PostForm("notes"),
		FileName:      filepath.Base(file.Filename),
		UploadedBy:    actorFrom(c),
		Data:          data,
	})
	if err != nil {
		respondOrderServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromInvoiceReference(orderID, invoice))
}

// Delete /api/v1/orders/:orderId/invoice/admin
// Removes the admin invoice
func (api *InvoiceAPI) DeleteAdminInvoice(c *gin.Context) {
	orderID := c.Param("orderId")
	err := api.service.DeleteAdminInvoice(c.Request.Context(), ordertypes.DeleteAdminInvoiceInput{
		OrderID: orderID,
		Actor:   actorFrom(c),
	})
	if err != nil {
		respondOrderServiceError(c, err)
		return
	}
	refs, err := api.service.ListInvoices(c.Request.Context(), orderID)
	if err != nil {
		respondOrderServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromInvoiceReferences(orderID, refs))
}

// Get /api/v1/orders/:orderId/invoice/:kind
// Streams the stored PDF
func (api *InvoiceAPI) DownloadInvoice(c *gin.Context) {
	download, err := api.service.DownloadInvoice(c.Request.Context(), ordertypes.DownloadInvoiceInput{
		OrderID: c.Param("orderId"),
		Kind:    c.Param("kind"),
	})
	if err != nil {
		respondOrderServiceError(c, err)
		return
	}
	defer download.Content.Close()

	blob := download.Reference.Blob()
	contentType := blob.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s.pdf"`, download.Reference.InvoiceNumber()),
	}
	if blob.Checksum != "" {
		headers["ETag"] = `"` + blob.Checksum + `"`
	}
	c.DataFromReader(http.StatusOK, blob.Size, contentType, download.Content, headers)
}
