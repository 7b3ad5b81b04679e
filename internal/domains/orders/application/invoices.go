package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	types "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application/types"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/domain"
	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

const pdfContentType = "application/pdf"

// GenerateAutoInvoice renders and stores the system invoice for an order.
// The auto slot is reserved first so concurrent callers get a conflict
// instead of a second render; any failure releases the reservation.
func (s *Service) GenerateAutoInvoice(ctx context.Context, input types.GenerateInvoiceInput) (domain.AutoInvoice, error) {
	token := uuid.NewString()
	reserved, err := s.mutate(ctx, input.OrderID, func(order *domain.Order) error {
		return order.ReserveAutoInvoice(token, input.Actor, s.now())
	})
	if err != nil {
		return domain.AutoInvoice{}, err
	}

	release := func(cause error) error {
		_, relErr := s.mutate(context.WithoutCancel(ctx), input.OrderID, func(order *domain.Order) error {
			if !order.ReleaseAutoInvoice(token) {
				return errSkipSave
			}
			return nil
		})
		if relErr != nil {
			s.logger.WarnContext(ctx, "release invoice reservation failed",
				slog.String("order_id", input.OrderID), slog.Any("error", relErr))
		}
		return cause
	}

	number := domain.AutoInvoiceNumber(reserved.Number())
	issuedAt := s.now().UTC()
	doc := invoiceDocument(reserved, number, s.settings.SellerName)
	doc.IssuedAt = issuedAt

	renderCtx, cancel := context.WithTimeout(ctx, s.settings.RenderTimeout)
	pdf, err := s.renderer.Render(renderCtx, doc)
	timedOut := errors.Is(renderCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		if timedOut || errors.Is(err, context.DeadlineExceeded) {
			return domain.AutoInvoice{}, release(fmt.Errorf("%w: rendering %s: %w", ErrTimeout, number, err))
		}
		return domain.AutoInvoice{}, release(fmt.Errorf("%w: %w", ErrRender, err))
	}

	ref, err := s.blobs.Put(ctx, ports.Blob{
		Key:         blobKey(input.OrderID, domain.InvoiceKindAuto, token),
		ContentType: pdfContentType,
		Data:        pdf,
	})
	if err != nil {
		return domain.AutoInvoice{}, release(storeFailure(ctx, number, err))
	}

	invoice := domain.AutoInvoice{
		Number:      number,
		GeneratedAt: issuedAt,
		GeneratedBy: input.Actor,
		Document:    ref,
	}
	if _, err := s.mutate(ctx, input.OrderID, func(order *domain.Order) error {
		return order.CommitAutoInvoice(token, invoice, s.now())
	}); err != nil {
		s.deleteBlob(ctx, ref)
		return domain.AutoInvoice{}, release(err)
	}
	return invoice, nil
}

// UploadAdminInvoice stores an uploaded PDF and swaps it into the admin slot.
// The new document is written before the swap and the old one is removed
// only after the swap commits.
func (s *Service) UploadAdminInvoice(ctx context.Context, input types.UploadAdminInvoiceInput) (domain.AdminInvoice, error) {
	if err := s.validateUpload(input); err != nil {
		return domain.AdminInvoice{}, err
	}
	if _, err := s.repo.GetByID(ctx, input.OrderID); err != nil {
		return domain.AdminInvoice{}, mapError(err)
	}

	ref, err := s.blobs.Put(ctx, ports.Blob{
		Key:         blobKey(input.OrderID, domain.InvoiceKindAdmin, uuid.NewString()),
		ContentType: pdfContentType,
		Data:        input.Data,
	})
	if err != nil {
		return domain.AdminInvoice{}, storeFailure(ctx, "admin invoice", err)
	}

	invoice := domain.AdminInvoice{
		Number:     strings.TrimSpace(input.InvoiceNumber),
		UploadedAt: s.now().UTC(),
		UploadedBy: strings.TrimSpace(input.UploadedBy),
		FileName:   input.FileName,
		Notes:      input.Notes,
		Document:   ref,
	}
	var previous *domain.AdminInvoice
	if _, err := s.mutate(ctx, input.OrderID, func(order *domain.Order) error {
		prev, err := order.ReplaceAdminInvoice(invoice, s.now())
		previous = prev
		return err
	}); err != nil {
		s.deleteBlob(ctx, ref)
		return domain.AdminInvoice{}, err
	}
	if previous != nil && previous.Document.Key != ref.Key {
		s.deleteBlob(ctx, previous.Document)
	}
	return invoice, nil
}

// DeleteAdminInvoice clears the admin slot and removes its document.
func (s *Service) DeleteAdminInvoice(ctx context.Context, input types.DeleteAdminInvoiceInput) error {
	var removed domain.AdminInvoice
	if _, err := s.mutate(ctx, input.OrderID, func(order *domain.Order) error {
		inv, err := order.RemoveAdminInvoice(s.now())
		removed = inv
		return err
	}); err != nil {
		return err
	}
	s.deleteBlob(ctx, removed.Document)
	return nil
}

// ListInvoices returns the present invoice references, auto first.
func (s *Service) ListInvoices(ctx context.Context, orderID string) ([]domain.InvoiceReference, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapError(err)
	}
	return order.Invoices().List(), nil
}

// DownloadInvoice opens the stored document of the requested slot.
func (s *Service) DownloadInvoice(ctx context.Context, input types.DownloadInvoiceInput) (*types.InvoiceDownload, error) {
	kind, err := domain.ParseInvoiceKind(input.Kind)
	if err != nil {
		return nil, mapError(err)
	}
	order, err := s.repo.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, mapError(err)
	}
	ref, ok := order.Invoices().Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: no %s invoice for order %s", ErrNotFound, kind, input.OrderID)
	}
	content, err := s.blobs.Get(ctx, ref.Blob())
	if err != nil {
		return nil, mapError(err)
	}
	return &types.InvoiceDownload{Reference: ref, Content: content}, nil
}

func (s *Service) validateUpload(input types.UploadAdminInvoiceInput) error {
	size := int64(len(input.Data))
	if size == 0 {
		return fmt.Errorf("%w: invoice file is empty", ErrInvalidInput)
	}
	if size > s.settings.MaxUploadBytes {
		return fmt.Errorf("%w: invoice file exceeds %d bytes", ErrInvalidInput, s.settings.MaxUploadBytes)
	}
	if detected := mimetype.Detect(input.Data); !detected.Is(pdfContentType) {
		return fmt.Errorf("%w: invoice file must be a PDF, got %s", ErrInvalidInput, detected.String())
	}
	if err := domain.ValidateAdminInvoiceNumber(input.InvoiceNumber); err != nil {
		return mapError(err)
	}
	if strings.TrimSpace(input.UploadedBy) == "" {
		return mapError(domain.ErrMissingUploader)
	}
	return nil
}

func (s *Service) deleteBlob(ctx context.Context, ref domain.BlobRef) {
	if ref.Key == "" {
		return
	}
	if err := s.blobs.Delete(context.WithoutCancel(ctx), ref); err != nil && !errors.Is(err, ports.ErrBlobNotFound) {
		s.logger.WarnContext(ctx, "delete invoice document failed",
			slog.String("blob_key", ref.Key), slog.Any("error", err))
	}
}

func blobKey(orderID string, kind domain.InvoiceKind, unique string) string {
	return fmt.Sprintf("orders/%s/invoices/%s/%s.pdf", orderID, kind, unique)
}

func invoiceDocument(order *domain.Order, number, seller string) ports.InvoiceDocument {
	items := order.Items()
	lines := make([]ports.InvoiceLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, ports.InvoiceLine{
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.LineTotal(),
		})
	}
	return ports.InvoiceDocument{
		InvoiceNumber:  number,
		OrderNumber:    order.Number(),
		CustomerID:     order.CustomerID(),
		SellerName:     seller,
		PaymentMethod:  order.Payment().Method,
		ShippingMethod: order.ShippingMethod().Name,
		Lines:          lines,
		Pricing:        order.Pricing(),
	}
}

// storeFailure classifies a failed blob write. An expired or cancelled caller
// context is a timeout rather than a storage fault.
func storeFailure(ctx context.Context, what string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: storing %s: %w", ErrTimeout, what, err)
	}
	return fmt.Errorf("%w: storing %s: %w", ErrStorage, what, err)
}
