package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/Apurer/order-lifecycle-api/internal/domains/orders/ports"
)

const dateLayout = "2006-01-02"

var _ ports.Renderer = (*Renderer)(nil)

// Renderer lays out invoices as PDF with maroto.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

// Render builds the document in a separate goroutine so a slow layout
// cannot outlive ctx.
func (r *Renderer) Render(ctx context.Context, doc ports.InvoiceDocument) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := build(doc)
		done <- result{data: data, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.data, res.err
	}
}

func build(doc ports.InvoiceDocument) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(8, doc.SellerName, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, "Invoice", props.Text{Size: 20, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(22,
		col.New(6).Add(
			text.New("Invoice number: "+doc.InvoiceNumber, props.Text{Top: 0}),
			text.New("Order: "+doc.OrderNumber, props.Text{Top: 5}),
			text.New("Date of issue: "+doc.IssuedAt.Format(dateLayout), props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New("Customer "+doc.CustomerID, props.Text{Top: 5, Align: align.Right}),
			text.New("Paid by "+doc.PaymentMethod, props.Text{Top: 10, Align: align.Right}),
		),
	)

	m.AddRow(8,
		text.NewCol(2, "SKU", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range doc.Lines {
		m.AddRow(7,
			text.NewCol(2, line.SKU, props.Text{Size: 9}),
			text.NewCol(4, line.Name, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", line.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(line.UnitPrice), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(line.Total), props.Text{Size: 9, Align: align.Right}),
		)
	}

	totals := []struct {
		label string
		value decimal.Decimal
	}{
		{"Subtotal", doc.Pricing.Subtotal},
		{"Discount", doc.Pricing.Discount.Neg()},
		{"Shipping (" + doc.ShippingMethod + ")", doc.Pricing.Shipping},
		{"Tax", doc.Pricing.Tax},
	}
	for _, row := range totals {
		m.AddRow(7,
			col.New(7),
			text.NewCol(3, row.label, props.Text{Size: 9}),
			text.NewCol(2, money(row.value), props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(9,
		col.New(7),
		text.NewCol(3, "Total", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(2, money(doc.Pricing.Total), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	document, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invoice %s: %w", doc.InvoiceNumber, err)
	}
	return document.GetBytes(), nil
}

func money(v decimal.Decimal) string {
	return v.StringFixed(2)
}
