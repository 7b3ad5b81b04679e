package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	types "github.com/Apurer/order-lifecycle-api/internal/domains/orders/application/types"
)

type normalizedCreateOrder struct {
	CustomerID     string           `json:"customerId"`
	Items          []normalizedItem `json:"items"`
	Discount       string           `json:"discount"`
	Tax            string           `json:"tax"`
	ShippingMethod string           `json:"shippingMethod"`
	ShippingCost   string           `json:"shippingCost"`
	PaymentMethod  string           `json:"paymentMethod"`
	FraudScore     int              `json:"fraudScore"`
	RiskFlags      []string         `json:"riskFlags"`
}

type normalizedItem struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

// FingerprintCreateOrder builds a deterministic hash of the order payload (excluding the
// idempotency key and the actor). Amounts are compared by value so "12.5" equals "12.50".
func FingerprintCreateOrder(input types.CreateOrderInput) (string, error) {
	payload, err := json.Marshal(normalizeCreateOrder(input))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func normalizeCreateOrder(input types.CreateOrderInput) normalizedCreateOrder {
	items := make([]normalizedItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, normalizedItem{
			SKU:       strings.TrimSpace(item.SKU),
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.String(),
		})
	}
	flags := append([]string(nil), input.RiskFlags...)
	sort.Strings(flags)
	return normalizedCreateOrder{
		CustomerID:     strings.TrimSpace(input.CustomerID),
		Items:          items,
		Discount:       input.Discount.String(),
		Tax:            input.Tax.String(),
		ShippingMethod: input.ShippingMethod,
		ShippingCost:   input.ShippingCost.String(),
		PaymentMethod:  input.PaymentMethod,
		FraudScore:     input.FraudScore,
		RiskFlags:      flags,
	}
}
