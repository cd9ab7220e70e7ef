package pricing

import "github.com/shopspring/decimal"

// Default pricing rules, in integer minor currency units and basis points.
const (
	DefaultFreeShippingThreshold int64 = 1000
	DefaultFlatShippingFee       int64 = 100
	DefaultTaxRateBps            int64 = 1800
)

// Rules carries the storefront pricing configuration.
type Rules struct {
	FreeShippingThreshold int64
	FlatShippingFee       int64
	TaxRateBps            int64
}

// DefaultRules returns the stock storefront rules.
func DefaultRules() Rules {
	return Rules{
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		FlatShippingFee:       DefaultFlatShippingFee,
		TaxRateBps:            DefaultTaxRateBps,
	}
}

// LineInput is one cart line as the calculator sees it. The unit price must
// already be the effective price (sale-aware) so every call site shares the
// single price rule.
type LineInput struct {
	UnitPriceCents int64
	Quantity       int
}

// Totals is fully derived from its inputs and never independently mutated.
type Totals struct {
	TotalItems      int   `json:"total_items"`
	TotalPriceCents int64 `json:"total_price_cents"`
	ShippingCents   int64 `json:"shipping_cents"`
	TaxCents        int64 `json:"tax_cents"`
	DiscountCents   int64 `json:"discount_cents"`
	GrandTotalCents int64 `json:"grand_total_cents"`
}

// ComputeTotals derives cart totals from the line collection and the applied
// discount. Shipping is a single step function of the subtotal; tax applies
// to the pre-discount subtotal; the grand total clamps at zero. The
// calculator never rejects input: malformed prices propagate and are the
// caller's responsibility to validate upstream.
func (r Rules) ComputeTotals(items []LineInput, discountCents int64) Totals {
	var totalItems int
	var totalPrice int64
	for _, item := range items {
		totalItems += item.Quantity
		totalPrice += item.UnitPriceCents * int64(item.Quantity)
	}

	// Deliberate carve-out from the shipping step function: a zero subtotal
	// sits below the free threshold, but an empty cart never charges the
	// flat fee or accrues tax. Only the recorded discount carries through.
	if totalItems == 0 {
		return Totals{DiscountCents: discountCents}
	}

	var shipping int64
	if totalPrice < r.FreeShippingThreshold {
		shipping = r.FlatShippingFee
	}

	tax := decimal.NewFromInt(totalPrice).
		Mul(decimal.NewFromInt(r.TaxRateBps)).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart()

	grand := totalPrice + shipping + tax - discountCents
	if grand < 0 {
		grand = 0
	}

	return Totals{
		TotalItems:      totalItems,
		TotalPriceCents: totalPrice,
		ShippingCents:   shipping,
		TaxCents:        tax,
		DiscountCents:   discountCents,
		GrandTotalCents: grand,
	}
}
