package catalog

// DefaultLowStockThreshold applies when a product declares none.
const DefaultLowStockThreshold = 10

// StockStatus classifies total stock for display.
type StockStatus string

const (
	StatusOutOfStock StockStatus = "Out of Stock"
	StatusLowStock   StockStatus = "Low Stock"
	StatusInStock    StockStatus = "In Stock"
)

// TotalStock resolves the product's total available stock. Sources are
// consulted in a fixed order: the sum of per-size stock when any size entry
// carries stock, then the precomputed total, then the generic scalar, then
// zero. Named-only (legacy) size lists skip the first source entirely.
func TotalStock(p *Product) int {
	if stockBearing(p.Sizes) {
		total := 0
		for _, v := range p.Sizes {
			if v.Kind == VariantStocked && v.Stock > 0 {
				total += v.Stock
			}
		}
		return total
	}
	if p.TotalStockCount != nil {
		return clampNonNegative(*p.TotalStockCount)
	}
	if p.StockCount != nil {
		return clampNonNegative(*p.StockCount)
	}
	return 0
}

// VariantStock resolves stock for a single size. A stocked entry answers for
// itself; a legacy named entry falls back to the product's generic scalar,
// because legacy data cannot express per-size stock. Unknown sizes resolve
// to zero.
func VariantStock(p *Product, sizeName string) int {
	variant, ok := p.FindSize(sizeName)
	if !ok {
		return 0
	}
	if variant.Kind == VariantStocked {
		return clampNonNegative(variant.Stock)
	}
	if p.StockCount != nil {
		return clampNonNegative(*p.StockCount)
	}
	return 0
}

// Status classifies TotalStock against the low-stock threshold. A total
// exactly at the threshold counts as Low Stock.
func Status(p *Product) StockStatus {
	total := TotalStock(p)
	if total <= 0 {
		return StatusOutOfStock
	}
	threshold := p.LowStockThreshold
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	if total <= threshold {
		return StatusLowStock
	}
	return StatusInStock
}

func stockBearing(sizes []Variant) bool {
	for _, v := range sizes {
		if v.Kind == VariantStocked {
			return true
		}
	}
	return false
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
