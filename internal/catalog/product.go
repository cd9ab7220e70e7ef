package catalog

import (
	"encoding/json"
	"fmt"
)

// VariantKind tags the two size representations found in catalog data.
// Legacy records carry plain size names; current records carry per-size stock.
type VariantKind string

const (
	VariantNamed   VariantKind = "named"
	VariantStocked VariantKind = "stocked"
)

// Variant is the normalized form of a size entry. Raw catalog JSON mixes
// bare strings and objects; both are resolved to this union at the decode
// boundary so downstream logic never re-inspects raw shape.
type Variant struct {
	Kind  VariantKind `json:"kind"`
	Name  string      `json:"name"`
	Stock int         `json:"stock,omitempty"`
}

// MarshalJSON writes the wire shape the decoder accepts: a bare string for
// a named size, an object with explicit stock for a stocked one. Snapshots
// persisted through this round-trip back to an identical variant.
func (v Variant) MarshalJSON() ([]byte, error) {
	if v.Kind == VariantStocked {
		return json.Marshal(struct {
			Name  string `json:"name"`
			Stock int    `json:"stock"`
		}{Name: v.Name, Stock: v.Stock})
	}
	return json.Marshal(v.Name)
}

// Product is the catalog record the storefront trades in. Prices are integer
// minor currency units. The struct is read-only input everywhere downstream.
type Product struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	PriceCents        int64    `json:"price"`
	SalePriceCents    *int64   `json:"salePrice,omitempty"`
	Sizes             []Variant `json:"sizes,omitempty"`
	Colors            []string `json:"colors,omitempty"`
	TotalStockCount   *int     `json:"totalStock,omitempty"`
	StockCount        *int     `json:"stock,omitempty"`
	LowStockThreshold int      `json:"lowStockThreshold,omitempty"`
}

// UnitPriceCents returns the effective unit price: the sale price when
// present and strictly lower than the base price, else the base price.
// Every totals, display and checkout path must use this and nothing else.
func (p *Product) UnitPriceCents() int64 {
	if p.SalePriceCents != nil && *p.SalePriceCents < p.PriceCents {
		return *p.SalePriceCents
	}
	return p.PriceCents
}

// FindSize returns the variant whose name matches, in declaration order.
func (p *Product) FindSize(name string) (Variant, bool) {
	for _, v := range p.Sizes {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

type rawProduct struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	PriceCents        int64             `json:"price"`
	SalePriceCents    *int64            `json:"salePrice"`
	Sizes             []json.RawMessage `json:"sizes"`
	Colors            []json.RawMessage `json:"colors"`
	TotalStockCount   *int              `json:"totalStock"`
	StockCount        *int              `json:"stock"`
	LowStockThreshold int               `json:"lowStockThreshold"`
}

type rawSize struct {
	Name  string `json:"name"`
	Stock *int   `json:"stock"`
}

// UnmarshalJSON normalizes the duck-typed catalog payload: size entries may
// be bare strings or {name, stock} objects, color entries bare strings or
// {name} objects.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw rawProduct
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	sizes := make([]Variant, 0, len(raw.Sizes))
	for i, entry := range raw.Sizes {
		variant, err := decodeSize(entry)
		if err != nil {
			return fmt.Errorf("product %s: sizes[%d]: %w", raw.ID, i, err)
		}
		sizes = append(sizes, variant)
	}

	colors := make([]string, 0, len(raw.Colors))
	for i, entry := range raw.Colors {
		name, err := decodeColor(entry)
		if err != nil {
			return fmt.Errorf("product %s: colors[%d]: %w", raw.ID, i, err)
		}
		colors = append(colors, name)
	}

	*p = Product{
		ID:                raw.ID,
		Title:             raw.Title,
		PriceCents:        raw.PriceCents,
		SalePriceCents:    raw.SalePriceCents,
		Sizes:             sizes,
		Colors:            colors,
		TotalStockCount:   raw.TotalStockCount,
		StockCount:        raw.StockCount,
		LowStockThreshold: raw.LowStockThreshold,
	}
	return nil
}

func decodeSize(entry json.RawMessage) (Variant, error) {
	var name string
	if err := json.Unmarshal(entry, &name); err == nil {
		return Variant{Kind: VariantNamed, Name: name}, nil
	}

	var obj rawSize
	if err := json.Unmarshal(entry, &obj); err != nil {
		return Variant{}, fmt.Errorf("expected string or object: %w", err)
	}
	if obj.Stock == nil {
		// Object form without stock degrades to the legacy named variant.
		return Variant{Kind: VariantNamed, Name: obj.Name}, nil
	}
	stock := *obj.Stock
	if stock < 0 {
		stock = 0
	}
	return Variant{Kind: VariantStocked, Name: obj.Name, Stock: stock}, nil
}

func decodeColor(entry json.RawMessage) (string, error) {
	var name string
	if err := json.Unmarshal(entry, &name); err == nil {
		return name, nil
	}

	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(entry, &obj); err != nil {
		return "", fmt.Errorf("expected string or object: %w", err)
	}
	return obj.Name, nil
}
