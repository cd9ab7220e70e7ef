package cart

import (
	"fmt"

	"github.com/sofiaduarte/threadline-backend/internal/catalog"
	pkgerrors "github.com/sofiaduarte/threadline-backend/pkg/errors"
)

// Selection is a requested (size, color, quantity) combination.
type Selection struct {
	Size     string
	Color    string
	Quantity int
}

// ValidateSelection guards a mutation before it reaches the engine. Missing
// size/color selections default to the first declared entry, in catalog
// order; the ordering is user-visible default behavior and must stay stable.
// ownedQty is the quantity already held in the cart for the tuple, so
// repeated adds stay within stock.
func ValidateSelection(p *catalog.Product, sel Selection, ownedQty int) (Selection, error) {
	if p == nil {
		return Selection{}, pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}
	if sel.Quantity < 1 {
		return Selection{}, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be at least 1")
	}

	if sel.Color == "" && len(p.Colors) > 0 {
		sel.Color = p.Colors[0]
	}
	if len(p.Colors) > 0 && sel.Color == "" {
		return Selection{}, pkgerrors.New(pkgerrors.CodeColorRequired, "a color must be selected")
	}

	if sel.Size == "" && len(p.Sizes) > 0 {
		sel.Size = p.Sizes[0].Name
	}
	if len(p.Sizes) > 0 && sel.Size == "" {
		return Selection{}, pkgerrors.New(pkgerrors.CodeSizeRequired, "a size must be selected")
	}

	available := availableStock(p, sel.Size)
	if available == 0 {
		if sel.Size != "" {
			return Selection{}, pkgerrors.New(pkgerrors.CodeVariantOutOfStock,
				fmt.Sprintf("size %q is out of stock", sel.Size))
		}
		return Selection{}, pkgerrors.New(pkgerrors.CodeOutOfStock, "product is out of stock")
	}

	max := available - ownedQty
	if max < 0 {
		max = 0
	}
	if sel.Quantity > max {
		return Selection{}, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("only %d available for purchase", max)).
			WithDetails(map[string]any{"max_quantity": max})
	}

	return sel, nil
}

// availableStock bounds a selection: per-variant stock when a size is in
// play, total stock otherwise.
func availableStock(p *catalog.Product, size string) int {
	if size != "" {
		return catalog.VariantStock(p, size)
	}
	return catalog.TotalStock(p)
}
