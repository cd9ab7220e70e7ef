package cart

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sofiaduarte/threadline-backend/internal/catalog"
)

const tempIDPrefix = "tmp_"

// Tuple identifies a line item for merge purposes. No two items in a cart
// may share a tuple; a repeated add increments quantity instead.
type Tuple struct {
	ProductID string
	Size      string
	Color     string
}

// LineItem is one cart entry. The ID is server-assigned once confirmed; a
// temporary id marks the optimistic window before confirmation. The product
// snapshot travels with the item so guest carts and optimistic items render
// without a catalog round-trip.
type LineItem struct {
	ID       string          `json:"id"`
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Size     string          `json:"size,omitempty"`
	Color    string          `json:"color,omitempty"`
	AddedAt  time.Time       `json:"added_at"`
}

// Tuple returns the merge identity of the item.
func (li LineItem) Tuple() Tuple {
	return Tuple{ProductID: li.Product.ID, Size: li.Size, Color: li.Color}
}

// Optimistic reports whether the item still carries a temporary id.
func (li LineItem) Optimistic() bool {
	return strings.HasPrefix(li.ID, tempIDPrefix)
}

// NewTempID mints a temporary line-item id for the optimistic window.
func NewTempID() string {
	return tempIDPrefix + uuid.NewString()
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

func findByID(items []LineItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func findByTuple(items []LineItem, tuple Tuple) int {
	for i := range items {
		if items[i].Tuple() == tuple {
			return i
		}
	}
	return -1
}
