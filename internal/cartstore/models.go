package cartstore

import (
	"time"
)

// CartRecord is one session's persisted cart.
type CartRecord struct {
	ID            string `gorm:"primaryKey"`
	SessionKey    string `gorm:"uniqueIndex"`
	CouponCode    string
	DiscountCents int64
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Items []CartLineItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

// TableName keeps gorm aligned with the migration.
func (CartRecord) TableName() string { return "cart_records" }

// CartLineItem is one persisted cart entry. The product snapshot column
// carries the catalog record as JSON so carts render without a catalog
// round-trip; unit price is duplicated for cheap aggregate queries.
type CartLineItem struct {
	ID              string `gorm:"primaryKey"`
	CartID          string `gorm:"index"`
	ProductID       string
	Size            string
	Color           string
	Quantity        int
	UnitPriceCents  int64
	ProductSnapshot string
	AddedAt         time.Time
}

// TableName keeps gorm aligned with the migration.
func (CartLineItem) TableName() string { return "cart_line_items" }
