package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sofiaduarte/threadline-backend/internal/cart"
	"github.com/sofiaduarte/threadline-backend/internal/catalog"
	pkgerrors "github.com/sofiaduarte/threadline-backend/pkg/errors"
	"github.com/sofiaduarte/threadline-backend/pkg/logger"
)

// Repository persists session carts and implements the engine's store
// contract. Every item-returning call answers with the full authoritative
// item set for the session.
type Repository struct {
	db      *gorm.DB
	logg    *logger.Logger
	coupons map[string]int64
}

// RepositoryParams groups dependencies for the cart repository. Coupons maps
// accepted codes to the flat discount they grant, in cents.
type RepositoryParams struct {
	DB      *gorm.DB
	Logger  *logger.Logger
	Coupons map[string]int64
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(params RepositoryParams) (*Repository, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db handle is required")
	}
	return &Repository{
		db:      params.DB,
		logg:    params.Logger,
		coupons: params.Coupons,
	}, nil
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx, logg: r.logg, coupons: r.coupons}
}

// GetCart returns the session's items. A session with no cart yet is an
// empty cart, not an error.
func (r *Repository) GetCart(ctx context.Context, sessionKey string) ([]cart.LineItem, error) {
	record, err := r.findRecord(ctx, r.db, sessionKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapDB(err, "load cart")
	}
	return toLineItems(record.Items), nil
}

// AddItem upserts by tuple: the payload quantity is the authoritative total
// for that tuple, so a confirmed repeat add sets rather than sums.
func (r *Repository) AddItem(ctx context.Context, sessionKey string, item cart.LineItem) ([]cart.LineItem, error) {
	var out []cart.LineItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := r.findOrCreateRecord(ctx, tx, sessionKey)
		if err != nil {
			return err
		}

		var existing CartLineItem
		err = tx.WithContext(ctx).
			Where("cart_id = ? AND product_id = ? AND size = ? AND color = ?",
				record.ID, item.Product.ID, item.Size, item.Color).
			First(&existing).Error
		switch {
		case err == nil:
			existing.Quantity = item.Quantity
			existing.UnitPriceCents = item.Product.UnitPriceCents()
			if err := tx.WithContext(ctx).Save(&existing).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			row, err := toRow(record.ID, item)
			if err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
				return err
			}
		default:
			return err
		}

		out, err = r.itemsForRecord(ctx, tx, record.ID)
		return err
	})
	if err != nil {
		return nil, wrapDB(err, "add cart item")
	}
	return out, nil
}

// UpdateItem sets a line item's quantity.
func (r *Repository) UpdateItem(ctx context.Context, sessionKey, itemID string, quantity int) ([]cart.LineItem, error) {
	var out []cart.LineItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := r.findRecord(ctx, tx, sessionKey)
		if err != nil {
			return err
		}
		res := tx.WithContext(ctx).
			Model(&CartLineItem{}).
			Where("id = ? AND cart_id = ?", itemID, record.ID).
			Update("quantity", quantity)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "line item not found")
		}
		out, err = r.itemsForRecord(ctx, tx, record.ID)
		return err
	})
	if err != nil {
		return nil, wrapDB(err, "update cart item")
	}
	return out, nil
}

// RemoveItem deletes a line item. Deleting an unknown id is a no-op.
func (r *Repository) RemoveItem(ctx context.Context, sessionKey, itemID string) error {
	record, err := r.findRecord(ctx, r.db, sessionKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return wrapDB(err, "remove cart item")
	}
	err = r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, record.ID).
		Delete(&CartLineItem{}).Error
	if err != nil {
		return wrapDB(err, "remove cart item")
	}
	return nil
}

// ClearCart removes every line item and drops any applied coupon.
func (r *Repository) ClearCart(ctx context.Context, sessionKey string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := r.findRecord(ctx, tx, sessionKey)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.WithContext(ctx).Where("cart_id = ?", record.ID).Delete(&CartLineItem{}).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).
			Model(&CartRecord{}).
			Where("id = ?", record.ID).
			Updates(map[string]any{"coupon_code": "", "discount_cents": 0}).Error
	})
	if err != nil {
		return wrapDB(err, "clear cart")
	}
	return nil
}

// ApplyCoupon validates the code against the configured table and persists
// the granted discount on the session's cart.
func (r *Repository) ApplyCoupon(ctx context.Context, sessionKey, code string) (int64, error) {
	discount, ok := r.coupons[code]
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon code")
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := r.findOrCreateRecord(ctx, tx, sessionKey)
		if err != nil {
			return err
		}
		return tx.WithContext(ctx).
			Model(&CartRecord{}).
			Where("id = ?", record.ID).
			Updates(map[string]any{"coupon_code": code, "discount_cents": discount}).Error
	})
	if err != nil {
		return 0, wrapDB(err, "apply coupon")
	}
	return discount, nil
}

// RemoveCoupon drops the applied coupon, if any.
func (r *Repository) RemoveCoupon(ctx context.Context, sessionKey string) error {
	err := r.db.WithContext(ctx).
		Model(&CartRecord{}).
		Where("session_key = ?", sessionKey).
		Updates(map[string]any{"coupon_code": "", "discount_cents": 0}).Error
	if err != nil {
		return wrapDB(err, "remove coupon")
	}
	return nil
}

// Discount returns the persisted coupon state for the session.
func (r *Repository) Discount(ctx context.Context, sessionKey string) (code string, discountCents int64, err error) {
	record, err := r.findRecord(ctx, r.db, sessionKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", 0, nil
		}
		return "", 0, wrapDB(err, "load coupon state")
	}
	return record.CouponCode, record.DiscountCents, nil
}

func (r *Repository) findRecord(ctx context.Context, tx *gorm.DB, sessionKey string) (*CartRecord, error) {
	var record CartRecord
	err := tx.WithContext(ctx).
		Preload("Items").
		Where("session_key = ?", sessionKey).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) findOrCreateRecord(ctx context.Context, tx *gorm.DB, sessionKey string) (*CartRecord, error) {
	record, err := r.findRecord(ctx, tx, sessionKey)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	created := CartRecord{ID: uuid.NewString(), SessionKey: sessionKey}
	if err := tx.WithContext(ctx).Create(&created).Error; err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *Repository) itemsForRecord(ctx context.Context, tx *gorm.DB, recordID string) ([]cart.LineItem, error) {
	var rows []CartLineItem
	err := tx.WithContext(ctx).
		Where("cart_id = ?", recordID).
		Order("added_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toLineItems(rows), nil
}

func toRow(cartID string, item cart.LineItem) (CartLineItem, error) {
	snapshot, err := json.Marshal(item.Product)
	if err != nil {
		return CartLineItem{}, err
	}
	addedAt := item.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}
	return CartLineItem{
		ID:              uuid.NewString(),
		CartID:          cartID,
		ProductID:       item.Product.ID,
		Size:            item.Size,
		Color:           item.Color,
		Quantity:        item.Quantity,
		UnitPriceCents:  item.Product.UnitPriceCents(),
		ProductSnapshot: string(snapshot),
		AddedAt:         addedAt,
	}, nil
}

func toLineItems(rows []CartLineItem) []cart.LineItem {
	if len(rows) == 0 {
		return nil
	}
	items := make([]cart.LineItem, 0, len(rows))
	for _, row := range rows {
		var product catalog.Product
		if row.ProductSnapshot == "" || json.Unmarshal([]byte(row.ProductSnapshot), &product) != nil {
			// A rotted snapshot still has to render a priced line.
			product = catalog.Product{ID: row.ProductID, PriceCents: row.UnitPriceCents}
		}
		items = append(items, cart.LineItem{
			ID:       row.ID,
			Product:  product,
			Quantity: row.Quantity,
			Size:     row.Size,
			Color:    row.Color,
			AddedAt:  row.AddedAt,
		})
	}
	return items
}

func wrapDB(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}
