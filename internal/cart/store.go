package cart

import "context"

// Store is the server-persisted cart collaborator for authenticated
// sessions. Calls are request/response over an authenticated channel; every
// item-returning call answers with the authoritative item set.
type Store interface {
	GetCart(ctx context.Context, sessionKey string) ([]LineItem, error)
	AddItem(ctx context.Context, sessionKey string, item LineItem) ([]LineItem, error)
	UpdateItem(ctx context.Context, sessionKey, itemID string, quantity int) ([]LineItem, error)
	RemoveItem(ctx context.Context, sessionKey, itemID string) error
	ClearCart(ctx context.Context, sessionKey string) error
	ApplyCoupon(ctx context.Context, sessionKey, code string) (discountCents int64, err error)
	RemoveCoupon(ctx context.Context, sessionKey string) error
}
