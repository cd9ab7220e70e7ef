package guest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sofiaduarte/threadline-backend/internal/cart"
	"github.com/sofiaduarte/threadline-backend/internal/catalog"
	"github.com/sofiaduarte/threadline-backend/internal/pricing"
	pkgerrors "github.com/sofiaduarte/threadline-backend/pkg/errors"
	"github.com/sofiaduarte/threadline-backend/pkg/kv"
	"github.com/sofiaduarte/threadline-backend/pkg/logger"
)

const keyPrefix = "guest_cart:"

// envelope is the persisted guest cart document. Items carry full product
// snapshots so a guest cart renders with no catalog dependency.
type envelope struct {
	Items     []cart.LineItem `json:"items"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Bridge is the anonymous-session cart. Mutations are synchronous: they
// validate, apply and persist before returning, so there is no optimistic
// window and nothing to reconcile. On login the bridge's items feed the
// session cart merge and are cleared once the merge lands.
type Bridge struct {
	mu    sync.Mutex
	store kv.Store
	rules pricing.Rules
	logg  *logger.Logger
}

// BridgeParams groups dependencies for the guest cart bridge.
type BridgeParams struct {
	Store  kv.Store
	Rules  pricing.Rules
	Logger *logger.Logger
}

// NewBridge builds a guest cart bridge over the local store.
func NewBridge(params BridgeParams) (*Bridge, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "local store is required")
	}
	rules := params.Rules
	if rules == (pricing.Rules{}) {
		rules = pricing.DefaultRules()
	}
	return &Bridge{store: params.Store, rules: rules, logg: params.Logger}, nil
}

// Items returns the guest's current cart.
func (b *Bridge) Items(ctx context.Context, guestID string) ([]cart.LineItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	env, err := b.load(guestID)
	if err != nil {
		return nil, err
	}
	return env.Items, nil
}

// Totals derives totals for the guest cart. Guest carts carry no coupon.
func (b *Bridge) Totals(ctx context.Context, guestID string) (pricing.Totals, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	env, err := b.load(guestID)
	if err != nil {
		return pricing.Totals{}, err
	}
	return b.compute(env.Items), nil
}

// Add validates the selection and merges it into the guest cart. Repeated
// adds for a tuple increment quantity, bounded by the snapshot's stock.
func (b *Bridge) Add(ctx context.Context, guestID string, product *catalog.Product, quantity int, size, color string) ([]cart.LineItem, error) {
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	env, err := b.load(guestID)
	if err != nil {
		return nil, err
	}

	owned := 0
	if resolved, err := cart.ValidateSelection(product, cart.Selection{Size: size, Color: color, Quantity: quantity}, 0); err == nil {
		tuple := cart.Tuple{ProductID: product.ID, Size: resolved.Size, Color: resolved.Color}
		for _, item := range env.Items {
			if item.Tuple() == tuple {
				owned = item.Quantity
			}
		}
	}
	sel, err := cart.ValidateSelection(product, cart.Selection{Size: size, Color: color, Quantity: quantity}, owned)
	if err != nil {
		return nil, err
	}

	tuple := cart.Tuple{ProductID: product.ID, Size: sel.Size, Color: sel.Color}
	merged := false
	for i := range env.Items {
		if env.Items[i].Tuple() == tuple {
			env.Items[i].Quantity += sel.Quantity
			merged = true
			break
		}
	}
	if !merged {
		env.Items = append(env.Items, cart.LineItem{
			ID:       cart.NewTempID(),
			Product:  *product,
			Quantity: sel.Quantity,
			Size:     sel.Size,
			Color:    sel.Color,
			AddedAt:  time.Now(),
		})
	}

	if err := b.save(guestID, env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// UpdateQuantity sets a guest line item's quantity, bounded by the
// snapshot's stock for the item's size.
func (b *Bridge) UpdateQuantity(ctx context.Context, guestID, itemID string, quantity int) ([]cart.LineItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	env, err := b.load(guestID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range env.Items {
		if env.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line item not found")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be at least 1")
	}
	item := env.Items[idx]
	bound := catalog.TotalStock(&item.Product)
	if item.Size != "" {
		bound = catalog.VariantStock(&item.Product, item.Size)
	}
	if quantity > bound {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds available stock").
			WithDetails(map[string]any{"max_quantity": bound})
	}

	env.Items[idx].Quantity = quantity
	if err := b.save(guestID, env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// Remove deletes a guest line item. Removing an unknown id is a no-op.
func (b *Bridge) Remove(ctx context.Context, guestID, itemID string) ([]cart.LineItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	env, err := b.load(guestID)
	if err != nil {
		return nil, err
	}
	for i := range env.Items {
		if env.Items[i].ID == itemID {
			env.Items = append(env.Items[:i:i], env.Items[i+1:]...)
			break
		}
	}
	if err := b.save(guestID, env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// Clear empties the guest cart.
func (b *Bridge) Clear(ctx context.Context, guestID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.store.Delete(keyPrefix + guestID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear guest cart")
	}
	return nil
}

func (b *Bridge) load(guestID string) (envelope, error) {
	raw, ok, err := b.store.Get(keyPrefix + guestID)
	if err != nil {
		return envelope{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load guest cart")
	}
	if !ok {
		return envelope{}, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// A corrupt document resets to an empty cart rather than
		// wedging every guest mutation.
		return envelope{}, nil
	}
	return env, nil
}

func (b *Bridge) save(guestID string, env envelope) error {
	env.UpdatedAt = time.Now()
	raw, err := json.Marshal(env)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode guest cart")
	}
	if err := b.store.Set(keyPrefix+guestID, raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist guest cart")
	}
	return nil
}

func (b *Bridge) compute(items []cart.LineItem) pricing.Totals {
	inputs := make([]pricing.LineInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, pricing.LineInput{
			UnitPriceCents: item.Product.UnitPriceCents(),
			Quantity:       item.Quantity,
		})
	}
	return b.rules.ComputeTotals(inputs, 0)
}
