package cart

import (
	"context"
	"sync"
	"time"

	"github.com/sofiaduarte/threadline-backend/internal/catalog"
	"github.com/sofiaduarte/threadline-backend/internal/pricing"
	pkgerrors "github.com/sofiaduarte/threadline-backend/pkg/errors"
	"github.com/sofiaduarte/threadline-backend/pkg/logger"
	"github.com/sofiaduarte/threadline-backend/pkg/metrics"
)

// Engine reconciles a session's in-memory cart against the server cart
// store. Mutations apply optimistically before the store round-trip; on
// rejection the pre-mutation snapshot is restored, so totals and line items
// are never left partially applied. The line-item collection and totals are
// owned exclusively by the engine; all reads and writes go through it.
//
// Each outstanding store call carries a per-tuple sequence number. Responses
// whose sequence is older than the last applied one are discarded, so a
// stale update response can never resurrect a removed item. While a call for
// a tuple is in flight, further mutations of the same tuple are coalesced
// into a quantity delta and flushed with a single follow-up call.
type Engine struct {
	mu         sync.Mutex
	sessionKey string
	store      Store
	rules      pricing.Rules
	logg       *logger.Logger
	metrics    *metrics.CartMetrics

	items         []LineItem
	couponCode    string
	discountCents int64
	totals        pricing.Totals

	seqCounter map[Tuple]uint64
	applied    map[Tuple]uint64
	pending    map[Tuple]*pendingMutation
}

type pendingMutation struct {
	extraQty int
}

type snapshot struct {
	items         []LineItem
	couponCode    string
	discountCents int64
	totals        pricing.Totals
}

// EngineParams groups dependencies for a session cart engine.
type EngineParams struct {
	SessionKey string
	Store      Store
	Rules      pricing.Rules
	Logger     *logger.Logger
	Metrics    *metrics.CartMetrics
}

// NewEngine builds an engine bound to one session's server cart.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.SessionKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session key is required")
	}
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart store is required")
	}
	rules := params.Rules
	if rules == (pricing.Rules{}) {
		rules = pricing.DefaultRules()
	}
	return &Engine{
		sessionKey: params.SessionKey,
		store:      params.Store,
		rules:      rules,
		logg:       params.Logger,
		metrics:    params.Metrics,
		seqCounter: map[Tuple]uint64{},
		applied:    map[Tuple]uint64{},
		pending:    map[Tuple]*pendingMutation{},
	}, nil
}

// Hydrate loads the authoritative cart from the store.
func (e *Engine) Hydrate(ctx context.Context) error {
	serverItems, err := e.store.GetCart(ctx, e.sessionKey)
	if err != nil {
		return typedOrDependency(err, "load cart")
	}
	e.SyncFromServer(serverItems)
	return nil
}

// Items returns a copy of the current line-item collection, reflecting any
// optimistic state while store calls are outstanding.
func (e *Engine) Items() []LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneItems(e.items)
}

// Totals returns the current derived totals.
func (e *Engine) Totals() pricing.Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totals
}

// CouponCode returns the applied coupon code, if any.
func (e *Engine) CouponCode() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.couponCode
}

// AddItem validates the selection against current stock, applies the
// optimistic mutation and confirms it with the store. A repeated add for an
// existing tuple increments that item's quantity instead of appending.
func (e *Engine) AddItem(ctx context.Context, product *catalog.Product, quantity int, size, color string) error {
	if product == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}

	e.mu.Lock()

	owned := 0
	probe := Selection{Size: size, Color: color, Quantity: quantity}
	if resolved, err := ValidateSelection(product, probe, 0); err == nil {
		tuple := Tuple{ProductID: product.ID, Size: resolved.Size, Color: resolved.Color}
		if idx := findByTuple(e.items, tuple); idx >= 0 {
			owned = e.items[idx].Quantity
		}
	}

	sel, err := ValidateSelection(product, probe, owned)
	if err != nil {
		e.mu.Unlock()
		e.metrics.IncMutation("add", "rejected")
		return err
	}
	tuple := Tuple{ProductID: product.ID, Size: sel.Size, Color: sel.Color}

	if pend := e.pending[tuple]; pend != nil {
		e.mergeOrAppendLocked(product, sel)
		e.recomputeLocked()
		pend.extraQty += sel.Quantity
		e.mu.Unlock()
		e.metrics.IncMutation("add", "coalesced")
		return nil
	}

	snap := e.snapshotLocked()
	e.mergeOrAppendLocked(product, sel)
	e.recomputeLocked()
	payload := e.items[findByTuple(e.items, tuple)]
	seq := e.issueSeqLocked(tuple)
	pend := &pendingMutation{}
	e.pending[tuple] = pend
	e.mu.Unlock()

	serverItems, storeErr := e.store.AddItem(ctx, e.sessionKey, payload)

	e.mu.Lock()
	delete(e.pending, tuple)
	extra := pend.extraQty
	if storeErr != nil {
		// Quantities coalesced into this request roll back with it.
		e.restoreLocked(snap)
		e.mu.Unlock()
		e.metrics.IncRollback("add")
		e.metrics.IncMutation("add", "rejected")
		return typedOrDependency(storeErr, "add cart item")
	}
	if seq < e.applied[tuple] {
		e.mu.Unlock()
		e.metrics.IncStaleDrop()
		return nil
	}
	e.applied[tuple] = seq
	e.applyServerItemsLocked(serverItems)
	e.metrics.IncMutation("add", "applied")

	return e.flushCoalesced(ctx, tuple, extra)
}

// UpdateQuantity optimistically sets a line item's quantity and confirms it
// with the store, bounded by the variant's resolved stock.
func (e *Engine) UpdateQuantity(ctx context.Context, lineItemID string, quantity int) error {
	e.mu.Lock()

	idx := findByID(e.items, lineItemID)
	if idx < 0 {
		e.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "line item not found")
	}
	item := e.items[idx]
	if quantity < 1 {
		e.mu.Unlock()
		e.metrics.IncMutation("update", "rejected")
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be at least 1")
	}
	bound := availableStock(&item.Product, item.Size)
	if quantity > bound {
		e.mu.Unlock()
		e.metrics.IncMutation("update", "rejected")
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds available stock").
			WithDetails(map[string]any{"max_quantity": bound})
	}
	tuple := item.Tuple()

	if pend := e.pending[tuple]; pend != nil {
		pend.extraQty += quantity - item.Quantity
		e.items[idx].Quantity = quantity
		e.recomputeLocked()
		e.mu.Unlock()
		e.metrics.IncMutation("update", "coalesced")
		return nil
	}

	snap := e.snapshotLocked()
	e.items[idx].Quantity = quantity
	e.recomputeLocked()

	if item.Optimistic() {
		// No server id to update yet; the confirming add carries the
		// final quantity when it lands.
		e.mu.Unlock()
		e.metrics.IncMutation("update", "applied")
		return nil
	}

	seq := e.issueSeqLocked(tuple)
	pend := &pendingMutation{}
	e.pending[tuple] = pend
	e.mu.Unlock()

	serverItems, storeErr := e.store.UpdateItem(ctx, e.sessionKey, lineItemID, quantity)

	e.mu.Lock()
	delete(e.pending, tuple)
	extra := pend.extraQty
	if storeErr != nil {
		e.restoreLocked(snap)
		e.mu.Unlock()
		e.metrics.IncRollback("update")
		e.metrics.IncMutation("update", "rejected")
		return typedOrDependency(storeErr, "update cart item")
	}
	if seq < e.applied[tuple] {
		e.mu.Unlock()
		e.metrics.IncStaleDrop()
		return nil
	}
	e.applied[tuple] = seq
	e.applyServerItemsLocked(serverItems)
	e.metrics.IncMutation("update", "applied")

	return e.flushCoalesced(ctx, tuple, extra)
}

// RemoveItem removes a line item unconditionally. Removing an unknown id is
// a no-op. The tuple's sequence advances so any in-flight response for it
// arrives stale and cannot resurrect the item.
func (e *Engine) RemoveItem(ctx context.Context, lineItemID string) error {
	e.mu.Lock()

	idx := findByID(e.items, lineItemID)
	if idx < 0 {
		e.mu.Unlock()
		return nil
	}
	item := e.items[idx]
	tuple := item.Tuple()

	snap := e.snapshotLocked()
	e.items = append(e.items[:idx:idx], e.items[idx+1:]...)
	e.recomputeLocked()
	// The sequence is recorded as applied before the transport call: any
	// in-flight response for the tuple arrives stale and cannot resurrect
	// the item while the remove is outstanding.
	seq := e.issueSeqLocked(tuple)
	e.applied[tuple] = seq

	if item.Optimistic() {
		// Never confirmed server-side; the fence alone sheds the
		// pending add's response.
		e.mu.Unlock()
		e.metrics.IncMutation("remove", "applied")
		return nil
	}
	e.mu.Unlock()

	storeErr := e.store.RemoveItem(ctx, e.sessionKey, lineItemID)

	e.mu.Lock()
	if storeErr != nil {
		e.restoreLocked(snap)
		e.mu.Unlock()
		e.metrics.IncRollback("remove")
		e.metrics.IncMutation("remove", "rejected")
		return typedOrDependency(storeErr, "remove cart item")
	}
	e.mu.Unlock()
	e.metrics.IncMutation("remove", "applied")
	return nil
}

// Clear resets the cart to an empty collection with zeroed totals.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()

	snap := e.snapshotLocked()
	for _, item := range e.items {
		tuple := item.Tuple()
		e.applied[tuple] = e.issueSeqLocked(tuple)
	}
	e.items = nil
	e.couponCode = ""
	e.discountCents = 0
	e.recomputeLocked()
	e.mu.Unlock()

	storeErr := e.store.ClearCart(ctx, e.sessionKey)

	e.mu.Lock()
	if storeErr != nil {
		e.restoreLocked(snap)
		e.mu.Unlock()
		e.metrics.IncRollback("clear")
		return typedOrDependency(storeErr, "clear cart")
	}
	e.mu.Unlock()
	e.metrics.IncMutation("clear", "applied")
	return nil
}

// ApplyCoupon applies a coupon server-side and records the granted discount.
// No optimistic change is made; the discount is only known on success.
func (e *Engine) ApplyCoupon(ctx context.Context, code string) error {
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	discount, err := e.store.ApplyCoupon(ctx, e.sessionKey, code)
	if err != nil {
		return typedOrDependency(err, "apply coupon")
	}

	e.mu.Lock()
	e.couponCode = code
	e.discountCents = discount
	e.recomputeLocked()
	e.mu.Unlock()
	return nil
}

// RemoveCoupon drops the applied coupon.
func (e *Engine) RemoveCoupon(ctx context.Context) error {
	if err := e.store.RemoveCoupon(ctx, e.sessionKey); err != nil {
		return typedOrDependency(err, "remove coupon")
	}

	e.mu.Lock()
	e.couponCode = ""
	e.discountCents = 0
	e.recomputeLocked()
	e.mu.Unlock()
	return nil
}

// SyncFromServer replaces local state with the authoritative server cart.
// A non-empty server cart always wins. An empty server cart observed while
// optimistic local state exists is retained locally: eventually-consistent
// reads must not make an item visibly disappear mid-add.
func (e *Engine) SyncFromServer(serverItems []LineItem) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyServerItemsLocked(serverItems)
}

// flushCoalesced issues one follow-up update carrying quantity coalesced
// while a call for the tuple was in flight. Called with the lock held;
// releases it before returning.
func (e *Engine) flushCoalesced(ctx context.Context, tuple Tuple, extra int) error {
	for extra != 0 {
		idx := findByTuple(e.items, tuple)
		if idx < 0 || e.items[idx].Optimistic() {
			break
		}
		itemID := e.items[idx].ID

		snap := e.snapshotLocked()
		desired := e.items[idx].Quantity + extra
		if desired < 1 {
			desired = 1
		}
		e.items[idx].Quantity = desired
		e.recomputeLocked()
		seq := e.issueSeqLocked(tuple)
		pend := &pendingMutation{}
		e.pending[tuple] = pend
		e.mu.Unlock()

		serverItems, storeErr := e.store.UpdateItem(ctx, e.sessionKey, itemID, desired)

		e.mu.Lock()
		delete(e.pending, tuple)
		extra = pend.extraQty
		if storeErr != nil {
			e.restoreLocked(snap)
			e.mu.Unlock()
			e.metrics.IncRollback("update")
			return typedOrDependency(storeErr, "update cart item")
		}
		if seq < e.applied[tuple] {
			e.metrics.IncStaleDrop()
			continue
		}
		e.applied[tuple] = seq
		e.applyServerItemsLocked(serverItems)
	}
	e.mu.Unlock()
	return nil
}

func (e *Engine) mergeOrAppendLocked(product *catalog.Product, sel Selection) {
	tuple := Tuple{ProductID: product.ID, Size: sel.Size, Color: sel.Color}
	if idx := findByTuple(e.items, tuple); idx >= 0 {
		e.items[idx].Quantity += sel.Quantity
		return
	}
	e.items = append(e.items, LineItem{
		ID:       NewTempID(),
		Product:  *product,
		Quantity: sel.Quantity,
		Size:     sel.Size,
		Color:    sel.Color,
		AddedAt:  time.Now(),
	})
}

func (e *Engine) applyServerItemsLocked(serverItems []LineItem) {
	if len(serverItems) == 0 && e.hasOptimisticLocked() {
		return
	}
	e.items = cloneItems(serverItems)
	e.recomputeLocked()
}

func (e *Engine) hasOptimisticLocked() bool {
	if len(e.pending) > 0 {
		return true
	}
	for _, item := range e.items {
		if item.Optimistic() {
			return true
		}
	}
	return false
}

func (e *Engine) recomputeLocked() {
	inputs := make([]pricing.LineInput, 0, len(e.items))
	for _, item := range e.items {
		inputs = append(inputs, pricing.LineInput{
			UnitPriceCents: item.Product.UnitPriceCents(),
			Quantity:       item.Quantity,
		})
	}
	e.totals = e.rules.ComputeTotals(inputs, e.discountCents)
}

func (e *Engine) snapshotLocked() snapshot {
	return snapshot{
		items:         cloneItems(e.items),
		couponCode:    e.couponCode,
		discountCents: e.discountCents,
		totals:        e.totals,
	}
}

func (e *Engine) restoreLocked(snap snapshot) {
	e.items = snap.items
	e.couponCode = snap.couponCode
	e.discountCents = snap.discountCents
	e.totals = snap.totals
}

func (e *Engine) issueSeqLocked(tuple Tuple) uint64 {
	e.seqCounter[tuple]++
	return e.seqCounter[tuple]
}

func typedOrDependency(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
