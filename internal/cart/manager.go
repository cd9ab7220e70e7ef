package cart

import (
	"context"
	"sync"

	"github.com/sofiaduarte/threadline-backend/internal/pricing"
	pkgerrors "github.com/sofiaduarte/threadline-backend/pkg/errors"
	"github.com/sofiaduarte/threadline-backend/pkg/logger"
	"github.com/sofiaduarte/threadline-backend/pkg/metrics"
)

// Manager hands out one engine per session and performs the guest-to-user
// cart merge on login. Engines are created lazily and hydrated from the
// store on first use.
type Manager struct {
	store   Store
	rules   pricing.Rules
	logg    *logger.Logger
	metrics *metrics.CartMetrics

	mu      sync.Mutex
	engines map[string]*Engine
	merged  map[string]bool
}

// ManagerParams groups dependencies for a cart manager.
type ManagerParams struct {
	Store   Store
	Rules   pricing.Rules
	Logger  *logger.Logger
	Metrics *metrics.CartMetrics
}

// NewManager builds a cart manager.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart store is required")
	}
	rules := params.Rules
	if rules == (pricing.Rules{}) {
		rules = pricing.DefaultRules()
	}
	return &Manager{
		store:   params.Store,
		rules:   rules,
		logg:    params.Logger,
		metrics: params.Metrics,
		engines: map[string]*Engine{},
		merged:  map[string]bool{},
	}, nil
}

// Engine returns the session's engine, creating and hydrating it on first
// use.
func (m *Manager) Engine(ctx context.Context, sessionKey string) (*Engine, error) {
	m.mu.Lock()
	eng, ok := m.engines[sessionKey]
	m.mu.Unlock()
	if ok {
		return eng, nil
	}

	eng, err := NewEngine(EngineParams{
		SessionKey: sessionKey,
		Store:      m.store,
		Rules:      m.rules,
		Logger:     m.logg,
		Metrics:    m.metrics,
	})
	if err != nil {
		return nil, err
	}
	if err := eng.Hydrate(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.engines[sessionKey]; ok {
		return existing, nil
	}
	m.engines[sessionKey] = eng
	return eng, nil
}

// MergeGuestItems folds a guest cart into the session's server cart. The
// merge runs at most once per session; repeated calls are no-ops so a retried
// login cannot double quantities. Matching tuples sum their quantities,
// clamped to live stock via stockFor.
func (m *Manager) MergeGuestItems(ctx context.Context, sessionKey string, guestItems []LineItem, stockFor StockFunc) error {
	m.mu.Lock()
	if m.merged[sessionKey] {
		m.mu.Unlock()
		return nil
	}
	m.merged[sessionKey] = true
	m.mu.Unlock()

	if len(guestItems) == 0 {
		return nil
	}

	serverItems, err := m.store.GetCart(ctx, sessionKey)
	if err != nil {
		m.resetMerged(sessionKey)
		return typedOrDependency(err, "load cart for merge")
	}

	merged := Merge(guestItems, serverItems, stockFor)
	diff := DiffAgainstServer(merged, serverItems)

	for _, item := range diff.Remove {
		if err := m.store.RemoveItem(ctx, sessionKey, item.ID); err != nil {
			m.resetMerged(sessionKey)
			return typedOrDependency(err, "remove cart item during merge")
		}
	}
	for _, item := range diff.Update {
		if _, err := m.store.UpdateItem(ctx, sessionKey, item.ID, item.Quantity); err != nil {
			m.resetMerged(sessionKey)
			return typedOrDependency(err, "update cart item during merge")
		}
	}
	var final []LineItem
	for _, item := range diff.Add {
		final, err = m.store.AddItem(ctx, sessionKey, item)
		if err != nil {
			m.resetMerged(sessionKey)
			return typedOrDependency(err, "add cart item during merge")
		}
	}
	if len(diff.Add) == 0 {
		final, err = m.store.GetCart(ctx, sessionKey)
		if err != nil {
			return typedOrDependency(err, "reload cart after merge")
		}
	}

	eng, err := m.Engine(ctx, sessionKey)
	if err != nil {
		return err
	}
	eng.SyncFromServer(final)
	if m.logg != nil {
		m.logg.Info(ctx, "merged guest cart into session cart")
	}
	return nil
}

func (m *Manager) resetMerged(sessionKey string) {
	m.mu.Lock()
	delete(m.merged, sessionKey)
	m.mu.Unlock()
}
