package wishlist

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sofiaduarte/threadline-backend/internal/catalog"
	pkgerrors "github.com/sofiaduarte/threadline-backend/pkg/errors"
	"github.com/sofiaduarte/threadline-backend/pkg/kv"
	"github.com/sofiaduarte/threadline-backend/pkg/logger"
)

const keyPrefix = "wishlist:"

// entry is one saved product with the snapshot taken at save time.
type entry struct {
	Product catalog.Product `json:"product"`
	SavedAt time.Time       `json:"saved_at"`
}

type document struct {
	Entries   []entry   `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service is a persisted per-owner product set with toggle semantics:
// saving an already-saved product removes it.
type Service struct {
	mu    sync.Mutex
	store kv.Store
	logg  *logger.Logger
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	Store  kv.Store
	Logger *logger.Logger
}

// NewService builds a wishlist service over the local store.
func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "local store is required")
	}
	return &Service{store: params.Store, logg: params.Logger}, nil
}

// Toggle saves the product, or removes it when already saved. It reports
// whether the product is saved after the call.
func (s *Service) Toggle(ctx context.Context, ownerID string, product *catalog.Product) (saved bool, err error) {
	if product == nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ownerID)
	if err != nil {
		return false, err
	}
	for i := range doc.Entries {
		if doc.Entries[i].Product.ID == product.ID {
			doc.Entries = append(doc.Entries[:i:i], doc.Entries[i+1:]...)
			if err := s.save(ownerID, doc); err != nil {
				return false, err
			}
			return false, nil
		}
	}
	doc.Entries = append(doc.Entries, entry{Product: *product, SavedAt: time.Now()})
	if err := s.save(ownerID, doc); err != nil {
		return false, err
	}
	return true, nil
}

// Has reports whether the product is saved.
func (s *Service) Has(ctx context.Context, ownerID, productID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ownerID)
	if err != nil {
		return false, err
	}
	for _, e := range doc.Entries {
		if e.Product.ID == productID {
			return true, nil
		}
	}
	return false, nil
}

// Products returns the saved products in save order.
func (s *Service) Products(ctx context.Context, ownerID string) ([]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load(ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Product, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		out = append(out, e.Product)
	}
	return out, nil
}

// Clear removes every saved product for the owner.
func (s *Service) Clear(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(keyPrefix + ownerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear wishlist")
	}
	return nil
}

func (s *Service) load(ownerID string) (document, error) {
	raw, ok, err := s.store.Get(keyPrefix + ownerID)
	if err != nil {
		return document{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wishlist")
	}
	if !ok {
		return document{}, nil
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return document{}, nil
	}
	return doc, nil
}

func (s *Service) save(ownerID string, doc document) error {
	doc.UpdatedAt = time.Now()
	raw, err := json.Marshal(doc)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode wishlist")
	}
	if err := s.store.Set(keyPrefix+ownerID, raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist wishlist")
	}
	return nil
}
