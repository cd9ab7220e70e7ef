package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sofiaduarte/threadline-backend/pkg/config"
	pkgerrors "github.com/sofiaduarte/threadline-backend/pkg/errors"
)

// Filter narrows a product listing. The zero value requests the full list.
type Filter struct {
	Category string
	Query    string
}

// IsEmpty reports whether the filter requests the unfiltered list.
func (f Filter) IsEmpty() bool {
	return f.Category == "" && f.Query == ""
}

// Store is the catalog collaborator the cart core consumes. Failures are
// non-fatal and surfaced to the caller as coded errors.
type Store interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, filter Filter) ([]Product, error)
}

// Client talks to the catalog service over HTTP and normalizes its
// duck-typed payloads at the boundary.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a catalog client from the provided configuration.
func NewClient(cfg config.CatalogConfig) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("catalog base url is required")
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

// GetProduct fetches a single product by id.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	var product Product
	if err := c.getJSON(ctx, c.baseURL+"/products/"+url.PathEscape(id), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts fetches products matching the filter.
func (c *Client) ListProducts(ctx context.Context, filter Filter) ([]Product, error) {
	endpoint := c.baseURL + "/products"
	params := url.Values{}
	if filter.Category != "" {
		params.Set("category", filter.Category)
	}
	if filter.Query != "" {
		params.Set("q", filter.Query)
	}
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var products []Product
	if err := c.getJSON(ctx, endpoint, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build catalog request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	case resp.StatusCode >= 400:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("catalog returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode catalog response")
	}
	return nil
}
