package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dukahq/storefront-backend/pkg/config"
	pkgerrors "github.com/dukahq/storefront-backend/pkg/errors"
	"github.com/dukahq/storefront-backend/pkg/logger"
)

var (
	errBaseURLRequired       = errors.New("catalog base url is required")
	errCatalogLoggerRequired = errors.New("catalog logger is required")
)

// Client reads the remote catalog/inventory REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient validates the catalog configuration and builds a client.
func NewClient(cfg config.CatalogConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errCatalogLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logg,
	}, nil
}

// Products fetches the raw product records for coercion at ingest.
func (c *Client) Products(ctx context.Context) ([]rawProduct, error) {
	var records []rawProduct
	if err := c.getJSON(ctx, "/products", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Categories fetches the catalog's top-level groupings.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var records []Category
	if err := c.getJSON(ctx, "/categories", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Subcategories fetches the nested groupings.
func (c *Client) Subcategories(ctx context.Context) ([]Subcategory, error) {
	var records []Subcategory
	if err := c.getJSON(ctx, "/subcategories", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Inventories fetches upstream stock levels.
func (c *Client) Inventories(ctx context.Context) ([]Inventory, error) {
	var records []Inventory
	if err := c.getJSON(ctx, "/inventories", &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building catalog request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("catalog GET %s", path))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("catalog GET %s returned status %d", path, resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decoding catalog GET %s", path))
	}
	return nil
}
