package vtex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/syncline/marketsync/internal/domain"
	"github.com/syncline/marketsync/internal/marketplace"
)

const listPageSize = 50

// Config holds tunables for the VTEX adapter.
type Config struct {
	Environment       string // e.g. vtexcommercestable
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Adapter talks to a VTEX-style catalog split across product, SKU, pricing,
// and logistics resources. The catalog listing has no server-side equivalent
// of the sync filters, so candidate enumeration applies the translated
// predicate client-side.
type Adapter struct {
	client      *resty.Client
	limiter     *rate.Limiter
	environment string
}

// NewAdapter creates a VTEX adapter.
// Parameters:
//   - cfg: adapter configuration; nil applies defaults.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(cfg *Config) *Adapter {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Environment == "" {
		cfg.Environment = "vtexcommercestable"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst == 0 {
		cfg.Burst = 10
	}

	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	client.SetTimeout(cfg.Timeout)

	return &Adapter{
		client:      client,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		environment: cfg.Environment,
	}
}

// Type returns the marketplace this adapter serves.
func (a *Adapter) Type() domain.MarketplaceType {
	return domain.MarketplaceVTEX
}

// baseURL builds the account base URL from the credential bundle. An
// account_name that already carries a scheme is used verbatim, which also
// serves test servers.
func (a *Adapter) baseURL(creds domain.Credentials) string {
	account := strings.TrimSuffix(creds.Get("account_name"), "/")
	if strings.HasPrefix(account, "http://") || strings.HasPrefix(account, "https://") {
		return account
	}
	return fmt.Sprintf("https://%s.%s.com.br", account, a.environment)
}

// get issues one authenticated GET and decodes the response into out.
func (a *Adapter) get(ctx context.Context, op string, creds domain.Credentials, path string, out interface{}) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return &marketplace.TransportError{Op: op, Err: err}
	}

	// Decode by expected format, not the server's declared content type. A
	// body that is not valid JSON then surfaces as an error instead of a
	// silently zero-valued result.
	resp, err := a.client.R().
		ForceContentType("application/json").
		SetContext(ctx).
		SetHeader("X-VTEX-API-AppKey", creds.Get("app_key")).
		SetHeader("X-VTEX-API-AppToken", creds.Get("app_token")).
		SetResult(out).
		Get(a.baseURL(creds) + path)
	if err != nil {
		if resp != nil && resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
			return &marketplace.DataError{Op: op, Err: err}
		}
		return &marketplace.TransportError{Op: op, Err: err}
	}

	return marketplace.ClassifyStatus(op, resp.StatusCode(), fmt.Errorf("%s", strings.TrimSpace(string(resp.Body()))))
}

// TestConnection performs one lightweight authenticated call against the
// brand list and reports the outcome. Never returns an error.
func (a *Adapter) TestConnection(ctx context.Context, creds domain.Credentials) marketplace.ConnectionTestResult {
	if creds.Get("account_name") == "" || creds.Get("app_key") == "" || creds.Get("app_token") == "" {
		return marketplace.ConnectionTestResult{
			Success: false,
			Message: "account_name, app_key and app_token are required",
		}
	}

	var brands []brandRecord
	if err := a.get(ctx, "vtex.testConnection", creds, "/api/catalog_system/pvt/brand/list", &brands); err != nil {
		return marketplace.ConnectionTestResult{Success: false, Message: err.Error()}
	}

	return marketplace.ConnectionTestResult{
		Success: true,
		Message: fmt.Sprintf("connected to account %s", creds.Get("account_name")),
		Metadata: map[string]string{
			"account": creds.Get("account_name"),
			"brands":  strconv.Itoa(len(brands)),
		},
	}
}

// FetchIDPage returns one page of candidate product IDs. The cursor is the
// 1-based listing page number; filtering happens client-side on the summary
// rows, so a page may legitimately contribute zero IDs without ending the
// sequence.
func (a *Adapter) FetchIDPage(ctx context.Context, creds domain.Credentials, filters domain.ProductSyncFilters, cursor string) ([]string, string, error) {
	page := 1
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, "", &marketplace.DataError{Op: "vtex.fetchIDPage", Err: fmt.Errorf("invalid cursor %q", cursor)}
		}
		page = n
	}

	var resp productListResponse
	path := fmt.Sprintf("/api/catalog_system/pvt/products/list?page=%d&pageSize=%d", page, listPageSize)
	if err := a.get(ctx, "vtex.fetchIDPage", creds, path, &resp); err != nil {
		return nil, "", err
	}

	keep := Predicate(filters)
	ids := make([]string, 0, len(resp.Products))
	for _, p := range resp.Products {
		if keep(p) {
			ids = append(ids, strconv.Itoa(p.ID))
		}
	}

	next := ""
	if page < resp.Paging.Pages && len(resp.Products) > 0 {
		next = strconv.Itoa(page + 1)
	}
	return ids, next, nil
}

// FetchProduct assembles one product from up to four parallel resource calls:
// the product record, its SKUs, pricing, and inventory. Pricing and inventory
// are optional; a 404 on either resolves to a nil sub-resource instead of
// failing the fetch.
func (a *Adapter) FetchProduct(ctx context.Context, creds domain.Credentials, externalID string) (*domain.Product, error) {
	native := &nativeProduct{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var rec productRecord
		if err := a.get(gctx, "vtex.fetchProduct", creds, "/api/catalog/pvt/product/"+externalID, &rec); err != nil {
			return err
		}
		native.Product = &rec
		return nil
	})

	g.Go(func() error {
		var skus []skuRecord
		err := a.get(gctx, "vtex.fetchSKUs", creds, "/api/catalog_system/pvt/sku/stockkeepingunitByProductId/"+externalID, &skus)
		if errors.Is(err, marketplace.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		native.SKUs = skus
		return nil
	})

	g.Go(func() error {
		var price priceRecord
		err := a.get(gctx, "vtex.fetchPrice", creds, "/api/pricing/pvt/prices/product/"+externalID, &price)
		if errors.Is(err, marketplace.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		native.Price = &price
		return nil
	})

	g.Go(func() error {
		var inv inventoryRecord
		err := a.get(gctx, "vtex.fetchInventory", creds, "/api/logistics/pvt/inventory/product/"+externalID, &inv)
		if errors.Is(err, marketplace.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		native.Inventory = &inv
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if native.Product == nil {
		return nil, fmt.Errorf("vtex.fetchProduct: product %s: %w", externalID, marketplace.ErrNotFound)
	}

	return MapProduct(native), nil
}

// FetchCategories flattens the nested category tree into a level-annotated
// list, bounded at MaxCategoryDepth levels.
func (a *Adapter) FetchCategories(ctx context.Context, creds domain.Credentials) ([]marketplace.CategoryEntry, error) {
	var tree []categoryTreeNode
	path := fmt.Sprintf("/api/catalog_system/pub/category/tree/%d", marketplace.MaxCategoryDepth)
	if err := a.get(ctx, "vtex.fetchCategories", creds, path, &tree); err != nil {
		return nil, err
	}

	var entries []marketplace.CategoryEntry
	var walk func(nodes []categoryTreeNode, parentID string, level int)
	walk = func(nodes []categoryTreeNode, parentID string, level int) {
		if level >= marketplace.MaxCategoryDepth {
			return
		}
		for _, node := range nodes {
			id := strconv.Itoa(node.ID)
			entries = append(entries, marketplace.CategoryEntry{
				ID:       id,
				Name:     node.Name,
				ParentID: parentID,
				Level:    level,
			})
			walk(node.Children, id, level+1)
		}
	}
	walk(tree, "", 0)

	return entries, nil
}

// FetchBrands lists brands, dropping disabled ones at the adapter boundary so
// callers never see them.
func (a *Adapter) FetchBrands(ctx context.Context, creds domain.Credentials) ([]marketplace.BrandEntry, error) {
	var brands []brandRecord
	if err := a.get(ctx, "vtex.fetchBrands", creds, "/api/catalog_system/pvt/brand/list", &brands); err != nil {
		return nil, err
	}

	entries := make([]marketplace.BrandEntry, 0, len(brands))
	for _, b := range brands {
		if !b.IsActive {
			continue
		}
		entries = append(entries, marketplace.BrandEntry{
			ID:   strconv.Itoa(b.ID),
			Name: b.Name,
		})
	}
	return entries, nil
}

// CountProductsFor probes the public search endpoint for at least one product
// under the given brand or category. Fetches at most one result; returns 0 or 1.
func (a *Adapter) CountProductsFor(ctx context.Context, creds domain.Credentials, kind domain.CacheKind, id string) (int, error) {
	prefix := "C"
	if kind == domain.CacheKindBrand {
		prefix = "B"
	}

	var items []searchItem
	path := fmt.Sprintf("/api/catalog_system/pub/products/search?fq=%s:%s&_from=0&_to=0", prefix, id)
	if err := a.get(ctx, "vtex.countProductsFor", creds, path, &items); err != nil {
		return 0, err
	}

	if len(items) > 0 {
		return 1, nil
	}
	return 0, nil
}
