package shopify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/syncline/marketsync/internal/domain"
	"github.com/syncline/marketsync/internal/marketplace"
)

const (
	defaultAPIVersion = "2024-07"
	idPageSize        = 100
	collectionPage    = 250
)

// Config holds tunables for the Shopify adapter.
type Config struct {
	APIVersion        string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Adapter talks to the Shopify Admin GraphQL API. Filters are pushed down
// server-side as a search query string; candidate IDs paginate with Shopify's
// cursor mechanism.
type Adapter struct {
	client     *resty.Client
	limiter    *rate.Limiter
	apiVersion string
}

// NewAdapter creates a Shopify adapter.
// Parameters:
//   - cfg: adapter configuration; nil applies defaults.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(cfg *Config) *Adapter {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst == 0 {
		cfg.Burst = 4
	}

	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(cfg.Timeout)

	return &Adapter{
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		apiVersion: cfg.APIVersion,
	}
}

// Type returns the marketplace this adapter serves.
func (a *Adapter) Type() domain.MarketplaceType {
	return domain.MarketplaceShopify
}

// endpoint builds the GraphQL endpoint from the credential bundle. A shop_url
// that already carries a scheme is used verbatim, which also serves test
// servers.
func (a *Adapter) endpoint(creds domain.Credentials) string {
	shop := strings.TrimSuffix(creds.Get("shop_url"), "/")
	if strings.HasPrefix(shop, "http://") || strings.HasPrefix(shop, "https://") {
		return fmt.Sprintf("%s/admin/api/%s/graphql.json", shop, a.apiVersion)
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shop, a.apiVersion)
}

// execute posts one GraphQL request and decodes the response into out.
func (a *Adapter) execute(ctx context.Context, op string, creds domain.Credentials, req graphQLRequest, out interface{}) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return &marketplace.TransportError{Op: op, Err: err}
	}

	// Decode by expected format, not the server's declared content type. A
	// body that is not valid JSON then surfaces as an error instead of a
	// silently zero-valued result.
	resp, err := a.client.R().
		ForceContentType("application/json").
		SetContext(ctx).
		SetHeader("X-Shopify-Access-Token", creds.Get("access_token")).
		SetBody(req).
		SetResult(out).
		Post(a.endpoint(creds))
	if err != nil {
		if resp != nil && resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
			return &marketplace.DataError{Op: op, Err: err}
		}
		return &marketplace.TransportError{Op: op, Err: err}
	}

	if err := marketplace.ClassifyStatus(op, resp.StatusCode(), fmt.Errorf("%s", strings.TrimSpace(string(resp.Body())))); err != nil {
		return err
	}
	return nil
}

// graphQLErrorsToErr folds a GraphQL error envelope into a typed error.
// Shopify reports auth problems inside a 200 response, so the envelope is
// inspected for access-denied codes before falling back to a data error.
func graphQLErrorsToErr(op string, errs []graphQLError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if code, ok := e.Extensions["code"].(string); ok {
			switch code {
			case "UNAUTHORIZED", "UNAUTHENTICATED":
				return fmt.Errorf("%s: %s: %w", op, e.Message, marketplace.ErrInvalidCredentials)
			case "ACCESS_DENIED":
				return fmt.Errorf("%s: %s: %w", op, e.Message, marketplace.ErrInsufficientScope)
			}
		}
		msgs = append(msgs, e.Message)
	}
	return &marketplace.DataError{Op: op, Err: fmt.Errorf("%s", strings.Join(msgs, "; "))}
}

// TestConnection performs one lightweight shop-info query and reports the
// outcome. Never returns an error.
func (a *Adapter) TestConnection(ctx context.Context, creds domain.Credentials) marketplace.ConnectionTestResult {
	if creds.Get("shop_url") == "" || creds.Get("access_token") == "" {
		return marketplace.ConnectionTestResult{
			Success: false,
			Message: "shop_url and access_token are required",
		}
	}

	var resp testConnectionResponse
	err := a.execute(ctx, "shopify.testConnection", creds, graphQLRequest{
		Query: `{ shop { name myshopifyDomain currencyCode } }`,
	}, &resp)
	if err != nil {
		return marketplace.ConnectionTestResult{Success: false, Message: err.Error()}
	}
	if err := graphQLErrorsToErr("shopify.testConnection", resp.Errors); err != nil {
		return marketplace.ConnectionTestResult{Success: false, Message: err.Error()}
	}
	if resp.Data == nil || resp.Data.Shop == nil {
		return marketplace.ConnectionTestResult{Success: false, Message: "shop info missing from response"}
	}

	return marketplace.ConnectionTestResult{
		Success: true,
		Message: fmt.Sprintf("connected to %s", resp.Data.Shop.Name),
		Metadata: map[string]string{
			"shop_name": resp.Data.Shop.Name,
			"domain":    resp.Data.Shop.MyshopifyDomain,
			"currency":  resp.Data.Shop.CurrencyCode,
		},
	}
}

// FetchIDPage returns one page of candidate product IDs under the pushed-down
// filter query. An empty nextCursor signals the final page.
func (a *Adapter) FetchIDPage(ctx context.Context, creds domain.Credentials, filters domain.ProductSyncFilters, cursor string) ([]string, string, error) {
	variables := map[string]interface{}{
		"first": idPageSize,
		"query": BuildProductQuery(filters),
	}
	if cursor != "" {
		variables["after"] = cursor
	}

	var resp listIDsResponse
	err := a.execute(ctx, "shopify.fetchIDPage", creds, graphQLRequest{
		Query: `query($first: Int!, $after: String, $query: String) {
  products(first: $first, after: $after, query: $query) {
    pageInfo { hasNextPage endCursor }
    edges { node { id } }
  }
}`,
		Variables: variables,
	}, &resp)
	if err != nil {
		return nil, "", err
	}
	if err := graphQLErrorsToErr("shopify.fetchIDPage", resp.Errors); err != nil {
		return nil, "", err
	}
	if resp.Data == nil {
		return nil, "", &marketplace.DataError{Op: "shopify.fetchIDPage", Err: fmt.Errorf("missing data payload")}
	}

	ids := make([]string, 0, len(resp.Data.Products.Edges))
	for _, edge := range resp.Data.Products.Edges {
		ids = append(ids, edge.Node.ID)
	}

	next := ""
	if resp.Data.Products.PageInfo.HasNextPage {
		next = resp.Data.Products.PageInfo.EndCursor
	}
	return ids, next, nil
}

// FetchProduct fetches one product, with variants and images, in a single
// combined query and maps it to the canonical shape.
func (a *Adapter) FetchProduct(ctx context.Context, creds domain.Credentials, externalID string) (*domain.Product, error) {
	var resp fetchProductResponse
	err := a.execute(ctx, "shopify.fetchProduct", creds, graphQLRequest{
		Query: `query($id: ID!) {
  product(id: $id) {
    id title descriptionHtml vendor productType tags status handle createdAt updatedAt
    images(first: 50) { edges { node { url altText } } }
    variants(first: 100) {
      edges {
        node {
          id title price compareAtPrice sku inventoryQuantity
          inventoryItem { measurement { weight { value unit } } }
        }
      }
    }
  }
}`,
		Variables: map[string]interface{}{"id": externalID},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := graphQLErrorsToErr("shopify.fetchProduct", resp.Errors); err != nil {
		return nil, err
	}
	if resp.Data == nil || resp.Data.Product == nil {
		return nil, fmt.Errorf("shopify.fetchProduct: product %s: %w", externalID, marketplace.ErrNotFound)
	}

	return MapProduct(resp.Data.Product), nil
}

// FetchCategories lists the shop's distinct product types as a flat,
// level-annotated list. Shopify product types are flat already, so every
// entry sits at level 0, and the type name doubles as the entry ID, which is
// the value the push-down query filters on.
func (a *Adapter) FetchCategories(ctx context.Context, creds domain.Credentials) ([]marketplace.CategoryEntry, error) {
	var resp listTypesResponse
	err := a.execute(ctx, "shopify.fetchCategories", creds, graphQLRequest{
		Query: fmt.Sprintf(`{ shop { productTypes(first: %d) { pageInfo { hasNextPage endCursor } edges { node } } } }`, collectionPage),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := graphQLErrorsToErr("shopify.fetchCategories", resp.Errors); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &marketplace.DataError{Op: "shopify.fetchCategories", Err: fmt.Errorf("missing data payload")}
	}

	entries := make([]marketplace.CategoryEntry, 0, len(resp.Data.Shop.ProductTypes.Edges))
	for _, edge := range resp.Data.Shop.ProductTypes.Edges {
		if edge.Node == "" {
			continue
		}
		entries = append(entries, marketplace.CategoryEntry{ID: edge.Node, Name: edge.Node})
	}
	return entries, nil
}

// FetchBrands lists distinct product vendors. Shopify models brands as plain
// vendor strings, so the vendor name doubles as the entry ID.
func (a *Adapter) FetchBrands(ctx context.Context, creds domain.Credentials) ([]marketplace.BrandEntry, error) {
	var resp listVendorsResponse
	err := a.execute(ctx, "shopify.fetchBrands", creds, graphQLRequest{
		Query: `{ shop { productVendors(first: 250) { edges { node } } } }`,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if err := graphQLErrorsToErr("shopify.fetchBrands", resp.Errors); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &marketplace.DataError{Op: "shopify.fetchBrands", Err: fmt.Errorf("missing data payload")}
	}

	brands := make([]marketplace.BrandEntry, 0, len(resp.Data.Shop.ProductVendors.Edges))
	for _, edge := range resp.Data.Shop.ProductVendors.Edges {
		if edge.Node == "" {
			continue
		}
		brands = append(brands, marketplace.BrandEntry{ID: edge.Node, Name: edge.Node})
	}
	return brands, nil
}

// CountProductsFor probes whether at least one product exists for the given
// brand or category. Fetches at most one result; returns 0 or 1.
func (a *Adapter) CountProductsFor(ctx context.Context, creds domain.Credentials, kind domain.CacheKind, id string) (int, error) {
	field := "product_type"
	if kind == domain.CacheKindBrand {
		field = "vendor"
	}

	var resp listIDsResponse
	err := a.execute(ctx, "shopify.countProductsFor", creds, graphQLRequest{
		Query: `query($first: Int!, $query: String) {
  products(first: $first, query: $query) {
    pageInfo { hasNextPage endCursor }
    edges { node { id } }
  }
}`,
		Variables: map[string]interface{}{
			"first": 1,
			"query": fmt.Sprintf("%s:%q", field, id),
		},
	}, &resp)
	if err != nil {
		return 0, err
	}
	if err := graphQLErrorsToErr("shopify.countProductsFor", resp.Errors); err != nil {
		return 0, err
	}
	if resp.Data == nil {
		return 0, &marketplace.DataError{Op: "shopify.countProductsFor", Err: fmt.Errorf("missing data payload")}
	}

	if len(resp.Data.Products.Edges) > 0 {
		return 1, nil
	}
	return 0, nil
}
