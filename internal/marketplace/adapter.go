package marketplace

import (
	"context"

	"github.com/syncline/marketsync/internal/domain"
)

const (
	// MaxPageFetches is the hard ceiling on pagination rounds per listing.
	// Guards against marketplaces that never signal a final page.
	MaxPageFetches = 200

	// MaxCategoryDepth bounds how deep a category hierarchy is flattened.
	MaxCategoryDepth = 3
)

// ConnectionTestResult is the outcome of a credential test. TestConnection
// never returns an error; failures are reported through Success and Message.
type ConnectionTestResult struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CategoryEntry is one flattened category with hierarchy annotations.
type CategoryEntry struct {
	ID       string
	Name     string
	ParentID string
	Level    int
}

// BrandEntry is one active brand. Adapters drop disabled brands before
// returning, so callers never see them.
type BrandEntry struct {
	ID   string
	Name string
}

// Adapter is the fixed capability set every marketplace integration
// implements. Implementations translate workspace-level sync filters into
// whatever query mechanism their marketplace offers: a server-side query
// string where the marketplace supports push-down, or a client-side
// post-filter where it does not.
type Adapter interface {
	// Type returns the marketplace this adapter serves.
	Type() domain.MarketplaceType

	// TestConnection performs one lightweight authenticated call and reports
	// the outcome. It never returns an error; auth and transport failures
	// populate Success=false with a human-readable message extracted from the
	// marketplace's error envelope when available.
	TestConnection(ctx context.Context, creds domain.Credentials) ConnectionTestResult

	// FetchIDPage returns one page of candidate external product IDs under
	// the given filters. Passing an empty cursor starts the sequence; an empty
	// nextCursor signals the final page. The sequence is restartable from any
	// previously returned cursor.
	FetchIDPage(ctx context.Context, creds domain.Credentials, filters domain.ProductSyncFilters, cursor string) (ids []string, nextCursor string, err error)

	// FetchProduct fetches the complete data for one external ID, performing
	// however many marketplace calls that requires, and returns it mapped to
	// the canonical product shape. Missing optional sub-resources resolve to
	// zero values rather than failing the fetch.
	FetchProduct(ctx context.Context, creds domain.Credentials, externalID string) (*domain.Product, error)

	// FetchCategories returns the category tree flattened into a
	// level-annotated list, at most MaxCategoryDepth levels deep.
	FetchCategories(ctx context.Context, creds domain.Credentials) ([]CategoryEntry, error)

	// FetchBrands returns the marketplace's active brands.
	FetchBrands(ctx context.Context, creds domain.Credentials) ([]BrandEntry, error)

	// CountProductsFor probes whether at least one product exists under the
	// given category or brand. Returns 0 or 1: a cheap existence check, not a
	// true count.
	CountProductsFor(ctx context.Context, creds domain.Credentials, kind domain.CacheKind, id string) (int, error)
}
