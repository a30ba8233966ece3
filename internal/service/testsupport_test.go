package service

import (
	"context"
	"io"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/syncline/marketsync/internal/config"
	"github.com/syncline/marketsync/internal/domain"
	"github.com/syncline/marketsync/internal/logger"
	"github.com/syncline/marketsync/internal/marketplace"
	"github.com/syncline/marketsync/internal/queue"
	"github.com/syncline/marketsync/internal/repository"
)

// fakeAdapter is an in-memory marketplace with call counters. Pages are keyed
// by numeric cursor; the last page returns an empty next cursor.
type fakeAdapter struct {
	mu sync.Mutex

	pages       [][]string
	endless     []string // when set, every page returns these IDs and a next cursor
	products    map[string]*domain.Product
	productErrs map[string]error
	pageErr     error
	categories  []marketplace.CategoryEntry
	brands      []marketplace.BrandEntry
	counts      map[string]int

	pageCalls     int
	productCalls  int
	categoryCalls int
	brandCalls    int
	countCalls    int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		products:    make(map[string]*domain.Product),
		productErrs: make(map[string]error),
		counts:      make(map[string]int),
	}
}

func (f *fakeAdapter) Type() domain.MarketplaceType {
	return domain.MarketplaceShopify
}

func (f *fakeAdapter) TestConnection(ctx context.Context, creds domain.Credentials) marketplace.ConnectionTestResult {
	return marketplace.ConnectionTestResult{Success: true, Message: "connected"}
}

func (f *fakeAdapter) FetchIDPage(ctx context.Context, creds domain.Credentials, filters domain.ProductSyncFilters, cursor string) ([]string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls++
	if f.pageErr != nil {
		return nil, "", f.pageErr
	}
	if f.endless != nil {
		return f.endless, strconv.Itoa(f.pageCalls), nil
	}

	idx := 0
	if cursor != "" {
		var err error
		idx, err = strconv.Atoi(cursor)
		if err != nil {
			return nil, "", err
		}
	}
	if idx >= len(f.pages) {
		return nil, "", nil
	}

	next := ""
	if idx+1 < len(f.pages) {
		next = strconv.Itoa(idx + 1)
	}
	return f.pages[idx], next, nil
}

func (f *fakeAdapter) FetchProduct(ctx context.Context, creds domain.Credentials, externalID string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productCalls++
	if err, ok := f.productErrs[externalID]; ok {
		return nil, err
	}
	p, ok := f.products[externalID]
	if !ok {
		return nil, marketplace.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (f *fakeAdapter) FetchCategories(ctx context.Context, creds domain.Credentials) ([]marketplace.CategoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categoryCalls++
	return f.categories, nil
}

func (f *fakeAdapter) FetchBrands(ctx context.Context, creds domain.Credentials) ([]marketplace.BrandEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brandCalls++
	return f.brands, nil
}

func (f *fakeAdapter) CountProductsFor(ctx context.Context, creds domain.Credentials, kind domain.CacheKind, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	return f.counts[string(kind)+":"+id], nil
}

func (f *fakeAdapter) calls() (pages, products, categories, brands, counts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageCalls, f.productCalls, f.categoryCalls, f.brandCalls, f.countCalls
}

func fakeProduct(externalID string) *domain.Product {
	return &domain.Product{
		ID:         externalID,
		ExternalID: externalID,
		Title:      "Product " + externalID,
		Price:      10,
		Status:     domain.ProductStatusActive,
	}
}

// testEnv wires a sqlite-backed repository stack around one fake adapter.
type testEnv struct {
	connections *repository.ConnectionRepository
	products    *repository.ProductRepository
	cache       *repository.CatalogCacheRepository
	queue       *queue.GormQueue
	registry    *marketplace.Registry
	adapter     *fakeAdapter
	logger      *logger.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "test.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}

	adapter := newFakeAdapter()
	registry := marketplace.NewRegistry()
	registry.Register(adapter)

	return &testEnv{
		connections: repository.NewConnectionRepository(db),
		products:    repository.NewProductRepository(db),
		cache:       repository.NewCatalogCacheRepository(db),
		queue:       queue.NewGormQueue(repository.NewSyncJobRepository(db)),
		registry:    registry,
		adapter:     adapter,
		logger:      logger.New(&logger.Config{Level: "error", Output: io.Discard}),
	}
}

func (e *testEnv) seedConnection(t *testing.T, id string) *domain.StoreConnection {
	t.Helper()
	conn := &domain.StoreConnection{
		ID:              id,
		WorkspaceID:     "ws-1",
		MarketplaceType: domain.MarketplaceShopify,
		Credentials:     domain.Credentials{"shop_url": "test.myshopify.com", "access_token": "tok"},
		DisplayName:     "Test Store",
		SyncStatus:      domain.SyncStatusPending,
	}
	if err := e.connections.Create(context.Background(), conn); err != nil {
		t.Fatalf("seed connection: %v", err)
	}
	return conn
}
