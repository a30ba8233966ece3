package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/syncline/marketsync/internal/domain"
	"github.com/syncline/marketsync/internal/logger"
	"github.com/syncline/marketsync/internal/marketplace"
	"github.com/syncline/marketsync/internal/repository"
)

// MetadataService serves the catalog metadata (categories and brands) a
// workspace browses when building sync filters. Reads hit a per-connection
// TTL cache; a miss or an expired entry triggers a synchronous refresh
// against the marketplace.
type MetadataService struct {
	connections *repository.ConnectionRepository
	cache       *repository.CatalogCacheRepository
	registry    *marketplace.Registry
	logger      *logger.Logger
	retry       RetryPolicy

	ttlHours       int
	probeBatchSize int
}

// MetadataConfig holds tunables for the metadata service.
type MetadataConfig struct {
	TTLHours       int
	ProbeBatchSize int
	Retry          RetryPolicy
}

// NewMetadataService creates a new metadata service.
// Parameters:
//   - connections: store connection repository.
//   - cache: catalog cache repository.
//   - registry: marketplace adapter registry.
//   - log: structured logger.
//   - cfg: service tunables; nil uses defaults.
// Returns:
//   - *MetadataService: initialized metadata service.
func NewMetadataService(
	connections *repository.ConnectionRepository,
	cache *repository.CatalogCacheRepository,
	registry *marketplace.Registry,
	log *logger.Logger,
	cfg *MetadataConfig,
) *MetadataService {
	if cfg == nil {
		cfg = &MetadataConfig{}
	}
	if cfg.TTLHours <= 0 {
		cfg.TTLHours = domain.DefaultCacheTTLHours
	}
	if cfg.ProbeBatchSize <= 0 {
		cfg.ProbeBatchSize = 5
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &MetadataService{
		connections:    connections,
		cache:          cache,
		registry:       registry,
		logger:         log,
		retry:          cfg.Retry,
		ttlHours:       cfg.TTLHours,
		probeBatchSize: cfg.ProbeBatchSize,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *MetadataService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Get returns the cached catalog entries of the given kind for a connection,
// refreshing from the marketplace when the cache is missing, expired, or
// force is set. A fresh cache hit performs zero marketplace calls.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - connectionID: store connection whose catalog is queried.
//   - kind: category or brand.
//   - force: bypass the TTL and refresh unconditionally.
// Returns:
//   - []domain.CatalogCacheItem: entries with at least one product.
//   - error: non-nil when the refresh fails; a failed refresh never
//     invalidates the previous cache.
func (s *MetadataService) Get(ctx context.Context, connectionID string, kind domain.CacheKind, force bool) ([]domain.CatalogCacheItem, error) {
	if !force {
		cached, err := s.cache.Get(ctx, connectionID, kind)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to read catalog cache: %w", err)
		}
		if cached != nil && !cached.IsExpired(time.Now()) {
			return cached.Items, nil
		}
	}

	return s.Refresh(ctx, connectionID, kind)
}

// Refresh fetches the catalog of the given kind from the marketplace, drops
// entries with no products, and replaces the cache wholesale under a new
// TTL.
func (s *MetadataService) Refresh(ctx context.Context, connectionID string, kind domain.CacheKind) ([]domain.CatalogCacheItem, error) {
	conn, err := s.connections.GetByID(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("connection not found: %w", err)
	}

	adapter, err := s.registry.Get(conn.MarketplaceType)
	if err != nil {
		return nil, err
	}

	ctx = logger.SetConnectionID(ctx, connectionID)
	start := time.Now()

	var items []domain.CatalogCacheItem
	switch kind {
	case domain.CacheKindCategory:
		items, err = s.fetchCategories(ctx, adapter, conn.Credentials)
	case domain.CacheKindBrand:
		items, err = s.fetchBrands(ctx, adapter, conn.Credentials)
	default:
		return nil, fmt.Errorf("unknown catalog kind %q", kind)
	}
	if err != nil {
		return nil, err
	}

	items, err = s.dropEmpty(ctx, adapter, conn.Credentials, kind, items)
	if err != nil {
		return nil, err
	}

	entry := &domain.CatalogCache{
		ID:                uuid.New().String(),
		StoreConnectionID: connectionID,
		Kind:              kind,
		MarketplaceType:   conn.MarketplaceType,
		Items:             items,
		TTLHours:          s.ttlHours,
	}
	if err := s.cache.Replace(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to store catalog cache: %w", err)
	}

	logger.With(logger.Fields{
		"kind":        string(kind),
		"count":       len(items),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info(ctx, "Catalog cache refreshed")

	return items, nil
}

// Invalidate drops all cached catalog entries for a connection.
func (s *MetadataService) Invalidate(ctx context.Context, connectionID string) error {
	return s.cache.DeleteByConnection(ctx, connectionID)
}

func (s *MetadataService) fetchCategories(ctx context.Context, adapter marketplace.Adapter, creds domain.Credentials) ([]domain.CatalogCacheItem, error) {
	var entries []marketplace.CategoryEntry
	err := s.retry.Do(ctx, func() error {
		var ferr error
		entries, ferr = adapter.FetchCategories(ctx, creds)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}

	items := make([]domain.CatalogCacheItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, domain.CatalogCacheItem{
			ID:       e.ID,
			Name:     e.Name,
			ParentID: e.ParentID,
			Level:    e.Level,
		})
	}
	return items, nil
}

func (s *MetadataService) fetchBrands(ctx context.Context, adapter marketplace.Adapter, creds domain.Credentials) ([]domain.CatalogCacheItem, error) {
	var entries []marketplace.BrandEntry
	err := s.retry.Do(ctx, func() error {
		var ferr error
		entries, ferr = adapter.FetchBrands(ctx, creds)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch brands: %w", err)
	}

	items := make([]domain.CatalogCacheItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, domain.CatalogCacheItem{
			ID:   e.ID,
			Name: e.Name,
		})
	}
	return items, nil
}

// dropEmpty probes each entry for product existence in small concurrent
// batches and keeps only entries with at least one product. The probe is a
// 0/1 existence check, so ProductCount never exceeds 1.
func (s *MetadataService) dropEmpty(ctx context.Context, adapter marketplace.Adapter, creds domain.Credentials, kind domain.CacheKind, items []domain.CatalogCacheItem) ([]domain.CatalogCacheItem, error) {
	counts := make([]int, len(items))

	for start := 0; start < len(items); start += s.probeBatchSize {
		end := start + s.probeBatchSize
		if end > len(items) {
			end = len(items)
		}

		type probeResult struct {
			idx   int
			count int
			err   error
		}
		results := make(chan probeResult, end-start)

		for i := start; i < end; i++ {
			go func(idx int) {
				var count int
				err := s.retry.Do(ctx, func() error {
					var ferr error
					count, ferr = adapter.CountProductsFor(ctx, creds, kind, items[idx].ID)
					return ferr
				})
				results <- probeResult{idx: idx, count: count, err: err}
			}(i)
		}

		for i := start; i < end; i++ {
			r := <-results
			if r.err != nil {
				return nil, fmt.Errorf("failed to probe %s %s: %w", kind, items[r.idx].ID, r.err)
			}
			counts[r.idx] = r.count
		}
	}

	kept := make([]domain.CatalogCacheItem, 0, len(items))
	for i, item := range items {
		if counts[i] == 0 {
			continue
		}
		item.ProductCount = counts[i]
		kept = append(kept, item)
	}
	return kept, nil
}
