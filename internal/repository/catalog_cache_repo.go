package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/syncline/marketsync/internal/domain"
)

// CatalogCacheRepository handles cached catalog metadata records.
type CatalogCacheRepository struct {
	db *gorm.DB
}

// NewCatalogCacheRepository creates a new CatalogCacheRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *CatalogCacheRepository: repository instance bound to db.
func NewCatalogCacheRepository(db *gorm.DB) *CatalogCacheRepository {
	return &CatalogCacheRepository{db: db}
}

// Get retrieves the cache record for one (connection, kind) pair.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - connectionID: owning store connection.
//   - kind: metadata kind (category or brand).
// Returns:
//   - *domain.CatalogCache: cache record if found.
//   - error: gorm.ErrRecordNotFound when absent; other errors on failure.
func (r *CatalogCacheRepository) Get(ctx context.Context, connectionID string, kind domain.CacheKind) (*domain.CatalogCache, error) {
	var cache domain.CatalogCache
	if err := r.db.WithContext(ctx).
		First(&cache, "store_connection_id = ? AND kind = ?", connectionID, kind).Error; err != nil {
		return nil, err
	}
	return &cache, nil
}

// Replace swaps the cache record for one (connection, kind) pair wholesale.
// The prior record, if any, is deleted in the same transaction; there is no
// partial merge.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - cache: new cache record to persist.
// Returns:
//   - error: non-nil if the swap fails.
func (r *CatalogCacheRepository) Replace(ctx context.Context, cache *domain.CatalogCache) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.CatalogCache{},
			"store_connection_id = ? AND kind = ?", cache.StoreConnectionID, cache.Kind).Error; err != nil {
			return err
		}
		return tx.Create(cache).Error
	})
}

// DeleteByConnection removes all cache records for a store connection. Used
// on disconnect.
func (r *CatalogCacheRepository) DeleteByConnection(ctx context.Context, connectionID string) error {
	return r.db.WithContext(ctx).
		Delete(&domain.CatalogCache{}, "store_connection_id = ?", connectionID).Error
}
