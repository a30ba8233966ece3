package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// CacheKind distinguishes the two kinds of cached catalog metadata.
type CacheKind string

const (
	CacheKindCategory CacheKind = "category"
	CacheKindBrand    CacheKind = "brand"
)

// DefaultCacheTTLHours is applied when a cache record is created without an
// explicit TTL.
const DefaultCacheTTLHours = 24

// CatalogCacheItem is one category or brand entry annotated with a product
// count. For marketplaces without a cheap count endpoint the count is an
// existence probe result (0 or 1).
type CatalogCacheItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProductCount int    `json:"product_count"`
	ParentID     string `json:"parent_id,omitempty"`
	Level        int    `json:"level,omitempty"`
}

// CacheItemList stores cache items as a JSON column.
type CacheItemList []CatalogCacheItem

func (l CacheItemList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *CacheItemList) Scan(value interface{}) error {
	if value == nil {
		*l = CacheItemList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan CacheItemList")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, l)
}

// CatalogCache holds the cached category or brand list for one store
// connection. Exactly one record exists per (connection, kind); a refresh
// replaces the record wholesale, never merges.
type CatalogCache struct {
	ID                string          `gorm:"type:text;primaryKey" json:"id"`
	StoreConnectionID string          `gorm:"type:text;not null;index:idx_catalog_caches_conn,unique" json:"store_connection_id"`
	Kind              CacheKind       `gorm:"type:text;not null;index:idx_catalog_caches_conn,unique" json:"kind"`
	MarketplaceType   MarketplaceType `gorm:"type:text" json:"marketplace_type"`
	Items             CacheItemList   `gorm:"type:text" json:"items"`
	TTLHours          int             `gorm:"default:24" json:"ttl_hours"`
	CreatedAt         time.Time       `json:"created_at"`
}

// TableName returns the database table name for CatalogCache.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (CatalogCache) TableName() string {
	return "catalog_caches"
}

// IsExpired reports whether the record is past its TTL at the given instant.
// Parameters:
//   - now: instant to evaluate against.
// Returns:
//   - bool: true when now is after CreatedAt + TTLHours.
func (c *CatalogCache) IsExpired(now time.Time) bool {
	ttl := c.TTLHours
	if ttl <= 0 {
		ttl = DefaultCacheTTLHours
	}
	return now.After(c.CreatedAt.Add(time.Duration(ttl) * time.Hour))
}
