package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// MarketplaceType identifies which external marketplace a connection talks to.
type MarketplaceType string

const (
	MarketplaceShopify MarketplaceType = "shopify"
	MarketplaceVTEX    MarketplaceType = "vtex"
)

// SyncStatus represents the last-known sync state of a store connection.
// Values include SyncStatusPending, SyncStatusSyncing, SyncStatusCompleted,
// and SyncStatusFailed.
type SyncStatus string

const (
	SyncStatusPending   SyncStatus = "pending"
	SyncStatusSyncing   SyncStatus = "syncing"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// Credentials is an opaque, marketplace-specific key/value bundle. The engine
// treats it as untyped configuration; only the relevant adapter validates it.
type Credentials map[string]string

// Get returns the value for key or empty string when absent.
func (c Credentials) Get(key string) string {
	if c == nil {
		return ""
	}
	return c[key]
}

// Value implements the driver.Valuer interface for database serialization.
func (c Credentials) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (c *Credentials) Scan(value interface{}) error {
	if value == nil {
		*c = Credentials{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Credentials")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, c)
}

// StoreConnection is one authenticated link between a workspace and a
// marketplace account. Created on a successful credential test; destroying it
// optionally cascades to the products it owns.
type StoreConnection struct {
	ID              string          `gorm:"type:text;primaryKey" json:"id"`
	WorkspaceID     string          `gorm:"type:text;not null;index:idx_connections_workspace" json:"workspace_id"`
	MarketplaceType MarketplaceType `gorm:"type:text;not null" json:"marketplace_type"`
	Credentials     Credentials     `gorm:"type:text" json:"-"`
	DisplayName     string          `gorm:"type:text" json:"display_name"`
	LastSyncAt      *time.Time      `json:"last_sync_at,omitempty"`
	SyncStatus      SyncStatus      `gorm:"type:text;default:pending" json:"sync_status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName returns the database table name for StoreConnection.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (StoreConnection) TableName() string {
	return "store_connections"
}
