package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ProductStatus is the canonical tri-state product status.
// Values include ProductStatusActive, ProductStatusDraft, and ProductStatusArchived.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusArchived ProductStatus = "archived"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// ProductImage is one image attached to a product.
type ProductImage struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text,omitempty"`
}

// ImageList stores a product's images as a JSON column.
type ImageList []ProductImage

func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *ImageList) Scan(value interface{}) error {
	if value == nil {
		*l = ImageList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan ImageList")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, l)
}

// ProductVariant is one purchasable variant of a product.
type ProductVariant struct {
	ExternalID     string  `json:"external_id"`
	Title          string  `json:"title"`
	Price          float64 `json:"price"`
	CompareAtPrice float64 `json:"compare_at_price,omitempty"`
	SKU            string  `json:"sku,omitempty"`
	Inventory      int     `json:"inventory"`
	WeightGrams    float64 `json:"weight_grams,omitempty"`
}

// VariantList stores a product's variants as a JSON column.
type VariantList []ProductVariant

func (l VariantList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *VariantList) Scan(value interface{}) error {
	if value == nil {
		*l = VariantList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan VariantList")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, l)
}

// Product is the canonical, workspace-scoped product shape normalized from
// any marketplace. The tuple (workspace_id, store_connection_id, external_id)
// is unique; re-syncing upserts by this key and never duplicates rows.
type Product struct {
	ID                string        `gorm:"type:text;primaryKey" json:"id"`
	WorkspaceID       string        `gorm:"type:text;not null;index:idx_products_source,unique" json:"workspace_id"`
	StoreConnectionID string        `gorm:"type:text;not null;index:idx_products_source,unique" json:"store_connection_id"`
	MarketplaceType   string        `gorm:"type:text;not null" json:"marketplace_type"`
	ExternalID        string        `gorm:"type:text;not null;index:idx_products_source,unique;index:idx_products_external" json:"external_id"`
	Title             string        `gorm:"type:text" json:"title"`
	Description       string        `gorm:"type:text" json:"description"`
	Price             float64       `json:"price"`
	CompareAtPrice    float64       `json:"compare_at_price,omitempty"`
	Inventory         int           `json:"inventory"`
	Vendor            string        `gorm:"type:text" json:"vendor"`
	ProductType       string        `gorm:"type:text" json:"product_type"`
	Tags              StringArray   `gorm:"type:text" json:"tags"`
	Status            ProductStatus `gorm:"type:text;index:idx_products_status;default:draft" json:"status"`
	NativeStatus      string        `gorm:"type:text" json:"native_status"`
	Images            ImageList     `gorm:"type:text" json:"images"`
	Variants          VariantList   `gorm:"type:text" json:"variants"`
	Handle            string        `gorm:"type:text" json:"handle"`
	ExternalCreatedAt *time.Time    `json:"external_created_at,omitempty"`
	ExternalUpdatedAt *time.Time    `json:"external_updated_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// TableName returns the database table name for Product.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Product) TableName() string {
	return "products"
}
