package domain

import "time"

// ProductSyncFilters is the marketplace-agnostic sync criteria a workspace
// picks before launching a sync. A pure value object: never persisted on its
// own, but echoed into job records for auditability.
type ProductSyncFilters struct {
	IncludeActive   bool       `json:"include_active"`
	IncludeInactive bool       `json:"include_inactive"`
	BrandIDs        []string   `json:"brand_ids,omitempty"`
	CategoryIDs     []string   `json:"category_ids,omitempty"`
	CreatedAfter    *time.Time `json:"created_after,omitempty"`
}

// IsEmpty reports whether the filters place no restriction at all.
func (f ProductSyncFilters) IsEmpty() bool {
	statusNeutral := f.IncludeActive == f.IncludeInactive
	return statusNeutral && len(f.BrandIDs) == 0 && len(f.CategoryIDs) == 0 && f.CreatedAfter == nil
}
