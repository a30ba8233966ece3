package vtex

import (
	"strconv"
	"time"

	"github.com/syncline/marketsync/internal/domain"
)

// Predicate translates workspace-level sync filters into a client-side
// post-filter. VTEX's catalog listing has no query language equivalent to the
// sync criteria, so the adapter enumerates product summaries and applies this
// predicate before returning candidate IDs.
func Predicate(f domain.ProductSyncFilters) func(productSummary) bool {
	brandSet := make(map[int]struct{}, len(f.BrandIDs))
	for _, id := range f.BrandIDs {
		if n, err := strconv.Atoi(id); err == nil {
			brandSet[n] = struct{}{}
		}
	}
	categorySet := make(map[int]struct{}, len(f.CategoryIDs))
	for _, id := range f.CategoryIDs {
		if n, err := strconv.Atoi(id); err == nil {
			categorySet[n] = struct{}{}
		}
	}

	return func(p productSummary) bool {
		// Both-or-neither status selection means no status restriction.
		if f.IncludeActive != f.IncludeInactive {
			if f.IncludeActive && !p.IsActive {
				return false
			}
			if f.IncludeInactive && p.IsActive {
				return false
			}
		}

		if len(brandSet) > 0 {
			if _, ok := brandSet[p.BrandID]; !ok {
				return false
			}
		}

		if len(categorySet) > 0 {
			if _, ok := categorySet[p.CategoryID]; !ok {
				return false
			}
		}

		if f.CreatedAfter != nil {
			created, err := parseVTEXTime(p.DateCreated)
			if err != nil || created.Before(*f.CreatedAfter) {
				return false
			}
		}

		return true
	}
}

// parseVTEXTime accepts the couple of timestamp layouts VTEX endpoints emit.
func parseVTEXTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
