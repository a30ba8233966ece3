package vtex

import (
	"testing"
	"time"

	"github.com/syncline/marketsync/internal/domain"
)

func TestPredicate(t *testing.T) {
	createdAfter := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	active := productSummary{ID: 1, BrandID: 10, CategoryID: 20, IsActive: true, DateCreated: "2024-07-01T00:00:00"}
	inactive := productSummary{ID: 2, BrandID: 11, CategoryID: 21, IsActive: false, DateCreated: "2024-01-01T00:00:00"}

	testCases := []struct {
		name    string
		filters domain.ProductSyncFilters
		summary productSummary
		want    bool
	}{
		{
			name:    "empty filters match everything",
			filters: domain.ProductSyncFilters{},
			summary: inactive,
			want:    true,
		},
		{
			name:    "both statuses mean no status restriction",
			filters: domain.ProductSyncFilters{IncludeActive: true, IncludeInactive: true},
			summary: inactive,
			want:    true,
		},
		{
			name:    "active only rejects inactive",
			filters: domain.ProductSyncFilters{IncludeActive: true},
			summary: inactive,
			want:    false,
		},
		{
			name:    "inactive only rejects active",
			filters: domain.ProductSyncFilters{IncludeInactive: true},
			summary: active,
			want:    false,
		},
		{
			name:    "brand filter matches",
			filters: domain.ProductSyncFilters{BrandIDs: []string{"10"}},
			summary: active,
			want:    true,
		},
		{
			name:    "brand filter rejects other brands",
			filters: domain.ProductSyncFilters{BrandIDs: []string{"99"}},
			summary: active,
			want:    false,
		},
		{
			name:    "category filter matches",
			filters: domain.ProductSyncFilters{CategoryIDs: []string{"20", "21"}},
			summary: active,
			want:    true,
		},
		{
			name:    "created after rejects older products",
			filters: domain.ProductSyncFilters{CreatedAfter: &createdAfter},
			summary: inactive,
			want:    false,
		},
		{
			name:    "created after keeps newer products",
			filters: domain.ProductSyncFilters{CreatedAfter: &createdAfter},
			summary: active,
			want:    true,
		},
		{
			name:    "unparseable date is rejected under a date filter",
			filters: domain.ProductSyncFilters{CreatedAfter: &createdAfter},
			summary: productSummary{ID: 3, IsActive: true, DateCreated: "garbage"},
			want:    false,
		},
		{
			name: "all criteria AND together",
			filters: domain.ProductSyncFilters{
				IncludeActive: true,
				BrandIDs:      []string{"10"},
				CategoryIDs:   []string{"20"},
				CreatedAfter:  &createdAfter,
			},
			summary: active,
			want:    true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			match := Predicate(tc.filters)
			if got := match(tc.summary); got != tc.want {
				t.Errorf("Predicate() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseVTEXTime(t *testing.T) {
	testCases := []struct {
		in      string
		wantErr bool
	}{
		{"2024-07-01T00:00:00Z", false},
		{"2024-07-01T00:00:00", false},
		{"2024-07-01 00:00:00", false},
		{"not-a-date", true},
		{"", true},
	}

	for _, tc := range testCases {
		_, err := parseVTEXTime(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseVTEXTime(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
	}
}
