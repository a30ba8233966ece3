package shopify

import (
	"fmt"
	"strings"

	"github.com/syncline/marketsync/internal/domain"
)

// BuildProductQuery translates workspace-level sync filters into a Shopify
// search query string evaluated server-side. Clause order is fixed: status,
// then vendor, then product type, then creation date; clauses are joined with
// an implicit AND (space).
//
// Status rules: only-active emits an active clause, only-inactive emits an
// OR over Shopify's two inactive statuses, both-or-neither emits nothing.
// Multi-value vendor and type clauses are OR'd and parenthesized.
func BuildProductQuery(f domain.ProductSyncFilters) string {
	var clauses []string

	switch {
	case f.IncludeActive && !f.IncludeInactive:
		clauses = append(clauses, "status:active")
	case f.IncludeInactive && !f.IncludeActive:
		clauses = append(clauses, "(status:draft OR status:archived)")
	}

	if len(f.BrandIDs) > 0 {
		clauses = append(clauses, orClause("vendor", f.BrandIDs))
	}

	if len(f.CategoryIDs) > 0 {
		clauses = append(clauses, orClause("product_type", f.CategoryIDs))
	}

	if f.CreatedAfter != nil {
		clauses = append(clauses, fmt.Sprintf("created_at:>%s", f.CreatedAfter.UTC().Format("2006-01-02")))
	}

	return strings.Join(clauses, " ")
}

// orClause renders one field clause per value, OR'd together and
// parenthesized when there is more than one value.
func orClause(field string, values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprintf("%s:%q", field, v))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}
