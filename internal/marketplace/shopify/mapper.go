package shopify

import (
	"strconv"
	"time"

	"github.com/syncline/marketsync/internal/domain"
)

// statusTable maps Shopify's native product status onto the canonical
// tri-state enum. Unknown statuses fall back to draft.
var statusTable = map[string]domain.ProductStatus{
	"ACTIVE":   domain.ProductStatusActive,
	"DRAFT":    domain.ProductStatusDraft,
	"ARCHIVED": domain.ProductStatusArchived,
}

// MapProduct transforms a Shopify product node into the canonical product
// shape. Pure: no network calls, no defaults beyond those required by the
// canonical contract (missing optional collections become empty sequences,
// price strings are coerced to numbers, the native external ID and status
// string are preserved).
func MapProduct(node *productNode) *domain.Product {
	p := &domain.Product{
		MarketplaceType: string(domain.MarketplaceShopify),
		ExternalID:      node.ID,
		Title:           node.Title,
		Description:     node.DescriptionHTML,
		Vendor:          node.Vendor,
		ProductType:     node.ProductType,
		Tags:            domain.StringArray{},
		Status:          mapStatus(node.Status),
		NativeStatus:    node.Status,
		Images:          domain.ImageList{},
		Variants:        domain.VariantList{},
		Handle:          node.Handle,
	}

	if len(node.Tags) > 0 {
		p.Tags = append(p.Tags, node.Tags...)
	}

	for _, edge := range node.Images.Edges {
		p.Images = append(p.Images, domain.ProductImage{
			URL:     edge.Node.URL,
			AltText: edge.Node.AltText,
		})
	}

	for _, edge := range node.Variants.Edges {
		v := edge.Node
		variant := domain.ProductVariant{
			ExternalID: v.ID,
			Title:      v.Title,
			Price:      parsePrice(v.Price),
			SKU:        v.SKU,
			Inventory:  v.InventoryQuantity,
		}
		if v.CompareAtPrice != nil {
			variant.CompareAtPrice = parsePrice(*v.CompareAtPrice)
		}
		if v.InventoryItem != nil && v.InventoryItem.Measurement != nil && v.InventoryItem.Measurement.Weight != nil {
			variant.WeightGrams = toGrams(v.InventoryItem.Measurement.Weight.Value, v.InventoryItem.Measurement.Weight.Unit)
		}
		p.Variants = append(p.Variants, variant)
	}

	// Product-level price and inventory come from the first variant, which is
	// Shopify's own default-variant convention.
	if len(p.Variants) > 0 {
		p.Price = p.Variants[0].Price
		p.CompareAtPrice = p.Variants[0].CompareAtPrice
		for _, v := range p.Variants {
			p.Inventory += v.Inventory
		}
	}

	if t, err := time.Parse(time.RFC3339, node.CreatedAt); err == nil {
		p.ExternalCreatedAt = &t
	}
	if t, err := time.Parse(time.RFC3339, node.UpdatedAt); err == nil {
		p.ExternalUpdatedAt = &t
	}

	return p
}

func mapStatus(native string) domain.ProductStatus {
	if s, ok := statusTable[native]; ok {
		return s
	}
	return domain.ProductStatusDraft
}

// parsePrice coerces Shopify's decimal-string money values to float64.
// Malformed values coerce to 0 rather than failing the mapping.
func parsePrice(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func toGrams(value float64, unit string) float64 {
	switch unit {
	case "KILOGRAMS":
		return value * 1000
	case "POUNDS":
		return value * 453.59237
	case "OUNCES":
		return value * 28.349523125
	default: // GRAMS
		return value
	}
}
