package vtex

import (
	"strconv"
	"strings"

	"github.com/syncline/marketsync/internal/domain"
)

// nativeProduct bundles the up-to-four sub-resources one VTEX product fetch
// assembles. Price and Inventory stay nil when the marketplace has no such
// record configured; the fetch itself does not fail.
type nativeProduct struct {
	Product   *productRecord
	SKUs      []skuRecord
	Price     *priceRecord
	Inventory *inventoryRecord
}

// MapProduct transforms the assembled VTEX sub-resources into the canonical
// product shape. Pure. Missing optional sub-resources map to zero values and
// empty sequences, never nulls; the native external ID and status string are
// preserved.
func MapProduct(n *nativeProduct) *domain.Product {
	rec := n.Product
	p := &domain.Product{
		MarketplaceType: string(domain.MarketplaceVTEX),
		ExternalID:      strconv.Itoa(rec.ID),
		Title:           rec.Name,
		Description:     rec.Description,
		Vendor:          rec.BrandName,
		ProductType:     strconv.Itoa(rec.CategoryID),
		Tags:            domain.StringArray{},
		Status:          mapStatus(rec),
		NativeStatus:    nativeStatus(rec),
		Images:          domain.ImageList{},
		Variants:        domain.VariantList{},
		Handle:          rec.LinkID,
	}

	if rec.KeyWords != "" {
		p.Tags = append(p.Tags, splitKeywords(rec.KeyWords)...)
	}

	var price, listPrice float64
	if n.Price != nil {
		price = float64(n.Price.BasePrice)
		listPrice = float64(n.Price.ListPrice)
	}
	p.Price = price
	p.CompareAtPrice = listPrice

	inventory := 0
	if n.Inventory != nil {
		inventory = n.Inventory.TotalQuantity
	}
	p.Inventory = inventory

	for _, sku := range n.SKUs {
		p.Variants = append(p.Variants, domain.ProductVariant{
			ExternalID:     strconv.Itoa(sku.ID),
			Title:          sku.Name,
			Price:          price,
			CompareAtPrice: listPrice,
			SKU:            sku.RefID,
			Inventory:      inventory,
			WeightGrams:    float64(sku.WeightKg) * 1000,
		})
		if sku.ImageURL != "" {
			p.Images = append(p.Images, domain.ProductImage{URL: sku.ImageURL})
		}
	}

	if t, err := parseVTEXTime(rec.DateCreated); err == nil {
		p.ExternalCreatedAt = &t
	}
	if t, err := parseVTEXTime(rec.DateUpdated); err == nil {
		p.ExternalUpdatedAt = &t
	}

	return p
}

// mapStatus applies the fixed VTEX status lookup: inactive products map to
// draft, active-but-hidden to archived, the rest to active.
func mapStatus(rec *productRecord) domain.ProductStatus {
	switch {
	case !rec.IsActive:
		return domain.ProductStatusDraft
	case !rec.IsVisible:
		return domain.ProductStatusArchived
	default:
		return domain.ProductStatusActive
	}
}

// nativeStatus renders VTEX's pair of booleans as a status string so the
// marketplace-native state survives normalization.
func nativeStatus(rec *productRecord) string {
	switch {
	case !rec.IsActive:
		return "inactive"
	case !rec.IsVisible:
		return "invisible"
	default:
		return "active"
	}
}

func splitKeywords(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if word := strings.TrimSpace(part); word != "" {
			out = append(out, word)
		}
	}
	return out
}
