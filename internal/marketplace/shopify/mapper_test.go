package shopify

import (
	"encoding/json"
	"testing"

	"github.com/syncline/marketsync/internal/domain"
)

const sampleProductJSON = `{
	"id": "gid://shopify/Product/123",
	"title": "Trail Runner",
	"descriptionHtml": "<p>Light trail shoe</p>",
	"vendor": "Nike",
	"productType": "Shoes",
	"tags": ["running", "outdoor"],
	"status": "ACTIVE",
	"handle": "trail-runner",
	"createdAt": "2024-01-10T08:00:00Z",
	"updatedAt": "2024-02-01T12:00:00Z",
	"images": {"edges": [
		{"node": {"url": "https://cdn.example.com/1.jpg", "altText": "front"}}
	]},
	"variants": {"edges": [
		{"node": {
			"id": "gid://shopify/ProductVariant/1",
			"title": "42",
			"price": "129.90",
			"compareAtPrice": "149.90",
			"sku": "TR-42",
			"inventoryQuantity": 7,
			"inventoryItem": {"measurement": {"weight": {"value": 0.5, "unit": "KILOGRAMS"}}}
		}},
		{"node": {
			"id": "gid://shopify/ProductVariant/2",
			"title": "43",
			"price": "129.90",
			"sku": "TR-43",
			"inventoryQuantity": 3
		}}
	]}
}`

func TestMapProduct(t *testing.T) {
	var node productNode
	if err := json.Unmarshal([]byte(sampleProductJSON), &node); err != nil {
		t.Fatalf("failed to unmarshal fixture: %v", err)
	}

	p := MapProduct(&node)

	if p.ExternalID != "gid://shopify/Product/123" {
		t.Errorf("ExternalID = %q", p.ExternalID)
	}
	if p.Status != domain.ProductStatusActive {
		t.Errorf("Status = %q, want active", p.Status)
	}
	if p.NativeStatus != "ACTIVE" {
		t.Errorf("NativeStatus = %q, want ACTIVE", p.NativeStatus)
	}
	if p.Price != 129.90 {
		t.Errorf("Price = %v, want 129.90 (first variant)", p.Price)
	}
	if p.CompareAtPrice != 149.90 {
		t.Errorf("CompareAtPrice = %v, want 149.90", p.CompareAtPrice)
	}
	if p.Inventory != 10 {
		t.Errorf("Inventory = %d, want sum of variants (10)", p.Inventory)
	}
	if len(p.Variants) != 2 {
		t.Fatalf("Variants = %d, want 2", len(p.Variants))
	}
	if p.Variants[0].WeightGrams != 500 {
		t.Errorf("WeightGrams = %v, want 500", p.Variants[0].WeightGrams)
	}
	if len(p.Images) != 1 || p.Images[0].URL != "https://cdn.example.com/1.jpg" {
		t.Errorf("Images = %+v", p.Images)
	}
	if p.ExternalCreatedAt == nil || p.ExternalCreatedAt.Year() != 2024 {
		t.Errorf("ExternalCreatedAt = %v", p.ExternalCreatedAt)
	}
}

func TestMapProductEmptyCollections(t *testing.T) {
	p := MapProduct(&productNode{ID: "gid://shopify/Product/9", Status: "DRAFT"})

	if p.Tags == nil || len(p.Tags) != 0 {
		t.Errorf("Tags should be an empty sequence, got %v", p.Tags)
	}
	if p.Images == nil || len(p.Images) != 0 {
		t.Errorf("Images should be an empty sequence, got %v", p.Images)
	}
	if p.Variants == nil || len(p.Variants) != 0 {
		t.Errorf("Variants should be an empty sequence, got %v", p.Variants)
	}
	if p.Price != 0 || p.Inventory != 0 {
		t.Errorf("no variants should leave price/inventory zero, got %v/%d", p.Price, p.Inventory)
	}
	if p.ExternalCreatedAt != nil {
		t.Errorf("missing timestamps should stay nil")
	}
}

func TestMapStatus(t *testing.T) {
	testCases := []struct {
		native string
		want   domain.ProductStatus
	}{
		{"ACTIVE", domain.ProductStatusActive},
		{"DRAFT", domain.ProductStatusDraft},
		{"ARCHIVED", domain.ProductStatusArchived},
		{"SOMETHING_NEW", domain.ProductStatusDraft},
		{"", domain.ProductStatusDraft},
	}

	for _, tc := range testCases {
		if got := mapStatus(tc.native); got != tc.want {
			t.Errorf("mapStatus(%q) = %q, want %q", tc.native, got, tc.want)
		}
	}
}

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		in   string
		want float64
	}{
		{"129.90", 129.90},
		{"0", 0},
		{"", 0},
		{"not-a-number", 0},
	}

	for _, tc := range testCases {
		if got := parsePrice(tc.in); got != tc.want {
			t.Errorf("parsePrice(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestToGrams(t *testing.T) {
	testCases := []struct {
		value float64
		unit  string
		want  float64
	}{
		{1, "KILOGRAMS", 1000},
		{1, "GRAMS", 1},
		{2, "POUNDS", 907.18474},
		{1, "OUNCES", 28.349523125},
		{5, "UNKNOWN", 5},
	}

	for _, tc := range testCases {
		if got := toGrams(tc.value, tc.unit); got != tc.want {
			t.Errorf("toGrams(%v, %q) = %v, want %v", tc.value, tc.unit, got, tc.want)
		}
	}
}
