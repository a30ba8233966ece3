package vtex

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexFloat decodes a JSON number that some VTEX endpoints emit as a number
// and others as a quoted string.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// productSummary is one row of the paged product listing. Carries just enough
// for the client-side filter predicate.
type productSummary struct {
	ID          int    `json:"Id"`
	Name        string `json:"Name"`
	BrandID     int    `json:"BrandId"`
	CategoryID  int    `json:"CategoryId"`
	IsActive    bool   `json:"IsActive"`
	DateCreated string `json:"DateCreated"`
}

type productListResponse struct {
	Products []productSummary `json:"Products"`
	Paging   struct {
		Page  int `json:"Page"`
		Pages int `json:"Pages"`
		Total int `json:"Total"`
	} `json:"Paging"`
}

// productRecord is the primary product resource.
type productRecord struct {
	ID          int    `json:"Id"`
	Name        string `json:"Name"`
	Description string `json:"Description"`
	BrandID     int    `json:"BrandId"`
	BrandName   string `json:"BrandName"`
	CategoryID  int    `json:"CategoryId"`
	LinkID      string `json:"LinkId"`
	IsActive    bool   `json:"IsActive"`
	IsVisible   bool   `json:"IsVisible"`
	KeyWords    string `json:"KeyWords"`
	DateCreated string `json:"DateCreated"`
	DateUpdated string `json:"DateUpdated"`
}

// skuRecord is one stock keeping unit attached to a product.
type skuRecord struct {
	ID        int       `json:"Id"`
	ProductID int       `json:"ProductId"`
	Name      string    `json:"Name"`
	RefID     string    `json:"RefId"`
	IsActive  bool      `json:"IsActive"`
	WeightKg  FlexFloat `json:"WeightKg"`
	ImageURL  string    `json:"ImageUrl"`
}

// priceRecord is the pricing sub-resource. May be absent entirely when no
// price is configured for the product.
type priceRecord struct {
	BasePrice FlexFloat `json:"basePrice"`
	ListPrice FlexFloat `json:"listPrice"`
}

// inventoryRecord is the logistics sub-resource.
type inventoryRecord struct {
	TotalQuantity int `json:"totalQuantity"`
}

// categoryTreeNode is one node of the nested category tree endpoint.
type categoryTreeNode struct {
	ID       int                `json:"id"`
	Name     string             `json:"name"`
	Children []categoryTreeNode `json:"children"`
}

// brandRecord is one brand from the brand list endpoint.
type brandRecord struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

// searchItem is one hit from the public product search endpoint, used only
// for existence probes.
type searchItem struct {
	ProductID string `json:"productId"`
}
