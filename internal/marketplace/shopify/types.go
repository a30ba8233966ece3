package shopify

// GraphQL wire structures for the Shopify Admin API. Only the fields the sync
// engine reads are declared.

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string                 `json:"message"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type shopPayload struct {
	Name           string `json:"name"`
	MyshopifyDomain string `json:"myshopifyDomain"`
	CurrencyCode   string `json:"currencyCode"`
}

type testConnectionResponse struct {
	Data *struct {
		Shop *shopPayload `json:"shop"`
	} `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

type idEdge struct {
	Node struct {
		ID string `json:"id"`
	} `json:"node"`
}

type listIDsResponse struct {
	Data *struct {
		Products struct {
			PageInfo pageInfo `json:"pageInfo"`
			Edges    []idEdge `json:"edges"`
		} `json:"products"`
	} `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

type productImage struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

type productVariant struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Price             string  `json:"price"`
	CompareAtPrice    *string `json:"compareAtPrice"`
	SKU               string  `json:"sku"`
	InventoryQuantity int     `json:"inventoryQuantity"`
	InventoryItem     *struct {
		Measurement *struct {
			Weight *struct {
				Value float64 `json:"value"`
				Unit  string  `json:"unit"`
			} `json:"weight"`
		} `json:"measurement"`
	} `json:"inventoryItem"`
}

type productNode struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	DescriptionHTML string   `json:"descriptionHtml"`
	Vendor          string   `json:"vendor"`
	ProductType     string   `json:"productType"`
	Tags            []string `json:"tags"`
	Status          string   `json:"status"`
	Handle          string   `json:"handle"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`
	Images          struct {
		Edges []struct {
			Node productImage `json:"node"`
		} `json:"edges"`
	} `json:"images"`
	Variants struct {
		Edges []struct {
			Node productVariant `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

type fetchProductResponse struct {
	Data *struct {
		Product *productNode `json:"product"`
	} `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

type listTypesResponse struct {
	Data *struct {
		Shop struct {
			ProductTypes struct {
				PageInfo pageInfo `json:"pageInfo"`
				Edges    []struct {
					Node string `json:"node"`
				} `json:"edges"`
			} `json:"productTypes"`
		} `json:"shop"`
	} `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

type listVendorsResponse struct {
	Data *struct {
		Shop struct {
			ProductVendors struct {
				Edges []struct {
					Node string `json:"node"`
				} `json:"edges"`
			} `json:"productVendors"`
		} `json:"shop"`
	} `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}
