package platform

// naverTokenResponse is the body of POST /v1/oauth2/token
type naverTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// naverOriginProductResponse is the body of GET /v2/products/origin-products/{no}
type naverOriginProductResponse struct {
	OriginProduct naverOriginProduct `json:"originProduct"`
}

type naverOriginProduct struct {
	StatusType    string `json:"statusType"`
	Name          string `json:"name"`
	SalePrice     int64  `json:"salePrice"`
	StockQuantity int    `json:"stockQuantity"`
}

// naverOptionStockRequest is the body of PUT /v1/products/origin-products/{no}/option-stock.
// Omitted fields are left unchanged by the platform.
type naverOptionStockRequest struct {
	ProductSalePrice *naverSalePrice `json:"productSalePrice,omitempty"`
	StockQuantity    *int            `json:"stockQuantity,omitempty"`
}

type naverSalePrice struct {
	SalePrice int64 `json:"salePrice"`
}
