package platform

// shopifyInventoryLevelsResponse is the body of GET inventory_levels.json
type shopifyInventoryLevelsResponse struct {
	InventoryLevels []shopifyInventoryLevel `json:"inventory_levels"`
}

type shopifyInventoryLevel struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	LocationID      int64 `json:"location_id"`
	// Available is null when the item is not tracked at the location
	Available *int   `json:"available"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// shopifySetInventoryRequest is the body of POST inventory_levels/set.json
type shopifySetInventoryRequest struct {
	LocationID      int64 `json:"location_id"`
	InventoryItemID int64 `json:"inventory_item_id"`
	Available       int   `json:"available"`
}

// shopifyVariantEnvelope wraps a variant for GET and PUT variants/{id}.json
type shopifyVariantEnvelope struct {
	Variant shopifyVariant `json:"variant"`
}

type shopifyVariant struct {
	ID              int64  `json:"id"`
	SKU             string `json:"sku,omitempty"`
	Price           string `json:"price"`
	InventoryItemID int64  `json:"inventory_item_id,omitempty"`
}
