// Package integration contains the catalog integration bounded context.
// It links a product on the domestic marketplace (Naver) to its counterpart
// on the international storefront (Shopify) for one shared SKU.
//
// Key concepts:
//   - Mapping: Entity linking both catalogs' identities for a SKU plus cached quantities and prices
//   - CatalogPlatform: Port interface for reading and writing one catalog's inventory and price
//   - ExchangeRate: KRW to USD conversion record, at most one active at a time
//   - PriceRule: Margin rule selected by priority when computing the storefront price
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
