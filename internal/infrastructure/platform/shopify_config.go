package platform

import (
	"errors"
	"time"

	"github.com/YKLee98/naver-sub003/internal/infrastructure/config"
)

// ShopifyConfig holds configuration for the Shopify Admin REST API
type ShopifyConfig struct {
	// ShopURL is the store's admin host, e.g. https://example.myshopify.com
	ShopURL string
	// AccessToken is the Admin API access token of the custom app
	AccessToken string
	// APIVersion is the dated Admin API version, e.g. 2024-01
	APIVersion string
	// LocationID is used when a mapping has no location of its own
	LocationID string
	Timeout    time.Duration
}

// Errors for Shopify configuration
var (
	ErrShopifyConfigMissingShopURL     = errors.New("shopify: shop url is required")
	ErrShopifyConfigMissingAccessToken = errors.New("shopify: access token is required")
	ErrShopifyConfigMissingAPIVersion  = errors.New("shopify: api version is required")
)

// ShopifyConfigFrom builds a ShopifyConfig from the loaded platform section
func ShopifyConfigFrom(cfg config.PlatformConfig) *ShopifyConfig {
	return &ShopifyConfig{
		ShopURL:     cfg.BaseURL,
		AccessToken: cfg.AccessToken,
		APIVersion:  cfg.APIVersion,
		LocationID:  cfg.LocationID,
		Timeout:     30 * time.Second,
	}
}

// Validate validates the Shopify configuration
func (c *ShopifyConfig) Validate() error {
	if c.ShopURL == "" {
		return ErrShopifyConfigMissingShopURL
	}
	if c.AccessToken == "" {
		return ErrShopifyConfigMissingAccessToken
	}
	if c.APIVersion == "" {
		return ErrShopifyConfigMissingAPIVersion
	}
	return nil
}
