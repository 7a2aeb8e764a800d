package platform

import (
	"errors"
	"strings"
	"time"

	"github.com/YKLee98/naver-sub003/internal/infrastructure/config"
)

// NaverConfig holds configuration for the Naver Commerce API
type NaverConfig struct {
	// BaseURL is the API host, production unless overridden
	BaseURL string
	// ClientID is the application id issued by the Naver Commerce API center
	ClientID string
	// ClientSecret is the bcrypt salt issued with the application
	ClientSecret string
	// Timeout bounds a single HTTP exchange
	Timeout time.Duration
}

const (
	// NaverProductionAPIURL is the production API endpoint
	NaverProductionAPIURL = "https://api.commerce.naver.com/external"

	// tokenRefreshSkew renews the token this long before it expires
	tokenRefreshSkew = time.Minute
)

// Errors for Naver configuration
var (
	ErrNaverConfigMissingClientID     = errors.New("naver: client id is required")
	ErrNaverConfigMissingClientSecret = errors.New("naver: client secret is required")
	ErrNaverConfigInvalidSecret       = errors.New("naver: client secret must be a bcrypt salt")
)

// NaverConfigFrom builds a NaverConfig from the loaded platform section
func NaverConfigFrom(cfg config.PlatformConfig) *NaverConfig {
	c := &NaverConfig{
		BaseURL:      cfg.BaseURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Timeout:      30 * time.Second,
	}
	if c.BaseURL == "" {
		c.BaseURL = NaverProductionAPIURL
	}
	return c
}

// Validate validates the Naver configuration
func (c *NaverConfig) Validate() error {
	if c.ClientID == "" {
		return ErrNaverConfigMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrNaverConfigMissingClientSecret
	}
	if !strings.HasPrefix(c.ClientSecret, "$2") {
		return ErrNaverConfigInvalidSecret
	}
	return nil
}
