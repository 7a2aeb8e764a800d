package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// MappingSortFields contains allowed sort fields for product mappings
var MappingSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"sku":            true,
	"product_name":   true,
	"vendor":         true,
	"sync_status":    true,
	"last_synced_at": true,
}

// SyncJobSortFields contains allowed sort fields for sync jobs
var SyncJobSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"status":       true,
	"type":         true,
	"completed_at": true,
}

// orderClause builds a safe ORDER BY expression from user input
func orderClause(field, dir string, allowed map[string]bool, defaultField string) string {
	return ValidateSortField(field, allowed, defaultField) + " " + ValidateSortOrder(dir)
}
