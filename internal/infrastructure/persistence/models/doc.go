// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free of ORM tags.
//
// Each model exposes ToDomain and FromDomain, plus a <Model>FromDomain constructor.
// Structured fields (job options, job errors, alert details) are stored as JSON text.
//
// Structure:
//   - base.go: BaseModel and the AutoMigrate model list
//   - mapping.go: product_mappings
//   - ledger.go: inventory_transactions
//   - syncjob.go: sync_jobs
//   - alert.go: alerts
//   - pricing.go: exchange_rates and price_rules
package models
