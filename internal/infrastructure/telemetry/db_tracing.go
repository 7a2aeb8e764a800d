package telemetry

import (
	"errors"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls gorm span detail
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound variables in db.statement
	LogFullSQL bool
	DBName     string
}

// InstrumentDB registers otelgorm plus a callback that annotates spans with
// the table and row count and marks failed statements.
func InstrumentDB(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	for name, register := range map[string]func(string, func(*gorm.DB)) error{
		"sync:annotate_create": cb.Create().After("gorm:create").Register,
		"sync:annotate_query":  cb.Query().After("gorm:query").Register,
		"sync:annotate_update": cb.Update().After("gorm:update").Register,
		"sync:annotate_delete": cb.Delete().After("gorm:delete").Register,
		"sync:annotate_row":    cb.Row().After("gorm:row").Register,
		"sync:annotate_raw":    cb.Raw().After("gorm:raw").Register,
	} {
		if err := register(name, annotateSpan); err != nil {
			return err
		}
	}
	logger.Info("Database tracing enabled", zap.Bool("log_full_sql", cfg.LogFullSQL))
	return nil
}

func annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
}
