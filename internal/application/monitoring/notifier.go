package monitoring

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/YKLee98/naver-sub003/internal/domain/alert"
)

// Notifier is told about every alert as it is created
type Notifier interface {
	Notify(ctx context.Context, a *alert.Alert) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, a *alert.Alert) error

// Notify implements Notifier
func (f NotifierFunc) Notify(ctx context.Context, a *alert.Alert) error { return f(ctx, a) }

// LogNotifier writes alerts to the structured log
type LogNotifier struct {
	logger  *zap.Logger
	printer *message.Printer
	title   cases.Caser
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{
		logger:  logger.Named("alerts"),
		printer: message.NewPrinter(language.English),
		title:   cases.Title(language.English),
	}
}

// Notify implements Notifier
func (n *LogNotifier) Notify(_ context.Context, a *alert.Alert) error {
	level := n.logger.Warn
	if a.Severity.Rank() >= alert.SeverityHigh.Rank() {
		level = n.logger.Error
	}
	level(n.Headline(a),
		zap.String("alert_id", a.ID),
		zap.String("sku", a.SKU),
		zap.String("type", string(a.Type)),
		zap.String("severity", string(a.Severity)),
		zap.Any("details", a.Details),
	)
	return nil
}

// Headline renders a one-line operator summary such as
// "Discrepancy [high] SKU-1: naver 1,250 vs shopify 1,200"
func (n *LogNotifier) Headline(a *alert.Alert) string {
	label := n.title.String(strings.ReplaceAll(string(a.Type), "_", " "))
	naver, okN := quantity(a.Details["naver"])
	shopify, okS := quantity(a.Details["shopify"])
	if okN && okS {
		return n.printer.Sprintf("%s [%s] %s: naver %d vs shopify %d", label, a.Severity, a.SKU, naver, shopify)
	}
	if a.Message != "" {
		return n.printer.Sprintf("%s [%s] %s: %s", label, a.Severity, a.SKU, a.Message)
	}
	return n.printer.Sprintf("%s [%s] %s", label, a.Severity, a.SKU)
}

func quantity(v any) (int, bool) {
	switch q := v.(type) {
	case int:
		return q, true
	case int64:
		return int(q), true
	case float64:
		return int(q), true
	}
	return 0, false
}
