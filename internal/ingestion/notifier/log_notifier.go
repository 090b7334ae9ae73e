package notifier

import (
	"context"

	"golang-trade-clearinghouse/internal/ingestion/dto"
	"golang-trade-clearinghouse/pkg/logger"
)

type logNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier writes alerts to the service log. It is always enabled.
func NewLogNotifier(log *logger.Logger) Notifier {
	return &logNotifier{logger: log}
}

func (n *logNotifier) Name() string {
	return "log"
}

func (n *logNotifier) NotifyAlert(ctx context.Context, alert dto.CreatedAlert) error {
	n.logger.WarnContext(ctx, "COMPLIANCE ALERT",
		logger.StringField("account", alert.Trade.Account),
		logger.StringField("ticker", alert.Trade.Ticker),
		logger.StringField("rule", alert.Alert.RuleName),
		logger.StringField("severity", string(alert.Alert.Severity)),
		logger.StringField("description", alert.Alert.Description))
	return nil
}

func (n *logNotifier) NotifyCritical(ctx context.Context, kind, message, data string) error {
	n.logger.ErrorContext(ctx, "CRITICAL",
		logger.StringField("kind", kind),
		logger.StringField("message", message),
		logger.StringField("data", data))
	return nil
}

func (n *logNotifier) Close() error {
	return nil
}
