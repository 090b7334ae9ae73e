package notifier

import (
	"context"
	"time"

	"golang-trade-clearinghouse/internal/ingestion/dto"
	"golang-trade-clearinghouse/pkg/telegram"
)

type telegramNotifier struct {
	client telegram.Notifier
	now    func() time.Time
}

// NewTelegramNotifier sends alerts and critical failures to a Telegram chat.
func NewTelegramNotifier(client telegram.Notifier) Notifier {
	return &telegramNotifier{client: client, now: time.Now}
}

func (n *telegramNotifier) Name() string {
	return "telegram"
}

func (n *telegramNotifier) NotifyAlert(ctx context.Context, alert dto.CreatedAlert) error {
	return n.client.SendMessage(ctx, telegram.FormatComplianceAlertForTelegram(alert.Alert, alert.Trade))
}

func (n *telegramNotifier) NotifyCritical(ctx context.Context, kind, message, data string) error {
	return n.client.SendMessage(ctx, telegram.FormatErrorAlertMessage(n.now(), kind, message, data))
}

func (n *telegramNotifier) Close() error {
	return nil
}
