package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-trade-clearinghouse/internal/entity"
	"golang-trade-clearinghouse/pkg/utils"
)

// markdownEscaper escapes the characters legacy Markdown mode treats as markup.
var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// FormatComplianceAlertForTelegram formats a newly raised alert into a Markdown string for Telegram.
func FormatComplianceAlertForTelegram(alert entity.ComplianceAlert, trade entity.Trade) string {
	var emoji string
	switch alert.Severity {
	case entity.SeverityCritical:
		emoji = "🚨"
	case entity.SeverityInfo:
		emoji = "ℹ️"
	default:
		emoji = "⚠️"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s *Compliance Alert* [%s]\n", emoji, alert.Severity))
	builder.WriteString(fmt.Sprintf("📋 *Rule:* %s\n", markdownEscaper.Replace(alert.RuleName)))
	builder.WriteString(fmt.Sprintf("👤 *Account:* `%s`\n", trade.Account))
	builder.WriteString(fmt.Sprintf("📈 *Ticker:* `%s`\n", trade.Ticker))
	builder.WriteString(fmt.Sprintf("🔢 *Quantity:* %d @ %s\n", trade.Quantity, trade.Price.StringFixed(4)))
	builder.WriteString(fmt.Sprintf("📅 *Trade Date:* %s\n", trade.Date().Format(utils.DateLayout)))
	if alert.Description != "" {
		builder.WriteString(fmt.Sprintf("💬 %s\n", markdownEscaper.Replace(alert.Description)))
	}
	return builder.String()
}

// FormatErrorAlertMessage formats an operational failure, such as a file that could not be archived.
func FormatErrorAlertMessage(at time.Time, errType string, errMsg string, data string) string {
	return fmt.Sprintf(`📛 [ERROR ALERT]
%s
🔧 %s
⚠️ %s

📄 Data: %s
`, utils.PrettyDate(at), errType, markdownEscaper.Replace(errMsg), markdownEscaper.Replace(data))
}
