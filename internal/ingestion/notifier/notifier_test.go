package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"

	"golang-trade-clearinghouse/internal/entity"
	"golang-trade-clearinghouse/internal/ingestion/config"
	"golang-trade-clearinghouse/internal/ingestion/dto"
	"golang-trade-clearinghouse/pkg/logger"
)

type recordingNotifier struct {
	name     string
	err      error
	alerts   []dto.CreatedAlert
	critical []string
	closed   bool
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) NotifyAlert(_ context.Context, alert dto.CreatedAlert) error {
	r.alerts = append(r.alerts, alert)
	return r.err
}

func (r *recordingNotifier) NotifyCritical(_ context.Context, kind, _, _ string) error {
	r.critical = append(r.critical, kind)
	return r.err
}

func (r *recordingNotifier) Close() error {
	r.closed = true
	return nil
}

type fakeTelegram struct {
	messages []string
}

func (f *fakeTelegram) SendMessage(_ context.Context, text string) error {
	f.messages = append(f.messages, text)
	return nil
}

func sampleAlert() dto.CreatedAlert {
	return dto.CreatedAlert{
		Alert: entity.ComplianceAlert{
			ID:          7,
			TradeID:     3,
			RuleName:    "Basket Concentration (>20%)",
			Severity:    entity.SeverityWarning,
			Description: "Ticker AAPL is 80.0% of account ACC_001 basket value",
		},
		Trade: entity.Trade{
			ID:        3,
			TradeDate: datatypes.Date(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)),
			Account:   "ACC_001",
			Ticker:    "AAPL",
			Quantity:  -40,
			Price:     decimal.RequireFromString("2"),
		},
	}
}

func TestMultiNotifierFansOutDespiteFailures(t *testing.T) {
	failing := &recordingNotifier{name: "failing", err: errors.New("down")}
	healthy := &recordingNotifier{name: "healthy"}
	multi := NewMulti(logger.Wrap(zaptest.NewLogger(t)), failing, healthy)

	err := multi.NotifyAlert(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")
	assert.Len(t, failing.alerts, 1)
	assert.Len(t, healthy.alerts, 1)

	require.Error(t, multi.NotifyCritical(context.Background(), "archive", "rename failed", "a.csv"))
	assert.Equal(t, []string{"archive"}, healthy.critical)

	require.NoError(t, multi.Close())
	assert.True(t, failing.closed)
	assert.True(t, healthy.closed)
}

func TestTelegramNotifierFormatsAlert(t *testing.T) {
	tg := &fakeTelegram{}
	n := NewTelegramNotifier(tg)

	require.NoError(t, n.NotifyAlert(context.Background(), sampleAlert()))
	require.Len(t, tg.messages, 1)
	msg := tg.messages[0]
	assert.Contains(t, msg, "*Compliance Alert* [WARNING]")
	assert.Contains(t, msg, "`ACC_001`")
	assert.Contains(t, msg, "-40 @ 2.0000")
	assert.Contains(t, msg, "2025-01-15")
	assert.Contains(t, msg, `account ACC\_001 basket`)

	require.NoError(t, n.NotifyCritical(context.Background(), "archive", "rename failed", "trades.csv"))
	assert.True(t, strings.HasPrefix(tg.messages[1], "📛 [ERROR ALERT]"))
}

func TestNewAlertEvent(t *testing.T) {
	ev := dto.NewAlertEvent(sampleAlert())
	assert.Equal(t, uint64(7), ev.AlertID)
	assert.Equal(t, "2025-01-15", ev.TradeDate)
	assert.Equal(t, "2", ev.Price)
	assert.Equal(t, "WARNING", ev.Severity)
}

func TestNewFromConfigRequiresRedisForStream(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notifier.RedisStream.Enabled = true

	_, err := NewFromConfig(cfg, nil, logger.Wrap(zaptest.NewLogger(t)))
	assert.Error(t, err)

	cfg.Notifier.RedisStream.Enabled = false
	n, err := NewFromConfig(cfg, nil, logger.Wrap(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.NoError(t, n.NotifyAlert(context.Background(), sampleAlert()))
}
