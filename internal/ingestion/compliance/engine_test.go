package compliance_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"

	"golang-trade-clearinghouse/internal/entity"
	"golang-trade-clearinghouse/internal/ingestion/compliance"
	"golang-trade-clearinghouse/internal/ingestion/config"
	"golang-trade-clearinghouse/internal/ingestion/repository"
	"golang-trade-clearinghouse/internal/ingestion/testutil"
	"golang-trade-clearinghouse/pkg/logger"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBasketConcentrationBoundary(t *testing.T) {
	rule := compliance.NewBasketConcentrationRule(d("0.20"))
	assert.Equal(t, "Basket Concentration (>20%)", rule.Name())

	tests := []struct {
		name     string
		notional string
		total    string
		fires    bool
	}{
		{name: "exactly at threshold", notional: "20", total: "100", fires: false},
		{name: "above threshold", notional: "80", total: "100", fires: true},
		{name: "just above threshold", notional: "20.0001", total: "100", fires: true},
		{name: "zero total", notional: "0", total: "0", fires: false},
		{name: "single row basket", notional: "5", total: "5", fires: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := rule.Evaluate(entity.Trade{Ticker: "AAPL"}, compliance.BatchContext{
				Account: "ACC001", Notional: d(tt.notional), AccountTotal: d(tt.total),
			})
			assert.Equal(t, tt.fires, v != nil)
		})
	}
}

func TestBasketConcentrationDescription(t *testing.T) {
	rule := compliance.NewBasketConcentrationRule(d("0.20"))

	v := rule.Evaluate(entity.Trade{Ticker: "TSLA"}, compliance.BatchContext{
		Account: "ACC001", Notional: d("2"), AccountTotal: d("3"),
	})

	require.NotNil(t, v)
	assert.Equal(t, entity.SeverityWarning, v.Severity)
	assert.Equal(t, "Ticker TSLA is 66.7% of account ACC001 basket value", v.Description)
}

func TestLargeOrderRule(t *testing.T) {
	rule := compliance.NewLargeOrderRule(100)
	assert.Equal(t, "High Volume (>100)", rule.Name())

	assert.Nil(t, rule.Evaluate(entity.Trade{Quantity: 100}, compliance.BatchContext{}))
	assert.Nil(t, rule.Evaluate(entity.Trade{Quantity: -100}, compliance.BatchContext{}))

	v := rule.Evaluate(entity.Trade{Quantity: -150}, compliance.BatchContext{})
	require.NotNil(t, v)
	assert.Equal(t, "Trade quantity 150 exceeds threshold of 100.", v.Description)
}

func TestNewRulesFromConfig(t *testing.T) {
	rules, err := compliance.NewRulesFromConfig(config.Compliance{
		Rules:                   []string{compliance.RuleBasketConcentration, compliance.RuleLargeOrder},
		ConcentrationThreshold:  "0.25",
		LargeOrderQuantityLimit: 500,
	})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "Basket Concentration (>25%)", rules[0].Name())
	assert.Equal(t, "High Volume (>500)", rules[1].Name())

	_, err = compliance.NewRulesFromConfig(config.Compliance{Rules: []string{"wash_trading"}})
	assert.Error(t, err)

	_, err = compliance.NewRulesFromConfig(config.Compliance{ConcentrationThreshold: "twenty"})
	assert.Error(t, err)
}

func TestEngineEvaluateDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(testutil.NewDB(t))
	engine := compliance.NewEngine(logger.Wrap(zaptest.NewLogger(t)), compliance.NewBasketConcentrationRule(d("0.20")))

	trade := &entity.Trade{
		TradeDate: datatypes.Date(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)),
		Account:   "ACC001",
		Ticker:    "AAPL",
		Quantity:  8,
		Price:     d("10"),
	}
	require.NoError(t, store.Trades().Upsert(ctx, trade))
	batch := compliance.BatchContext{Account: "ACC001", Notional: d("80"), AccountTotal: d("100")}

	created, err := engine.Evaluate(ctx, store.Alerts(), *trade, batch)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, trade.ID, created[0].TradeID)
	assert.NotZero(t, created[0].ID)

	created, err = engine.Evaluate(ctx, store.Alerts(), *trade, batch)
	require.NoError(t, err)
	assert.Empty(t, created)

	count, err := store.Alerts().CountByTrade(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
