package compliance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"golang-trade-clearinghouse/internal/entity"
	"golang-trade-clearinghouse/internal/ingestion/config"
	"golang-trade-clearinghouse/pkg/logger"
)

// Rule identifiers accepted in compliance.rules.
const (
	RuleBasketConcentration = "basket_concentration"
	RuleLargeOrder          = "large_order"
)

// AlertStore is the part of the alert repository the engine writes through.
type AlertStore interface {
	Exists(ctx context.Context, tradeID uint64, ruleName string) (bool, error)
	Create(ctx context.Context, alert *entity.ComplianceAlert) error
}

// Engine evaluates every registered rule against a persisted trade.
type Engine struct {
	rules  []Rule
	logger *logger.Logger
}

// NewEngine creates an Engine over the given rules.
func NewEngine(log *logger.Logger, rules ...Rule) *Engine {
	return &Engine{rules: rules, logger: log}
}

// NewRulesFromConfig builds the rules named in cfg.Rules.
func NewRulesFromConfig(cfg config.Compliance) ([]Rule, error) {
	threshold := decimal.NewFromFloat(0.2)
	if cfg.ConcentrationThreshold != "" {
		t, err := decimal.NewFromString(cfg.ConcentrationThreshold)
		if err != nil {
			return nil, fmt.Errorf("invalid compliance.concentration_threshold %q: %w", cfg.ConcentrationThreshold, err)
		}
		threshold = t
	}

	rules := make([]Rule, 0, len(cfg.Rules))
	for _, name := range cfg.Rules {
		switch name {
		case RuleBasketConcentration:
			rules = append(rules, NewBasketConcentrationRule(threshold))
		case RuleLargeOrder:
			rules = append(rules, NewLargeOrderRule(cfg.LargeOrderQuantityLimit))
		default:
			return nil, fmt.Errorf("unknown compliance rule %q", name)
		}
	}
	return rules, nil
}

// Rules returns the registered rules.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Evaluate runs every rule for trade and stores an alert per violation unless one
// already exists for (trade, rule). It returns only the alerts it created.
func (e *Engine) Evaluate(ctx context.Context, alerts AlertStore, trade entity.Trade, batch BatchContext) ([]entity.ComplianceAlert, error) {
	var created []entity.ComplianceAlert
	for _, rule := range e.rules {
		v := rule.Evaluate(trade, batch)
		if v == nil {
			continue
		}

		exists, err := alerts.Exists(ctx, trade.ID, v.Rule)
		if err != nil {
			return nil, fmt.Errorf("check alert %q for trade %d: %w", v.Rule, trade.ID, err)
		}
		if exists {
			e.logger.DebugContext(ctx, "Alert already recorded",
				logger.Field("trade_id", trade.ID), logger.StringField("rule", v.Rule))
			continue
		}

		alert := entity.ComplianceAlert{
			TradeID:     trade.ID,
			RuleName:    v.Rule,
			Severity:    v.Severity,
			Description: v.Description,
		}
		if err := alerts.Create(ctx, &alert); err != nil {
			return nil, fmt.Errorf("create alert %q for trade %d: %w", v.Rule, trade.ID, err)
		}
		e.logger.InfoContext(ctx, "Compliance alert raised",
			logger.StringField("ticker", trade.Ticker),
			logger.StringField("account", trade.Account),
			logger.StringField("rule", v.Rule))
		created = append(created, alert)
	}
	return created, nil
}
