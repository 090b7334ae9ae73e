package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"golang-trade-clearinghouse/internal/ingestion/dto"
	"golang-trade-clearinghouse/internal/ingestion/repository"
)

var hundred = decimal.NewFromInt(100)

// ReportService defines the read-side views over ingested trades and alerts.
type ReportService interface {
	Blotter(ctx context.Context, date time.Time) ([]dto.BlotterItem, error)
	Positions(ctx context.Context, date time.Time) (dto.PositionsResponse, error)
	Alarms(ctx context.Context, date time.Time) ([]dto.AlarmItem, error)
}

type reportService struct {
	trades repository.TradeRepository
	alerts repository.ComplianceAlertRepository
}

// NewReportService creates a new ReportService.
func NewReportService(trades repository.TradeRepository, alerts repository.ComplianceAlertRepository) ReportService {
	return &reportService{trades: trades, alerts: alerts}
}

// Blotter lists the trades of date with their notional value.
func (s *reportService) Blotter(ctx context.Context, date time.Time) ([]dto.BlotterItem, error) {
	trades, err := s.trades.FindByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	items := make([]dto.BlotterItem, 0, len(trades))
	for _, t := range trades {
		items = append(items, dto.BlotterItem{
			ID:         t.ID,
			Ticker:     t.Ticker,
			Account:    t.Account,
			Quantity:   t.Quantity,
			Price:      t.Price.InexactFloat64(),
			TotalValue: t.Notional().InexactFloat64(),
		})
	}
	return items, nil
}

// Positions returns, per account, each ticker's share of the account's notional on date.
func (s *reportService) Positions(ctx context.Context, date time.Time) (dto.PositionsResponse, error) {
	trades, err := s.trades.FindByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	holdings := make(map[string]map[string]decimal.Decimal)
	for _, t := range trades {
		value := t.Notional()
		totals[t.Account] = totals[t.Account].Add(value)
		if holdings[t.Account] == nil {
			holdings[t.Account] = make(map[string]decimal.Decimal)
		}
		holdings[t.Account][t.Ticker] = holdings[t.Account][t.Ticker].Add(value)
	}

	resp := make(dto.PositionsResponse, len(holdings))
	for account, tickers := range holdings {
		total := totals[account]
		resp[account] = make(map[string]string, len(tickers))
		for ticker, value := range tickers {
			pct := decimal.Zero
			if total.IsPositive() {
				pct = value.Div(total).Mul(hundred)
			}
			resp[account][ticker] = pct.StringFixed(1) + "%"
		}
	}
	return resp, nil
}

// Alarms lists the alerts raised on trades of date.
func (s *reportService) Alarms(ctx context.Context, date time.Time) ([]dto.AlarmItem, error) {
	alerts, err := s.alerts.FindByTradeDate(ctx, date)
	if err != nil {
		return nil, err
	}

	items := make([]dto.AlarmItem, 0, len(alerts))
	for _, a := range alerts {
		item := dto.AlarmItem{
			Rule:        a.RuleName,
			Severity:    string(a.Severity),
			Description: a.Description,
			Triggered:   true,
		}
		if a.Trade != nil {
			item.Account = a.Trade.Account
			item.Ticker = a.Trade.Ticker
		}
		items = append(items, item)
	}
	return items, nil
}
