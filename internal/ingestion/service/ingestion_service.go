package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"golang-trade-clearinghouse/internal/entity"
	"golang-trade-clearinghouse/internal/ingestion/compliance"
	"golang-trade-clearinghouse/internal/ingestion/dto"
	"golang-trade-clearinghouse/internal/ingestion/repository"
	"golang-trade-clearinghouse/pkg/logger"
)

// ErrNoData is returned when there is nothing to ingest.
var ErrNoData = errors.New("no data")

// IngestionService persists one file's records and evaluates compliance in a single transaction.
type IngestionService interface {
	Ingest(ctx context.Context, filename string, records []dto.Record) (*dto.IngestResult, error)
}

type ingestionService struct {
	store  repository.Store
	engine *compliance.Engine
	logger *logger.Logger
}

// NewIngestionService creates a new IngestionService.
func NewIngestionService(store repository.Store, engine *compliance.Engine, log *logger.Logger) IngestionService {
	return &ingestionService{store: store, engine: engine, logger: log}
}

// Ingest upserts every record and raises alerts against the per-account totals of
// this file. Either all of it commits or none of it does.
func (s *ingestionService) Ingest(ctx context.Context, filename string, records []dto.Record) (*dto.IngestResult, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}

	notionals := make([]decimal.Decimal, len(records))
	totals := make(map[string]decimal.Decimal)
	for i, rec := range records {
		notionals[i] = rec.Notional()
		totals[rec.Account] = totals[rec.Account].Add(notionals[i])
	}

	result := &dto.IngestResult{Filename: filename}
	err := s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		for i, rec := range records {
			trade := &entity.Trade{
				TradeDate: datatypes.Date(rec.Date),
				Account:   rec.Account,
				Ticker:    rec.Ticker,
				Quantity:  rec.Quantity,
				Price:     rec.Price,
			}
			if err := tx.Trades().Upsert(ctx, trade); err != nil {
				return err
			}

			alerts, err := s.engine.Evaluate(ctx, tx.Alerts(), *trade, compliance.BatchContext{
				Account:      rec.Account,
				Notional:     notionals[i],
				AccountTotal: totals[rec.Account],
			})
			if err != nil {
				return err
			}
			for _, a := range alerts {
				result.Alerts = append(result.Alerts, dto.CreatedAlert{Alert: a, Trade: *trade})
			}
			result.TradesWritten++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", filename, err)
	}

	s.logger.InfoContext(ctx, "File ingested",
		logger.StringField("filename", filename),
		logger.IntField("trades", result.TradesWritten),
		logger.IntField("alerts", len(result.Alerts)))
	return result, nil
}
