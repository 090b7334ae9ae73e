package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store is the persistence handle handed to ingestion. A Store obtained inside
// WithinTransaction is bound to that transaction.
type Store interface {
	Trades() TradeRepository
	Alerts() ComplianceAlertRepository
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

type store struct {
	db     *gorm.DB
	trades TradeRepository
	alerts ComplianceAlertRepository
}

// NewStore creates a Store over db.
func NewStore(db *gorm.DB) Store {
	return &store{
		db:     db,
		trades: NewTradeRepository(db),
		alerts: NewComplianceAlertRepository(db),
	}
}

func (s *store) Trades() TradeRepository {
	return s.trades
}

func (s *store) Alerts() ComplianceAlertRepository {
	return s.alerts
}

// WithinTransaction runs fn in one database transaction. Any error returned by fn,
// or a panic inside it, rolls the whole transaction back.
func (s *store) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func (s *store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
