package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"golang-trade-clearinghouse/internal/entity"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// TradeRepository defines the interface for interacting with trade data.
type TradeRepository interface {
	Upsert(ctx context.Context, trade *entity.Trade) error
	FindByNaturalKey(ctx context.Context, account, ticker string, date time.Time) (*entity.Trade, error)
	FindByDate(ctx context.Context, date time.Time) ([]entity.Trade, error)
	Delete(ctx context.Context, id uint64) error
}

type tradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new instance of TradeRepository.
func NewTradeRepository(db *gorm.DB) TradeRepository {
	return &tradeRepository{db: db}
}

// Upsert inserts the trade or overwrites quantity and price of the row with the same
// (account, ticker, trade_date). On return trade carries the stored id and created_at.
func (r *tradeRepository) Upsert(ctx context.Context, trade *entity.Trade) error {
	incoming := *trade
	incoming.ID = 0

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}, {Name: "ticker"}, {Name: "trade_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "price"}),
	}).Create(&incoming).Error
	if err != nil {
		return fmt.Errorf("upsert trade %s/%s: %w", trade.Account, trade.Ticker, err)
	}

	// The conflict path does not reliably report the existing id on every driver.
	stored, err := r.FindByNaturalKey(ctx, trade.Account, trade.Ticker, trade.Date())
	if err != nil {
		return err
	}
	*trade = *stored
	return nil
}

func (r *tradeRepository) FindByNaturalKey(ctx context.Context, account, ticker string, date time.Time) (*entity.Trade, error) {
	var trade entity.Trade
	err := r.db.WithContext(ctx).
		Where("account = ? AND ticker = ? AND trade_date = ?", account, ticker, datatypes.Date(date)).
		First(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &trade, nil
}

// FindByDate returns all trades of one trade date ordered by id.
func (r *tradeRepository) FindByDate(ctx context.Context, date time.Time) ([]entity.Trade, error) {
	var trades []entity.Trade
	if err := r.db.WithContext(ctx).Where("trade_date = ?", datatypes.Date(date)).Order("id").Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// Delete removes a trade. Its compliance alerts are removed by the ON DELETE CASCADE constraint.
func (r *tradeRepository) Delete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&entity.Trade{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
