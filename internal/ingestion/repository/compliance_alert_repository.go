package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"golang-trade-clearinghouse/internal/entity"
)

// ComplianceAlertRepository defines the interface for interacting with compliance alerts.
type ComplianceAlertRepository interface {
	Exists(ctx context.Context, tradeID uint64, ruleName string) (bool, error)
	Create(ctx context.Context, alert *entity.ComplianceAlert) error
	FindByTradeDate(ctx context.Context, date time.Time) ([]entity.ComplianceAlert, error)
	CountByTrade(ctx context.Context, tradeID uint64) (int64, error)
}

type complianceAlertRepository struct {
	db *gorm.DB
}

// NewComplianceAlertRepository creates a new instance of ComplianceAlertRepository.
func NewComplianceAlertRepository(db *gorm.DB) ComplianceAlertRepository {
	return &complianceAlertRepository{db: db}
}

func (r *complianceAlertRepository) Exists(ctx context.Context, tradeID uint64, ruleName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ComplianceAlert{}).
		Where("trade_id = ? AND rule_name = ?", tradeID, ruleName).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *complianceAlertRepository) Create(ctx context.Context, alert *entity.ComplianceAlert) error {
	return r.db.WithContext(ctx).Omit("Trade").Create(alert).Error
}

// FindByTradeDate returns the alerts whose trade falls on date, with the trade preloaded.
func (r *complianceAlertRepository) FindByTradeDate(ctx context.Context, date time.Time) ([]entity.ComplianceAlert, error) {
	var alerts []entity.ComplianceAlert
	err := r.db.WithContext(ctx).
		Joins("JOIN trades ON trades.id = compliance_alerts.trade_id").
		Where("trades.trade_date = ?", datatypes.Date(date)).
		Preload("Trade").
		Order("compliance_alerts.id").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *complianceAlertRepository) CountByTrade(ctx context.Context, tradeID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ComplianceAlert{}).Where("trade_id = ?", tradeID).Count(&count).Error
	return count, err
}
