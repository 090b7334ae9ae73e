package entity

import "time"

// Severity grades a compliance alert.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// ComplianceAlert flags one rule breach on one trade. At most one row exists per (TradeID, RuleName).
// Rows are removed by the database when their trade is deleted.
type ComplianceAlert struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	TradeID     uint64    `gorm:"not null;uniqueIndex:idx_compliance_alerts_trade_rule,priority:1" json:"trade_id"`
	RuleName    string    `gorm:"size:100;not null;uniqueIndex:idx_compliance_alerts_trade_rule,priority:2" json:"rule"`
	Severity    Severity  `gorm:"size:20;not null;default:WARNING" json:"severity"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	Trade       *Trade    `gorm:"foreignKey:TradeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ComplianceAlert) TableName() string {
	return "compliance_alerts"
}
