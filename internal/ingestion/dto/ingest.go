package dto

import (
	"time"

	"golang-trade-clearinghouse/internal/entity"
)

// Processing stages a file can fail in.
const (
	StageRead      = "read"
	StageNormalize = "normalize"
	StageIngest    = "ingest"
	StageArchive   = "archive"
)

// Per-file outcomes.
const (
	FileStatusArchived = "ARCHIVED"
	FileStatusSkipped  = "SKIPPED"
	FileStatusFailed   = "FAILED"
)

// CreatedAlert is an alert written during ingestion together with the trade it flags.
type CreatedAlert struct {
	Alert entity.ComplianceAlert
	Trade entity.Trade
}

// IngestResult summarises one committed file.
type IngestResult struct {
	Filename      string
	TradesWritten int
	Alerts        []CreatedAlert
}

// FileReport is the outcome of one file within a cycle.
type FileReport struct {
	Filename      string
	Status        string
	Stage         string
	Error         string
	TradesWritten int
	AlertsCreated int
}

// CycleReport is the outcome of one polling cycle.
type CycleReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Skipped    bool
	Error      string
	Files      []FileReport
}

// Archived returns the names of files moved to the archive in this cycle.
func (r CycleReport) Archived() []string {
	var names []string
	for _, f := range r.Files {
		if f.Status == FileStatusArchived {
			names = append(names, f.Filename)
		}
	}
	return names
}

// AlertEvent is the payload published to stream and topic sinks for each new alert.
type AlertEvent struct {
	AlertID     uint64    `json:"alert_id"`
	TradeID     uint64    `json:"trade_id"`
	Rule        string    `json:"rule"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
	Account     string    `json:"account"`
	Ticker      string    `json:"ticker"`
	TradeDate   string    `json:"trade_date"`
	Quantity    int64     `json:"quantity"`
	Price       string    `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewAlertEvent flattens a created alert into its published form.
func NewAlertEvent(a CreatedAlert) AlertEvent {
	return AlertEvent{
		AlertID:     a.Alert.ID,
		TradeID:     a.Trade.ID,
		Rule:        a.Alert.RuleName,
		Severity:    string(a.Alert.Severity),
		Description: a.Alert.Description,
		Account:     a.Trade.Account,
		Ticker:      a.Trade.Ticker,
		TradeDate:   a.Trade.Date().Format("2006-01-02"),
		Quantity:    a.Trade.Quantity,
		Price:       a.Trade.Price.String(),
		CreatedAt:   a.Alert.CreatedAt,
	}
}
