package normalizer

import (
	"github.com/shopspring/decimal"

	"golang-trade-clearinghouse/internal/ingestion/dto"
)

// Pipe-delimited header names.
const (
	ColReportDate     = "REPORT_DATE"
	ColAccountIDPipe  = "ACCOUNT_ID"
	ColSecurityTicker = "SECURITY_TICKER"
	ColShares         = "SHARES"
	ColMarketValue    = "MARKET_VALUE"
)

// PipeParser reads REPORT_DATE|ACCOUNT_ID|SECURITY_TICKER|SHARES|MARKET_VALUE files.
// The per-share price is derived as |MARKET_VALUE / SHARES|.
type PipeParser struct{}

// NewPipeParser creates a PipeParser.
func NewPipeParser() *PipeParser {
	return &PipeParser{}
}

// GetFormat returns the format this parser handles.
func (p *PipeParser) GetFormat() Format {
	return FormatPipe
}

// Parse maps every data row or fails on the first bad one.
func (p *PipeParser) Parse(content []byte) ([]dto.Record, error) {
	t, err := readTable(content, FormatPipe, '|')
	if err != nil {
		return nil, err
	}
	if err := t.require(ColReportDate, ColAccountIDPipe, ColSecurityTicker, ColShares, ColMarketValue); err != nil {
		return nil, err
	}

	records := make([]dto.Record, 0, len(t.rows))
	for _, r := range t.rows {
		var values [5]string
		for i, col := range []string{ColReportDate, ColAccountIDPipe, ColSecurityTicker, ColShares, ColMarketValue} {
			v, err := t.value(r, col)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}

		date, err := parseCompactDate(values[0])
		if err != nil {
			return nil, t.malformed(r, ColReportDate, "invalid date "+values[0])
		}
		shares, err := parseQuantity(values[3])
		if err != nil {
			return nil, t.malformed(r, ColShares, "invalid shares "+values[3])
		}
		if shares == 0 {
			return nil, t.malformed(r, ColShares, "zero shares, cannot derive price")
		}
		marketValue, err := decimal.NewFromString(values[4])
		if err != nil {
			return nil, t.malformed(r, ColMarketValue, "invalid market value "+values[4])
		}

		records = append(records, dto.Record{
			Date:     date,
			Account:  values[1],
			Ticker:   values[2],
			Quantity: shares,
			Price:    marketValue.Div(decimal.NewFromInt(shares)).Abs().Round(pricePrecision),
		})
	}
	return records, nil
}
