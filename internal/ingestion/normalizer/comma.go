package normalizer

import (
	"github.com/shopspring/decimal"

	"golang-trade-clearinghouse/internal/ingestion/dto"
)

// Comma-delimited header names.
const (
	ColTradeDate = "TradeDate"
	ColAccountID = "AccountID"
	ColTicker    = "Ticker"
	ColQuantity  = "Quantity"
	ColPrice     = "Price"
)

// CommaParser reads TradeDate,AccountID,Ticker,Quantity,Price files. Price is per share.
type CommaParser struct{}

// NewCommaParser creates a CommaParser.
func NewCommaParser() *CommaParser {
	return &CommaParser{}
}

// GetFormat returns the format this parser handles.
func (p *CommaParser) GetFormat() Format {
	return FormatComma
}

// Parse maps every data row or fails on the first bad one.
func (p *CommaParser) Parse(content []byte) ([]dto.Record, error) {
	t, err := readTable(content, FormatComma, ',')
	if err != nil {
		return nil, err
	}
	if err := t.require(ColTradeDate, ColAccountID, ColTicker, ColQuantity, ColPrice); err != nil {
		return nil, err
	}

	records := make([]dto.Record, 0, len(t.rows))
	for _, r := range t.rows {
		var values [5]string
		for i, col := range []string{ColTradeDate, ColAccountID, ColTicker, ColQuantity, ColPrice} {
			v, err := t.value(r, col)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}

		date, err := parseISODate(values[0])
		if err != nil {
			return nil, t.malformed(r, ColTradeDate, "invalid date "+values[0])
		}
		qty, err := parseQuantity(values[3])
		if err != nil {
			return nil, t.malformed(r, ColQuantity, "invalid quantity "+values[3])
		}
		price, err := decimal.NewFromString(values[4])
		if err != nil {
			return nil, t.malformed(r, ColPrice, "invalid price "+values[4])
		}

		records = append(records, dto.Record{
			Date:     date,
			Account:  values[1],
			Ticker:   values[2],
			Quantity: qty,
			Price:    price.Round(pricePrecision),
		})
	}
	return records, nil
}
