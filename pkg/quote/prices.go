package quote

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceTable holds direction-aware prices keyed "IN/OUT" by upper-case symbol.
// A price is the amount of OUT received for one unit of IN.
type PriceTable struct {
	prices map[string]decimal.Decimal
}

// NewPriceTable parses a raw "IN/OUT" -> decimal string table
func NewPriceTable(raw map[string]string) (*PriceTable, error) {
	prices := make(map[string]decimal.Decimal, len(raw))
	for pair, value := range raw {
		price, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid price for %s: %w", pair, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("price for %s must be positive", pair)
		}
		prices[strings.ToUpper(pair)] = price
	}
	return &PriceTable{prices: prices}, nil
}

func pairKey(in, out string) string {
	return strings.ToUpper(in) + "/" + strings.ToUpper(out)
}

// Price returns the price of the pair, 1 when the pair is unknown
func (p *PriceTable) Price(in, out string) decimal.Decimal {
	if price, ok := p.prices[pairKey(in, out)]; ok {
		return price
	}
	return decimal.NewFromInt(1)
}
