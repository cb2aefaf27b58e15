package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type RateKey struct {
	PrintType PrintType
	PaperSize PaperSize
}

func (k RateKey) String() string {
	return fmt.Sprintf("%s/%s", k.PrintType, k.PaperSize)
}

type RateCardEntry struct {
	ShopID       string
	PrintType    PrintType
	PaperSize    PaperSize
	PricePerPage decimal.Decimal
}

// RateCard is a read-only snapshot of a shop's prices taken at pricing time.
type RateCard struct {
	ShopID string
	rates  map[RateKey]decimal.Decimal
}

func NewRateCard(shopID string, entries []RateCardEntry) (*RateCard, error) {
	rates := make(map[RateKey]decimal.Decimal, len(entries))
	for _, e := range entries {
		if e.ShopID != shopID {
			return nil, fmt.Errorf("rate card entry for shop %s in card of shop %s", e.ShopID, shopID)
		}
		key := RateKey{PrintType: e.PrintType, PaperSize: e.PaperSize}
		if _, dup := rates[key]; dup {
			return nil, fmt.Errorf("duplicate rate for %s in shop %s", key, shopID)
		}
		if !e.PricePerPage.IsPositive() {
			return nil, fmt.Errorf("rate for %s in shop %s must be positive", key, shopID)
		}
		rates[key] = e.PricePerPage
	}
	return &RateCard{ShopID: shopID, rates: rates}, nil
}

func (c *RateCard) Rate(key RateKey) (decimal.Decimal, bool) {
	if c == nil {
		return decimal.Decimal{}, false
	}
	rate, ok := c.rates[key]
	return rate, ok
}

func (c *RateCard) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rates)
}
