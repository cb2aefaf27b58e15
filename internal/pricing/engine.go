// Package pricing turns a shop rate card and an order manifest into money.
// Everything here is pure and safe for concurrent use.
package pricing

import (
	"strconv"

	"github.com/shopspring/decimal"

	"zerox/internal/domain"
	apperrors "zerox/internal/errors"
)

// MaxOrderTotal is the largest total the order store can hold.
var MaxOrderTotal = decimal.RequireFromString("999999999999.99")

type Line struct {
	File      domain.OrderFile
	Rate      decimal.Decimal
	LineTotal decimal.Decimal
}

type Quote struct {
	ShopID string
	Lines  []Line
	Total  decimal.Decimal
}

func RateFor(card *domain.RateCard, printType domain.PrintType, paperSize domain.PaperSize) (decimal.Decimal, error) {
	rate, ok := card.Rate(domain.RateKey{PrintType: printType, PaperSize: paperSize})
	if !ok {
		return decimal.Decimal{}, apperrors.NewMissingRateError(string(printType), string(paperSize))
	}
	return rate, nil
}

// LineTotal is rate × pages × copies. Sides do not affect price: the rate is
// per printed page.
func LineTotal(file domain.OrderFile, rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(int64(file.Pages))).Mul(decimal.NewFromInt(int64(file.Copies)))
}

// OrderTotal prices every file or none. All configurations missing from the
// card are reported together.
func OrderTotal(files []domain.OrderFile, card *domain.RateCard) (decimal.Decimal, error) {
	q, err := QuoteFiles(files, card)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return q.Total, nil
}

func QuoteFiles(files []domain.OrderFile, card *domain.RateCard) (*Quote, error) {
	if len(files) == 0 {
		return nil, apperrors.NewEmptyOrderError()
	}

	var details []apperrors.ValidationDetail
	for i, f := range files {
		if f.Pages < 1 {
			details = append(details, apperrors.ValidationDetail{Field: fieldName(i, "pages"), Message: "pages must be at least 1"})
		}
		if f.Copies < 1 {
			details = append(details, apperrors.ValidationDetail{Field: fieldName(i, "copies"), Message: "copies must be at least 1"})
		}
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details...)
	}

	var missing []string
	seen := make(map[domain.RateKey]bool)
	rates := make([]decimal.Decimal, len(files))
	for i, f := range files {
		rate, err := RateFor(card, f.PrintType, f.PaperSize)
		if err != nil {
			if _, ok := apperrors.IsMissingRateError(err); !ok {
				return nil, err
			}
			if key := f.RateKey(); !seen[key] {
				seen[key] = true
				missing = append(missing, key.String())
			}
			continue
		}
		rates[i] = rate
	}
	if len(missing) > 0 {
		shopID := ""
		if card != nil {
			shopID = card.ShopID
		}
		return nil, apperrors.NewIncompleteRateCardError(shopID, missing)
	}

	quote := &Quote{ShopID: card.ShopID, Lines: make([]Line, 0, len(files)), Total: decimal.Zero}
	for i, f := range files {
		line := LineTotal(f, rates[i])
		quote.Lines = append(quote.Lines, Line{File: f, Rate: rates[i], LineTotal: line})
		quote.Total = quote.Total.Add(line)
	}

	if quote.Total.GreaterThan(MaxOrderTotal) {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "files",
			Message: "order total exceeds " + MaxOrderTotal.StringFixed(2),
		})
	}

	return quote, nil
}

func fieldName(idx int, name string) string {
	return "files[" + strconv.Itoa(idx) + "]." + name
}
