package repository

import (
	"context"
	"database/sql"
	"fmt"

	"zerox/internal/domain"
	"zerox/internal/errors"
)

type MySQLRateCardRepository struct {
	db *sql.DB
}

func NewMySQLRateCardRepository(db *sql.DB) *MySQLRateCardRepository {
	return &MySQLRateCardRepository{db: db}
}

// FindByShopID snapshots the shop's rate card. A shop with no rows has no
// card at all and is reported as not found.
func (r *MySQLRateCardRepository) FindByShopID(ctx context.Context, shopID string) (*domain.RateCard, error) {
	query := `
		SELECT shopId, printType, paperSize, pricePerPage
		FROM RateCards
		WHERE shopId = ?
	`

	rows, err := r.db.QueryContext(ctx, query, shopID)
	if err != nil {
		return nil, fmt.Errorf("querying rate card by shop id: %w", err)
	}
	defer rows.Close()

	var entries []domain.RateCardEntry
	for rows.Next() {
		var e domain.RateCardEntry
		var printType, paperSize string
		if err := rows.Scan(&e.ShopID, &printType, &paperSize, &e.PricePerPage); err != nil {
			return nil, fmt.Errorf("scanning rate card entry: %w", err)
		}
		e.PrintType = domain.PrintType(printType)
		e.PaperSize = domain.PaperSize(paperSize)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rate card entries: %w", err)
	}

	if len(entries) == 0 {
		return nil, errors.NewNotFoundError(fmt.Sprintf("rate card for shop %s not found", shopID))
	}

	card, err := domain.NewRateCard(shopID, entries)
	if err != nil {
		return nil, fmt.Errorf("building rate card: %w", err)
	}
	return card, nil
}
