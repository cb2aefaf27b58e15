package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusPrinting  Status = "printing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusPaid, StatusPrinting, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Order is created once with a fully priced manifest. Files and TotalAmount
// are never rewritten afterwards; only Status moves.
type Order struct {
	ID          string
	CustomerID  string
	ShopID      string
	Files       []OrderFile
	TotalAmount decimal.Decimal
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewOrder(customerID, shopID string, files []OrderFile, total decimal.Decimal, now time.Time) *Order {
	manifest := make([]OrderFile, len(files))
	copy(manifest, files)

	return &Order{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		ShopID:      shopID,
		Files:       manifest,
		TotalAmount: total,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TotalPages counts printed pages across all copies.
func (o *Order) TotalPages() int {
	total := 0
	for _, f := range o.Files {
		total += f.Pages * f.Copies
	}
	return total
}

func (o *Order) HasStorageKey(key string) bool {
	for _, f := range o.Files {
		if f.StorageKey == key {
			return true
		}
	}
	return false
}
