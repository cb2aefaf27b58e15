package domain

import "time"

// StatusChanged records one committed status move.
type StatusChanged struct {
	OrderID    string
	CustomerID string
	ShopID     string
	From       Status
	To         Status
	Actor      Role
	OccurredAt time.Time
}
