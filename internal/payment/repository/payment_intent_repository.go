package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"zerox/internal/domain"
	"zerox/internal/errors"
	"zerox/internal/infrastructure/mysql"
)

type MySQLPaymentIntentRepository struct {
	db *sql.DB
}

func NewMySQLPaymentIntentRepository(db *sql.DB) *MySQLPaymentIntentRepository {
	return &MySQLPaymentIntentRepository{db: db}
}

// Create stores a new intent. An order can hold only one intent; a second
// insert reports a ConflictError.
func (r *MySQLPaymentIntentRepository) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	query := `
		INSERT INTO PaymentIntents (orderId, gatewayOrderId, amountMinor, currency, verified, createdAt)
		VALUES (?, ?, ?, ?, 0, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		intent.OrderID, intent.GatewayOrderID, intent.AmountMinor, intent.Currency, intent.CreatedAt.UTC(),
	)
	if mysql.IsDuplicateKey(err) {
		return errors.NewConflictError(fmt.Sprintf("order %s already has a payment intent", intent.OrderID), "")
	}
	if err != nil {
		return fmt.Errorf("inserting payment intent: %w", err)
	}
	return nil
}

func (r *MySQLPaymentIntentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.PaymentIntent, error) {
	query := `
		SELECT orderId, gatewayOrderId, paymentId, amountMinor, currency, verified, createdAt, verifiedAt
		FROM PaymentIntents
		WHERE orderId = ?
	`

	intent, err := scanIntent(r.db.QueryRowContext(ctx, query, orderID))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("payment intent for order %s not found", orderID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying payment intent by order id: %w", err)
	}
	return intent, nil
}

func (r *MySQLPaymentIntentRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.PaymentIntent, error) {
	query := `
		SELECT orderId, gatewayOrderId, paymentId, amountMinor, currency, verified, createdAt, verifiedAt
		FROM PaymentIntents
		WHERE gatewayOrderId = ?
	`

	intent, err := scanIntent(r.db.QueryRowContext(ctx, query, gatewayOrderID))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("payment intent %s not found", gatewayOrderID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying payment intent by gateway order id: %w", err)
	}
	return intent, nil
}

// ConfirmPayment marks the intent verified and moves its order from pending
// to paid in one transaction. It reports alreadyVerified when an earlier
// delivery did the work. If the order left pending first, nothing changes
// and a ConflictError carries the order's current status.
func (r *MySQLPaymentIntentRepository) ConfirmPayment(ctx context.Context, gatewayOrderID, paymentID string, at time.Time) (alreadyVerified bool, err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	// Rollback after commit is a no-op.
	defer tx.Rollback()

	var orderID string
	var verified bool
	err = tx.QueryRowContext(ctx,
		`SELECT orderId, verified FROM PaymentIntents WHERE gatewayOrderId = ? FOR UPDATE`,
		gatewayOrderID,
	).Scan(&orderID, &verified)
	if err == sql.ErrNoRows {
		return false, errors.NewNotFoundError(fmt.Sprintf("payment intent %s not found", gatewayOrderID))
	}
	if err != nil {
		return false, fmt.Errorf("locking payment intent: %w", err)
	}
	if verified {
		return true, nil
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE Orders SET status = ?, updatedAt = ? WHERE id = ? AND status = ?`,
		string(domain.StatusPaid), at.UTC(), orderID, string(domain.StatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("marking order paid: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var current string
		if err := tx.QueryRowContext(ctx, `SELECT status FROM Orders WHERE id = ?`, orderID).Scan(&current); err != nil {
			return false, fmt.Errorf("reading current order status: %w", err)
		}
		return false, errors.NewConflictError(fmt.Sprintf("order %s is no longer pending", orderID), current)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE PaymentIntents SET verified = 1, paymentId = ?, verifiedAt = ? WHERE gatewayOrderId = ? AND verified = 0`,
		paymentID, at.UTC(), gatewayOrderID,
	); err != nil {
		return false, fmt.Errorf("marking payment intent verified: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing payment confirmation: %w", err)
	}
	return false, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntent(row rowScanner) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	var paymentID sql.NullString
	var verifiedAt sql.NullTime
	if err := row.Scan(
		&intent.OrderID, &intent.GatewayOrderID, &paymentID, &intent.AmountMinor,
		&intent.Currency, &intent.Verified, &intent.CreatedAt, &verifiedAt,
	); err != nil {
		return nil, err
	}
	intent.PaymentID = paymentID.String
	if verifiedAt.Valid {
		t := verifiedAt.Time
		intent.VerifiedAt = &t
	}
	return &intent, nil
}
