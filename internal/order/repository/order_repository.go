package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"zerox/internal/domain"
	"zerox/internal/errors"
)

type MySQLOrderRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db, now: time.Now}
}

// Create persists the order header and its manifest in one transaction.
func (r *MySQLOrderRepository) Create(ctx context.Context, order *domain.Order) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `
		INSERT INTO Orders (id, customerId, shopId, status, totalAmount, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err = tx.ExecContext(ctx, query,
		order.ID, order.CustomerID, order.ShopID, string(order.Status),
		order.TotalAmount, order.CreatedAt.UTC(), order.UpdatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	fileQuery := `
		INSERT INTO OrderFiles (orderId, position, storageKey, fileName, pages, printType, paperSize, copies, sides)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, f := range order.Files {
		if _, err = tx.ExecContext(ctx, fileQuery,
			order.ID, i, f.StorageKey, f.FileName, f.Pages,
			string(f.PrintType), string(f.PaperSize), f.Copies, string(f.Sides),
		); err != nil {
			return fmt.Errorf("inserting order file %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing order: %w", err)
	}
	return nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, customerId, shopId, status, totalAmount, createdAt, updatedAt
		FROM Orders
		WHERE id = ?
	`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	if err := r.loadFiles(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *MySQLOrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	query := `
		SELECT id, customerId, shopId, status, totalAmount, createdAt, updatedAt
		FROM Orders
		WHERE customerId = ?
		ORDER BY createdAt DESC, id
	`
	return r.list(ctx, query, customerID)
}

func (r *MySQLOrderRepository) ListByShop(ctx context.Context, shopID string) ([]domain.Order, error) {
	query := `
		SELECT id, customerId, shopId, status, totalAmount, createdAt, updatedAt
		FROM Orders
		WHERE shopId = ?
		ORDER BY createdAt DESC, id
	`
	return r.list(ctx, query, shopID)
}

// ListByStorageKey returns every order whose manifest references the key.
func (r *MySQLOrderRepository) ListByStorageKey(ctx context.Context, storageKey string) ([]domain.Order, error) {
	query := `
		SELECT DISTINCT o.id, o.customerId, o.shopId, o.status, o.totalAmount, o.createdAt, o.updatedAt
		FROM Orders o
		JOIN OrderFiles f ON f.orderId = o.id
		WHERE f.storageKey = ?
		ORDER BY o.createdAt DESC, o.id
	`
	return r.list(ctx, query, storageKey)
}

// CompareAndSwapStatus moves the order from one status to another only if
// it still holds the expected one. A lost race yields a ConflictError
// carrying the status that won.
func (r *MySQLOrderRepository) CompareAndSwapStatus(ctx context.Context, id string, from, to domain.Status) error {
	query := `UPDATE Orders SET status = ?, updatedAt = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query, string(to), r.now().UTC(), id, string(from))
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM Orders WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return fmt.Errorf("reading current order status: %w", err)
	}
	return errors.NewConflictError(fmt.Sprintf("order %s is no longer %s", id, from), current)
}

func (r *MySQLOrderRepository) list(ctx context.Context, query string, arg string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var ptrs []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		ptrs = append(ptrs, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}

	if err := r.loadFiles(ctx, ptrs); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(ptrs))
	for _, o := range ptrs {
		orders = append(orders, *o)
	}
	return orders, nil
}

func (r *MySQLOrderRepository) loadFiles(ctx context.Context, orders []*domain.Order) error {
	query := `
		SELECT storageKey, fileName, pages, printType, paperSize, copies, sides
		FROM OrderFiles
		WHERE orderId = ?
		ORDER BY position
	`
	for _, order := range orders {
		rows, err := r.db.QueryContext(ctx, query, order.ID)
		if err != nil {
			return fmt.Errorf("querying files of order %s: %w", order.ID, err)
		}

		var files []domain.OrderFile
		for rows.Next() {
			var f domain.OrderFile
			var printType, paperSize, sides string
			if err := rows.Scan(&f.StorageKey, &f.FileName, &f.Pages, &printType, &paperSize, &f.Copies, &sides); err != nil {
				rows.Close()
				return fmt.Errorf("scanning order file: %w", err)
			}
			f.PrintType = domain.PrintType(printType)
			f.PaperSize = domain.PaperSize(paperSize)
			f.Sides = domain.Sides(sides)
			files = append(files, f)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("iterating order files: %w", err)
		}
		order.Files = files
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var status string
	if err := row.Scan(
		&order.ID, &order.CustomerID, &order.ShopID, &status,
		&order.TotalAmount, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	order.Status = domain.Status(status)
	return &order, nil
}
