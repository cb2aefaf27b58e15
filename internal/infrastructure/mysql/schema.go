package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []struct {
	name  string
	query string
}{
	{"RateCards", `
	CREATE TABLE IF NOT EXISTS RateCards (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		shopId VARCHAR(64) NOT NULL,
		printType VARCHAR(8) NOT NULL,
		paperSize VARCHAR(8) NOT NULL,
		pricePerPage DECIMAL(10,2) NOT NULL,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_shop_config (shopId, printType, paperSize),
		CHECK (pricePerPage > 0)
	)`},
	{"Orders", `
	CREATE TABLE IF NOT EXISTS Orders (
		id CHAR(36) NOT NULL PRIMARY KEY,
		customerId VARCHAR(64) NOT NULL,
		shopId VARCHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		totalAmount DECIMAL(14,2) NOT NULL,
		createdAt DATETIME(6) NOT NULL,
		updatedAt DATETIME(6) NOT NULL,
		INDEX idx_customer (customerId),
		INDEX idx_shop (shopId)
	)`},
	{"OrderFiles", `
	CREATE TABLE IF NOT EXISTS OrderFiles (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		orderId CHAR(36) NOT NULL,
		position INT NOT NULL,
		storageKey VARCHAR(255) NOT NULL,
		fileName VARCHAR(255) NOT NULL,
		pages INT NOT NULL,
		printType VARCHAR(8) NOT NULL,
		paperSize VARCHAR(8) NOT NULL,
		copies INT NOT NULL,
		sides VARCHAR(8) NOT NULL,
		FOREIGN KEY (orderId) REFERENCES Orders(id) ON DELETE CASCADE,
		UNIQUE KEY uq_order_position (orderId, position),
		INDEX idx_storage_key (storageKey)
	)`},
	{"PaymentIntents", `
	CREATE TABLE IF NOT EXISTS PaymentIntents (
		orderId CHAR(36) NOT NULL PRIMARY KEY,
		gatewayOrderId VARCHAR(64) NOT NULL,
		paymentId VARCHAR(64) NULL,
		amountMinor BIGINT NOT NULL,
		currency CHAR(3) NOT NULL,
		verified TINYINT(1) NOT NULL DEFAULT 0,
		createdAt DATETIME(6) NOT NULL,
		verifiedAt DATETIME(6) NULL,
		FOREIGN KEY (orderId) REFERENCES Orders(id) ON DELETE CASCADE,
		UNIQUE KEY uq_gateway_order (gatewayOrderId)
	)`},
}

// upgrades bring tables created by earlier releases to the current shape.
var upgrades = []string{
	`ALTER TABLE Orders MODIFY totalAmount DECIMAL(14,2) NOT NULL`,
}

// Migrate creates the tables the service owns. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, tbl := range schema {
		if _, err := db.ExecContext(ctx, tbl.query); err != nil {
			return fmt.Errorf("creating table %s: %w", tbl.name, err)
		}
	}
	for _, stmt := range upgrades {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("upgrading schema: %w", err)
		}
	}
	return nil
}

// Tables lists owned tables, children before parents.
func Tables() []string {
	return []string{"PaymentIntents", "OrderFiles", "Orders", "RateCards"}
}
