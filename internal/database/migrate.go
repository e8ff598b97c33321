package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schemas = map[string]string{
	"mysql": `CREATE TABLE IF NOT EXISTS reservations (
		reservation_id   BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id          BIGINT UNSIGNED NOT NULL,
		restaurant_id    BIGINT UNSIGNED NOT NULL,
		reservation_date DATETIME(6)     NOT NULL,
		num_guests       INT             NOT NULL,
		status           VARCHAR(32)     NOT NULL DEFAULT 'pending',
		INDEX idx_reservations_user (user_id, reservation_date),
		INDEX idx_reservations_restaurant (restaurant_id, status, reservation_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"postgres": `CREATE TABLE IF NOT EXISTS reservations (
		reservation_id   BIGSERIAL   PRIMARY KEY,
		user_id          BIGINT      NOT NULL,
		restaurant_id    BIGINT      NOT NULL,
		reservation_date TIMESTAMPTZ NOT NULL,
		num_guests       INTEGER     NOT NULL,
		status           VARCHAR(32) NOT NULL DEFAULT 'pending'
	)`,
	"sqlite": `CREATE TABLE IF NOT EXISTS reservations (
		reservation_id   INTEGER  PRIMARY KEY AUTOINCREMENT,
		user_id          INTEGER  NOT NULL,
		restaurant_id    INTEGER  NOT NULL,
		reservation_date DATETIME NOT NULL,
		num_guests       INTEGER  NOT NULL,
		status           TEXT     NOT NULL DEFAULT 'pending'
	)`,
}

// Migrate creates the reservations table when it does not exist yet.
// Production schemas are normally managed outside the service; this keeps
// sqlite development databases and tests self-contained.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	ddl, ok := schemas[db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create reservations table: %w", err)
	}
	return nil
}
