package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	_ "github.com/glebarez/go-sqlite"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Options describes how to reach the reservations store.  Driver is one of
// mysql, postgres or sqlite; for sqlite Name is the database file (or
// ":memory:") and the network fields are ignored.
type Options struct {
	Driver string
	User   string
	Pass   string
	Host   string
	Port   string
	Name   string
	// Trace wraps the connection with X-Ray so every query becomes a
	// subsegment of the request segment.
	Trace bool
}

// Open connects to the configured database, applies pool settings and
// verifies the connection.  The returned pool is process-scoped: open it
// once at startup, inject it, and Close it on shutdown.
func Open(opts Options) (*sqlx.DB, error) {
	driver, dsn, err := dataSource(opts)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if opts.Trace {
		db, err = xray.SQLContext(driver, dsn)
	} else {
		db, err = sql.Open(driver, dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	// Pool settings
	if driver == "sqlite" {
		// one writer; an in-memory database also lives on a single connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return sqlx.NewDb(db, driver), nil
}

func dataSource(opts Options) (driver, dsn string, err error) {
	switch opts.Driver {
	case "", "mysql":
		auth := opts.User
		if opts.Pass != "" {
			auth = fmt.Sprintf("%s:%s", opts.User, opts.Pass)
		}
		// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
		// clientFoundRows=true -> RowsAffected counts matched rows, not changed ones
		return "mysql", fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
			auth, opts.Host, opts.Port, opts.Name), nil
	case "postgres":
		sslMode := "require"
		if opts.Host == "localhost" || opts.Host == "127.0.0.1" {
			sslMode = "disable"
		}
		return "postgres", fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			opts.Host, opts.Port, opts.User, opts.Pass, opts.Name, sslMode), nil
	case "sqlite":
		name := opts.Name
		if name == "" {
			name = ":memory:"
		}
		return "sqlite", name, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}
