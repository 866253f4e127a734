// Package database centralises sqlx connection helpers.  Three drivers are
// linked in:
//
//	mysql     go-sql-driver/mysql (also MariaDB)
//	pgx       jackc/pgx/v5 stdlib adapter
//	postgres  lib/pq
//
// Open pings before returning so bootstrap fails fast.  Callers Close() the
// returned *sqlx.DB on shutdown.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Options tunes the pool.  Zero fields take the defaults below.
type Options struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

const (
	defaultMaxOpen     = 15
	defaultMaxIdle     = 5
	defaultMaxLifetime = 30 * time.Minute
)

// Supported lists the accepted driver names.
var Supported = []string{"mysql", "pgx", "postgres"}

// IsPostgres reports whether driver speaks the Postgres dialect
// ($N placeholders, RETURNING).
func IsPostgres(driver string) bool {
	return driver == "pgx" || driver == "postgres"
}

// Open connects with the given driver and pool options.
func Open(ctx context.Context, driver, dsn string, o Options) (*sqlx.DB, error) {
	if !supported(driver) {
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if o.MaxOpen <= 0 {
		o.MaxOpen = defaultMaxOpen
	}
	if o.MaxIdle <= 0 {
		o.MaxIdle = defaultMaxIdle
	}
	if o.MaxLifetime <= 0 {
		o.MaxLifetime = defaultMaxLifetime
	}
	db.SetMaxOpenConns(o.MaxOpen)
	db.SetMaxIdleConns(o.MaxIdle)
	db.SetConnMaxLifetime(o.MaxLifetime)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: ping %s: %w", driver, err)
	}
	return db, nil
}

func supported(driver string) bool {
	for _, d := range Supported {
		if d == driver {
			return true
		}
	}
	return false
}
