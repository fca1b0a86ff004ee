package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"computer-inventory/internal/config"

	_ "github.com/lib/pq"
)

// InitDB opens the PostgreSQL mirror, applies pool settings and checks
// the connection.
func InitDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Schema creates the mirror tables.
const Schema = `
CREATE TABLE IF NOT EXISTS computers (
	id                       INTEGER PRIMARY KEY,
	inventory_number         TEXT NOT NULL UNIQUE,
	serial_number            TEXT NOT NULL UNIQUE,
	manufacturer             TEXT NOT NULL DEFAULT '',
	model                    TEXT NOT NULL DEFAULT '',
	cpu_model                TEXT NOT NULL DEFAULT '',
	chipset                  TEXT NOT NULL DEFAULT '',
	ram_size                 INTEGER NOT NULL,
	storage_type             TEXT NOT NULL DEFAULT '',
	storage_size             INTEGER NOT NULL,
	room_number              TEXT NOT NULL DEFAULT '',
	condition                TEXT NOT NULL,
	commissioning_date       TEXT NOT NULL DEFAULT '',
	last_maintenance_date    TEXT NOT NULL DEFAULT '',
	warranty_expiration_date TEXT NOT NULL DEFAULT '',
	synced_at                TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS employees (
	id              INTEGER PRIMARY KEY,
	institute       TEXT NOT NULL DEFAULT '',
	department      TEXT NOT NULL DEFAULT '',
	last_name       TEXT NOT NULL DEFAULT '',
	initials        TEXT NOT NULL DEFAULT '',
	position        TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL DEFAULT '',
	email           TEXT NOT NULL DEFAULT '',
	employment_date TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	computer_id     INTEGER UNIQUE REFERENCES computers (id),
	synced_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Migrate creates the mirror tables when they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
