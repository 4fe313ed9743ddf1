package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DSN parameters shared by both pools.
const (
	defaultBusyTimeout = "5000"
	defaultSynchronous = "NORMAL"
	defaultJournalMode = "WAL"
)

type poolMode string

const (
	poolWrite poolMode = "write"
	poolRead  poolMode = "read"
)

// openPool opens a *sql.DB for path.
//
// The write pool holds a single connection and starts transactions with
// BEGIN IMMEDIATE so writers queue on the busy timeout instead of failing.
// The read pool holds max_open connections (4 when max_open <= 0).
func openPool(path string, mode poolMode, max_open int) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", buildDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	switch mode {
	case poolWrite:
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case poolRead:
		if max_open <= 0 {
			max_open = 4
		}
		db.SetMaxOpenConns(max_open)
		db.SetMaxIdleConns(max_open)
	}
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}
	return db, nil
}

func buildDSN(path string, mode poolMode) string {
	params := url.Values{}
	params.Set("_journal_mode", defaultJournalMode)
	params.Set("_busy_timeout", defaultBusyTimeout)
	params.Set("_synchronous", defaultSynchronous)

	if mode == poolWrite {
		params.Set("_txlock", "immediate")
	}

	return path + "?" + params.Encode()
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
