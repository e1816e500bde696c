package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// goose keeps its dialect and base FS in package globals.
var mu sync.Mutex

func prepare(d Dialect) (string, error) {
	goose.SetBaseFS(FS)
	switch d {
	case Postgres:
		return "postgres", goose.SetDialect("postgres")
	case SQLite:
		return "sqlite", goose.SetDialect("sqlite3")
	default:
		return "", fmt.Errorf("unknown migration dialect %q", d)
	}
}

func Up(ctx context.Context, db *sql.DB, d Dialect) error {
	mu.Lock()
	defer mu.Unlock()
	dir, err := prepare(d)
	if err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func Down(ctx context.Context, db *sql.DB, d Dialect) error {
	mu.Lock()
	defer mu.Unlock()
	dir, err := prepare(d)
	if err != nil {
		return err
	}
	if err := goose.DownContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

func Status(ctx context.Context, db *sql.DB, d Dialect) error {
	mu.Lock()
	defer mu.Unlock()
	dir, err := prepare(d)
	if err != nil {
		return err
	}
	return goose.StatusContext(ctx, db, dir)
}
