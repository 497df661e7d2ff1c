package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strconv"

	"github.com/pressly/goose/v3"
)

const (
	DefaultDir = "pkg/migrate/migrations"
	sqliteDir  = "sqlite"
)

// The sqlite schema mirrors the postgres migrations without enum types or
// jsonb and backs local mode and tests.
//
//go:embed sqlite/*.sql
var sqliteFS embed.FS

func provider(db *sql.DB, dialect goose.Dialect, fsys fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, nil
}

func postgresProvider(db *sql.DB, dir string) (*goose.Provider, error) {
	if dir == "" {
		return nil, errors.New("dir is required")
	}
	return provider(db, goose.DialectPostgres, os.DirFS(dir))
}

// Run applies a postgres migration command: up, down or status. Status is
// printed to stdout.
func Run(ctx context.Context, db *sql.DB, dir string, command string) error {
	p, err := postgresProvider(db, dir)
	if err != nil {
		return err
	}
	switch command {
	case "up":
		_, err = p.Up(ctx)
	case "down":
		_, err = p.Down(ctx)
	case "status":
		err = printStatus(ctx, p, os.Stdout)
	default:
		return fmt.Errorf("unsupported migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

func printStatus(ctx context.Context, p *goose.Provider, w io.Writer) error {
	statuses, err := p.Status(ctx)
	if err != nil {
		return err
	}
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%-10s %-20s %s\n", s.State, applied, path.Base(s.Source.Path))
	}
	return nil
}

// MigrateToVersion moves the schema up or down until targetVersion
// (YYYYMMDDHHMMSS) is the latest applied migration.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) error {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	p, err := postgresProvider(db, dir)
	if err != nil {
		return err
	}
	current, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current < target:
		_, err = p.UpTo(ctx, target)
	case current > target:
		_, err = p.DownTo(ctx, target)
	}
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

// RunSQLite applies the embedded sqlite schema.
func RunSQLite(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(sqliteFS, sqliteDir)
	if err != nil {
		return err
	}
	p, err := provider(db, goose.DialectSQLite3, fsys)
	if err != nil {
		return err
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("goose up (sqlite): %w", err)
	}
	return nil
}
