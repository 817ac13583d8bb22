// Package migrations embeds the goose SQL migrations for the question bank schema.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/pressly/goose/v3"
)

// FS holds the SQL migration files.
//
//go:embed *.sql
var FS embed.FS

// TableName is the goose bookkeeping table.
const TableName = "goose_db_version"

// Commands accepted by Run.
const (
	CommandUp     = "up"
	CommandDown   = "down"
	CommandStatus = "status"
)

// Up applies all pending embedded migrations.
func Up(ctx context.Context, db *sql.DB) error {
	return Run(ctx, db, CommandUp, "")
}

// Down rolls back the most recent embedded migration.
func Down(ctx context.Context, db *sql.DB) error {
	return Run(ctx, db, CommandDown, "")
}

// Status prints the migration status through goose's logger.
func Status(ctx context.Context, db *sql.DB) error {
	return Run(ctx, db, CommandStatus, "")
}

// Run executes command against db. An empty dir uses the embedded files;
// otherwise migrations are read from dir on disk.
func Run(ctx context.Context, db *sql.DB, command, dir string) error {
	if err := configure(source(dir)); err != nil {
		return err
	}

	switch command {
	case CommandUp:
		return goose.UpContext(ctx, db, ".")
	case CommandDown:
		return goose.DownContext(ctx, db, ".")
	case CommandStatus:
		return goose.StatusContext(ctx, db, ".")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
}

func source(dir string) fs.FS {
	if dir == "" {
		return FS
	}
	return os.DirFS(dir)
}

func configure(fsys fs.FS) error {
	goose.SetBaseFS(fsys)
	goose.SetTableName(TableName)
	return goose.SetDialect("pgx")
}
