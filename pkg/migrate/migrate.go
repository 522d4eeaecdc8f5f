package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

const (
	// DefaultDir is the on-disk migrations directory used by create and validate.
	DefaultDir = "pkg/migrate/migrations"
	// EmbeddedDir selects the migrations compiled into the binary.
	EmbeddedDir = "embedded"

	embeddedRoot = "migrations"
	dialect      = "postgres"
)

//go:embed migrations/*.sql
var embedded embed.FS

var dbCommands = map[string]struct{}{
	"up":     {},
	"down":   {},
	"redo":   {},
	"status": {},
}

// Run executes a goose command against db. Pass EmbeddedDir to apply the
// order schema shipped with the binary instead of reading dir from disk.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if _, ok := dbCommands[command]; !ok {
		return fmt.Errorf("unsupported migration command %q", command)
	}
	source, err := prepare(dir)
	if err != nil {
		return err
	}

	if err := goose.RunContext(ctx, command, db, source, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until it sits at targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	target, err := parseVersion(targetVersion)
	if err != nil {
		return err
	}
	source, err := prepare(dir)
	if err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, db, source, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, db, source, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}

func parseVersion(value string) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("target version is required")
	}
	if len(value) != len(versionLayout) {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", value)
	}
	version, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", value, err)
	}
	return version, nil
}

// prepare points goose at either the embedded schema or an on-disk directory
// and returns the directory goose should read from.
func prepare(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	if err := goose.SetDialect(dialect); err != nil {
		return "", fmt.Errorf("set goose dialect: %w", err)
	}
	if dir == EmbeddedDir {
		goose.SetBaseFS(embedded)
		return embeddedRoot, nil
	}
	goose.SetBaseFS(nil)
	return dir, nil
}
