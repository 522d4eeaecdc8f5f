package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/joho/godotenv"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/config"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/migrate"
)

var commands = []string{"up", "down", "redo", "status", "version", "create", "validate"}

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|redo|status|version|create|validate")
	fs.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory, or \""+migrate.EmbeddedDir+"\" for the compiled-in schema")
	fs.StringVar(&opts.name, "name", "", "migration name (for create)")
	fs.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	switch {
	case !slices.Contains(commands, opts.cmd):
		return options{}, fmt.Errorf("unknown -cmd value %q", opts.cmd)
	case opts.cmd == "create" && opts.name == "":
		return options{}, errors.New("missing -name for create")
	case opts.cmd == "create" && opts.dir == migrate.EmbeddedDir:
		return options{}, errors.New("create needs an on-disk -dir")
	case opts.cmd == "version" && opts.version == "":
		return options{}, errors.New("missing -version for version command")
	}
	return opts, nil
}

func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	switch opts.cmd {
	case "create":
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := validate(opts.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DB.IsSQLite() {
		return errors.New("migrations require ACME_DB_DRIVER=postgres")
	}
	// a malformed file is refused before goose touches the database
	if err := validate(opts.dir); err != nil {
		return err
	}

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.SQLDB()
	if err != nil {
		return fmt.Errorf("sql database handle: %w", err)
	}

	if opts.cmd == "version" {
		err = migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
	} else {
		err = migrate.Run(ctx, sqlDB, opts.dir, opts.cmd)
	}
	if err != nil {
		logg.Error(ctx, "migration failed", err)
		return fmt.Errorf("goose %s: %w", opts.cmd, err)
	}
	logg.Info(ctx, "migration finished")
	return nil
}

func validate(dir string) error {
	var err error
	if dir == migrate.EmbeddedDir {
		err = migrate.ValidateEmbedded()
	} else {
		err = migrate.ValidateDir(dir)
	}
	if err != nil {
		return fmt.Errorf("migration validation failed: %w", err)
	}
	return nil
}
