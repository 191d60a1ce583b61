package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/dronestore/storefront/internal/infrastructure/config"
	"github.com/dronestore/storefront/internal/infrastructure/logger"
	"github.com/dronestore/storefront/internal/infrastructure/migration"
)

const defaultCreateDir = "migrations"

var errUsage = errors.New("usage")

func main() {
	var (
		dir      string
		logLevel string
	)
	flag.StringVar(&dir, "path", "", "Migrations directory (default: schema embedded in the binary)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(flag.Args(), dir, log); err != nil {
		if errors.Is(err, errUsage) {
			if err != errUsage {
				fmt.Fprintln(os.Stderr, err)
			}
			printUsage()
			os.Exit(2)
		}
		log.Error("Migration command failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(args []string, dir string, log *zap.Logger) error {
	if len(args) == 0 {
		return errUsage
	}
	command, rest := args[0], args[1:]

	// create and list only touch the file system
	switch command {
	case "create":
		if len(rest) == 0 {
			return fmt.Errorf("%w: migrate create <name> [description]", errUsage)
		}
		target := dir
		if target == "" {
			target = defaultCreateDir
		}
		description := ""
		if len(rest) > 1 {
			description = rest[1]
		}
		mf, err := migration.CreateMigration(target, rest[0], description)
		if err != nil {
			return err
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return nil
	case "list":
		if dir == "" {
			dir = defaultCreateDir
		}
		names, err := migration.ListMigrations(dir)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("versioned migrations target postgres; %s databases are created by the server at startup", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, dir, log)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		n, err := intArg(rest, "migrate step <n>")
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "force":
		v, err := intArg(rest, "migrate force <version>")
		if err != nil {
			return err
		}
		return m.Force(v)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Current schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func intArg(rest []string, usage string) (int, error) {
	if len(rest) == 0 {
		return 0, fmt.Errorf("%w: %s", errUsage, usage)
	}
	n, err := strconv.Atoi(rest[0])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", rest[0], err)
	}
	return n, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Storefront schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  version               Show the applied schema version
  force <version>       Mark a version as applied (repairs a dirty schema)
  create <name> [desc]  Write the next numbered up/down pair
  list                  List migrations in -path (default ./migrations)

Flags:
  -path string          Read migrations from a directory instead of the embedded schema
  -log-level string     debug, info, warn, error (default: info)

Connection settings come from config.toml and STOREFRONT_DATABASE_* variables.`)
}
