package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/dronestore/storefront/migrations"
)

// schema is the subset of *migrate.Migrate the Migrator drives
type schema interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

// Migrator applies the versioned storefront schema
type Migrator struct {
	schema schema
	log    *zap.Logger
}

// Source opens the embedded schema when dir is empty, else the files in dir
func Source(dir string) (source.Driver, error) {
	if dir == "" {
		return SourceFS(migrations.FS)
	}
	return SourceFS(os.DirFS(dir))
}

// SourceFS opens a migration source over fsys
func SourceFS(fsys fs.FS) (source.Driver, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	return src, nil
}

// New creates a Migrator over an open postgres connection
func New(db *sql.DB, migrationsDir string, log *zap.Logger) (*Migrator, error) {
	src, err := Source(migrationsDir)
	if err != nil {
		return nil, err
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return newMigrator(m, log), nil
}

func newMigrator(s schema, log *zap.Logger) *Migrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Migrator{schema: s, log: log.Named("migrator")}
}

// Up applies all pending migrations
func (m *Migrator) Up() error {
	return m.apply("up", m.schema.Up)
}

// Down rolls back every migration
func (m *Migrator) Down() error {
	return m.apply("down", m.schema.Down)
}

// Steps applies n migrations, rolling back when n is negative
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("step %d", n), func() error { return m.schema.Steps(n) })
}

// apply runs one change and logs the resulting version. An up-to-date
// schema is not an error.
func (m *Migrator) apply(name string, change func() error) error {
	m.log.Info("Running migration", zap.String("command", name))
	if err := change(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.log.Info("Schema unchanged", zap.String("command", name))
			return nil
		}
		return fmt.Errorf("migrate %s: %w", name, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.log.Info("Migration complete",
		zap.String("command", name),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Version returns the applied version, zero for an empty schema
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.schema.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied without running it, to repair a dirty schema
func (m *Migrator) Force(version int) error {
	m.log.Warn("Forcing schema version", zap.Int("version", version))
	if err := m.schema.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and database handles
func (m *Migrator) Close() error {
	srcErr, dbErr := m.schema.Close()
	return errors.Join(srcErr, dbErr)
}
