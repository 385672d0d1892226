package sqlite

import (
	"errors"

	"github.com/aussiebroadwan/cityauth/internal/auth/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

// ApplyMigrations applies any pending migrations from the embedded
// migrations package.
func (m *Store) ApplyMigrations() error {
	instance, err := m.migrator()
	if err != nil {
		return err
	}

	err = instance.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// SchemaVersion reports the applied migration version and whether the last
// migration left the schema dirty. A database with no migrations reports 0.
func (m *Store) SchemaVersion() (uint, bool, error) {
	instance, err := m.migrator()
	if err != nil {
		return 0, false, err
	}

	version, dirty, err := instance.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (m *Store) migrator() (*migrate.Migrate, error) {
	// The migrate driver shares the store's *sql.DB, so the returned
	// instance must never be closed.
	driver, err := sqlite.WithInstance(m.db, &sqlite.Config{})
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return nil, err
	}

	return migrate.NewWithInstance("iofs", source, "sqlite", driver)
}
